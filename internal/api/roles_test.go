package api

import (
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  Role
	}{
		{"admin", RoleAdmin},
		{" Owner ", RoleOwner},
		{"tenant", RoleTenant},
		{"property_manager", RoleManager},
		{"pm", RoleManager},
		{"vendor", RoleVendor},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if err != nil || got != tt.want {
				t.Errorf("ParseRole(%q) = %q, %v; want %q", tt.input, got, err, tt.want)
			}
		})
	}

	if _, err := ParseRole("landlord"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestRole_Path(t *testing.T) {
	if got := RoleManager.Path("tasks", "/7/"); got != "/property-manager/tasks/7" {
		t.Errorf("unexpected path %q", got)
	}
	if got := RoleVendor.Path(); got != "/vendor" {
		t.Errorf("unexpected path %q", got)
	}
}

func TestActivityFilter(t *testing.T) {
	start := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	f := ActivityFilter{
		Role:       RoleOwner,
		Action:     "update_lease",
		ResourceID: "r-1",
		ActorID:    "u-9",
		StartDate:  &start,
		EndDate:    &end,
		Limit:      25,
	}

	if got := f.Path(); got != "/owner/activity" {
		t.Errorf("unexpected path %q", got)
	}
	v := f.Values()
	checks := map[string]string{
		"action":     "update_lease",
		"resourceId": "r-1",
		"userId":     "u-9",
		"startDate":  "2026-01-02",
		"endDate":    "2026-01-31",
		"limit":      "25",
		"offset":     "",
		"q":          "",
	}
	for k, want := range checks {
		if got := v.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}

	f.PropertyID = "p 1"
	if got := f.Path(); got != "/properties/p%201/activity" {
		t.Errorf("unexpected property-scoped path %q", got)
	}

	if got := (ActivityFilter{}).Path(); got != "/admin/activity" {
		t.Errorf("unexpected default path %q", got)
	}
}
