package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/propdesk/cli/internal/session"
)

// ID is a server-assigned identifier. Some endpoints send numbers, others
// strings; both decode to the same value.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Actor is the user who performed an action or sent a message.
type Actor struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// ResourceSummary describes the record an activity entry refers to.
type ResourceSummary struct {
	Title   string `json:"title,omitempty"`
	Address string `json:"address,omitempty"`
}

// ActivityEntry is one immutable audit/activity record.
type ActivityEntry struct {
	ID           ID                     `json:"id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resourceType"`
	ResourceID   *ID                    `json:"resourceId,omitempty"`
	Resource     *ResourceSummary       `json:"resource,omitempty"`
	Actor        Actor                  `json:"actor"`
	Details      map[string]interface{} `json:"details,omitempty"`
	IPAddress    string                 `json:"ipAddress,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}

func (e ActivityEntry) Key() string { return string(e.ID) }

// SearchText returns the fields local search matches against.
func (e ActivityEntry) SearchText() []string {
	fields := []string{e.Action, e.Actor.Name, e.Actor.Email}
	if e.Resource != nil {
		fields = append(fields, e.Resource.Title, e.Resource.Address)
	}
	if len(e.Details) > 0 {
		fields = append(fields, DetailString(e.Details))
	}
	return fields
}

// DetailString serializes a detail map with sorted keys so the output is stable.
func DetailString(details map[string]interface{}) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(scalarString(details[k]))
	}
	return b.String()
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}

// Message is one item in a tenant message thread.
type Message struct {
	ID        ID         `json:"id"`
	ThreadID  ID         `json:"threadId"`
	Sender    Actor      `json:"sender"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

func (m Message) Key() string { return string(m.ID) }

func (m Message) SearchText() []string {
	return []string{m.Body, m.Sender.Name, m.Sender.Email}
}

// Property is a managed rental unit or building.
type Property struct {
	ID        ID        `json:"id"`
	Title     string    `json:"title"`
	Address   string    `json:"address"`
	Status    string    `json:"status"`
	OwnerID   ID        `json:"ownerId"`
	ManagerID *ID       `json:"managerId,omitempty"`
	Rent      float64   `json:"rent"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p Property) Key() string { return string(p.ID) }

func (p Property) SearchText() []string {
	return []string{p.Title, p.Address, p.Status}
}

// Task is a maintenance request or work order.
type Task struct {
	ID         ID         `json:"id"`
	PropertyID ID         `json:"propertyId"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	AssigneeID *ID        `json:"assigneeId,omitempty"`
	DueAt      *time.Time `json:"dueAt,omitempty"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (t Task) Key() string { return string(t.ID) }

func (t Task) SearchText() []string {
	return []string{t.Title, t.Status}
}

// User mirrors the backend user returned by /auth/me.
type User struct {
	ID        ID        `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile converts the user into the cached session profile.
func (u User) Profile() *session.Profile {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	return &session.Profile{ID: string(u.ID), Email: u.Email, Name: name, Role: u.Role}
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// VersionInfo is returned by GET /version.
type VersionInfo struct {
	Version    string `json:"version"`
	APIVersion string `json:"apiVersion"`
}
