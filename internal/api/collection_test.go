package api

import (
	"testing"
)

func TestDecodePage(t *testing.T) {
	t.Run("null and empty bodies are empty pages", func(t *testing.T) {
		for _, body := range []string{"", "null", "  "} {
			page, err := DecodePage[Task]([]byte(body))
			if err != nil {
				t.Fatalf("DecodePage(%q) returned error: %v", body, err)
			}
			if page.Items == nil || len(page.Items) != 0 || page.Total != 0 {
				t.Errorf("DecodePage(%q) = %+v, want empty page", body, page)
			}
		}
	})

	t.Run("envelope wrapping items and total", func(t *testing.T) {
		body := `{"success":true,"data":{"items":[{"id":"t1"}],"total":9}}`
		page, err := DecodePage[Task]([]byte(body))
		if err != nil {
			t.Fatalf("DecodePage returned error: %v", err)
		}
		if len(page.Items) != 1 || page.Total != 9 {
			t.Errorf("unexpected page %+v", page)
		}
	})

	t.Run("items without total counts the items", func(t *testing.T) {
		page, err := DecodePage[Task]([]byte(`{"items":[{"id":"a"},{"id":"b"}]}`))
		if err != nil {
			t.Fatalf("DecodePage returned error: %v", err)
		}
		if page.Total != 2 {
			t.Errorf("expected total 2, got %d", page.Total)
		}
	})

	t.Run("unknown object shape is an error", func(t *testing.T) {
		if _, err := DecodePage[Task]([]byte(`{"rows":[]}`)); err == nil {
			t.Error("expected error for unknown shape")
		}
	})

	t.Run("malformed array is an error", func(t *testing.T) {
		if _, err := DecodePage[Task]([]byte(`[{"id":`)); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})
}

func TestDecodeOne(t *testing.T) {
	t.Run("bare object", func(t *testing.T) {
		u, err := DecodeOne[User]([]byte(`{"id":"u1","email":"t@x.io"}`))
		if err != nil || u.Email != "t@x.io" {
			t.Fatalf("unexpected result %+v, %v", u, err)
		}
	})

	t.Run("enveloped object", func(t *testing.T) {
		u, err := DecodeOne[User]([]byte(`{"success":true,"data":{"id":"u1","email":"t@x.io"}}`))
		if err != nil || u.Email != "t@x.io" {
			t.Fatalf("unexpected result %+v, %v", u, err)
		}
	})

	t.Run("data field without success flag is not an envelope", func(t *testing.T) {
		type withData struct {
			Data string `json:"data"`
		}
		v, err := DecodeOne[withData]([]byte(`{"data":"raw"}`))
		if err != nil || v.Data != "raw" {
			t.Fatalf("unexpected result %+v, %v", v, err)
		}
	})
}
