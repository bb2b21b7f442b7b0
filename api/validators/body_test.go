package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
)

type samplePayload struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Count int    `json:"count" validate:"gte=0"`
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"pencils","email":"a@b.com","count":3}`))

	var payload samplePayload
	if err := DecodeJSONBody(req, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Name != "pencils" || payload.Count != 3 {
		t.Fatalf("payload not decoded: %+v", payload)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x","email":"a@b.com","count":1,"extra":true}`))

	var payload samplePayload
	err := DecodeJSONBody(req, &payload)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsFieldErrorsByJSONName(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"","email":"not-an-email","count":-1}`))

	var payload samplePayload
	err := DecodeJSONBody(req, &payload)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected map details, got %T", typed.Details())
	}
	for _, field := range []string{"name", "email", "count"} {
		if _, present := details[field]; !present {
			t.Fatalf("expected detail for %q, got %v", field, details)
		}
	}
}

func TestParseListParams(t *testing.T) {
	req := httptest.NewRequest("GET", "/?limit=10", nil)
	params, err := ParseListParams(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Limit != 10 {
		t.Fatalf("expected limit 10, got %d", params.Limit)
	}

	req = httptest.NewRequest("GET", "/?limit=abc", nil)
	if _, err := ParseListParams(req); err == nil {
		t.Fatal("expected error for non-numeric limit")
	}

	req = httptest.NewRequest("GET", "/?cursor=!!not-a-cursor!!", nil)
	if _, err := ParseListParams(req); err == nil {
		t.Fatal("expected error for garbage cursor")
	}
}
