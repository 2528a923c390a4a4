package contact_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/example/contact-relay/internal/contact"
	"github.com/example/contact-relay/internal/models"
)

func validRequest() models.SubmissionRequest {
	return models.SubmissionRequest{
		Name:           "Jane O'Neil",
		Email:          "Jane@Example.com",
		Message:        "Hello there!\nSecond line.",
		RecaptchaToken: models.SentinelToken,
	}
}

func TestSanitizeAndValidateSuccess(t *testing.T) {
	out, err := contact.SanitizeAndValidate(contact.DefaultRules(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Email != "jane@example.com" {
		t.Fatalf("expected lowercased email, got %q", out.Email)
	}
	if !strings.Contains(out.Name, "Jane O") {
		t.Fatalf("unexpected name %q", out.Name)
	}
	// Apostrophes are escaped after validation.
	if strings.Contains(out.Name, "'") {
		t.Fatalf("expected escaped apostrophe, got %q", out.Name)
	}
	if strings.Contains(out.Message, "<") || strings.Contains(out.Message, ">") {
		t.Fatalf("unexpected markup in message %q", out.Message)
	}
}

func TestSanitizeAndValidateMissingFields(t *testing.T) {
	cases := []struct {
		label string
		req   models.SubmissionRequest
	}{
		{"no name", models.SubmissionRequest{Email: "a@b.com", Message: "hi"}},
		{"no email", models.SubmissionRequest{Name: "Jane", Message: "hi"}},
		{"no message", models.SubmissionRequest{Name: "Jane", Email: "a@b.com"}},
		{"empty", models.SubmissionRequest{}},
	}

	for _, tc := range cases {
		if _, err := contact.SanitizeAndValidate(contact.DefaultRules(), tc.req); !errors.Is(err, contact.ErrMissingField) {
			t.Fatalf("%s: expected ErrMissingField, got %v", tc.label, err)
		}
	}
}

func TestSanitizeAndValidateInvalidEmail(t *testing.T) {
	for _, email := range []string{"not-an-email", "a@", "Jane <jane@example.com>", "jane at example.com"} {
		req := validRequest()
		req.Email = email
		if _, err := contact.SanitizeAndValidate(contact.DefaultRules(), req); !errors.Is(err, contact.ErrInvalidEmail) {
			t.Fatalf("email %q: expected ErrInvalidEmail, got %v", email, err)
		}
	}
}

func TestSanitizeAndValidateInvalidName(t *testing.T) {
	cases := []string{
		"Jane123",
		"jane@example",
		"<script>",
		"J",
		strings.Repeat("a", 51),
	}

	for _, name := range cases {
		req := validRequest()
		req.Name = name
		if _, err := contact.SanitizeAndValidate(contact.DefaultRules(), req); !errors.Is(err, contact.ErrInvalidName) {
			t.Fatalf("name %q: expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestSanitizeAndValidateHyphensAndSpacesAllowed(t *testing.T) {
	req := validRequest()
	req.Name = "Mary-Jane van der Berg"
	if _, err := contact.SanitizeAndValidate(contact.DefaultRules(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSanitizeAndValidateMessageTooLong(t *testing.T) {
	req := validRequest()
	req.Message = strings.Repeat("x", 1001)
	if _, err := contact.SanitizeAndValidate(contact.DefaultRules(), req); !errors.Is(err, contact.ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}

	req.Message = strings.Repeat("x", 1000)
	if _, err := contact.SanitizeAndValidate(contact.DefaultRules(), req); err != nil {
		t.Fatalf("expected message at the bound to pass, got %v", err)
	}
}

func TestSanitizeAndValidateEscapesMarkup(t *testing.T) {
	req := validRequest()
	req.Message = `<img src="x" onerror="alert(1)">`
	out, err := contact.SanitizeAndValidate(contact.DefaultRules(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out.Message, "<img") {
		t.Fatalf("markup survived escaping: %q", out.Message)
	}
	if !strings.Contains(out.Message, "&lt;img") {
		t.Fatalf("expected escaped markup, got %q", out.Message)
	}
}

func TestSanitizeAndValidateIsPure(t *testing.T) {
	req := validRequest()
	first, err := contact.SanitizeAndValidate(contact.DefaultRules(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := contact.SanitizeAndValidate(contact.DefaultRules(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("sanitizer is not deterministic: %#v vs %#v", first, second)
	}
}
