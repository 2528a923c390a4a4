package util_test

import (
	"errors"
	"testing"

	"github.com/example/contact-relay/internal/util"
)

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"jane@example.com", "jane@example.com"},
		{"Jane@Example.COM", "jane@example.com"},
		{"  jane@example.com  ", "jane@example.com"},
	}

	for _, tc := range cases {
		got, err := util.NormalizeEmail(tc.in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeEmailRejectsInvalid(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"not-an-email",
		"a@",
		"Jane <jane@example.com>",
		"jane@example.com, john@example.com",
	}

	for _, in := range cases {
		if _, err := util.NormalizeEmail(in); !errors.Is(err, util.ErrInvalidEmail) {
			t.Fatalf("%q: expected ErrInvalidEmail, got %v", in, err)
		}
	}
}

func TestEnsureMaxRunes(t *testing.T) {
	if err := util.EnsureMaxRunes("message", "hello", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := util.EnsureMaxRunes("message", "hello!", 5); err == nil {
		t.Fatal("expected length error")
	}
	// Rune count, not byte count.
	if err := util.EnsureMaxRunes("message", "héllo", 5); err != nil {
		t.Fatalf("unexpected error for multibyte input: %v", err)
	}
	if err := util.EnsureMaxRunes("message", "anything", 0); err != nil {
		t.Fatalf("zero max must disable the check: %v", err)
	}
}

func TestEnsureMinRunes(t *testing.T) {
	if err := util.EnsureMinRunes("name", "Jo", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := util.EnsureMinRunes("name", "J", 2); err == nil {
		t.Fatal("expected length error")
	}
	if err := util.EnsureMinRunes("name", "", 0); err != nil {
		t.Fatalf("zero min must disable the check: %v", err)
	}
}
