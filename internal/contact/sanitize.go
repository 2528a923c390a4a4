package contact

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/example/contact-relay/internal/models"
	"github.com/example/contact-relay/internal/util"
)

var (
	// ErrMissingField is returned when name, email or message is absent.
	ErrMissingField = errors.New("missing required fields")
	// ErrInvalidEmail is returned when the email address fails to parse.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidName is returned when the name fails the character or length
	// rules.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidMessage is returned when the message exceeds the configured
	// length bound.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrVerificationFailed is returned when the bot-verification service
	// rejects the token.
	ErrVerificationFailed = errors.New("verification failed")
)

// namePattern admits letters, whitespace, hyphens and apostrophes. Applied to
// the trimmed name before HTML escaping, since escaping rewrites apostrophes.
var namePattern = regexp.MustCompile(`^[A-Za-z\s\-']+$`)

// Rules bounds the accepted field lengths.
type Rules struct {
	NameMinLen    int
	NameMaxLen    int
	MessageMaxLen int
}

// DefaultRules mirror the configuration defaults: names of 2-50 characters
// and messages up to 1000 characters, with empty messages accepted.
func DefaultRules() Rules {
	return Rules{NameMinLen: 2, NameMaxLen: 50, MessageMaxLen: 1000}
}

// SanitizeAndValidate normalizes and validates a raw submission. Rules are
// applied in order and short-circuit on the first failure: field presence,
// email, name, message. The function is pure and deterministic; no failure
// here ever reaches an external collaborator.
func SanitizeAndValidate(rules Rules, raw models.SubmissionRequest) (models.SanitizedSubmission, error) {
	var out models.SanitizedSubmission

	if raw.Name == "" || raw.Email == "" || raw.Message == "" {
		return out, ErrMissingField
	}

	email, err := util.NormalizeEmail(raw.Email)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}

	name := strings.TrimSpace(raw.Name)
	if !namePattern.MatchString(name) {
		return out, fmt.Errorf("%w: only letters, spaces, hyphens and apostrophes are allowed", ErrInvalidName)
	}
	if err := util.EnsureMinRunes("name", name, rules.NameMinLen); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	if err := util.EnsureMaxRunes("name", name, rules.NameMaxLen); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	message := strings.TrimSpace(raw.Message)
	if err := util.EnsureMaxRunes("message", message, rules.MessageMaxLen); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	out.Name = html.EscapeString(name)
	out.Email = email
	out.Message = html.EscapeString(message)
	return out, nil
}
