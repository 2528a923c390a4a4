package models

// SentinelToken is the reserved token the browser client falls back to when
// the challenge service is unavailable or the site key is not configured. The
// server skips the verification-service call when it sees this value.
const SentinelToken = "mock-token"

// SubmissionRequest is the wire shape of a contact-form submission. It lives
// for the duration of a single request and is never persisted.
type SubmissionRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Message        string `json:"message"`
	RecaptchaToken string `json:"recaptchaToken"`
}

// VerificationRequired reports whether the server must consult the
// verification service for this submission.
func (r SubmissionRequest) VerificationRequired() bool {
	return r.RecaptchaToken != SentinelToken
}

// SanitizedSubmission is the validated, escaped form of a submission. Passing
// validation implies all three fields satisfy their predicates.
type SanitizedSubmission struct {
	// Name is trimmed and HTML-escaped; the pre-escape value is 2-50
	// characters of letters, spaces, hyphens and apostrophes.
	Name string
	// Email is normalized to lower case and parses as an address.
	Email string
	// Message is trimmed and HTML-escaped; the pre-escape value is at most
	// MessageMaxLen characters. Empty messages are accepted.
	Message string
}
