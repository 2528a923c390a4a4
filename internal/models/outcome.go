package models

// VerificationStatus enumerates the result classes of a server-side token
// check.
type VerificationStatus string

const (
	// VerificationVerified means the service confirmed the token and the
	// trust score cleared the configured threshold.
	VerificationVerified VerificationStatus = "verified"
	// VerificationSkipped means the sentinel token was supplied and no
	// service call was made.
	VerificationSkipped VerificationStatus = "skipped"
	// VerificationFailed covers low trust scores, rejected tokens and an
	// unreachable verification service.
	VerificationFailed VerificationStatus = "failed"
)

// VerificationOutcome is the tagged result of a token check.
type VerificationOutcome struct {
	Status VerificationStatus
	Reason string
	// Score is the trust score reported by the service, when a response was
	// received. 0.0 is a bot, 1.0 is a human.
	Score float64
}

// Verified reports whether the submission may proceed past the check.
func (o VerificationOutcome) Verified() bool {
	return o.Status == VerificationVerified || o.Status == VerificationSkipped
}

// EnvironmentProfile captures the per-request view of process configuration
// that the dispatcher branches on. It is computed once per request and never
// mutated.
type EnvironmentProfile struct {
	// Relaxed reflects the explicit environment flag (development) and is
	// never inferred from configuration completeness. A relaxed environment
	// degrades missing configuration to simulated success.
	Relaxed bool
	// EmailConfigured is true only when both the transport identity and
	// credential are set and neither equals its documented placeholder.
	EmailConfigured bool
	// VerificationConfigured is true only when the server-side verification
	// secret is set and not a placeholder.
	VerificationConfigured bool
	// SiteKeyConfigured mirrors the public site key state for health
	// reporting.
	SiteKeyConfigured bool
}

// OutcomeKind enumerates the terminal states of the submission pipeline.
type OutcomeKind string

const (
	// OutcomeSent means the transport accepted the message.
	OutcomeSent OutcomeKind = "sent"
	// OutcomeSimulatedSent is the relaxed-environment success surrogate used
	// when the transport is unconfigured or the live send failed.
	OutcomeSimulatedSent OutcomeKind = "simulated_sent"
	// OutcomeRejected covers validation and verification failures. These are
	// client-caused and never retried.
	OutcomeRejected OutcomeKind = "rejected"
	// OutcomeServiceUnavailable signals operator-caused misconfiguration in a
	// strict environment.
	OutcomeServiceUnavailable OutcomeKind = "service_unavailable"
	// OutcomeTransportFailed signals a live send failure in a strict
	// environment.
	OutcomeTransportFailed OutcomeKind = "transport_failed"
)

// Services that OutcomeServiceUnavailable can name.
const (
	ServiceEmail        = "email"
	ServiceVerification = "verification"
)

// SubmissionOutcome is the sole result type of a pipeline run. Every run
// produces exactly one value of this type.
type SubmissionOutcome struct {
	Kind   OutcomeKind
	Reason string
	// Service names the unavailable collaborator for
	// OutcomeServiceUnavailable ("email" or "verification").
	Service string
	// Err carries the validation error for OutcomeRejected or the transport
	// error for OutcomeTransportFailed.
	Err error
	// SubmissionID is the server-assigned identifier attached to logs and
	// the relayed email.
	SubmissionID string
}

// Success reports whether the outcome maps to an HTTP 200.
func (o SubmissionOutcome) Success() bool {
	return o.Kind == OutcomeSent || o.Kind == OutcomeSimulatedSent
}
