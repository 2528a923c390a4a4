package email

import (
	"context"
	"time"
)

// Payload is the canonical representation of an outbound email handed to the
// provider. The dispatcher normalizes a sanitized submission to this
// structure.
type Payload struct {
	MessageID string
	From      string
	ReplyTo   string
	To        []string
	Subject   string
	Text      string
	HTML      string
	Headers   map[string]string
}

// RawResponse mirrors the low level provider response inspected by callers
// and tests.
type RawResponse struct {
	ID        string
	Code      int
	Body      string
	Timestamp time.Time
}

// Provider is the contract exposed by email transport implementations. Probe
// verifies connectivity and credentials without sending a message; the
// health endpoint uses it in strict environments.
type Provider interface {
	Send(ctx context.Context, payload *Payload) (*RawResponse, error)
	Probe(ctx context.Context) error
}
