package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/contact-relay/internal/models"
)

// DefaultAction is the verification action submissions are scoped to.
const DefaultAction = "contact_form"

// DefaultTimeout is the wall-clock budget for one submission round trip. On
// expiry the in-flight request is abandoned from the caller's perspective;
// the server-side effect of a late response is not retracted.
const DefaultTimeout = 15 * time.Second

// ErrTimedOut is returned when the round trip exceeded the submission budget.
var ErrTimedOut = errors.New("request timed out, please try again later")

// TokenSource acquires a bot-verification token for a named action. It never
// fails; degraded paths yield the sentinel token.
type TokenSource interface {
	AcquireToken(ctx context.Context, action string) string
}

// Option configures the form client.
type Option func(*FormClient)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(fc *FormClient) {
		if c != nil {
			fc.httpClient = c
		}
	}
}

// WithTimeout overrides the round-trip budget.
func WithTimeout(d time.Duration) Option {
	return func(fc *FormClient) {
		if d > 0 {
			fc.timeout = d
		}
	}
}

// Result reports the server's answer to a submission.
type Result struct {
	StatusCode int
	Message    string
	Details    string
}

// Accepted reports whether the server acknowledged the submission.
func (r Result) Accepted() bool {
	return r.StatusCode == http.StatusOK
}

// FormClient is the programmatic counterpart of the browser contact form: it
// acquires a verification token, posts the submission and enforces the
// round-trip budget.
type FormClient struct {
	logger     zerolog.Logger
	endpoint   string
	tokens     TokenSource
	httpClient *http.Client
	timeout    time.Duration
}

// New constructs a form client for the given submission endpoint.
func New(endpoint string, tokens TokenSource, logger zerolog.Logger, opts ...Option) (*FormClient, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("client: endpoint is required")
	}
	if tokens == nil {
		return nil, errors.New("client: token source is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	fc := &FormClient{
		logger:     logger.With().Str("component", "form_client").Logger(),
		endpoint:   strings.TrimSpace(endpoint),
		tokens:     tokens,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(fc)
		}
	}
	return fc, nil
}

// Submit sends one contact-form submission. Token acquisition and the POST
// share the single round-trip budget; on expiry ErrTimedOut is returned and
// the in-flight request is abandoned.
func (fc *FormClient) Submit(ctx context.Context, name, email, message string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, fc.timeout)
	defer cancel()

	token := fc.tokens.AcquireToken(ctx, DefaultAction)

	body, err := json.Marshal(models.SubmissionRequest{
		Name:           name,
		Email:          email,
		Message:        message,
		RecaptchaToken: token,
	})
	if err != nil {
		return nil, fmt.Errorf("client: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fc.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := fc.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			fc.logger.Warn().Dur("budget", fc.timeout).Msg("submission abandoned after timeout")
			return nil, ErrTimedOut
		}
		return nil, fmt.Errorf("client: request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded struct {
		Message string `json:"message"`
		Details string `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("client: decode response: %w", err)
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Message:    decoded.Message,
		Details:    decoded.Details,
	}, nil
}
