package recaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/contact-relay/internal/config"
	"github.com/example/contact-relay/internal/models"
)

// VerifierOption configures the behaviour of the verifier.
type VerifierOption func(*Verifier)

// WithHTTPClient swaps the HTTP client used for the verification call.
func WithHTTPClient(client *http.Client) VerifierOption {
	return func(v *Verifier) {
		if client != nil {
			v.httpClient = client
		}
	}
}

// WithVerifyURL overrides the verification endpoint, used by tests to point
// at a local stub.
func WithVerifyURL(u string) VerifierOption {
	return func(v *Verifier) {
		if strings.TrimSpace(u) != "" {
			v.verifyURL = strings.TrimSpace(u)
		}
	}
}

// Verifier performs the server-side token check against the third-party
// verification service.
type Verifier struct {
	logger     zerolog.Logger
	secret     string
	verifyURL  string
	minScore   float64
	httpClient *http.Client
}

// siteverifyResponse is the fixed response shape of the verification service.
type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	ErrorCodes []string `json:"error-codes"`
}

// NewVerifier constructs a verifier from configuration. The secret may be
// empty or a placeholder; callers are expected to gate on the environment
// profile before invoking Verify with a real token.
func NewVerifier(cfg config.RecaptchaConfig, timeout time.Duration, logger zerolog.Logger, opts ...VerifierOption) *Verifier {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	v := &Verifier{
		logger:     logger,
		secret:     cfg.SecretKey,
		verifyURL:  cfg.VerifyURL,
		minScore:   cfg.MinScore,
		httpClient: &http.Client{Timeout: timeout},
	}
	if v.verifyURL == "" {
		v.verifyURL = "https://www.google.com/recaptcha/api/siteverify"
	}

	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Verify checks a client-supplied token. The sentinel token short-circuits to
// Skipped without any network call. A response is Verified only when the
// service reports success and the trust score clears the configured
// threshold.
func (v *Verifier) Verify(ctx context.Context, token string) models.VerificationOutcome {
	if token == models.SentinelToken {
		return models.VerificationOutcome{
			Status: models.VerificationSkipped,
			Reason: "client-side verification unavailable",
		}
	}

	form := url.Values{
		"secret":   {v.secret},
		"response": {token},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return models.VerificationOutcome{
			Status: models.VerificationFailed,
			Reason: fmt.Sprintf("verification request build failed: %v", err),
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Warn().Err(err).Msg("verification service unreachable")
		return models.VerificationOutcome{
			Status: models.VerificationFailed,
			Reason: "verification service unreachable",
		}
	}
	defer resp.Body.Close()

	var payload siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		v.logger.Warn().Err(err).Msg("verification response decode failed")
		return models.VerificationOutcome{
			Status: models.VerificationFailed,
			Reason: "verification service unreachable",
		}
	}

	if !payload.Success || payload.Score < v.minScore {
		v.logger.Info().
			Bool("success", payload.Success).
			Float64("score", payload.Score).
			Strs("error_codes", payload.ErrorCodes).
			Msg("token rejected by verification service")
		return models.VerificationOutcome{
			Status: models.VerificationFailed,
			Reason: "low trust score",
			Score:  payload.Score,
		}
	}

	return models.VerificationOutcome{
		Status: models.VerificationVerified,
		Score:  payload.Score,
	}
}
