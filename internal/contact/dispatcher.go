package contact

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/contact-relay/internal/models"
	emailprovider "github.com/example/contact-relay/internal/providers/email"
)

// Verifier is the server-side bot-verification collaborator.
type Verifier interface {
	Verify(ctx context.Context, token string) models.VerificationOutcome
}

// ProfileResolver computes the environment profile for the current request.
type ProfileResolver func() models.EnvironmentProfile

// Config contains the runtime settings the dispatcher relies on.
type Config struct {
	// Recipient is the inbox submissions are relayed to.
	Recipient string
	// Rules bound the accepted submission fields.
	Rules Rules
	// SendTimeout caps the transport call. Zero disables the extra deadline.
	SendTimeout time.Duration
}

// Dependencies collects the runtime collaborators required by the dispatcher.
type Dependencies struct {
	Verifier  Verifier
	Transport emailprovider.Provider
	Resolver  ProfileResolver
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Dispatcher orchestrates the contact-submission pipeline: sanitization,
// bot-verification, environment gating and the single transport attempt.
// Every run terminates in exactly one SubmissionOutcome; no retries are
// performed anywhere in the pipeline.
type Dispatcher struct {
	cfg       Config
	verifier  Verifier
	transport emailprovider.Provider
	resolve   ProfileResolver
	logger    zerolog.Logger
	now       func() time.Time
}

// NewDispatcher constructs a dispatcher, validating configuration and
// collaborators up front.
func NewDispatcher(cfg Config, deps Dependencies) (*Dispatcher, error) {
	if cfg.Rules.NameMaxLen == 0 {
		cfg.Rules = DefaultRules()
	}
	if deps.Verifier == nil {
		return nil, errors.New("dispatcher: verifier dependency is required")
	}
	if deps.Transport == nil {
		return nil, errors.New("dispatcher: transport dependency is required")
	}
	if deps.Resolver == nil {
		return nil, errors.New("dispatcher: profile resolver dependency is required")
	}

	logger := deps.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	logger = logger.With().Str("component", "dispatcher").Logger()

	nowFunc := deps.Now
	if nowFunc == nil {
		nowFunc = time.Now
	}

	return &Dispatcher{
		cfg:       cfg,
		verifier:  deps.Verifier,
		transport: deps.Transport,
		resolve:   deps.Resolver,
		logger:    logger,
		now:       nowFunc,
	}, nil
}

// Submit runs one submission through the pipeline and returns its terminal
// outcome. A relaxed environment never surfaces a hard failure for
// configuration or transport problems; a strict environment never fabricates
// success.
func (d *Dispatcher) Submit(ctx context.Context, raw models.SubmissionRequest) models.SubmissionOutcome {
	id := uuid.NewString()
	log := d.logger.With().Str("submission_id", id).Logger()

	sanitized, err := SanitizeAndValidate(d.cfg.Rules, raw)
	if err != nil {
		log.Info().Err(err).Msg("submission rejected by validation")
		return models.SubmissionOutcome{Kind: models.OutcomeRejected, Reason: err.Error(), Err: err, SubmissionID: id}
	}

	profile := d.resolve()
	verificationRequired := raw.VerificationRequired()

	if verificationRequired && profile.VerificationConfigured {
		outcome := d.verifier.Verify(ctx, raw.RecaptchaToken)
		if !outcome.Verified() {
			log.Info().
				Str("reason", outcome.Reason).
				Float64("score", outcome.Score).
				Msg("submission rejected by bot verification")
			err := fmt.Errorf("%w: %s", ErrVerificationFailed, outcome.Reason)
			return models.SubmissionOutcome{Kind: models.OutcomeRejected, Reason: outcome.Reason, Err: err, SubmissionID: id}
		}
		log.Debug().Str("status", string(outcome.Status)).Float64("score", outcome.Score).Msg("token verified")
	}

	if !profile.EmailConfigured {
		if profile.Relaxed {
			log.Info().Str("from", sanitized.Email).Msg("email transport not configured; simulating send")
			return models.SubmissionOutcome{
				Kind:         models.OutcomeSimulatedSent,
				Reason:       "email transport not configured; simulated in relaxed environment",
				SubmissionID: id,
			}
		}
		log.Error().Msg("email transport not configured in strict environment")
		return models.SubmissionOutcome{
			Kind:         models.OutcomeServiceUnavailable,
			Service:      models.ServiceEmail,
			Reason:       "email service is not configured; please contact the administrator",
			SubmissionID: id,
		}
	}

	if verificationRequired && !profile.VerificationConfigured {
		log.Error().Msg("verification secret not configured in strict environment")
		return models.SubmissionOutcome{
			Kind:         models.OutcomeServiceUnavailable,
			Service:      models.ServiceVerification,
			Reason:       "verification service is not configured; please contact the administrator",
			SubmissionID: id,
		}
	}

	sendCtx := ctx
	if d.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.cfg.SendTimeout)
		defer cancel()
	}

	payload := d.buildPayload(id, sanitized)
	if _, err := d.transport.Send(sendCtx, payload); err != nil {
		if profile.Relaxed {
			log.Warn().Err(err).Msg("transport failed; simulating success in relaxed environment")
			return models.SubmissionOutcome{
				Kind:         models.OutcomeSimulatedSent,
				Reason:       "transport failed but simulated success in relaxed environment",
				SubmissionID: id,
			}
		}
		log.Error().Err(err).Msg("transport failed")
		return models.SubmissionOutcome{Kind: models.OutcomeTransportFailed, Reason: "failed to send email", Err: err, SubmissionID: id}
	}

	log.Info().Str("to", d.cfg.Recipient).Msg("submission relayed")
	return models.SubmissionOutcome{Kind: models.OutcomeSent, Reason: "email sent successfully", SubmissionID: id}
}

// buildPayload renders the sanitized submission as an email addressed to the
// configured recipient. The visitor's address goes into Reply-To so the
// envelope sender stays the authenticated account.
func (d *Dispatcher) buildPayload(id string, s models.SanitizedSubmission) *emailprovider.Payload {
	text := fmt.Sprintf("Name: %s\nEmail: %s\nMessage: %s", s.Name, s.Email, s.Message)
	html := fmt.Sprintf(
		"<h2>New Contact Form Submission</h2>\n"+
			"<p><strong>Name:</strong> %s</p>\n"+
			"<p><strong>Email:</strong> %s</p>\n"+
			"<p><strong>Message:</strong></p>\n"+
			"<p>%s</p>",
		s.Name, s.Email, strings.ReplaceAll(s.Message, "\n", "<br>"))

	return &emailprovider.Payload{
		MessageID: id,
		ReplyTo:   s.Email,
		To:        []string{d.cfg.Recipient},
		Subject:   fmt.Sprintf("New Contact Form Submission from %s", s.Name),
		Text:      text,
		HTML:      html,
	}
}
