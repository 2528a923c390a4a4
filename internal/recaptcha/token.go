package recaptcha

import (
	"context"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/example/contact-relay/internal/config"
	"github.com/example/contact-relay/internal/models"
)

// ScriptLoader prepares the challenge runtime once per process. The default
// implementation is supplied by the embedding application; tests inject
// fakes. Load must be safe to call once and may perform network I/O.
type ScriptLoader interface {
	Load(ctx context.Context) error
}

// TokenFunc requests a token scoped to an action from a loaded challenge
// runtime.
type TokenFunc func(ctx context.Context, siteKey, action string) (string, error)

// TokenSourceOption configures a TokenSource.
type TokenSourceOption func(*TokenSource)

// WithScriptLoader replaces the challenge runtime loader.
func WithScriptLoader(l ScriptLoader) TokenSourceOption {
	return func(s *TokenSource) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithTokenFunc replaces the token issuance call.
func WithTokenFunc(fn TokenFunc) TokenSourceOption {
	return func(s *TokenSource) {
		if fn != nil {
			s.issue = fn
		}
	}
}

// TokenSource acquires one-time verification tokens for a named action. It is
// the submission client's counterpart to the server-side verifier: when the
// site key is missing, still a placeholder, or the challenge service
// misbehaves, it degrades to the sentinel token instead of blocking the
// submission.
type TokenSource struct {
	logger  zerolog.Logger
	siteKey string
	loader  ScriptLoader
	issue   TokenFunc

	// group collapses concurrent loads into a single in-flight call; loaded
	// flips once so later callers skip the group entirely.
	group  singleflight.Group
	loaded atomic.Bool
}

// NewTokenSource constructs a token source for the configured site key.
func NewTokenSource(cfg config.RecaptchaConfig, logger zerolog.Logger, opts ...TokenSourceOption) *TokenSource {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	s := &TokenSource{
		logger:  logger,
		siteKey: strings.TrimSpace(cfg.SiteKey),
		loader:  noopLoader{},
		issue: func(ctx context.Context, siteKey, action string) (string, error) {
			return models.SentinelToken, nil
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// AcquireToken returns a verification token scoped to the action. The
// degraded paths all return the sentinel token; the method never returns an
// error because token acquisition must not block a form submission.
func (s *TokenSource) AcquireToken(ctx context.Context, action string) string {
	if s.siteKey == "" || s.siteKey == config.PlaceholderRecaptchaSite {
		return models.SentinelToken
	}

	if err := s.ensureLoaded(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("challenge runtime load failed; using sentinel token")
		return models.SentinelToken
	}

	token, err := s.issue(ctx, s.siteKey, action)
	if err != nil || strings.TrimSpace(token) == "" {
		s.logger.Warn().Err(err).Str("action", action).Msg("token request failed; using sentinel token")
		return models.SentinelToken
	}
	return token
}

// ensureLoaded performs the one-time runtime load. Concurrent callers share
// the in-flight load; at most one Load call happens per process lifetime
// unless it fails, in which case the next caller retries.
func (s *TokenSource) ensureLoaded(ctx context.Context) error {
	if s.loaded.Load() {
		return nil
	}

	_, err, _ := s.group.Do("load", func() (any, error) {
		if s.loaded.Load() {
			return nil, nil
		}
		if err := s.loader.Load(ctx); err != nil {
			return nil, err
		}
		s.loaded.Store(true)
		return nil, nil
	})
	return err
}

type noopLoader struct{}

func (noopLoader) Load(context.Context) error { return nil }
