package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/example/contact-relay/internal/config"
	"github.com/example/contact-relay/internal/models"
	emailprovider "github.com/example/contact-relay/internal/providers/email"
)

// Email constructs the email transport for the current environment profile.
// A configured transport yields the real SMTP provider; anything else falls
// back to the mock so relaxed environments and local development keep
// working without credentials.
func Email(cfg config.SMTPConfig, profile models.EnvironmentProfile, logger zerolog.Logger) (emailprovider.Provider, error) {
	if profile.EmailConfigured {
		provider, err := emailprovider.NewSMTPProvider(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("factory: smtp provider init: %w", err)
		}
		logger.Info().
			Str("backend", "smtp").
			Str("host", cfg.Host).
			Msg("email provider initialised")
		return provider, nil
	}

	provider := emailprovider.NewMockProvider(logger)
	logger.Info().
		Str("backend", "mock").
		Msg("email provider initialised")
	return provider, nil
}
