package config

import (
	"strings"

	"github.com/example/contact-relay/internal/models"
)

// Profile derives the per-request environment profile from the loaded
// configuration. Configuration is static for the process lifetime, but the
// profile is recomputed on each call to keep the contract side-effect free
// and trivial to test with injected configs.
func (c *Config) Profile() models.EnvironmentProfile {
	return models.EnvironmentProfile{
		Relaxed:                c.RelaxedEnv(),
		EmailConfigured:        c.EmailConfigured(),
		VerificationConfigured: c.VerificationConfigured(),
		SiteKeyConfigured:      c.SiteKeyConfigured(),
	}
}

// RelaxedEnv reports whether the explicit environment flag selects the
// relaxed (development) deployment mode. It is never inferred from
// configuration completeness.
func (c *Config) RelaxedEnv() bool {
	env := strings.ToLower(strings.TrimSpace(c.App.Env))
	return env == "development" || env == "dev"
}

// EmailConfigured reports whether the transport identity and credential are
// both set to non-placeholder values.
func (c *Config) EmailConfigured() bool {
	return c.SMTP.User != "" && c.SMTP.Pass != "" &&
		c.SMTP.User != PlaceholderGmailUser && c.SMTP.Pass != PlaceholderGmailPass
}

// VerificationConfigured reports whether the server-side verification secret
// is usable.
func (c *Config) VerificationConfigured() bool {
	return c.Recaptcha.SecretKey != "" && c.Recaptcha.SecretKey != PlaceholderRecaptchaSecret
}

// SiteKeyConfigured reports whether the public site key is usable.
func (c *Config) SiteKeyConfigured() bool {
	return c.Recaptcha.SiteKey != "" && c.Recaptcha.SiteKey != PlaceholderRecaptchaSite
}
