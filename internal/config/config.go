package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Documented placeholder values. Configuration that still carries one of
// these counts as unconfigured for profile resolution and health reporting.
const (
	PlaceholderGmailUser       = "your_gmail_address@gmail.com"
	PlaceholderGmailPass       = "your_gmail_app_password"
	PlaceholderRecaptchaSecret = "your_recaptcha_secret_key_here"
	PlaceholderRecaptchaSite   = "your_recaptcha_site_key_here"
)

// Config captures all runtime configuration for the contact relay service.
type Config struct {
	App       AppConfig
	SMTP      SMTPConfig
	Recaptcha RecaptchaConfig
	Contact   ContactConfig
	Timeouts  TimeoutConfig
	RateLimit RateLimitConfig
	Health    HealthConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	Port     int
	LogLevel string
}

// SMTPConfig stores SMTP credentials for email delivery. User and Pass map to
// the Gmail account and app password of the original deployment, with host
// and port defaulting to the Gmail submission endpoint.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// RecaptchaConfig holds the public site key handed to browsers and the
// server-side secret used against the verification endpoint.
type RecaptchaConfig struct {
	SiteKey   string
	SecretKey string
	VerifyURL string
	MinScore  float64
}

// ContactConfig describes the submission rules and the relay destination.
type ContactConfig struct {
	Recipient     string
	NameMinLen    int
	NameMaxLen    int
	MessageMaxLen int
}

// TimeoutConfig contains timeout thresholds for outbound calls.
type TimeoutConfig struct {
	ProviderTimeoutSeconds int
	VerifyTimeoutSeconds   int
	SubmitTimeoutSeconds   int
}

// RateLimitConfig controls the per-client token bucket on the submission
// endpoint. A zero RPS disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// HealthConfig controls health-check probe behaviour.
type HealthConfig struct {
	ProbeTimeoutMs      int
	EnableProviderProbe bool
}

// Load reads environment variables, applies defaults, validates values and
// returns a populated Config instance. Transport and verification credentials
// are deliberately optional: their absence selects the degraded pipeline
// branches instead of failing startup.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.Port = ldr.getInt("APP_PORT", 8080, false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.SMTP.Host = ldr.getString("SMTP_HOST", "smtp.gmail.com", false)
	cfg.SMTP.Port = ldr.getInt("SMTP_PORT", 587, false)
	cfg.SMTP.User = ldr.getString("GMAIL_USER", "", false)
	cfg.SMTP.Pass = ldr.getString("GMAIL_PASS", "", false)
	cfg.SMTP.From = ldr.getString("SMTP_FROM", "", false)

	cfg.Recaptcha.SiteKey = ldr.getString("RECAPTCHA_SITE_KEY", "", false)
	cfg.Recaptcha.SecretKey = ldr.getString("RECAPTCHA_SECRET_KEY", "", false)
	cfg.Recaptcha.VerifyURL = ldr.getString("RECAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify", false)
	cfg.Recaptcha.MinScore = ldr.getFloat("RECAPTCHA_MIN_SCORE", 0.5, false)

	cfg.Contact.Recipient = ldr.getString("CONTACT_RECIPIENT", "", false)
	cfg.Contact.NameMinLen = ldr.getInt("CONTACT_NAME_MIN_LEN", 2, false)
	cfg.Contact.NameMaxLen = ldr.getInt("CONTACT_NAME_MAX_LEN", 50, false)
	cfg.Contact.MessageMaxLen = ldr.getInt("CONTACT_MESSAGE_MAX_LEN", 1000, false)

	cfg.Timeouts.ProviderTimeoutSeconds = ldr.getInt("PROVIDER_TIMEOUT_SECONDS", 30, false)
	cfg.Timeouts.VerifyTimeoutSeconds = ldr.getInt("VERIFY_TIMEOUT_SECONDS", 5, false)
	cfg.Timeouts.SubmitTimeoutSeconds = ldr.getInt("SUBMIT_TIMEOUT_SECONDS", 15, false)

	cfg.RateLimit.RequestsPerSecond = ldr.getFloat("RATE_LIMIT_RPS", 1, false)
	cfg.RateLimit.Burst = ldr.getInt("RATE_LIMIT_BURST", 5, false)

	cfg.Health.ProbeTimeoutMs = ldr.getInt("HEALTH_PROBE_TIMEOUT_MS", 2000, false)
	cfg.Health.EnableProviderProbe = ldr.getBool("HEALTH_ENABLE_PROVIDER_PROBE", true, false)

	if cfg.Contact.NameMinLen < 1 || cfg.Contact.NameMaxLen < cfg.Contact.NameMinLen {
		ldr.addError("CONTACT_NAME_MIN_LEN/CONTACT_NAME_MAX_LEN must describe a non-empty range")
	}
	if cfg.Contact.MessageMaxLen < 0 || cfg.Contact.MessageMaxLen > 10000 {
		ldr.addError("CONTACT_MESSAGE_MAX_LEN must be between 0 and 10000")
	}
	if cfg.Recaptcha.MinScore < 0 || cfg.Recaptcha.MinScore > 1 {
		ldr.addError("RECAPTCHA_MIN_SCORE must be between 0.0 and 1.0")
	}

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid integer", key))
			return def
		}
		return i
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getFloat(key string, def float64, required bool) float64 {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid number", key))
			return def
		}
		return f
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getBool(key string, def bool, required bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid boolean", key))
			return def
		}
		return parsed
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
