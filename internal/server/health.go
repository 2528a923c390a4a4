package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/example/contact-relay/internal/config"
)

// healthReport is the JSON shape of GET /api/contact/health. It exposes only
// presence/placeholder booleans, never credential values.
type healthReport struct {
	Message         string           `json:"message"`
	Status          string           `json:"status"`
	Config          configSnapshot   `json:"config"`
	EmailConnection connectionReport `json:"emailConnection"`
	Recommendations []string         `json:"recommendations"`
}

type configSnapshot struct {
	Environment string            `json:"environment"`
	Gmail       gmailSnapshot     `json:"gmail"`
	Recaptcha   recaptchaSnapshot `json:"recaptcha"`
}

type gmailSnapshot struct {
	Configured        bool `json:"configured"`
	UserSet           bool `json:"userSet"`
	PassSet           bool `json:"passSet"`
	IsPlaceholderUser bool `json:"isPlaceholderUser"`
	IsPlaceholderPass bool `json:"isPlaceholderPass"`
}

type recaptchaSnapshot struct {
	SecretConfigured     bool `json:"secretConfigured"`
	SiteKeyConfigured    bool `json:"siteKeyConfigured"`
	SecretSet            bool `json:"secretSet"`
	SiteKeySet           bool `json:"siteKeySet"`
	IsPlaceholderSecret  bool `json:"isPlaceholderSecret"`
	IsPlaceholderSiteKey bool `json:"isPlaceholderSiteKey"`
}

type connectionReport struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Message: "Method not allowed"})
		return
	}

	snapshot := h.snapshotConfig()
	conn := h.probeTransport(r.Context())

	report := healthReport{
		Message:         "Contact form health check",
		Status:          overallStatus(snapshot),
		Config:          snapshot,
		EmailConnection: conn,
		Recommendations: recommendations(snapshot, conn),
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) snapshotConfig() configSnapshot {
	cfg := h.cfg
	env := "production"
	if cfg.RelaxedEnv() {
		env = "development"
	}

	return configSnapshot{
		Environment: env,
		Gmail: gmailSnapshot{
			Configured:        cfg.EmailConfigured(),
			UserSet:           cfg.SMTP.User != "",
			PassSet:           cfg.SMTP.Pass != "",
			IsPlaceholderUser: cfg.SMTP.User == config.PlaceholderGmailUser,
			IsPlaceholderPass: cfg.SMTP.Pass == config.PlaceholderGmailPass,
		},
		Recaptcha: recaptchaSnapshot{
			SecretConfigured:     cfg.VerificationConfigured(),
			SiteKeyConfigured:    cfg.SiteKeyConfigured(),
			SecretSet:            cfg.Recaptcha.SecretKey != "",
			SiteKeySet:           cfg.Recaptcha.SiteKey != "",
			IsPlaceholderSecret:  cfg.Recaptcha.SecretKey == config.PlaceholderRecaptchaSecret,
			IsPlaceholderSiteKey: cfg.Recaptcha.SiteKey == config.PlaceholderRecaptchaSite,
		},
	}
}

// probeTransport performs a live connectivity check against the email
// transport. Relaxed environments skip the probe because sends are simulated
// there anyway.
func (h *Handler) probeTransport(ctx context.Context) connectionReport {
	if h.cfg.RelaxedEnv() {
		return connectionReport{
			Status: "skipped",
			Error:  "in development environment, email sending is simulated",
		}
	}
	if !h.cfg.EmailConfigured() || h.transport == nil || !h.cfg.Health.EnableProviderProbe {
		return connectionReport{Status: "not_tested"}
	}

	timeout := time.Duration(h.cfg.Health.ProbeTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := h.transport.Probe(probeCtx); err != nil {
		h.logger.Warn().Err(err).Msg("transport probe failed")
		return connectionReport{Status: "failed", Error: err.Error()}
	}
	return connectionReport{Status: "success"}
}

func overallStatus(s configSnapshot) string {
	full := s.Gmail.Configured && s.Recaptcha.SecretConfigured && s.Recaptcha.SiteKeyConfigured
	partial := s.Gmail.Configured || s.Recaptcha.SecretConfigured || s.Recaptcha.SiteKeyConfigured
	switch {
	case full:
		return "fully_configured"
	case partial:
		return "partially_configured"
	default:
		return "not_configured"
	}
}

// recommendations generates human-readable remediation steps for the
// operator based on the snapshot and probe result.
func recommendations(s configSnapshot, conn connectionReport) []string {
	var recs []string

	if !s.Gmail.UserSet {
		recs = append(recs, "Set GMAIL_USER environment variable with your Gmail address")
	} else if s.Gmail.IsPlaceholderUser {
		recs = append(recs, "Replace placeholder GMAIL_USER value with your actual Gmail address")
	}

	if !s.Gmail.PassSet {
		recs = append(recs, "Set GMAIL_PASS environment variable with your Gmail App Password")
	} else if s.Gmail.IsPlaceholderPass {
		recs = append(recs, "Replace placeholder GMAIL_PASS value with your actual Gmail App Password")
	}

	if conn.Status == "failed" {
		recs = append(recs, fmt.Sprintf("Email connection failed: %s. Check your credentials and network connection.", conn.Error))
	}

	if !s.Recaptcha.SiteKeySet {
		recs = append(recs, "Set RECAPTCHA_SITE_KEY environment variable with your reCAPTCHA v3 Site Key")
	} else if s.Recaptcha.IsPlaceholderSiteKey {
		recs = append(recs, "Replace placeholder RECAPTCHA_SITE_KEY value with your actual reCAPTCHA v3 Site Key")
	}

	if !s.Recaptcha.SecretSet {
		recs = append(recs, "Set RECAPTCHA_SECRET_KEY environment variable with your reCAPTCHA v3 Secret Key")
	} else if s.Recaptcha.IsPlaceholderSecret {
		recs = append(recs, "Replace placeholder RECAPTCHA_SECRET_KEY value with your actual reCAPTCHA v3 Secret Key")
	}

	if s.Recaptcha.SiteKeySet && !s.Recaptcha.IsPlaceholderSiteKey {
		recs = append(recs, "Ensure your production domain is added to your reCAPTCHA configuration in the admin console")
	}

	if s.Environment == "production" && !s.Gmail.Configured {
		recs = append(recs, "In production, both GMAIL_USER and GMAIL_PASS must be set with valid credentials")
	}

	if len(recs) == 0 {
		recs = append(recs, "All configurations appear to be set correctly!")
	}

	return recs
}
