package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/contact-relay/internal/client"
	"github.com/example/contact-relay/internal/config"
	"github.com/example/contact-relay/internal/recaptcha"
)

// contact-smoke exercises a deployed contact service: it fetches the health
// report and then posts a sentinel-token submission.
func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	baseURL := flag.String("url", "http://localhost:8080", "base URL of the contact service")
	name := flag.String("name", "Test User", "submission name")
	email := flag.String("email", "test@example.com", "submission email")
	message := flag.String("message", "This is a test message from the contact form verification tool.", "submission message")
	flag.Parse()

	base := strings.TrimRight(*baseURL, "/")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	checkHealth(ctx, logger, base)

	tokens := recaptcha.NewTokenSource(config.RecaptchaConfig{SiteKey: os.Getenv("RECAPTCHA_SITE_KEY")}, logger)
	form, err := client.New(base+"/api/contact", tokens, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise form client")
	}

	result, err := form.Submit(ctx, *name, *email, *message)
	if err != nil {
		logger.Fatal().Err(err).Msg("submission failed")
	}

	evt := logger.Info()
	if !result.Accepted() {
		evt = logger.Error()
	}
	evt.Int("status", result.StatusCode).
		Str("message", result.Message).
		Str("details", result.Details).
		Msg("submission result")
}

func checkHealth(ctx context.Context, logger zerolog.Logger, base string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/contact/health", nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build health request")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Fatal().Err(err).Msg("health check failed")
	}
	defer resp.Body.Close()

	var report struct {
		Status          string   `json:"status"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		logger.Fatal().Err(err).Msg("failed to decode health report")
	}

	logger.Info().
		Int("http_status", resp.StatusCode).
		Str("config_status", report.Status).
		Msg("health check")
	for _, rec := range report.Recommendations {
		logger.Info().Str("recommendation", rec).Msg("operator action")
	}
}
