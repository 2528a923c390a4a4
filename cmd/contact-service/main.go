package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/contact-relay/internal/config"
	"github.com/example/contact-relay/internal/contact"
	"github.com/example/contact-relay/internal/logger"
	"github.com/example/contact-relay/internal/providers/factory"
	"github.com/example/contact-relay/internal/recaptcha"
	"github.com/example/contact-relay/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fail("logger init", err)
	}
	log := baseLogger.With().Str("service", "contact-service").Logger()

	verifier := recaptcha.NewVerifier(
		cfg.Recaptcha,
		time.Duration(cfg.Timeouts.VerifyTimeoutSeconds)*time.Second,
		log.With().Str("component", "recaptcha").Logger(),
	)

	transport, err := factory.Email(cfg.SMTP, cfg.Profile(), log.With().Str("component", "provider").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise email transport")
	}

	dispatcher, err := contact.NewDispatcher(contact.Config{
		Recipient: cfg.Contact.Recipient,
		Rules: contact.Rules{
			NameMinLen:    cfg.Contact.NameMinLen,
			NameMaxLen:    cfg.Contact.NameMaxLen,
			MessageMaxLen: cfg.Contact.MessageMaxLen,
		},
		SendTimeout: time.Duration(cfg.Timeouts.ProviderTimeoutSeconds) * time.Second,
	}, contact.Dependencies{
		Verifier:  verifier,
		Transport: transport,
		Resolver:  cfg.Profile,
		Logger:    log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise dispatcher")
	}

	handler, err := server.NewHandler(cfg, dispatcher, transport, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise http handler")
	}

	srv, err := server.New(cfg.App.Port, handler, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise http server")
	}

	log.Info().
		Str("env", cfg.App.Env).
		Bool("email_configured", cfg.EmailConfigured()).
		Bool("verification_configured", cfg.VerificationConfigured()).
		Msg("contact service starting")

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("http server exited with error")
	}

	log.Info().Msg("contact service stopped")
}

func fail(stage string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", stage, err)
	os.Exit(1)
}
