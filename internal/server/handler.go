package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/example/contact-relay/internal/config"
	"github.com/example/contact-relay/internal/contact"
	"github.com/example/contact-relay/internal/models"
	emailprovider "github.com/example/contact-relay/internal/providers/email"
)

const maxBodyBytes = 64 << 10

// Handler exposes the contact endpoints over HTTP.
type Handler struct {
	cfg        *config.Config
	dispatcher *contact.Dispatcher
	transport  emailprovider.Provider
	logger     zerolog.Logger
	limiter    *clientLimiter
}

// NewHandler constructs the HTTP handler for the contact API.
func NewHandler(cfg *config.Config, dispatcher *contact.Dispatcher, transport emailprovider.Provider, logger zerolog.Logger) (*Handler, error) {
	if cfg == nil {
		return nil, errors.New("server: config is required")
	}
	if dispatcher == nil {
		return nil, errors.New("server: dispatcher is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	return &Handler{
		cfg:        cfg,
		dispatcher: dispatcher,
		transport:  transport,
		logger:     logger.With().Str("component", "http").Logger(),
		limiter:    newClientLimiter(cfg.RateLimit),
	}, nil
}

// Register mounts the contact routes on the supplied mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/contact", h.handleContact)
	mux.HandleFunc("/api/contact/health", h.handleHealth)
}

type apiResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) handleContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Message: "Method not allowed"})
		return
	}

	if !h.limiter.allow(clientKey(r)) {
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusTooManyRequests, apiResponse{Message: "Too many requests, please try again later"})
		return
	}

	var req models.SubmissionRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Invalid request body"})
		return
	}

	outcome := h.dispatcher.Submit(r.Context(), req)

	relaxed := h.cfg.RelaxedEnv()
	switch outcome.Kind {
	case models.OutcomeSent:
		writeJSON(w, http.StatusOK, apiResponse{Message: "Email sent successfully"})
	case models.OutcomeSimulatedSent:
		resp := apiResponse{Message: "Email sent successfully"}
		if relaxed {
			resp.Details = outcome.Reason
		}
		writeJSON(w, http.StatusOK, resp)
	case models.OutcomeRejected:
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: rejectionMessage(outcome.Err)})
	case models.OutcomeServiceUnavailable:
		resp := apiResponse{Message: outcome.Reason}
		writeJSON(w, http.StatusInternalServerError, resp)
	case models.OutcomeTransportFailed:
		resp := apiResponse{Message: "Failed to send email"}
		if relaxed && outcome.Err != nil {
			resp.Details = outcome.Err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
	default:
		h.logger.Error().Str("kind", string(outcome.Kind)).Msg("unexpected submission outcome")
		writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "Internal server error"})
	}
}

// rejectionMessage maps validation and verification errors to the stable
// client-facing strings.
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, contact.ErrMissingField):
		return "Missing required fields"
	case errors.Is(err, contact.ErrInvalidEmail):
		return "Invalid email address"
	case errors.Is(err, contact.ErrInvalidName):
		return "Invalid name"
	case errors.Is(err, contact.ErrInvalidMessage):
		return "Invalid message"
	case errors.Is(err, contact.ErrVerificationFailed):
		return "reCAPTCHA verification failed"
	default:
		return "Invalid submission"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Ensure there is no extra data after the first JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
