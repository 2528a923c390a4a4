package email

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scenario enumerates the supported mock behaviours. The default scenario is
// success unless overridden via options or the scenario header.
type Scenario string

const (
	ScenarioSuccess   Scenario = "success"
	ScenarioPermanent Scenario = "permanent"
	ScenarioTimeout   Scenario = "timeout"

	headerScenario = "X-Mock-Provider-Scenario"
)

// MockOption customizes the behaviour of the mock provider at construction
// time.
type MockOption func(*MockProvider)

// WithDefaultScenario configures the behaviour used when a payload does not
// carry an explicit scenario header.
func WithDefaultScenario(s Scenario) MockOption {
	return func(p *MockProvider) {
		p.defaultScenario = s
	}
}

// WithLatency fixes the simulated delivery latency.
func WithLatency(d time.Duration) MockOption {
	return func(p *MockProvider) {
		if d >= 0 {
			p.latency = d
		}
	}
}

// WithMockClock overrides the clock used for timestamps.
func WithMockClock(now func() time.Time) MockOption {
	return func(p *MockProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// MockProvider implements a deterministic transport suitable for relaxed
// environments and automated tests. No network calls are made.
type MockProvider struct {
	logger          zerolog.Logger
	latency         time.Duration
	defaultScenario Scenario
	now             func() time.Time

	mu   sync.Mutex
	rnd  *rand.Rand
	sent []*Payload
}

// NewMockProvider constructs a mock transport that records every accepted
// payload and succeeds by default.
func NewMockProvider(logger zerolog.Logger, opts ...MockOption) *MockProvider {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	p := &MockProvider{
		logger:          logger,
		defaultScenario: ScenarioSuccess,
		now:             time.Now,
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- not security sensitive.
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// Send simulates delivering the supplied payload.
func (p *MockProvider) Send(ctx context.Context, payload *Payload) (*RawResponse, error) {
	if payload == nil {
		return nil, errors.New("mock provider: payload is required")
	}
	if len(payload.To) == 0 {
		return nil, errors.New("mock provider: at least one recipient is required")
	}

	if p.latency > 0 {
		if err := sleep(ctx, p.latency); err != nil {
			return nil, err
		}
	}

	scenario := p.resolveScenario(payload)
	p.logger.Debug().
		Str("provider", "mock_smtp").
		Str("scenario", string(scenario)).
		Str("message_id", payload.MessageID).
		Msg("mock email provider invoked")

	switch scenario {
	case ScenarioPermanent:
		resp := p.baseResponse(payload, 550, "mock: mailbox unavailable")
		return resp, fmt.Errorf("smtp %d: %s", resp.Code, resp.Body)
	case ScenarioTimeout:
		return nil, context.DeadlineExceeded
	default:
		p.mu.Lock()
		p.sent = append(p.sent, payload)
		p.mu.Unlock()
		return p.baseResponse(payload, 250, "mock: message queued"), nil
	}
}

// Probe always succeeds: a mock transport is reachable by definition.
func (p *MockProvider) Probe(context.Context) error { return nil }

// Sent returns the payloads accepted so far, for test assertions.
func (p *MockProvider) Sent() []*Payload {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Payload, len(p.sent))
	copy(out, p.sent)
	return out
}

func (p *MockProvider) resolveScenario(payload *Payload) Scenario {
	for k, v := range payload.Headers {
		if strings.EqualFold(k, headerScenario) {
			switch strings.ToLower(strings.TrimSpace(v)) {
			case string(ScenarioPermanent):
				return ScenarioPermanent
			case string(ScenarioTimeout):
				return ScenarioTimeout
			case string(ScenarioSuccess):
				return ScenarioSuccess
			}
		}
	}
	return p.defaultScenario
}

func (p *MockProvider) baseResponse(payload *Payload, code int, body string) *RawResponse {
	respID := payload.MessageID
	if respID == "" {
		p.mu.Lock()
		respID = fmt.Sprintf("mock-%08x", p.rnd.Uint32())
		p.mu.Unlock()
	}

	return &RawResponse{
		ID:        respID,
		Code:      code,
		Body:      body,
		Timestamp: p.now(),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
