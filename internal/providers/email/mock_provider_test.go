package email_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	emailprovider "github.com/example/contact-relay/internal/providers/email"
)

func noopLogger() zerolog.Logger { return zerolog.Nop() }

func mockPayload() *emailprovider.Payload {
	return &emailprovider.Payload{
		MessageID: "msg-1",
		To:        []string{"owner@example.com"},
		Subject:   "New Contact Form Submission from Jane",
		Text:      "Name: Jane\nEmail: jane@example.com\nMessage: hi",
	}
}

func TestMockProviderSuccessRecordsPayload(t *testing.T) {
	p := emailprovider.NewMockProvider(noopLogger())

	resp, err := p.Send(context.Background(), mockPayload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Code != 250 {
		t.Fatalf("expected 250, got %d", resp.Code)
	}
	if resp.ID != "msg-1" {
		t.Fatalf("expected payload id echoed, got %q", resp.ID)
	}

	sent := p.Sent()
	if len(sent) != 1 || sent[0].MessageID != "msg-1" {
		t.Fatalf("expected recorded payload, got %v", sent)
	}
}

func TestMockProviderPermanentFailure(t *testing.T) {
	p := emailprovider.NewMockProvider(noopLogger(), emailprovider.WithDefaultScenario(emailprovider.ScenarioPermanent))

	resp, err := p.Send(context.Background(), mockPayload())
	if err == nil {
		t.Fatal("expected permanent failure")
	}
	if resp == nil || resp.Code != 550 {
		t.Fatalf("expected 550 response, got %v", resp)
	}
	if len(p.Sent()) != 0 {
		t.Fatal("failed payload must not be recorded")
	}
}

func TestMockProviderScenarioHeaderOverridesDefault(t *testing.T) {
	p := emailprovider.NewMockProvider(noopLogger())

	payload := mockPayload()
	payload.Headers = map[string]string{"X-Mock-Provider-Scenario": "timeout"}

	_, err := p.Send(context.Background(), payload)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestMockProviderHonorsContextDuringLatency(t *testing.T) {
	p := emailprovider.NewMockProvider(noopLogger(), emailprovider.WithLatency(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := p.Send(ctx, mockPayload()); err == nil {
		t.Fatal("expected context error")
	}
}

func TestMockProviderRejectsEmptyRecipients(t *testing.T) {
	p := emailprovider.NewMockProvider(noopLogger())

	payload := mockPayload()
	payload.To = nil
	if _, err := p.Send(context.Background(), payload); err == nil {
		t.Fatal("expected error for missing recipients")
	}
}
