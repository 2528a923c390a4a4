package email_test

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/contact-relay/internal/config"
	emailprovider "github.com/example/contact-relay/internal/providers/email"
)

// fakeRelay is a plaintext SMTP server speaking just enough of the protocol
// for Send and Probe. It advertises neither STARTTLS nor AUTH, so the provider
// skips both steps.
type fakeRelay struct {
	ln net.Listener

	mu       sync.Mutex
	mailFrom string
	rcptTo   []string
	data     string
}

func newFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	r := &fakeRelay{ln: ln}
	go r.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return r
}

func (r *fakeRelay) addr() (string, int) {
	tcp := r.ln.Addr().(*net.TCPAddr)
	return tcp.IP.String(), tcp.Port
}

func (r *fakeRelay) serve() {
	for {
		conn, err := r.ln.Accept()
		if err != nil {
			return
		}
		go r.handle(conn)
	}
}

func (r *fakeRelay) handle(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	write := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

	write("220 fake-relay ready")
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(line)
		upper := strings.ToUpper(cmd)

		switch {
		case strings.HasPrefix(upper, "EHLO"), strings.HasPrefix(upper, "HELO"):
			write("250-fake-relay")
			write("250 SIZE 35882577")
		case strings.HasPrefix(upper, "MAIL FROM:"):
			r.mu.Lock()
			r.mailFrom = cmd[len("MAIL FROM:"):]
			r.mu.Unlock()
			write("250 OK")
		case strings.HasPrefix(upper, "RCPT TO:"):
			r.mu.Lock()
			r.rcptTo = append(r.rcptTo, cmd[len("RCPT TO:"):])
			r.mu.Unlock()
			write("250 OK")
		case upper == "DATA":
			write("354 End data with <CR><LF>.<CR><LF>")
			var body strings.Builder
			for {
				dataLine, err := reader.ReadString('\n')
				if err != nil {
					return
				}
				if strings.TrimRight(dataLine, "\r\n") == "." {
					break
				}
				body.WriteString(dataLine)
			}
			r.mu.Lock()
			r.data = body.String()
			r.mu.Unlock()
			write("250 OK: queued")
		case upper == "NOOP":
			write("250 OK")
		case upper == "QUIT":
			write("221 Bye")
			return
		default:
			write("250 OK")
		}
	}
}

func (r *fakeRelay) received() (string, []string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mailFrom, append([]string(nil), r.rcptTo...), r.data
}

func newSMTPProvider(t *testing.T, relay *fakeRelay) *emailprovider.SMTPProvider {
	t.Helper()
	host, port := relay.addr()
	p, err := emailprovider.NewSMTPProvider(config.SMTPConfig{
		Host: host,
		Port: port,
		From: "relay@example.com",
	}, noopLogger(), emailprovider.WithSMTPTLSConfig(nil))
	if err != nil {
		t.Fatalf("provider init: %v", err)
	}
	return p
}

func TestSMTPProviderSend(t *testing.T) {
	relay := newFakeRelay(t)
	p := newSMTPProvider(t, relay)

	payload := &emailprovider.Payload{
		MessageID: "abc-123",
		ReplyTo:   "jane@example.com",
		To:        []string{"owner@example.com"},
		Subject:   "New Contact Form Submission from Jane",
		Text:      "Name: Jane\nMessage: hi",
		HTML:      "<h2>New Contact Form Submission</h2>",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := p.Send(ctx, payload)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.Code != 250 {
		t.Fatalf("expected 250, got %d", resp.Code)
	}

	from, rcpts, data := relay.received()
	if !strings.Contains(from, "relay@example.com") {
		t.Fatalf("unexpected envelope sender %q", from)
	}
	if len(rcpts) != 1 || !strings.Contains(rcpts[0], "owner@example.com") {
		t.Fatalf("unexpected recipients %v", rcpts)
	}
	if !strings.Contains(data, "Reply-To: jane@example.com") {
		t.Fatalf("expected reply-to header, got:\n%s", data)
	}
	if !strings.Contains(data, "multipart/alternative") {
		t.Fatalf("expected multipart message, got:\n%s", data)
	}
	if !strings.Contains(data, "Message-Id: <abc-123@") {
		t.Fatalf("expected message id header, got:\n%s", data)
	}
}

func TestSMTPProviderProbe(t *testing.T) {
	relay := newFakeRelay(t)
	p := newSMTPProvider(t, relay)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.Probe(ctx); err != nil {
		t.Fatalf("probe: %v", err)
	}
}

func TestSMTPProviderSendRejectsBadRecipient(t *testing.T) {
	relay := newFakeRelay(t)
	p := newSMTPProvider(t, relay)

	payload := &emailprovider.Payload{
		To:   []string{"not an address"},
		Text: "hi",
	}
	if _, err := p.Send(context.Background(), payload); err == nil {
		t.Fatal("expected invalid recipient error")
	}
}

func TestSMTPProviderSendHonorsCancelledContext(t *testing.T) {
	relay := newFakeRelay(t)
	p := newSMTPProvider(t, relay)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload := &emailprovider.Payload{
		To:   []string{"owner@example.com"},
		Text: "hi",
	}
	if _, err := p.Send(ctx, payload); err == nil {
		t.Fatal("expected context error")
	}
}

func TestNewSMTPProviderValidation(t *testing.T) {
	if _, err := emailprovider.NewSMTPProvider(config.SMTPConfig{Port: 587}, noopLogger()); err == nil {
		t.Fatal("expected missing host error")
	}
	if _, err := emailprovider.NewSMTPProvider(config.SMTPConfig{Host: "smtp.example.com", Port: 0}, noopLogger()); err == nil {
		t.Fatal("expected invalid port error")
	}
	if _, err := emailprovider.NewSMTPProvider(config.SMTPConfig{Host: "smtp.example.com", Port: 587}, noopLogger()); err == nil {
		t.Fatal("expected missing from error")
	}
}
