// Package mailtest provides an in-process SMTP receiver for tests.
package mailtest

import (
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	gosmtp "github.com/emersion/go-smtp"
)

// RejectPrefix marks recipients the server refuses with a permanent 550.
const RejectPrefix = "reject"

// Envelope is one message accepted by the Server.
type Envelope struct {
	From string
	To   []string
	Data string
}

// Server is a throwaway SMTP server listening on 127.0.0.1.
type Server struct {
	Host string
	Port int

	srv *gosmtp.Server

	mu        sync.Mutex
	envelopes []Envelope
	latency   time.Duration
}

// NewServer starts a Server and stops it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("mailtest: listen: %v", err)
	}

	s := &Server{}
	s.srv = gosmtp.NewServer(&backend{server: s})
	s.srv.Domain = "localhost"
	s.srv.AllowInsecureAuth = true

	host, port, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		t.Fatalf("mailtest: split addr: %v", err)
	}
	s.Host = host
	s.Port, _ = strconv.Atoi(port)

	go func() {
		//nolint:errcheck // Serve returns once Close is called
		_ = s.srv.Serve(l)
	}()

	t.Cleanup(func() {
		//nolint:errcheck // best effort on shutdown
		_ = s.srv.Close()
	})

	return s
}

// Envelopes returns a copy of every accepted message.
func (s *Server) Envelopes() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Envelope(nil), s.envelopes...)
}

// SetLatency delays every DATA reply by d.
func (s *Server) SetLatency(d time.Duration) {
	s.mu.Lock()
	s.latency = d
	s.mu.Unlock()
}

func (s *Server) record(env Envelope) {
	s.mu.Lock()
	s.envelopes = append(s.envelopes, env)
	s.mu.Unlock()
}

type backend struct {
	server *Server
}

func (b *backend) NewSession(_ *gosmtp.Conn) (gosmtp.Session, error) {
	return &session{server: b.server}, nil
}

type session struct {
	server *Server
	env    Envelope
}

func (s *session) Mail(from string, _ *gosmtp.MailOptions) error {
	s.env.From = from
	return nil
}

func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	if strings.HasPrefix(strings.ToLower(to), RejectPrefix) {
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
			Message:      "mailbox unavailable",
		}
	}
	s.env.To = append(s.env.To, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.env.Data = string(b)
	s.server.record(s.env)

	s.server.mu.Lock()
	d := s.server.latency
	s.server.mu.Unlock()
	time.Sleep(d)

	return nil
}

func (s *session) Reset() {
	s.env = Envelope{}
}

func (s *session) Logout() error {
	return nil
}
