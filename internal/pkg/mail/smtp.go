package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig holds process-wide defaults for the SMTP transport. Per-send
// settings arrive through Connection.
type SMTPConfig struct {
	// HELO overrides the EHLO/HELO name; the OS hostname is used when empty.
	HELO string
	// AuthType is the SASL mechanism used when credentials are present
	// ("PLAIN", "LOGIN", "CRAM-MD5"). Defaults to PLAIN.
	AuthType string
	// DefaultTimeout applies when a Connection has no timeout. Zero keeps the
	// go-mail default.
	DefaultTimeout time.Duration
}

// SMTP is a Transport backed by github.com/wneessen/go-mail.
type SMTP struct {
	helo           string
	authType       gomail.SMTPAuthType
	defaultTimeout time.Duration
}

// NewSMTP constructs an SMTP transport.
func NewSMTP(cfg SMTPConfig) *SMTP {
	authType := gomail.SMTPAuthPlain
	if v := strings.TrimSpace(cfg.AuthType); v != "" {
		authType = gomail.SMTPAuthType(strings.ToUpper(v))
	}

	return &SMTP{
		helo:           strings.TrimSpace(cfg.HELO),
		authType:       authType,
		defaultTimeout: cfg.DefaultTimeout,
	}
}

// Open builds a go-mail client for conn. No connection is made until Send.
func (s *SMTP) Open(conn Connection) (Session, error) {
	if strings.TrimSpace(conn.Host) == "" {
		return nil, &ConfigError{Err: ErrNoHost}
	}
	if conn.Port == 0 {
		conn.Port = DefaultPort
	}
	if conn.Port < 1 || conn.Port > 65535 {
		return nil, &ConfigError{Err: ErrInvalidPort}
	}

	dialer := &connDialer{}
	if conn.EnableSSL && conn.Port == 465 {
		dialer.tlsConfig = &tls.Config{ServerName: conn.Host, MinVersion: gomail.DefaultTLSMinVersion}
	}

	opts := []gomail.Option{
		gomail.WithPort(conn.Port),
		gomail.WithDialContextFunc(dialer.DialContext),
	}

	switch {
	case conn.EnableSSL && conn.Port == 465:
		opts = append(opts, gomail.WithSSL())
	case conn.EnableSSL:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	default:
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}

	timeout := conn.Timeout
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}
	if timeout > 0 {
		opts = append(opts, gomail.WithTimeout(timeout))
	}

	if s.helo != "" {
		opts = append(opts, gomail.WithHELO(s.helo))
	}

	if conn.Auth {
		opts = append(opts,
			gomail.WithSMTPAuth(s.authType),
			gomail.WithUsername(conn.Username),
			gomail.WithPassword(conn.Password),
		)
	}

	client, err := gomail.NewClient(conn.Host, opts...)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	return &smtpSession{client: client, dialer: dialer}, nil
}

// connDialer dials for go-mail and keeps the raw socket, so a session can be
// released even when go-mail gives up on it halfway through the handshake.
type connDialer struct {
	tlsConfig *tls.Config

	mu   sync.Mutex
	conn net.Conn
}

func (d *connDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	var nd net.Dialer

	raw, err := nd.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.conn = raw
	d.mu.Unlock()

	if d.tlsConfig == nil {
		return raw, nil
	}

	tc := tls.Client(raw, d.tlsConfig)
	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, err
	}

	return tc, nil
}

// close shuts the raw socket. A socket already closed by QUIT is not an error.
func (d *connDialer) close() error {
	d.mu.Lock()
	conn := d.conn
	d.conn = nil
	d.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}

type smtpSession struct {
	client *gomail.Client
	dialer *connDialer
	// ready is set once go-mail finished greeting, TLS and auth.
	ready  bool
	closed bool
}

// Send dials the server, delivers msg and leaves the connection open for
// Close to terminate.
func (s *smtpSession) Send(ctx context.Context, msg Message) error {
	m, err := buildMsg(msg)
	if err != nil {
		return err
	}

	if err := s.client.DialWithContext(ctx); err != nil {
		return &TransportError{Op: "dial", Timeout: isTimeout(err), Err: err}
	}
	s.ready = true

	if err := s.client.Send(m); err != nil {
		return classifySendErr(err)
	}

	return nil
}

// Close sends QUIT when the connection is usable and always releases the
// socket. A QUIT that fails on a broken connection is not reported once the
// socket is gone. It is safe to call more than once and when Send never
// dialed.
func (s *smtpSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.ready {
		//nolint:errcheck // the socket is closed below either way
		_ = s.client.Close()
	}

	return s.dialer.close()
}

func buildMsg(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()

	if err := m.From(msg.From); err != nil {
		return nil, &AddressError{Field: "from", Address: msg.From, Err: err}
	}

	if err := m.To(msg.To...); err != nil {
		return nil, &AddressError{Field: "to", Address: strings.Join(msg.To, ", "), Err: err}
	}

	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTMLBody)

	return m, nil
}

func classifySendErr(err error) error {
	var sendErr *gomail.SendError
	if errors.As(err, &sendErr) && sendErr.Reason == gomail.ErrSMTPRcptTo {
		return &RecipientError{Temporary: sendErr.IsTemp(), Err: err}
	}

	return &TransportError{Op: "send", Timeout: isTimeout(err), Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
