package mail_test

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail/mailtest"
)

func newTransport() *mail.SMTP {
	return mail.NewSMTP(mail.SMTPConfig{HELO: "mailbite.test", DefaultTimeout: 5 * time.Second})
}

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	require.NoError(t, l.Close())

	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return p
}

func TestSMTP_Open(t *testing.T) {
	tests := []struct {
		name    string
		conn    mail.Connection
		wantErr error
	}{
		{name: "empty host", conn: mail.Connection{Host: "  "}, wantErr: mail.ErrNoHost},
		{name: "negative port", conn: mail.Connection{Host: "localhost", Port: -1}, wantErr: mail.ErrInvalidPort},
		{name: "port too large", conn: mail.Connection{Host: "localhost", Port: 70000}, wantErr: mail.ErrInvalidPort},
		{name: "default port", conn: mail.Connection{Host: "localhost"}},
		{name: "ssl with credentials", conn: mail.Connection{Host: "localhost", Port: 465, EnableSSL: true, Auth: true, Username: "u", Password: "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			sess, err := newTransport().Open(tt.conn)

			// Assert
			if tt.wantErr != nil {
				var cfgErr *mail.ConfigError
				require.ErrorAs(t, err, &cfgErr)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, sess)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, sess.Close())
		})
	}
}

func TestSMTP_Send(t *testing.T) {
	t.Run("delivers to every recipient", func(t *testing.T) {
		// Arrange
		srv := mailtest.NewServer(t)
		sess, err := newTransport().Open(mail.Connection{Host: srv.Host, Port: srv.Port})
		require.NoError(t, err)

		// Act
		err = sess.Send(context.Background(), mail.Message{
			From:     "sender@example.com",
			To:       []string{"a@example.com", "b@example.com"},
			Subject:  "Hello",
			HTMLBody: "<p>hi</p>",
		})

		// Assert
		require.NoError(t, err)
		require.NoError(t, sess.Close())
		envs := srv.Envelopes()
		require.Len(t, envs, 1)
		assert.Equal(t, "sender@example.com", envs[0].From)
		assert.Equal(t, []string{"a@example.com", "b@example.com"}, envs[0].To)
		assert.Contains(t, envs[0].Data, "Subject: Hello")
		assert.Contains(t, envs[0].Data, "text/html")
	})

	t.Run("rejected recipient", func(t *testing.T) {
		// Arrange
		srv := mailtest.NewServer(t)
		sess, err := newTransport().Open(mail.Connection{Host: srv.Host, Port: srv.Port})
		require.NoError(t, err)
		defer sess.Close()

		// Act
		err = sess.Send(context.Background(), mail.Message{
			From:     "sender@example.com",
			To:       []string{"ok@example.com", mailtest.RejectPrefix + "@example.com"},
			Subject:  "Hello",
			HTMLBody: "<p>hi</p>",
		})

		// Assert
		var rcptErr *mail.RecipientError
		require.ErrorAs(t, err, &rcptErr)
		assert.False(t, rcptErr.Temporary)
		assert.Empty(t, srv.Envelopes())
	})

	t.Run("no recipients", func(t *testing.T) {
		// Arrange
		srv := mailtest.NewServer(t)
		sess, err := newTransport().Open(mail.Connection{Host: srv.Host, Port: srv.Port})
		require.NoError(t, err)
		defer sess.Close()

		// Act
		err = sess.Send(context.Background(), mail.Message{From: "sender@example.com", Subject: "s", HTMLBody: "b"})

		// Assert
		var trErr *mail.TransportError
		require.ErrorAs(t, err, &trErr)
		assert.Equal(t, "send", trErr.Op)
	})

	t.Run("connection refused", func(t *testing.T) {
		// Arrange
		sess, err := newTransport().Open(mail.Connection{Host: "127.0.0.1", Port: freePort(t), Timeout: time.Second})
		require.NoError(t, err)

		// Act
		err = sess.Send(context.Background(), mail.Message{
			From: "sender@example.com", To: []string{"a@example.com"}, Subject: "s", HTMLBody: "b",
		})

		// Assert
		var trErr *mail.TransportError
		require.ErrorAs(t, err, &trErr)
		assert.Equal(t, "dial", trErr.Op)
		assert.NoError(t, sess.Close())
	})

	t.Run("mandatory tls without starttls", func(t *testing.T) {
		// Arrange
		srv := mailtest.NewServer(t)
		sess, err := newTransport().Open(mail.Connection{Host: srv.Host, Port: srv.Port, EnableSSL: true})
		require.NoError(t, err)

		// Act
		err = sess.Send(context.Background(), mail.Message{
			From: "sender@example.com", To: []string{"a@example.com"}, Subject: "s", HTMLBody: "b",
		})

		// Assert
		var trErr *mail.TransportError
		require.ErrorAs(t, err, &trErr)
		assert.Equal(t, "dial", trErr.Op)
	})

	t.Run("invalid sender", func(t *testing.T) {
		// Arrange
		sess, err := newTransport().Open(mail.Connection{Host: "127.0.0.1", Port: freePort(t)})
		require.NoError(t, err)

		// Act
		err = sess.Send(context.Background(), mail.Message{
			From: "not an address", To: []string{"a@example.com"}, Subject: "s", HTMLBody: "b",
		})

		// Assert
		var addrErr *mail.AddressError
		require.ErrorAs(t, err, &addrErr)
		assert.Equal(t, "from", addrErr.Field)
		assert.Equal(t, "not an address", addrErr.Address)
		assert.False(t, errors.As(err, new(*mail.TransportError)))
		assert.NoError(t, sess.Close())
	})
}

func TestSMTPSession_CloseTwice(t *testing.T) {
	// Arrange
	srv := mailtest.NewServer(t)
	sess, err := newTransport().Open(mail.Connection{Host: srv.Host, Port: srv.Port})
	require.NoError(t, err)
	require.NoError(t, sess.Send(context.Background(), mail.Message{
		From: "sender@example.com", To: []string{"a@example.com"}, Subject: "s", HTMLBody: "b",
	}))

	// Act & Assert
	assert.NoError(t, sess.Close())
	assert.NoError(t, sess.Close())
}

// scriptedServer is a single-connection SMTP peer that answers from reply and
// reports when the client drops the connection. It can misbehave in ways a
// conforming server library refuses to.
type scriptedServer struct {
	host   string
	port   int
	hungUp chan struct{}
}

func newScriptedServer(t *testing.T, greeting string, reply func(verb string) string) *scriptedServer {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	host, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	s := &scriptedServer{host: host, port: p, hungUp: make(chan struct{})}

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		defer close(s.hungUp)

		if _, err := io.WriteString(conn, greeting); err != nil {
			return
		}

		// Keep reading after QUIT: only the client's close ends the loop.
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}

			verb, _, _ := strings.Cut(strings.TrimSpace(line), " ")
			if _, err := io.WriteString(conn, reply(strings.ToUpper(verb))); err != nil {
				return
			}
		}
	}()

	return s
}

func smtpReplies(ehlo []string, overrides map[string]string) func(string) string {
	return func(verb string) string {
		if r, ok := overrides[verb]; ok {
			return r
		}

		switch verb {
		case "EHLO":
			var b strings.Builder
			b.WriteString("250-scripted\r\n")
			for _, ext := range ehlo {
				b.WriteString("250-" + ext + "\r\n")
			}
			b.WriteString("250 SIZE 1000000\r\n")
			return b.String()
		case "HELO", "NOOP", "RSET", "MAIL", "RCPT":
			return "250 2.0.0 ok\r\n"
		case "AUTH":
			return "235 2.7.0 accepted\r\n"
		case "QUIT":
			return "221 2.0.0 bye\r\n"
		default:
			return "502 5.5.2 not implemented\r\n"
		}
	}
}

func TestSMTPSession_CloseReleasesSocketOnFailure(t *testing.T) {
	const greeting = "220 scripted ESMTP\r\n"

	mailFailed := false

	tests := []struct {
		name     string
		greeting string
		ehlo     []string
		override map[string]string
		dynamic  func(string) (string, bool)
		conn     func(host string, port int) mail.Connection
		wantOp   string
	}{
		{
			name:     "greeting rejected",
			greeting: "554 5.3.2 not accepting mail\r\n",
			wantOp:   "dial",
		},
		{
			name:     "ehlo rejected",
			greeting: greeting,
			override: map[string]string{"EHLO": "550 5.5.0 go away\r\n", "HELO": "550 5.5.0 go away\r\n"},
			wantOp:   "dial",
		},
		{
			name:     "starttls not offered",
			greeting: greeting,
			conn: func(host string, port int) mail.Connection {
				return mail.Connection{Host: host, Port: port, EnableSSL: true}
			},
			wantOp: "dial",
		},
		{
			name:     "auth not offered",
			greeting: greeting,
			conn: func(host string, port int) mail.Connection {
				return mail.Connection{Host: host, Port: port, Auth: true, Username: "u", Password: "p"}
			},
			wantOp: "dial",
		},
		{
			name:     "auth rejected",
			greeting: greeting,
			ehlo:     []string{"AUTH PLAIN"},
			override: map[string]string{"AUTH": "535 5.7.8 bad credentials\r\n"},
			conn: func(host string, port int) mail.Connection {
				return mail.Connection{Host: host, Port: port, Auth: true, Username: "u", Password: "wrong"}
			},
			wantOp: "dial",
		},
		{
			name:     "send fails and connection goes bad",
			greeting: greeting,
			dynamic: func(verb string) (string, bool) {
				switch {
				case verb == "MAIL":
					mailFailed = true
					return "451 4.3.0 try later\r\n", true
				case verb == "NOOP" && mailFailed:
					return "421 4.4.2 closing\r\n", true
				}
				return "", false
			},
			wantOp: "send",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			mailFailed = false
			base := smtpReplies(tt.ehlo, tt.override)
			reply := base
			if tt.dynamic != nil {
				reply = func(verb string) string {
					if r, ok := tt.dynamic(verb); ok {
						return r
					}
					return base(verb)
				}
			}
			srv := newScriptedServer(t, tt.greeting, reply)

			conn := mail.Connection{Host: srv.host, Port: srv.port}
			if tt.conn != nil {
				conn = tt.conn(srv.host, srv.port)
			}
			conn.Timeout = 2 * time.Second

			sess, err := newTransport().Open(conn)
			require.NoError(t, err)

			// Act
			sendErr := sess.Send(context.Background(), mail.Message{
				From: "sender@example.com", To: []string{"a@example.com"}, Subject: "s", HTMLBody: "b",
			})
			closeErr := sess.Close()

			// Assert
			var trErr *mail.TransportError
			require.ErrorAs(t, sendErr, &trErr)
			assert.Equal(t, tt.wantOp, trErr.Op)
			assert.NoError(t, closeErr)

			select {
			case <-srv.hungUp:
			case <-time.After(3 * time.Second):
				t.Fatal("server still holds an open connection after Close")
			}
		})
	}
}
