package mail

import (
	"context"
	"io"
	"time"
)

// DefaultPort is used when a Connection does not specify a port.
const DefaultPort = 25

// Message represents an email payload.
//
// Fields are intentionally provider-agnostic so they can be sent using SMTP or
// other delivery mechanisms.
type Message struct {
	// From is the sender address.
	From string
	// To lists recipients in the order they were given.
	To []string
	// Subject is the email subject line.
	Subject string
	// HTMLBody is the HTML body.
	HTMLBody string
}

// Connection describes how to reach and authenticate against an SMTP server.
type Connection struct {
	// Host is the SMTP server hostname.
	Host string
	// Port is the SMTP server port.
	Port int
	// Auth presents Username and Password to the server. An empty username
	// is still sent when Auth is set.
	Auth     bool
	Username string
	Password string
	// EnableSSL requires an encrypted connection.
	EnableSSL bool
	// Timeout overrides the client default when positive.
	Timeout time.Duration
}

// Transport builds SMTP sessions. Open must not perform network I/O.
type Transport interface {
	Open(conn Connection) (Session, error)
}

// Session is a configured client bound to one server. It is used for a single
// Send and must be closed by the caller on every path.
type Session interface {
	io.Closer
	// Send dispatches the given message using the underlying provider.
	Send(ctx context.Context, msg Message) error
}
