package mail

import (
	"errors"
	"fmt"
)

var (
	// ErrNoHost is returned when a Connection has no host.
	ErrNoHost = errors.New("smtp host is required")
	// ErrInvalidPort is returned when a Connection port is outside 1..65535.
	ErrInvalidPort = errors.New("smtp port must be between 1 and 65535")
)

// RecipientError reports that the server accepted the session but refused one
// or more recipients.
type RecipientError struct {
	// Temporary is true when the server signalled a transient (4xx) failure.
	Temporary bool
	Err       error
}

func (e *RecipientError) Error() string {
	if e.Err == nil {
		return "server rejected one or more recipients"
	}
	return "server rejected one or more recipients: " + e.Err.Error()
}

func (e *RecipientError) Unwrap() error { return e.Err }

// TransportError reports a protocol or network level failure: connection
// refused, TLS handshake, authentication, timeouts or a non-recipient SMTP
// reply.
type TransportError struct {
	// Op is the phase that failed ("dial" or "send").
	Op string
	// Timeout is true when the failure was caused by a deadline.
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AddressError reports an address that could not be parsed.
type AddressError struct {
	// Field is the header the address belongs to ("from" or "to").
	Field   string
	Address string
	Err     error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("invalid %s address %q: %v", e.Field, e.Address, e.Err)
}

func (e *AddressError) Unwrap() error { return e.Err }

// ConfigError reports a Connection the client refused to build.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "invalid smtp client configuration: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }
