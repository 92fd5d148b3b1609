// Package mail defines the SMTP client capability used to deliver email.
//
// Callers configure a Transport with connection parameters to obtain a
// Session, send exactly one Message through it and close it. The concrete
// delivery mechanism lives in this package too (go-mail backed SMTP); tests
// and other packages can swap it through the Transport interface.
//
// Failures are typed so callers can classify them without knowing the
// underlying library: RecipientError, TransportError, AddressError and
// ConfigError.
package mail
