package entity

import "github.com/samber/lo"

// Error kinds reported in SendOutcome.ErrorKind. Failures outside these
// carry the name of their concrete error type instead.
const (
	KindMissingField            = "MissingField"
	KindRecipientDeliveryFailed = "RecipientDeliveryFailed"
	KindTransportError          = "TransportError"
	KindUnexpected              = "UnexpectedError"
	KindPanic                   = "PanicError"
)

// Outcome messages and prefixes.
const (
	MessageSent         = "Email sent successfully."
	MessageMissingField = "Missing required parameter: smtpHost, from, to, subject, body are mandatory."

	PrefixRecipient  = "Error: Failed to deliver to one or more recipients. "
	PrefixTransport  = "SMTP Error: "
	PrefixUnexpected = "Unexpected error when sending email: "
)

// OutcomeColumns names the columns of SendOutcome.Row.
var OutcomeColumns = []string{"success", "message", "timingMs", "errorKind"}

// SendOutcome is the result of one SendRequest. ErrorKind is set exactly when
// Success is false.
type SendOutcome struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	TimingMs  int64   `json:"timingMs"`
	ErrorKind *string `json:"errorKind,omitempty"`
}

// Sent builds a successful outcome.
func Sent(timingMs int64) SendOutcome {
	return SendOutcome{Success: true, Message: MessageSent, TimingMs: timingMs}
}

// Failed builds a failed outcome of the given kind.
func Failed(kind, message string, timingMs int64) SendOutcome {
	return SendOutcome{Message: message, TimingMs: timingMs, ErrorKind: lo.ToPtr(kind)}
}

// Kind returns the error kind, or "" for a success.
func (o SendOutcome) Kind() string {
	return lo.FromPtr(o.ErrorKind)
}

// Row returns the outcome as one row matching OutcomeColumns. An empty message
// and an absent kind are nil.
func (o SendOutcome) Row() []any {
	var msg, kind any
	if o.Message != "" {
		msg = o.Message
	}
	if o.ErrorKind != nil {
		kind = *o.ErrorKind
	}

	return []any{o.Success, msg, o.TimingMs, kind}
}
