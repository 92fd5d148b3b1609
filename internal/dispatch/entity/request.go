package entity

import (
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
)

// SendRequest is one delivery attempt. A nil field is absent; a pointer to
// the zero value is present but empty.
type SendRequest struct {
	SMTPHost  *string `json:"smtpHost" validate:"required"`
	SMTPPort  *int    `json:"smtpPort"`
	SMTPUser  *string `json:"smtpUser"`
	SMTPPass  *string `json:"smtpPass"`
	From      *string `json:"from" validate:"required"`
	To        *string `json:"to" validate:"required"`
	Subject   *string `json:"subject" validate:"required"`
	Body      *string `json:"body" validate:"required"`
	EnableSSL *bool   `json:"enableSsl"`
	TimeoutMs *int    `json:"timeoutMs"`
}

// Connection resolves the optional fields into the SMTP connection settings.
// Call it only after the required fields are validated.
func (r SendRequest) Connection() mail.Connection {
	conn := mail.Connection{
		Host:      lo.FromPtr(r.SMTPHost),
		Port:      lo.FromPtrOr(r.SMTPPort, mail.DefaultPort),
		EnableSSL: lo.FromPtr(r.EnableSSL),
	}

	if r.SMTPUser != nil {
		conn.Auth = true
		conn.Username = *r.SMTPUser
		conn.Password = lo.FromPtr(r.SMTPPass)
	}

	if ms := lo.FromPtr(r.TimeoutMs); ms > 0 {
		conn.Timeout = time.Duration(ms) * time.Millisecond
	}

	return conn
}

// Message builds the HTML message for the request.
func (r SendRequest) Message() mail.Message {
	return mail.Message{
		From:     lo.FromPtr(r.From),
		To:       ParseRecipients(lo.FromPtr(r.To)),
		Subject:  lo.FromPtr(r.Subject),
		HTMLBody: lo.FromPtr(r.Body),
	}
}

// LogValue omits the body and masks the password.
func (r SendRequest) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("smtp_host", lo.FromPtr(r.SMTPHost)),
		slog.Int("smtp_port", lo.FromPtrOr(r.SMTPPort, mail.DefaultPort)),
		slog.String("from", lo.FromPtr(r.From)),
		slog.String("to", lo.FromPtr(r.To)),
		slog.Bool("enable_ssl", lo.FromPtr(r.EnableSSL)),
	}
	if r.SMTPUser != nil {
		attrs = append(attrs, slog.String("smtp_user", *r.SMTPUser))
	}
	if r.SMTPPass != nil {
		attrs = append(attrs, slog.String("smtp_pass", "***"))
	}
	if r.TimeoutMs != nil {
		attrs = append(attrs, slog.Int("timeout_ms", *r.TimeoutMs))
	}

	return slog.GroupValue(attrs...)
}

// ParseRecipients splits s on ';' and ',', trims each address and drops empty
// entries. Order is kept and duplicates are not removed.
func ParseRecipients(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' })

	return lo.FilterMap(parts, func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, p != ""
	})
}
