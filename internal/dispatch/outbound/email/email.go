package email

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
)

// Mail wraps a mail.Transport so each send is traced.
type Mail struct {
	transport mail.Transport
	tracer    trace.Tracer
}

func New(transport mail.Transport, ins instrument.Instrumentation) *Mail {
	return &Mail{transport: transport, tracer: ins.Tracer("dispatch.outbound.email")}
}

func (m *Mail) Open(conn mail.Connection) (mail.Session, error) {
	session, err := m.transport.Open(conn)
	if err != nil {
		return nil, err
	}

	return &tracedSession{
		Session: session,
		tracer:  m.tracer,
		attrs: []attribute.KeyValue{
			attribute.String("smtp.host", conn.Host),
			attribute.Int("smtp.port", conn.Port),
			attribute.Bool("smtp.ssl", conn.EnableSSL),
			attribute.Bool("smtp.auth", conn.Auth),
		},
	}, nil
}

type tracedSession struct {
	mail.Session
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

func (s *tracedSession) Send(ctx context.Context, msg mail.Message) error {
	ctx, span := s.tracer.Start(ctx, "Send", trace.WithAttributes(s.attrs...))
	defer span.End()

	span.SetAttributes(attribute.Int("mail.recipients", len(msg.To)))

	if err := s.Session.Send(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
