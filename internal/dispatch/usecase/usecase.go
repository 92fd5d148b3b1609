package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/mailbite/internal/dispatch/entity"
	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"github.com/shandysiswandi/mailbite/internal/pkg/validator"
)

type transport interface {
	Open(conn mail.Connection) (mail.Session, error)
}

type Dependency struct {
	Transport  transport
	Clock      clock.Clocker
	Validator  validator.Validator
	Instrument instrument.Instrumentation
}

// Dispatcher turns a SendRequest into exactly one delivery attempt and
// reports the result as a SendOutcome. It holds no per-call state and is
// safe for concurrent use.
type Dispatcher struct {
	transport transport
	clock     clock.Clocker
	validator validator.Validator
	ins       instrument.Instrumentation

	duration metric.Int64Histogram
	outcomes metric.Int64Counter
}

func NewDispatcher(dep Dependency) *Dispatcher {
	ins := dep.Instrument
	if ins == nil {
		ins = instrument.NewNoop()
	}

	clk := dep.Clock
	if clk == nil {
		clk = clock.New()
	}

	meter := ins.Meter("dispatch.usecase")

	duration, err := meter.Int64Histogram("mail.dispatch.duration",
		metric.WithDescription("Duration of mail dispatch attempts"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		slog.Warn("failed to create mail dispatch duration histogram", "error", err)
		duration = metricnoop.Int64Histogram{}
	}

	outcomes, err := meter.Int64Counter("mail.dispatch.outcomes",
		metric.WithDescription("Mail dispatch outcomes by error kind"),
	)
	if err != nil {
		slog.Warn("failed to create mail dispatch outcome counter", "error", err)
		outcomes = metricnoop.Int64Counter{}
	}

	v := dep.Validator
	if v == nil {
		v10, err := validator.NewV10Validator()
		if err != nil {
			slog.Error("failed to create default request validator", "error", err)
		} else {
			v = v10
		}
	}

	return &Dispatcher{
		transport: dep.Transport,
		clock:     clk,
		validator: v,
		ins:       ins,
		duration:  duration,
		outcomes:  outcomes,
	}
}

// Send validates req, makes one delivery attempt and returns its outcome.
// It never fails: every error, including a panic in the transport, becomes a
// failed outcome. Cancelling ctx does not abort a send in flight; only the
// connection timeout does.
func (d *Dispatcher) Send(ctx context.Context, req entity.SendRequest) entity.SendOutcome {
	start := d.clock.Now()

	ctx, span := d.ins.Tracer("dispatch.usecase").Start(ctx, "Dispatcher.Send")
	defer span.End()

	out := d.send(ctx, req, start)

	attrs := []attribute.KeyValue{
		attribute.Bool("success", out.Success),
		attribute.String("error_kind", out.Kind()),
	}
	span.SetAttributes(append(attrs, attribute.Int64("timing_ms", out.TimingMs))...)
	d.duration.Record(ctx, out.TimingMs, metric.WithAttributes(attrs...))
	d.outcomes.Add(ctx, 1, metric.WithAttributes(attrs...))

	if out.Success {
		slog.InfoContext(ctx, "mail dispatched", "request", req, "timing_ms", out.TimingMs)
	} else {
		span.SetStatus(codes.Error, out.Message)
		slog.WarnContext(ctx, "mail dispatch failed", "request", req, "error_kind", out.Kind(), "message", out.Message, "timing_ms", out.TimingMs)
	}

	return out
}

func (d *Dispatcher) send(ctx context.Context, req entity.SendRequest, start time.Time) (out entity.SendOutcome) {
	defer func() {
		if rvr := recover(); rvr != nil {
			out = outcomeOf(newPanicError(rvr), clock.ElapsedMillis(d.clock, start))
		}
	}()

	if err := d.validator.Validate(req); err != nil {
		elapsed := clock.ElapsedMillis(d.clock, start)

		var verr validator.V10ValidationError
		if errors.As(err, &verr) {
			return entity.Failed(entity.KindMissingField, entity.MessageMissingField, elapsed)
		}
		return outcomeOf(err, elapsed)
	}

	err := d.deliver(context.WithoutCancel(ctx), req)
	elapsed := clock.ElapsedMillis(d.clock, start)
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		return outcomeOf(err, elapsed)
	}

	return entity.Sent(elapsed)
}

// deliver opens one session, sends once and always closes the session.
func (d *Dispatcher) deliver(ctx context.Context, req entity.SendRequest) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			err = newPanicError(rvr)
		}
	}()

	session, err := d.transport.Open(req.Connection())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			slog.WarnContext(ctx, "failed to close smtp session", "error", cerr)
		}
	}()

	return session.Send(ctx, req.Message())
}

func outcomeOf(err error, elapsed int64) entity.SendOutcome {
	var recipientErr *mail.RecipientError
	if errors.As(err, &recipientErr) {
		return entity.Failed(entity.KindRecipientDeliveryFailed, entity.PrefixRecipient+err.Error(), elapsed)
	}

	var transportErr *mail.TransportError
	if errors.As(err, &transportErr) {
		return entity.Failed(entity.KindTransportError, entity.PrefixTransport+err.Error(), elapsed)
	}

	return entity.Failed(KindOf(err), entity.PrefixUnexpected+err.Error(), elapsed)
}
