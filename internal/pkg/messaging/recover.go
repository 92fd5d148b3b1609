package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"github.com/shandysiswandi/mailbite/internal/pkg/stacktrace"
)

// responder guards a message so only the first Ack or Nack reaches the broker.
type responder struct {
	done atomic.Bool
}

func (r *responder) respond(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.done.Swap(true) {
		return nil
	}
	return fn()
}

func (r *responder) responded() bool {
	return r.done.Load()
}

type respondable interface {
	Message
	responded() bool
}

// deliver runs handler with panic recovery and applies auto-ack.
func deliver(ctx context.Context, driver string, handler Handler, msg respondable, autoAck bool) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", string(stack))
			}
			err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
		}

		if !autoAck || msg.responded() {
			return
		}

		var rerr error
		if err == nil {
			rerr = msg.Ack(ctx)
		} else {
			rerr = msg.Nack(ctx)
		}
		if rerr != nil {
			slog.WarnContext(ctx, "messaging auto-ack failed", "driver", driver, "id", msg.ID(), "error", rerr)
		}
	}()

	return handler(ctx, msg)
}
