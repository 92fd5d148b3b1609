package messaging

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var (
	// ErrUnsupported is returned when a driver cannot perform an operation.
	ErrUnsupported = errors.New("messaging: unsupported operation")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("messaging: client closed")
	// ErrDestinationRequired is returned for an empty topic or subject.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrHandlerRequired is returned when Consume is called with a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
	// ErrGroupRequired is returned by drivers that need a consumer group.
	ErrGroupRequired = errors.New("messaging: consumer group is required")
)

// Messaging is a broker client that can publish and consume.
type Messaging interface {
	io.Closer
	Publisher
	Consumer
}

// Publisher publishes messages to a topic or subject.
type Publisher interface {
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// Consumer consumes messages until ctx is done or the client is closed.
type Consumer interface {
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes a received message. With auto-ack, a nil error acks and
// a non-nil error nacks, unless the handler already responded.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is a message to publish.
type OutgoingMessage struct {
	Body []byte
	// Key is the Kafka partition key; other drivers ignore it.
	Key     []byte
	Headers map[string]string
}

// PublishResult carries what the broker reported for a publish.
type PublishResult struct {
	MessageID   string
	Destination string
	Timestamp   time.Time
}

// Message is a received message.
type Message interface {
	ID() string
	Source() string
	Body() []byte
	Headers() map[string]string
	Timestamp() time.Time

	// Ack acknowledges the message. Later Ack or Nack calls are no-ops.
	Ack(ctx context.Context) error
	// Nack asks the broker to redeliver where the driver supports it.
	Nack(ctx context.Context) error
}

// Header returns the value of key in msg, matching key case-insensitively.
func Header(msg Message, key string) string {
	h := msg.Headers()
	if v, ok := h[key]; ok {
		return v
	}
	for k, v := range h {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
