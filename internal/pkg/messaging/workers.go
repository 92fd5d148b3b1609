package messaging

import (
	"context"
	"sync"
	"time"
)

// startWorkers runs n goroutines that call fn for each item until in closes
// or stop is closed. A nil stop never fires.
func startWorkers[T any](n int, in <-chan T, stop <-chan struct{}, fn func(T)) *sync.WaitGroup {
	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			for {
				select {
				case <-stop:
					return
				case item, ok := <-in:
					if !ok {
						return
					}
					fn(item)
				}
			}
		})
	}
	return &wg
}

// received is the message implementation shared by the drivers. ack and nack
// hold the broker specific response.
type received struct {
	responder

	id        string
	source    string
	body      []byte
	headers   map[string]string
	timestamp time.Time

	ack  func() error
	nack func() error
}

func (m *received) ID() string                 { return m.id }
func (m *received) Source() string             { return m.source }
func (m *received) Body() []byte               { return m.body }
func (m *received) Headers() map[string]string { return m.headers }
func (m *received) Timestamp() time.Time       { return m.timestamp }

func (m *received) Ack(ctx context.Context) error {
	return m.respond(ctx, func() error {
		if m.ack == nil {
			return nil
		}
		return m.ack()
	})
}

func (m *received) Nack(ctx context.Context) error {
	return m.respond(ctx, func() error {
		if m.nack == nil {
			return nil
		}
		return m.nack()
	})
}
