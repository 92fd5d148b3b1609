package messaging

import (
	"context"
	"maps"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const memoryQueueSize = 256

// Memory is an in-process broker for local runs and tests. Each group on a
// topic receives every message once; consumers in the same group share the
// work. Messages published before any consumer exists are held until the
// first one subscribes. Nack redelivers to the same group.
type Memory struct {
	mu     sync.Mutex
	closed bool
	done   chan struct{}
	topics map[string]*memoryTopic

	seq  atomic.Uint64
	anon atomic.Uint64
}

type memoryTopic struct {
	groups  map[string]*memoryGroup
	backlog []*received
}

type memoryGroup struct {
	queue chan *received
	refs  int
}

// NewMemory returns an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{
		done:   make(chan struct{}),
		topics: map[string]*memoryTopic{},
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Groups reports how many consumer groups are subscribed to topic.
func (m *Memory) Groups(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.topics[topic]; ok {
		return len(t.groups)
	}
	return 0
}

func (m *Memory) topic(name string) *memoryTopic {
	t, ok := m.topics[name]
	if !ok {
		t = &memoryTopic{groups: map[string]*memoryGroup{}}
		m.topics[name] = t
	}
	return t
}

func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}

	id := strconv.FormatUint(m.seq.Add(1), 10)
	now := time.Now()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return PublishResult{}, ErrClosed
	}
	t := m.topic(destination)
	if len(t.groups) == 0 {
		t.backlog = append(t.backlog, m.newMessage(id, destination, msg, now))
		m.mu.Unlock()
		return PublishResult{MessageID: id, Destination: destination, Timestamp: now}, nil
	}
	queues := make([]chan *received, 0, len(t.groups))
	for _, g := range t.groups {
		queues = append(queues, g.queue)
	}
	m.mu.Unlock()

	for _, q := range queues {
		if err := m.enqueue(ctx, q, m.newMessage(id, destination, msg, now)); err != nil {
			return PublishResult{}, err
		}
	}

	return PublishResult{MessageID: id, Destination: destination, Timestamp: now}, nil
}

func (m *Memory) enqueue(ctx context.Context, q chan *received, msg *received) error {
	select {
	case q <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrClosed
	}
}

func (m *Memory) newMessage(id, topic string, msg OutgoingMessage, ts time.Time) *received {
	body := append([]byte(nil), msg.Body...)
	headers := maps.Clone(msg.Headers)
	if headers == nil {
		headers = map[string]string{}
	}

	return &received{id: id, source: topic, body: body, headers: headers, timestamp: ts}
}

func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	group := co.group
	if group == "" {
		group = "_anon." + strconv.FormatUint(m.anon.Add(1), 10)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	t := m.topic(source)
	g, ok := t.groups[group]
	if !ok {
		g = &memoryGroup{queue: make(chan *received, memoryQueueSize)}
		t.groups[group] = g
	}
	g.refs++
	backlog := t.backlog
	t.backlog = nil
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if g.refs--; g.refs == 0 {
			delete(t.groups, group)
		}
		m.mu.Unlock()
	}()

	stop := make(chan struct{})
	wg := startWorkers(co.concurrency, g.queue, stop, func(msg *received) {
		m.bind(ctx, g.queue, msg)
		//nolint:errcheck // logged by deliver
		_ = deliver(ctx, DriverMemory, handler, msg, co.autoAck)
	})

	var err error
	for _, msg := range backlog {
		if err = m.enqueue(ctx, g.queue, msg); err != nil {
			break
		}
	}

	if err == nil {
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-m.done:
		}
	}

	close(stop)
	wg.Wait()

	return err
}

// bind sets the nack hook so a rejected message returns to its queue.
func (m *Memory) bind(ctx context.Context, q chan *received, msg *received) {
	msg.nack = func() error {
		again := &received{
			id:        msg.id,
			source:    msg.source,
			body:      msg.body,
			headers:   msg.headers,
			timestamp: msg.timestamp,
		}
		go func() {
			//nolint:errcheck // dropped when the broker or consumer stops
			_ = m.enqueue(ctx, q, again)
		}()
		return nil
	}
}
