package inbound_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/mailbite/internal/dispatch/entity"
	"github.com/shandysiswandi/mailbite/internal/dispatch/inbound"
	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/config"
	"github.com/shandysiswandi/mailbite/internal/pkg/goroutine"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/jwt"
	"github.com/shandysiswandi/mailbite/internal/pkg/messaging"
	"github.com/shandysiswandi/mailbite/internal/pkg/router"
	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
)

type fakeUC struct {
	mu   sync.Mutex
	reqs []entity.SendRequest
	cids []string
	out  entity.SendOutcome
}

func (f *fakeUC) Send(ctx context.Context, req entity.SendRequest) entity.SendOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	f.cids = append(f.cids, instrument.GetCorrelationID(ctx))
	return f.out
}

func (f *fakeUC) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

type fixedID string

func (f fixedID) Generate() string { return string(f) }

const secret = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newHTTP(t *testing.T, uc *fakeUC, authEnabled bool) (http.Handler, jwt.JWT) {
	t.Helper()

	yaml := "app:\n  server:\n    auth:\n      enabled: false\n"
	if authEnabled {
		yaml = "app:\n  server:\n    auth:\n      enabled: true\n"
	}
	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)

	tokens, err := jwt.NewHS512(jwt.Config{
		Secret: []byte(secret),
		Issuer: "mailbite",
		TTL:    time.Hour,
		Clock:  clock.New(),
		UUID:   uid.NewUUID(),
	})
	require.NoError(t, err)

	r := router.NewRouter(router.Config{Config: cfg, UUID: fixedID("cid-1"), JWT: tokens})
	inbound.RegisterHTTPEndpoint(r, uc)

	return r, tokens
}

type envelope struct {
	Message string             `json:"message"`
	Data    entity.SendOutcome `json:"data"`
}

func postSend(h http.Handler, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/mail/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPEndpoint_Send(t *testing.T) {
	t.Run("failed outcome is still 200", func(t *testing.T) {
		// Arrange
		uc := &fakeUC{out: entity.Failed(entity.KindTransportError, "SMTP Error: dial: refused", 4)}
		h, _ := newHTTP(t, uc, false)

		// Act
		rec := postSend(h, `{"smtpHost":"h","smtpPort":2525,"from":"a@x.com","to":"b@x.com","subject":"hi","body":"<p>hi</p>"}`, "")

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "SMTP Error: dial: refused", env.Message)
		assert.Equal(t, uc.out, env.Data)
		require.Equal(t, 1, uc.calls())
		assert.Equal(t, "h", lo.FromPtr(uc.reqs[0].SMTPHost))
		assert.Equal(t, 2525, lo.FromPtr(uc.reqs[0].SMTPPort))
		assert.Nil(t, uc.reqs[0].SMTPUser)
		assert.Equal(t, "cid-1", uc.cids[0])
	})

	t.Run("absent fields reach the dispatcher as nil", func(t *testing.T) {
		uc := &fakeUC{out: entity.Failed(entity.KindMissingField, entity.MessageMissingField, 0)}
		h, _ := newHTTP(t, uc, false)

		rec := postSend(h, `{"smtpHost":"h","subject":""}`, "")

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 1, uc.calls())
		assert.Nil(t, uc.reqs[0].From)
		assert.Equal(t, "", lo.FromPtr(uc.reqs[0].Subject))
		assert.NotNil(t, uc.reqs[0].Subject)
		assert.NotContains(t, rec.Body.String(), `"errorKind":null`)
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		uc := &fakeUC{}
		h, _ := newHTTP(t, uc, false)

		rec := postSend(h, `{"smtpHost":"h","cc":"x@x.com"}`, "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, uc.calls())
	})

	t.Run("auth", func(t *testing.T) {
		uc := &fakeUC{out: entity.Sent(1)}
		h, tokens := newHTTP(t, uc, true)
		scoped, err := tokens.Generate("svc", jwt.ScopeSend)
		require.NoError(t, err)
		unscoped, err := tokens.Generate("svc")
		require.NoError(t, err)
		body := `{"smtpHost":"h"}`

		assert.Equal(t, http.StatusUnauthorized, postSend(h, body, "").Code)
		assert.Equal(t, http.StatusUnauthorized, postSend(h, body, unscoped).Code)
		assert.Equal(t, http.StatusOK, postSend(h, body, scoped).Code)
		assert.Equal(t, 1, uc.calls())
	})
}

func TestConsumerConfigFrom(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := config.NewViperFromBytes("yaml", []byte("modules: {}\n"))
		require.NoError(t, err)

		assert.Equal(t, inbound.ConsumerConfig{
			Topic:       "mail.send.requested",
			ReplyTopic:  "mail.send.completed",
			Group:       "mailbite-dispatch",
			Concurrency: 10,
		}, inbound.ConsumerConfigFrom(cfg))
	})

	t.Run("explicit empty reply topic disables replies", func(t *testing.T) {
		cfg, err := config.NewViperFromBytes("yaml", []byte(`
modules:
  dispatch:
    consumer:
      topic: in
      reply_topic: ""
      group: g
      concurrency: 3
`))
		require.NoError(t, err)

		assert.Equal(t, inbound.ConsumerConfig{Topic: "in", Group: "g", Concurrency: 3}, inbound.ConsumerConfigFrom(cfg))
	})
}

func TestMQConsumer(t *testing.T) {
	// Arrange
	broker := messaging.NewMemory()
	t.Cleanup(func() { _ = broker.Close() })
	uc := &fakeUC{out: entity.Sent(9)}
	routine := goroutine.NewManager(4)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = routine.Wait()
	})
	cc := inbound.ConsumerConfig{Topic: "req", ReplyTopic: "resp", Group: "g", Concurrency: 2}

	replies := make(chan messaging.Message, 4)
	go func() {
		_ = broker.Consume(ctx, "resp", func(_ context.Context, msg messaging.Message) error {
			replies <- msg
			return nil
		}, messaging.WithGroup("test"))
	}()

	require.True(t, inbound.RegisterMQConsumer(ctx, cc, routine, broker, fixedID("generated"), uc, instrument.NewNoop()))

	// Act
	_, err := broker.Publish(ctx, "req", messaging.OutgoingMessage{Body: []byte("{not json")})
	require.NoError(t, err)
	_, err = broker.Publish(ctx, "req", messaging.OutgoingMessage{
		Body:    []byte(`{"smtpHost":"h","from":"a@x.com","to":"b@x.com","subject":"s","body":"b"}`),
		Headers: map[string]string{"cID": "from-header"},
	})
	require.NoError(t, err)
	_, err = broker.Publish(ctx, "req", messaging.OutgoingMessage{
		Body: []byte(`{"smtpHost":"h","correlationId":"from-body"}`),
	})
	require.NoError(t, err)

	// Assert
	got := map[string]map[string]any{}
	for range 2 {
		select {
		case msg := <-replies:
			var body map[string]any
			require.NoError(t, json.Unmarshal(msg.Body(), &body))
			assert.Equal(t, body["correlationId"], messaging.Header(msg, "cID"))
			got[body["correlationId"].(string)] = body
		case <-time.After(5 * time.Second):
			t.Fatal("reply not published")
		}
	}
	require.Contains(t, got, "from-header")
	require.Contains(t, got, "from-body")
	assert.Equal(t, true, got["from-header"]["success"])
	assert.Equal(t, "Email sent successfully.", got["from-header"]["message"])
	assert.EqualValues(t, 9, got["from-header"]["timingMs"])
	assert.Equal(t, 2, uc.calls())

	select {
	case msg := <-replies:
		t.Fatalf("unexpected reply %s", msg.Body())
	case <-time.After(100 * time.Millisecond):
	}
}
