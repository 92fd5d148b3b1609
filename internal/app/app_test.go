package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/mailbite/internal/dispatch/entity"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail/mailtest"
	"github.com/shandysiswandi/mailbite/internal/pkg/messaging"
)

const testConfig = `
app:
  server:
    max_goroutine: 10
    auth:
      enabled: false
    http:
      address: 127.0.0.1:0
instrument:
  enabled: false
  log_level: error
messaging:
  driver: memory
modules:
  dispatch:
    enabled: true
    consumer:
      enabled: true
      concurrency: 2
`

func newTestApp(t *testing.T) *App {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	t.Setenv("CONFIG_PATH", path)

	return New()
}

func TestApp_EndToEnd(t *testing.T) {
	smtp := mailtest.NewServer(t)
	a := newTestApp(t)
	require.NotNil(t, a.Dispatcher())
	require.NotNil(t, a.messaging)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	errCh := a.Serve(l)
	base := "http://" + l.Addr().String()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(base + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("http send", func(t *testing.T) {
		body := fmt.Sprintf(`{"smtpHost":%q,"smtpPort":%d,"from":"app@example.com","to":"one@example.com","subject":"hi","body":"<p>hi</p>"}`,
			smtp.Host, smtp.Port)
		resp, err := http.Post(base+"/api/v1/mail/send", "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var envelope struct {
			Data entity.SendOutcome `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
		assert.True(t, envelope.Data.Success)
		assert.Equal(t, entity.MessageSent, envelope.Data.Message)
	})

	t.Run("queued send", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		replies := make(chan messaging.Message, 1)
		go func() {
			//nolint:errcheck // returns when ctx is cancelled
			_ = a.messaging.Consume(ctx, "mail.send.completed", func(_ context.Context, msg messaging.Message) error {
				replies <- msg
				return nil
			}, messaging.WithGroup("app-test"), messaging.WithAutoAck(true))
		}()

		payload := fmt.Sprintf(`{"smtpHost":%q,"smtpPort":%d,"from":"app@example.com","to":"two@example.com","subject":"queued","body":"q"}`,
			smtp.Host, smtp.Port)
		_, err := a.messaging.Publish(ctx, "mail.send.requested", messaging.OutgoingMessage{
			Body:    []byte(payload),
			Headers: map[string]string{"cID": "app-cid"},
		})
		require.NoError(t, err)

		select {
		case msg := <-replies:
			assert.Equal(t, "app-cid", messaging.Header(msg, "cID"))

			var out entity.SendOutcome
			require.NoError(t, json.Unmarshal(msg.Body(), &out))
			assert.True(t, out.Success)
		case <-ctx.Done():
			t.Fatal("no reply published")
		}
	})

	assert.Len(t, smtp.Envelopes(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Stop(ctx)

	assert.True(t, errors.Is(<-errCh, http.ErrServerClosed))
}
