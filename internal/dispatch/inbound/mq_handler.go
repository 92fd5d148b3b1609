package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/messaging"
	"github.com/shandysiswandi/mailbite/internal/pkg/router"
	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc         uc
	uuid       uid.StringID
	ins        instrument.Instrumentation
	publisher  messaging.Publisher
	replyTopic string
}

func (h *MQHandler) correlationID(msg messaging.Message, fromBody string) string {
	if id := router.NormalizeCorrelationID(messaging.Header(msg, keyOfCorrelationID)); id != "" {
		return id
	}
	if id := router.NormalizeCorrelationID(fromBody); id != "" {
		return id
	}
	return h.uuid.Generate()
}

// SendRequested dispatches one mail per message. It always returns nil so the
// message is acked: malformed payloads are dropped, and a failed delivery is
// reported on the reply topic instead of being redelivered.
func (h *MQHandler) SendRequested(ctx context.Context, msg messaging.Message) error {
	var payload sendRequestedMessage
	decodeErr := json.Unmarshal(msg.Body(), &payload)

	ctx = instrument.SetCorrelationID(ctx, h.correlationID(msg, payload.CorrelationID))

	ctx, span := h.ins.Tracer("dispatch.inbound.mq").Start(ctx, "SendRequested")
	defer span.End()

	if decodeErr != nil {
		slog.ErrorContext(ctx, "failed to parse message body of mail send request", "msg_id", msg.ID(), "error", decodeErr)
		return nil
	}

	out := h.uc.Send(ctx, payload.SendRequest)

	if h.replyTopic == "" {
		return nil
	}

	cID := instrument.GetCorrelationID(ctx)
	body, err := json.Marshal(sendCompletedMessage{CorrelationID: cID, SendOutcome: out})
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode mail send outcome", "error", err)
		return nil
	}

	if _, err := h.publisher.Publish(ctx, h.replyTopic, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(cID),
		Headers: map[string]string{keyOfCorrelationID: cID},
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish mail send outcome", "topic", h.replyTopic, "error", err)
	}

	return nil
}
