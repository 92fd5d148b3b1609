package inbound

import "github.com/shandysiswandi/mailbite/internal/dispatch/entity"

// sendRequestedMessage is the payload consumed from the request topic. The
// correlation ID is read from the message header first, then from the body
// for brokers without headers.
type sendRequestedMessage struct {
	entity.SendRequest

	CorrelationID string `json:"correlationId,omitempty"`
}

// sendCompletedMessage is published to the reply topic.
type sendCompletedMessage struct {
	CorrelationID string `json:"correlationId"`
	entity.SendOutcome
}
