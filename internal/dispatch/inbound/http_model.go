package inbound

import (
	"encoding/json"

	"github.com/shandysiswandi/mailbite/internal/dispatch/entity"
)

// sendResponse puts the outcome in the envelope data and its message in the
// envelope message.
type sendResponse struct {
	outcome entity.SendOutcome
}

func (r sendResponse) Message() string {
	return r.outcome.Message
}

func (r sendResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.outcome)
}
