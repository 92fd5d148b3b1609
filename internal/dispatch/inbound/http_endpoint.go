package inbound

import (
	"github.com/shandysiswandi/mailbite/internal/dispatch/entity"
	"github.com/shandysiswandi/mailbite/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

// Send makes one delivery attempt.
// Delivery failures are not HTTP errors: the response is 200 whenever the
// body decodes, and the outcome tells whether the mail went out.
func (h *HTTPEndpoint) Send(r *router.Request) (any, error) {
	var req entity.SendRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	return sendResponse{outcome: h.uc.Send(r.Context(), req)}, nil
}
