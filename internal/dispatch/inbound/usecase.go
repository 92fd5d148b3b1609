package inbound

import (
	"context"

	"github.com/shandysiswandi/mailbite/internal/dispatch/entity"
)

type uc interface {
	Send(ctx context.Context, req entity.SendRequest) entity.SendOutcome
}
