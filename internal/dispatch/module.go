package dispatch

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/mailbite/internal/dispatch/inbound"
	"github.com/shandysiswandi/mailbite/internal/dispatch/outbound/email"
	"github.com/shandysiswandi/mailbite/internal/dispatch/usecase"
	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/config"
	"github.com/shandysiswandi/mailbite/internal/pkg/goroutine"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"github.com/shandysiswandi/mailbite/internal/pkg/messaging"
	"github.com/shandysiswandi/mailbite/internal/pkg/router"
	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
	"github.com/shandysiswandi/mailbite/internal/pkg/validator"
)

type Dependency struct {
	// Ctx scopes the MQ consumer. Without it, or without Messaging, only the
	// HTTP endpoint is registered.
	Ctx        context.Context
	Messaging  messaging.Messaging
	Config     config.Config
	Instrument instrument.Instrumentation
	UUID       uid.StringID
	Clock      clock.Clocker
	Goroutine  *goroutine.Manager
	Validator  validator.Validator
	Router     *router.Router
	Mail       mail.Transport
}

func New(dep Dependency) (*usecase.Dispatcher, error) {
	uc := usecase.NewDispatcher(usecase.Dependency{
		Transport:  email.New(dep.Mail, dep.Instrument),
		Clock:      dep.Clock,
		Validator:  dep.Validator,
		Instrument: dep.Instrument,
	})

	if dep.Router != nil {
		inbound.RegisterHTTPEndpoint(dep.Router, uc)
	}

	if dep.Ctx != nil && dep.Messaging != nil && dep.Config.GetBool("modules.dispatch.consumer.enabled") {
		if !inbound.RegisterMQConsumer(dep.Ctx, inbound.ConsumerConfigFrom(dep.Config), dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument) {
			slog.Warn("mail send consumer was not started")
		}
	}

	return uc, nil
}
