package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/mailbite/internal/dispatch"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.dispatch.enabled") {
		dispatcher, err := dispatch.New(dispatch.Dependency{
			Ctx:        a.ctx,
			Messaging:  a.messaging,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Clock:      a.clock,
			Goroutine:  a.goroutine,
			Validator:  a.validator,
			Router:     a.router,
			Mail:       a.mail,
		})
		if err != nil {
			slog.Error("failed to init module dispatch", "error", err)
			os.Exit(1)
		}
		a.dispatcher = dispatcher
	}
}
