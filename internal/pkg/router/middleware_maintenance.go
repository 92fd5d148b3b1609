package router

import (
	"net/http"

	"github.com/shandysiswandi/mailbite/internal/pkg/config"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
)

// middlewareMaintenance answers 503 for routes listed in
// app.maintenance.endpoints. The list is re-read on every request so a hot
// reloaded config takes effect immediately.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		if cfg == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := matchedRoutePath(r)
			for _, endpoint := range cfg.GetArray("app.maintenance.endpoints") {
				if endpoint == route {
					writeError(w, goerror.NewBusiness("service is under maintenance", goerror.CodeUnavailable))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
