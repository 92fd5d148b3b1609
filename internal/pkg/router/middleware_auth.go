package router

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
	"github.com/shandysiswandi/mailbite/internal/pkg/jwt"
)

func middlewareAuthentication(verifier jwt.JWT, publicEndpoints map[string]map[string]struct{}) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := publicEndpoints[r.Method][matchedRoutePath(r)]; skip {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				writeError(w, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized))
				return
			}

			claims, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				writeError(w, goerror.NewBusiness("Invalid or expired token", goerror.CodeUnauthorized))
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}

// RequireScope rejects authenticated requests whose token lacks scope.
// Requests without claims pass through, so the route stays open when
// authentication is disabled.
func RequireScope(scope string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims := jwt.GetAuth(r.Context()); claims != nil && !claims.HasScope(scope) {
				writeError(w, goerror.NewBusiness("Token does not grant "+scope, goerror.CodeUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
