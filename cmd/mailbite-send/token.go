package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/jwt"
	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
)

// newTokenCmd issues a bearer token for the HTTP send endpoint. Its flags
// share environment names with the server's jwt.* settings, so a .env used by
// the server works here too.
func newTokenCmd(g *globals, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token scoped for the HTTP send endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := jwt.Config{
				Clock: clock.New(),
				UUID:  uid.NewUUID(),
				TTL:   time.Hour,
			}

			secret, _ := g.lookup(cmd, "jwt-secret")
			cfg.Secret = []byte(secret)
			cfg.Issuer, _ = g.lookup(cmd, "jwt-issuer")

			if v, ok := g.lookup(cmd, "jwt-audiences"); ok {
				for _, aud := range strings.Split(v, ",") {
					if aud = strings.TrimSpace(aud); aud != "" {
						cfg.Audiences = append(cfg.Audiences, aud)
					}
				}
			}

			if v, ok := g.lookup(cmd, "jwt-ttl-minutes"); ok {
				n, err := strconv.Atoi(strings.TrimSpace(v))
				if err != nil || n <= 0 {
					return fmt.Errorf("invalid --jwt-ttl-minutes %q", v)
				}
				cfg.TTL = time.Duration(n) * time.Minute
			}

			subject, _ := g.lookup(cmd, "sub")
			if subject == "" {
				subject = "mailbite-send"
			}

			issuer, err := jwt.NewHS512(cfg)
			if err != nil {
				return err
			}

			token, err := issuer.Generate(subject, jwt.ScopeSend)
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}

			fmt.Fprintln(stdout, token)
			return nil
		},
	}

	f := cmd.Flags()
	f.String("jwt-secret", "", "HMAC signing key, at least 64 bytes")
	f.String("jwt-issuer", "", "iss claim")
	f.String("jwt-audiences", "", "comma separated aud claim")
	f.Int("jwt-ttl-minutes", 60, "token lifetime in minutes")
	f.String("sub", "", "sub claim, defaults to mailbite-send")

	return cmd
}
