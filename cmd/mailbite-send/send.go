package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/shandysiswandi/mailbite/internal/dispatch/entity"
	"github.com/shandysiswandi/mailbite/internal/dispatch/outbound/email"
	"github.com/shandysiswandi/mailbite/internal/dispatch/usecase"
	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"github.com/shandysiswandi/mailbite/internal/pkg/validator"
)

const (
	outputJSON  = "json"
	outputTable = "table"
)

type sendOptions struct {
	output   string
	bodyFile string
	helo     string
	authType string
}

func (o *sendOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()

	f.String("smtp-host", "", "SMTP server host (required)")
	f.Int("smtp-port", mail.DefaultPort, "SMTP server port")
	f.String("smtp-user", "", "SMTP username, enables authentication")
	f.String("smtp-pass", "", "SMTP password")
	f.String("from", "", "sender address (required)")
	f.String("to", "", "recipients separated by ';' or ',' (required)")
	f.String("subject", "", "message subject (required, may be empty)")
	f.String("body", "", "HTML body (required unless --body-file is given)")
	f.Bool("enable-ssl", false, "require TLS (implicit TLS on port 465, STARTTLS otherwise)")
	f.Int("timeout-ms", 0, "operation timeout in milliseconds, ignored when <= 0")

	f.StringVar(&o.bodyFile, "body-file", "", "read the HTML body from a file, '-' for stdin")
	f.StringVarP(&o.output, "output", "o", outputJSON, "output format (json, table)")
	f.StringVar(&o.helo, "helo", "", "EHLO/HELO name, the OS hostname when empty")
	f.StringVar(&o.authType, "auth-type", "PLAIN", "SASL mechanism used with --smtp-user")
}

func runSend(cmd *cobra.Command, g *globals, o *sendOptions, stdout, stderr io.Writer) error {
	if o.output != outputJSON && o.output != outputTable {
		return fmt.Errorf("unknown output format %q", o.output)
	}

	req, err := buildRequest(cmd, g, o)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(instrument.NewLogHandler(stderr, &instrument.Config{
		ServiceName: "mailbite-send",
		LogLevel:    g.logLevel,
		MaskFields:  []string{"smtp_pass"},
	}, nil)))

	v, err := validator.NewV10Validator()
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}

	ins := instrument.NewNoop()
	dispatcher := usecase.NewDispatcher(usecase.Dependency{
		Transport: email.New(mail.NewSMTP(mail.SMTPConfig{
			HELO:     o.helo,
			AuthType: o.authType,
		}), ins),
		Clock:      clock.New(),
		Validator:  v,
		Instrument: ins,
	})

	out := dispatcher.Send(cmd.Context(), req)

	if err := printOutcome(stdout, o.output, out); err != nil {
		return &exitError{code: exitFailure, err: err}
	}

	if !out.Success {
		return &exitError{code: exitFailure}
	}

	return nil
}

// buildRequest leaves a field nil when neither its flag nor its environment
// variable is set, so the dispatcher can report it as missing.
func buildRequest(cmd *cobra.Command, g *globals, o *sendOptions) (entity.SendRequest, error) {
	var req entity.SendRequest

	str := func(name string) *string {
		if v, ok := g.lookup(cmd, name); ok {
			return lo.ToPtr(v)
		}
		return nil
	}

	num := func(name string) (*int, error) {
		v, ok := g.lookup(cmd, name)
		if !ok {
			return nil, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid --%s %q: %w", name, v, err)
		}
		return &n, nil
	}

	var err error
	req.SMTPHost = str("smtp-host")
	req.SMTPUser = str("smtp-user")
	req.SMTPPass = str("smtp-pass")
	req.From = str("from")
	req.To = str("to")
	req.Subject = str("subject")
	req.Body = str("body")

	if req.SMTPPort, err = num("smtp-port"); err != nil {
		return req, err
	}
	if req.TimeoutMs, err = num("timeout-ms"); err != nil {
		return req, err
	}

	if v, ok := g.lookup(cmd, "enable-ssl"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return req, fmt.Errorf("invalid --enable-ssl %q: %w", v, err)
		}
		req.EnableSSL = &b
	}

	if o.bodyFile != "" {
		body, err := readBody(cmd, o.bodyFile)
		if err != nil {
			return req, err
		}
		req.Body = &body
	}

	return req, nil
}

func readBody(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read body from stdin: %w", err)
		}
		return string(b), nil
	}

	// #nosec G304 -- path is given by the operator.
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read body file: %w", err)
	}
	return string(b), nil
}

func printOutcome(w io.Writer, format string, out entity.SendOutcome) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(entity.OutcomeColumns, "\t"))

	cells := lo.Map(out.Row(), func(v any, _ int) string {
		if v == nil {
			return "NULL"
		}
		return fmt.Sprint(v)
	})
	fmt.Fprintln(tw, strings.Join(cells, "\t"))

	return tw.Flush()
}
