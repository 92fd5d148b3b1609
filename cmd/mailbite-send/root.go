package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "MAILBITE"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// exitError carries a non-usage exit code out of a RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

type globals struct {
	envFile  string
	logLevel string
	env      *viper.Viper
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitUsage
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{}

	o := &sendOptions{}

	root := &cobra.Command{
		Use:   "mailbite-send",
		Short: "Send one email over SMTP and print the outcome",
		Example: `  mailbite-send --smtp-host smtp.example.com --from me@example.com \
    --to "a@example.com; b@example.com" --subject hi --body "<p>hello</p>"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSend(cmd, g, o, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before reading MAILBITE_* variables")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "error", "log level written to stderr (debug, info, warn, error)")
	o.register(root)

	root.AddCommand(newTokenCmd(g, stdout))

	return root
}

// load reads the dotenv file, if present, and binds every flag of cmd to its
// MAILBITE_* environment variable. Explicit flags win over the environment.
func (g *globals) load(cmd *cobra.Command) error {
	if g.envFile != "" {
		if err := godotenv.Load(g.envFile); err != nil && cmd.Flags().Changed("env-file") {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	g.env = v

	return nil
}

// lookup returns the value for flag name: the flag itself when given on the
// command line, otherwise the environment. ok is false when neither is set.
func (g *globals) lookup(cmd *cobra.Command, name string) (string, bool) {
	flags := cmd.Flags()
	if flags.Changed(name) {
		f := flags.Lookup(name)
		return f.Value.String(), true
	}

	if g.env == nil || !g.env.IsSet(name) {
		return "", false
	}

	return g.env.GetString(name), true
}
