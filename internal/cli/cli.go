// Package cli defines the socialbridge command tree.
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type Command string

const (
	CommandServe   Command = "serve"
	CommandDoctor  Command = "doctor"
	CommandDevices Command = "devices"
	CommandVersion Command = "version"
)

// Options are the flags shared by every command.
type Options struct {
	ConfigPath string
}

// RunFunc executes one resolved command.
type RunFunc func(ctx context.Context, cmd Command, opts Options) error

// UsageError marks a malformed invocation. It maps to exit status 2.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// IsUsage reports whether err came from argument parsing.
func IsUsage(err error) bool {
	var usage *UsageError
	return errors.As(err, &usage)
}

// NewRootCmd builds the command tree. With no subcommand the root serves.
func NewRootCmd(run RunFunc, version string) *cobra.Command {
	var opts Options

	root := &cobra.Command{
		Use:   "socialbridge",
		Short: "Bridges a line-delimited JSON protocol on stdio to the social SDK",
		Long: `socialbridge reads one JSON command per line on stdin and writes exactly
one JSON response per command on stdout. Diagnostics go to stderr or the
configured log file.`,
		Version:       version,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, _ []string) error {
			return run(c.Context(), CommandServe, opts)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})
	root.SetVersionTemplate("{{.Version}}\n")
	addConfigFlag(root.PersistentFlags(), &opts.ConfigPath)

	root.AddCommand(
		subcommand(run, &opts, CommandServe, "Serve the stdio protocol (default)"),
		subcommand(run, &opts, CommandDoctor, "Run configuration and environment checks"),
		subcommand(run, &opts, CommandDevices, "List voice input devices"),
		subcommand(run, &opts, CommandVersion, "Print version information"),
	)
	return root
}

// Execute runs the command tree over args.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, run RunFunc, version string) error {
	root := NewRootCmd(run, version)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	return root.ExecuteContext(ctx)
}

func subcommand(run RunFunc, opts *Options, name Command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(name),
		Short: short,
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(c *cobra.Command, _ []string) error {
			return run(c.Context(), name, *opts)
		},
	}
}

func addConfigFlag(flags *pflag.FlagSet, target *string) {
	flags.StringVar(target, "config", "", "config file path (default $XDG_CONFIG_HOME/socialbridge/config.jsonc)")
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}
