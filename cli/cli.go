// Package cli wires flags, configuration and logging into the client and
// server commands and maps their errors to process exit codes:
//
//	0 success, 1 failure, 2 reply timeout, 3 bad arguments or config
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"mini-ack/config"
	"mini-ack/observability"
	"mini-ack/protocol"
)

// execute runs cmd with args and turns the result into an exit code.
// Config errors print the usage line so the user sees what was expected.
func execute(ctx context.Context, cmd *cobra.Command, args []string, stderr io.Writer, usage string) int {
	cmd.SetArgs(args)
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return protocol.NewError(protocol.KindConfig, "flags", "", err)
	})

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return protocol.ExitOK
	}

	fmt.Fprintln(stderr, diagnostic(err))
	if errors.Is(err, protocol.ErrConfig) {
		fmt.Fprintln(stderr, usage)
	}
	return protocol.ExitCode(err)
}

// diagnostic is the one-line message for err.
func diagnostic(err error) string {
	var pe *protocol.Error
	if !errors.As(err, &pe) {
		return "Error: " + err.Error()
	}
	switch pe.Kind {
	case protocol.KindTimeout:
		return "Error: reply timeout"
	case protocol.KindConnect:
		if pe.Op == "bind" {
			return "Error: failed to bind: " + pe.Error()
		}
		return "Error: failed to connect: " + pe.Error()
	default:
		return "Error: " + pe.Error()
	}
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return protocol.Configf("unexpected arguments %q", args)
	}
	return nil
}

// required reports the first flag in names that was not set.
func required(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		f := cmd.Flags().Lookup(name)
		if !f.Changed {
			return protocol.Configf("missing -%s (--%s)", f.Shorthand, f.Name)
		}
	}
	return nil
}

func addCommonFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().String("config", "", "config file (default ./mini-ack.yaml)")
	cmd.Flags().String("log-level", "", "log level: debug, info, warn, error")
	v.BindPFlag("log.level", cmd.Flags().Lookup("log-level"))
}

// loadConfig reads configuration and builds the logger.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, nil, protocol.NewError(protocol.KindConfig, "load config", path, err)
	}
	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return nil, nil, protocol.NewError(protocol.KindConfig, "setup logger", "", err)
	}
	return cfg, logger, nil
}
