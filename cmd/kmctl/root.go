package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexcar/rwe-km/internal/utils"
)

type rootOptions struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "kmctl",
		Short:         "Offline tools for the Kaplan-Meier dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(newRenderCmd(opts))
	cmd.AddCommand(newColorCmd())
	cmd.AddCommand(newResolveCmd(opts))
	return cmd
}

// openInput returns stdin for "-" and the named file otherwise.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return utils.NewLoggerTo(cmd.ErrOrStderr(), o.logLevel, false)
}
