package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/mklimuk/iaq/cmd/dev/cmd"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		slog.Error("unexpected error", "error", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var debug bool
	root := &cobra.Command{
		Use:   "dev",
		Short: "build/test tool for the iaq station",
		Long: fmt.Sprintf(`Builds the iaq cli and runs the quality checks.

Native builds use the local toolchain; cross builds for the station boards
(%s) run in docker with cgo enabled for the USB adapter.`, strings.Join(cmd.TargetNames(), ", ")),
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogger(debug)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.AddCommand(cmd.BuildCmd())
	root.AddCommand(cmd.QualityCmds()...)
	return root
}

func setupLogger(debug bool) {
	charm := log.NewWithOptions(os.Stdout, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "iaq",
	})
	charm.SetColorProfile(termenv.TrueColor)
	charm.SetLevel(log.InfoLevel)
	if debug {
		charm.SetLevel(log.DebugLevel)
	}
	slog.SetDefault(slog.New(charm))
}
