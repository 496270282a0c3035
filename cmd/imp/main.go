package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	noColor   bool
	logLevel  string
	logOutput zerolog.Logger
	cfg       projectConfig
)

func main() {
	var err error
	cfg, err = loadProjectConfig()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	defaultLogLevel := "warn"
	if cfg.LogLevel != "" {
		defaultLogLevel = cfg.LogLevel
	}

	root := &cobra.Command{
		Use:           "imp",
		Short:         "Run and inspect Imp-Core v2 programs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newDumpIRCmd())
	root.AddCommand(newBuildCmd())

	cobra.OnInitialize(func() {
		color.NoColor = noColor || !isatty.IsTerminal(os.Stdout.Fd())
		logOutput = newLogger()
	})

	if err := root.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	var w zerolog.ConsoleWriter
	if isatty.IsTerminal(os.Stderr.Fd()) && !noColor {
		w = zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) { cw.Out = os.Stderr })
		return zerolog.New(w).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func printError(err error) {
	msg := fmt.Sprintf("error: %v", err)
	if color.NoColor {
		fmt.Fprintln(os.Stderr, msg)
		return
	}
	fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.Bold).Sprint(msg))
}
