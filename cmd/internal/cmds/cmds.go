// Package cmds wires up the flag and logging plumbing shared by the
// binaries.
package cmds

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.senan.xyz/flagconf"

	"github.com/ogain/oggain"
)

// Logging installs the default text logger with a -log-level flag. The
// returned exit func terminates the process, non-zero if anything was
// logged at error level, so per-file failures surface in the exit
// status.
func Logging() (exit func()) {
	var level slog.LevelVar
	flag.TextVar(&level, "log-level", &level, "set the logging level")

	handler := &errTrackingHandler{
		Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level}),
	}
	slog.SetDefault(slog.New(handler))
	slog.SetLogLoggerLevel(slog.LevelError)

	return func() {
		if handler.sawError.Load() {
			os.Exit(1)
		}
		os.Exit(0)
	}
}

type errTrackingHandler struct {
	slog.Handler
	sawError atomic.Bool
}

func (h *errTrackingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		h.sawError.Store(true)
	}
	return h.Handler.Handle(ctx, r)
}

// FlagParse parses the command line, then layers in values from the
// environment and the config file.
func FlagParse() {
	userConfig, _ := os.UserConfigDir()
	configPath := flag.String("config-path", filepath.Join(userConfig, oggain.Name, "config"), "path config file")
	printVersion := flag.Bool("version", false, "print the version")
	printConfig := flag.Bool("config", false, "print the parsed config")

	flag.Parse()
	flagconf.ReadEnvPrefix = func(*flag.FlagSet) string { return oggain.Name }
	flagconf.ParseEnv()
	flagconf.ParseConfig(*configPath)

	if *printVersion {
		fmt.Printf("%s %s\n", flag.CommandLine.Name(), oggain.Version)
		os.Exit(0)
	}
	if *printConfig {
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Printf("%-16s %s\n", f.Name, f.Value)
		})
		os.Exit(0)
	}
}
