// Package main implements the httpdiff CLI: it wires the action bus, the
// orchestrator, the configuration watcher and the persistence worker, then
// hands control to the interactive TUI or to the headless batch loop.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"httpdiff/internal/httpdiff"
	"httpdiff/internal/state"
	"httpdiff/internal/tui"
)

const (
	appName    = "httpdiff"
	appVersion = "1.0.0"

	logFilePath = "./.log"
)

var (
	configurationPath string
	outputDirectory   string
	enableLog         bool
	headlessMode      bool

	logger *zap.Logger
)

// errFailedJobs signals a non-zero exit after a headless run with failures.
var errFailedJobs = errors.New("completed with failed jobs")

var rootCmd = &cobra.Command{
	Use:     appName,
	Version: appVersion,
	Short:   "Compare HTTP responses served by two or more deployments of the same API",
	Long: appName + ` issues every configured endpoint against all configured domains in
parallel, diffs each response against the first domain's response and
classifies every endpoint as passing or failing. Results are shown in an
interactive terminal interface, or printed as a table in headless mode.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !enableLog {
			logger = zap.NewNop()
			return nil
		}

		// The TUI owns the terminal, so file output is the only sane sink.
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.OutputPaths = []string{logFilePath}
		cfg.ErrorOutputPaths = []string{logFilePath}

		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&configurationPath, "configuration", "c", "./configuration.json", "path to the configuration file")
	rootCmd.Flags().StringVarP(&outputDirectory, "output-directory", "o", "./output", "directory for saved job artifacts")
	rootCmd.Flags().BoolVar(&enableLog, "enable-log", false, "write debug logs to "+logFilePath)
	rootCmd.Flags().BoolVar(&headlessMode, "headless", false, "run non-interactively and exit when the batch completes")
}

func run(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	baseOutputDirectory := filepath.Join(outputDirectory, time.Now().Format("2006-01-02 15:04:05"))

	bus := httpdiff.NewBus(1000)
	app := httpdiff.NewApp(bus, logger)
	appState := state.New(baseOutputDirectory, headlessMode)
	appState.ConfigurationPath = configurationPath

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go app.Run(ctx)

	watcher, err := httpdiff.WatchConfigurationFile(configurationPath, bus, logger)
	if err != nil {
		return fmt.Errorf("failed to watch configuration file: %w", err)
	}
	defer watcher.Close()

	workerSub := bus.Subscribe()
	defer workerSub.Close()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case action := <-workerSub.C:
				switch action.(type) {
				case httpdiff.SaveCurrentJob, httpdiff.SaveFailedJobs:
					go state.ProcessWorkerAction(action, bus, baseOutputDirectory, logger)
				}
			}
		}
	}()

	bus.Send(httpdiff.TryLoadConfigurationFile{Path: configurationPath})

	if headlessMode {
		return runHeadless(ctx, appState, bus)
	}
	return tui.Run(appState, bus)
}

// runHeadless is the non-interactive action loop: reduce every bus action,
// tick on a fixed cadence, and exit once the reducer sets the quit flag.
func runHeadless(ctx context.Context, appState *state.AppState, bus *httpdiff.Bus) error {
	sub := bus.Subscribe()
	defer sub.Close()

	ticker := time.NewTicker(60 * time.Millisecond)
	defer ticker.Stop()

	for !appState.ShouldQuit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case action := <-sub.C:
			state.RunActionChain(appState, action, bus.Send)
		case now := <-ticker.C:
			state.Tick(appState, now)
		}
	}

	if appState.CriticalException != nil || appState.HasFailedJobs() {
		return errFailedJobs
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
