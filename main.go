package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"micmd/config"
	"micmd/db"
	"micmd/dialog"
	"micmd/logging"
	"micmd/runner"
	"micmd/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var flagConfig string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "micmd",
	Short: "Call methods on smart-home devices and keep the useful ones as saved commands",
	Long: `micmd lists the devices from the config file and opens an execute dialog
for the one you pick. Calls can be saved under a name, optionally bound to a
keyboard shortcut, and replayed later from the device list or the CLI.

Examples:
  micmd                                   # Start interactive TUI
  micmd call 123456 get_prop '["power"]'  # One-off call
  micmd run "Power check" -d 123456       # Replay a saved command
  micmd validate ctrl+alt+p               # Check a shortcut before binding it`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup()
		if err != nil {
			return err
		}
		defer env.Close()
		return runTUI(env)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (default ~/.micmd/config.yaml)")
}

// env is everything a command needs once the config has been read.
type env struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *db.DB
	closers []io.Closer
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i].Close()
	}
}

func configPath() (string, error) {
	if flagConfig != "" {
		return config.ExpandHome(flagConfig)
	}
	return config.DefaultPath()
}

func setup() (*env, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(logging.Config{File: cfg.LogFile, Level: cfg.LogLevel, JSON: cfg.LogJSON})
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	e := &env{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	database, err := db.New(cfg.Database, cfg.ReservedShortcuts)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	e.db = database
	e.closers = append(e.closers, database)

	logger.Debug("loaded config", "path", path, "devices", len(cfg.Devices))
	return e, nil
}

func (e *env) invoker() (*runner.Shell, error) {
	shell, err := runner.NewShell(e.cfg.Invoker.Command)
	if err != nil {
		return nil, fmt.Errorf("%w (set invoker.command in the config file)", err)
	}
	return shell, nil
}

func runTUI(e *env) error {
	invoker, err := e.invoker()
	if err != nil {
		return err
	}

	session := dialog.New(e.db, invoker, e.db,
		dialog.WithLogger(e.logger),
		dialog.WithBannerTTL(e.cfg.BannerTTL),
		dialog.WithInvokeTimeout(e.cfg.InvokeTimeout),
	)
	app, err := ui.NewApp(ui.Config{
		Devices:       e.cfg.Devices,
		Store:         e.db,
		Invoker:       invoker,
		Session:       session,
		Logger:        e.logger,
		InvokeTimeout: e.cfg.InvokeTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run app: %w", err)
	}
	return nil
}
