package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/aristath/decomposer/internal/backend"
	"github.com/aristath/decomposer/internal/config"
	"github.com/aristath/decomposer/internal/engine"
	"github.com/aristath/decomposer/internal/events"
	"github.com/aristath/decomposer/internal/reasoning"
	"github.com/aristath/decomposer/internal/tree"
	"github.com/aristath/decomposer/internal/tui"
)

// shutdownTimeout bounds how long the CLI waits for the engine after the
// TUI exits or a signal arrives.
const shutdownTimeout = 10 * time.Second

// options holds the command-line flags.
type options struct {
	configPath string
	provider   string
	model      string
	maxDepth   int
	minFanOut  int
	headless   bool
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "decomposer [specification...]",
		Short: "Recursively elaborate a specification into a tree of subtasks",
		Long: `decomposer asks a reasoning service to elaborate a project specification,
then to split it into a few subtasks, and repeats for every subtask until the
depth bound is reached. Subtasks at the same level are resolved concurrently.

With no arguments the specification is prompted for (or read from stdin when
running headless).`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "project config file (default .decomposer/config.yaml)")
	flags.StringVar(&opts.provider, "provider", "", "reasoner provider: "+strings.Join(config.Providers, ", "))
	flags.StringVar(&opts.model, "model", "", "model name passed to the provider")
	flags.IntVar(&opts.maxDepth, "max-depth", 0, "deepest level that is elaborated (root is 1)")
	flags.IntVar(&opts.minFanOut, "min-fanout", 0, "fewest subtasks a decomposition must yield to be expanded")
	flags.BoolVar(&opts.headless, "headless", false, "run without the TUI and print the resolved tree")
	flags.BoolVar(&opts.jsonOutput, "json", false, "run headless and print the resolved tree as JSON")

	return cmd
}

func run(cmd *cobra.Command, args []string, opts *options) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	globalPath, projectPath, err := config.DefaultPaths()
	if err != nil {
		return err
	}
	if opts.configPath != "" {
		projectPath = opts.configPath
	}
	cfg, err := loadConfig(cmd, opts, globalPath, projectPath)
	if err != nil {
		return err
	}

	headless := opts.headless || opts.jsonOutput
	spec, err := readSpecification(args, headless, cmd.InOrStdin())
	if err != nil {
		return err
	}

	logOut := cmd.ErrOrStderr()
	if !headless {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := newLogger(cfg.Log.Level, logOut)
	if err != nil {
		return err
	}

	// Create ProcessManager for subprocess tracking
	pm := backend.NewProcessManager()
	defer func() {
		if err := pm.KillAll(); err != nil {
			logger.Error("killing subprocesses", "error", err)
		}
	}()

	reasoner, err := reasoning.New(ctx, cfg, pm, logger)
	if err != nil {
		return err
	}

	bus := events.NewEventBus()
	defer bus.Close()

	eng := engine.New(reasoner, policyFromConfig(cfg),
		engine.WithPublisher(bus),
		engine.WithLogger(logger),
	)
	root := tree.NewRoot(spec)
	logger.Info("starting decomposition", "provider", cfg.Reasoner.Provider,
		"max_depth", cfg.Engine.MaxDepth, "min_fanout", cfg.Engine.MinFanOut)

	if headless {
		if err := eng.Run(ctx, root); err != nil {
			return err
		}
		if opts.jsonOutput {
			return printJSON(cmd.OutOrStdout(), root.Snapshot())
		}
		printTree(cmd.OutOrStdout(), root.Snapshot())
		return nil
	}

	if err := runWithTUI(ctx, stop, eng, root, bus, pm, cfg, globalPath, projectPath, logger); err != nil {
		return err
	}
	printTree(cmd.OutOrStdout(), root.Snapshot())
	return nil
}

// runWithTUI resolves root in the background while the TUI polls it. The
// engine is cancelled when the user quits or a signal arrives.
func runWithTUI(ctx context.Context, stop context.CancelFunc, eng *engine.Engine, root *tree.Node,
	bus *events.EventBus, pm *backend.ProcessManager, cfg *config.Config,
	globalPath, projectPath string, logger *slog.Logger) error {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	model := tui.New(root, bus, cfg, globalPath, projectPath)
	p := tea.NewProgram(model, tea.WithAltScreen())

	engineDone := make(chan error, 1)
	go func() {
		err := eng.Run(runCtx, root)
		if err == nil && runCtx.Err() != nil {
			err = runCtx.Err()
		}
		p.Send(tui.DoneMsg{Err: err})
		engineDone <- err
	}()

	tuiDone := make(chan error, 1)
	go func() {
		_, err := p.Run()
		tuiDone <- err
	}()

	var tuiErr error
	select {
	case tuiErr = <-tuiDone:
		// Normal TUI exit (user pressed 'q')
	case <-ctx.Done():
		// Restore default signal handling so a second Ctrl+C force-exits
		stop()
		logger.Info("shutdown signal received, cleaning up")
		p.Quit()
		tuiErr = <-tuiDone
	}

	cancelRun()
	if err := pm.KillAll(); err != nil {
		logger.Error("killing subprocesses", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	select {
	case err := <-engineDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, leaving engine behind")
	}
	return tuiErr
}

// loadConfig merges the config files with flags that were set explicitly.
func loadConfig(cmd *cobra.Command, opts *options, globalPath, projectPath string) (*config.Config, error) {
	cfg, err := config.Load(globalPath, projectPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Reasoner.Provider = opts.provider
	}
	if flags.Changed("model") {
		cfg.Reasoner.Model = opts.model
	}
	if flags.Changed("max-depth") {
		cfg.Engine.MaxDepth = opts.maxDepth
	}
	if flags.Changed("min-fanout") {
		cfg.Engine.MinFanOut = opts.minFanOut
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func policyFromConfig(cfg *config.Config) engine.Policy {
	return engine.Policy{
		MaxDepth:       cfg.Engine.MaxDepth,
		MinFanOut:      cfg.Engine.MinFanOut,
		DuplicateRoles: engine.DuplicateRoles(cfg.Engine.DuplicateRoles),
	}
}

// readSpecification joins args, or asks for the specification when none were
// given: from stdin when headless, with a form otherwise.
func readSpecification(args []string, headless bool, stdin io.Reader) (string, error) {
	spec := strings.TrimSpace(strings.Join(args, " "))
	if spec != "" {
		return spec, nil
	}

	if headless {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading specification: %w", err)
		}
		spec = strings.TrimSpace(string(data))
	} else {
		err := huh.NewForm(huh.NewGroup(
			huh.NewText().
				Title("Project specification").
				Description("What should be built? It will be elaborated and split into subtasks.").
				Value(&spec),
		)).Run()
		if err != nil {
			return "", fmt.Errorf("reading specification: %w", err)
		}
		spec = strings.TrimSpace(spec)
	}

	if spec == "" {
		return "", errors.New("no specification given")
	}
	return spec, nil
}

// newLogger builds the slog text logger at the configured level.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log.level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}
