package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"github.com/devpilot-io/devpilot/internal/aggregate"
	"github.com/devpilot-io/devpilot/internal/config"
	"github.com/devpilot-io/devpilot/internal/conversation"
	"github.com/devpilot-io/devpilot/internal/daemon"
	"github.com/devpilot-io/devpilot/internal/decision"
	"github.com/devpilot-io/devpilot/internal/git"
	"github.com/devpilot-io/devpilot/internal/llm"
	"github.com/devpilot-io/devpilot/internal/logging"
	"github.com/devpilot-io/devpilot/internal/monitor"
	"github.com/devpilot-io/devpilot/internal/suggest"
	"github.com/devpilot-io/devpilot/internal/testcheck"
	"github.com/devpilot-io/devpilot/internal/tui"
	"github.com/devpilot-io/devpilot/internal/watcher"
)

func main() {
	configPath := flag.String("config", "devpilot.yaml", "path to config file")
	noTUI := flag.Bool("no-tui", false, "disable TUI mode")
	flag.Parse()

	// Provider API keys may live in .env; a missing file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Auto-detect TUI capability
	enableTUI := !*noTUI && os.Getenv("DEVPILOT_TUI") != "0" &&
		isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())

	logger, err := logging.Setup(cfg.LogFile, cfg.Log.Level, enableTUI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	paths := make([]string, 0, len(cfg.Projects))
	for _, p := range cfg.Projects {
		paths = append(paths, p.Path)
	}

	gitc := git.NewClient(logger)

	files, err := watcher.New(paths, cfg.Debounce, logger)
	if err != nil {
		logger.Error("start watcher", "error", err)
		os.Exit(1)
	}

	// The decision agent only exists when automation can act; the engine
	// falls back to rule-only suggestions without it.
	var decider suggest.Decider
	if cfg.Automation.Enabled && cfg.Automation.Mode != config.ModeOff {
		client, err := llm.New(ctx, cfg.Automation.LLM, logger)
		if err != nil {
			logger.Error("create llm provider", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		checker := testcheck.New(func(path string) string {
			return cfg.ResolveSuggestions(path).TestCommand
		}, logger)

		agent := decision.New(client, cfg.Automation, nil, checker, logger)
		if err := agent.Initialize(ctx); err != nil {
			logger.Error("initialize decision agent", "error", err)
			os.Exit(1)
		}
		decider = agent
	}

	agg := aggregate.New(func(path string) int {
		return cfg.ResolveSuggestions(path).LargeChangesetThreshold
	})
	mgr := monitor.NewManager(paths, gitc, files, conversation.New(), agg, logger)
	engine := suggest.NewEngine(cfg, decider, agg, logger)
	d := daemon.New(cfg, mgr, engine, gitc, agg, logger)

	if enableTUI {
		// TUI mode: daemon in the background, TUI in the foreground.
		errCh := make(chan error, 1)
		go func() {
			logger.Info("devpilot daemon starting in background", "config", *configPath)
			if err := d.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("daemon error", "error", err)
				errCh <- err
			}
		}()

		p := tea.NewProgram(tui.NewModel(d, cfg.TUI.RefreshInterval), tea.WithAltScreen())
		go func() {
			if err := <-errCh; err != nil {
				p.Send(tea.Quit())
			}
		}()

		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
			os.Exit(1)
		}
		stop()
		return
	}

	logger.Info("devpilot starting (headless)", "config", *configPath)
	if err := d.Run(ctx); err != nil {
		logger.Error("daemon error", "error", err)
		os.Exit(1)
	}
}
