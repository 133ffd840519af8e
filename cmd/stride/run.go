package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"

	"github.com/stridelabs/stride/internal/agent"
	"github.com/stridelabs/stride/internal/bus"
	"github.com/stridelabs/stride/internal/config"
	"github.com/stridelabs/stride/internal/index"
	"github.com/stridelabs/stride/internal/logging"
	"github.com/stridelabs/stride/internal/planner"
	"github.com/stridelabs/stride/internal/sandbox"
	"github.com/stridelabs/stride/internal/session"
	"github.com/stridelabs/stride/internal/telemetry"
	"github.com/stridelabs/stride/internal/tool"
)

// Run implements the run command: create a session, plan the goal, and
// drive the loop to a terminal state.
func (c *RunCmd) Run() error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	// Ctrl-C cancels between steps; the log gets a cancellation record.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Service:  "stride",
		Version:  version,
	})
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	sess, err := session.New(cfg.Storage.Root)
	if err != nil {
		return err
	}
	stream, err := session.OpenStream(sess.EventsPath())
	if err != nil {
		return err
	}
	defer stream.Close()

	// The catalog is derived data; a broken index degrades listing, not runs.
	ix, err := index.Open(cfg.IndexPath())
	if err != nil {
		logger.Warn("session index unavailable", "error", err)
		ix = nil
	} else {
		defer ix.Close()
		if err := ix.RecordStart(ctx, sess.ID, c.Goal, sess.CreatedAt); err != nil {
			logger.Warn("session index start failed", "error", err)
		}
	}

	if cfg.Bus.Enabled {
		pub, err := bus.Connect(cfg.Bus.URL, logger)
		if err != nil {
			logger.Warn("event bus unavailable", "url", cfg.Bus.URL, "error", err)
		} else {
			defer pub.Close()
			pub.Attach(sess.ID, stream)
		}
	}

	p, err := buildPlanner(cfg, c.Plan)
	if err != nil {
		return err
	}

	opts := []agent.Option{
		agent.WithLogger(logger),
		agent.WithMaxActions(cfg.Loop.MaxActions),
		agent.WithStepTimeout(cfg.Loop.StepTimeout.Duration()),
	}
	if c.MaxActions > 0 {
		opts = append(opts, agent.WithMaxActions(c.MaxActions))
	}

	loop := agent.NewLoop(sess, stream, p, buildRegistry(cfg, sess), opts...)
	res, err := loop.Run(ctx, c.Goal)
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}

	if ix != nil {
		if err := ix.RecordFinish(context.Background(), sess.ID, string(res.State), res.Actions, time.Now().UTC()); err != nil {
			logger.Warn("session index finish failed", "error", err)
		}
	}

	if c.Quiet {
		fmt.Println(sess.ID)
		return nil
	}

	events, err := stream.ReadAll()
	if err != nil {
		return err
	}
	var synthOpts []agent.SynthOption
	if res.State == agent.StateExhausted {
		synthOpts = append(synthOpts, agent.WithStatus(agent.StateExhausted))
	}
	fmt.Print(agent.Synthesize(events, synthOpts...).Render())
	fmt.Printf("\nSession: %s\nEvents:  %s\n", sess.ID, sess.EventsPath())
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.LoadDefault()
}

// buildRegistry assembles the four built-in tools scoped to one session's
// workspace.
func buildRegistry(cfg *config.Config, sess *session.Session) *tool.Registry {
	executor := sandbox.NewSubprocess(sess.Workspace)
	if len(cfg.Sandbox.Command) > 0 {
		executor.Command = cfg.Sandbox.Command
	}
	if d := cfg.Sandbox.Timeout.Duration(); d > 0 {
		executor.Timeout = d
	}

	registry := tool.NewRegistry()
	registry.Register(tool.NewFilesystem(sess.Workspace))
	registry.Register(tool.NewWebSearch(cfg.SearchAPIKey()))
	registry.Register(tool.NewBrowser())
	registry.Register(tool.NewCodeAct(executor, nil))
	return registry
}

func buildPlanner(cfg *config.Config, planPath string) (planner.Planner, error) {
	if planPath != "" {
		return planner.NewFilePlanner(planPath), nil
	}

	switch cfg.Planner.Provider {
	case "anthropic":
		return planner.NewAnthropicPlanner(func(o *planner.AnthropicOptions) {
			if cfg.Planner.Model != "" {
				o.Model = anthropic.Model(cfg.Planner.Model)
			}
			if cfg.Planner.MaxTokens > 0 {
				o.MaxTokens = int64(cfg.Planner.MaxTokens)
			}
			o.APIKey = cfg.PlannerAPIKey()
		}), nil
	case "openai":
		return planner.NewOpenAIPlanner(func(o *planner.OpenAIOptions) {
			if cfg.Planner.Model != "" {
				o.Model = openai.ChatModel(cfg.Planner.Model)
			}
			if cfg.Planner.MaxTokens > 0 {
				o.MaxTokens = int64(cfg.Planner.MaxTokens)
			}
			o.APIKey = cfg.PlannerAPIKey()
		}), nil
	case "file":
		if cfg.Planner.PlanPath == "" {
			return nil, fmt.Errorf("planner provider 'file' requires plan_path in config")
		}
		return planner.NewFilePlanner(cfg.Planner.PlanPath), nil
	default:
		return nil, fmt.Errorf("unknown planner provider %q", cfg.Planner.Provider)
	}
}
