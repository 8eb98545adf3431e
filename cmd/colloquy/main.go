package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"colloquy/internal/adapter/ollama"
	"colloquy/internal/adapter/roster"
	"colloquy/internal/adapter/transcript"
	"colloquy/internal/adapter/wikipedia"
	"colloquy/internal/domain"
	"colloquy/internal/infra/config"
	"colloquy/internal/infra/logger"
	"colloquy/internal/infra/tracer"
	"colloquy/internal/usecase/discussion"
)

const version = "0.1.0"

func main() {
	// Handle help flag first
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if len(os.Args) < 2 {
		showUsage()
		return
	}

	switch os.Args[1] {
	case "run":
		if err := runDiscussion(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "run: %v\n", err)
			os.Exit(1)
		}
	case "generate":
		if err := runGenerate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "generate: %v\n", err)
			os.Exit(1)
		}
	case "models":
		if err := runModels(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "models: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("colloquy %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'colloquy --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`colloquy - Multi-agent discussion engine

USAGE:
    colloquy COMMAND [FLAGS]

COMMANDS:
    run         Run a multi-agent discussion on a topic
    generate    Generate a task force roster for a scenario
    models      List models available on the generation backend
    version     Print the version

FLAGS (run):
    -topic TEXT        Discussion topic (required)
    -roster NAME       Saved roster to load (required)
    -rounds N          Number of discussion rounds (default: from config)
    -thinking          Show agent thinking steps

FLAGS (generate):
    -scenario TEXT     Scenario to build a task force for (required)
    -name NAME         Roster name to save under (required)
    -model NAME        Model for the generated agents (default: from config)

CONFIGURATION:
    Config file: ./config.yaml (override with COLLOQUY_CONFIG)

EXAMPLES:
    colloquy generate -scenario "Launch a community garden" -name garden
    colloquy run -topic "How should we fund the garden?" -roster garden
    colloquy models`)
}

// app bundles the wired components shared by the subcommands.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	generator domain.TextGenerator
	knowledge domain.KnowledgeSource
	rosters   *roster.Store
	sink      *transcript.SQLiteStore
	cleanup   func()
}

// buildApp loads configuration and constructs the logger, tracer and
// gateways. The returned cleanup must be deferred by the caller.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		logCloser()
		return nil, fmt.Errorf("tracer: %w", err)
	}

	client := ollama.New(cfg.Generation, log)
	generator := ollama.NewBreakerGenerator(client, cfg.Generation.Breaker, log)

	knowledge, err := wikipedia.New(cfg.Knowledge, log)
	if err != nil {
		logCloser()
		return nil, fmt.Errorf("knowledge: %w", err)
	}

	rosters, err := roster.NewStore(cfg.Discussion.DataDir, cfg.Discussion.DefaultArchetype)
	if err != nil {
		logCloser()
		return nil, fmt.Errorf("roster store: %w", err)
	}

	var sink *transcript.SQLiteStore
	if cfg.Transcript.Enabled {
		sink, err = transcript.NewSQLiteStore(cfg.Transcript.DBPath)
		if err != nil {
			logCloser()
			return nil, fmt.Errorf("transcript store: %w", err)
		}
	}

	cleanup := func() {
		if sink != nil {
			if err := sink.Close(); err != nil {
				log.Error("transcript store close error", "error", err)
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerShutdown(shutdownCtx); err != nil {
			log.Error("tracer shutdown error", "error", err)
		}
		if err := logCloser(); err != nil {
			fmt.Fprintf(os.Stderr, "logger close error: %v\n", err)
		}
	}

	return &app{
		cfg:       cfg,
		log:       log,
		generator: generator,
		knowledge: knowledge,
		rosters:   rosters,
		sink:      sink,
		cleanup:   cleanup,
	}, nil
}

func runDiscussion(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	topic := fs.String("topic", "", "discussion topic")
	rosterName := fs.String("roster", "", "saved roster to load")
	rounds := fs.Int("rounds", 0, "number of discussion rounds")
	thinking := fs.Bool("thinking", false, "show agent thinking steps")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *topic == "" {
		return fmt.Errorf("-topic is required")
	}
	if *rosterName == "" {
		return fmt.Errorf("-roster is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.cleanup()

	file, err := a.rosters.Load(*rosterName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			names, listErr := a.rosters.List()
			if listErr == nil && len(names) > 0 {
				return fmt.Errorf("roster %q not found; saved rosters: %s", *rosterName, strings.Join(names, ", "))
			}
			return fmt.Errorf("roster %q not found; run 'colloquy generate' first", *rosterName)
		}
		return err
	}

	factory := discussion.NewFactory(a.generator, a.knowledge, a.log)
	team, err := factory.BuildRoster(file.Agents, discussion.Archetype(a.cfg.Discussion.DefaultArchetype))
	if err != nil {
		return err
	}

	if *rounds <= 0 {
		*rounds = a.cfg.Discussion.Rounds
	}
	showThinking := *thinking || a.cfg.Discussion.ShowThinking

	var sink domain.TranscriptSink
	if a.sink != nil {
		sink = a.sink
	}

	streaming := false
	events := func(e domain.Entry) {
		if streaming {
			// The entry body was already streamed token by token.
			fmt.Printf("\n  -- %s\n", e.Sender)
			streaming = false
			return
		}
		printEntry(e)
	}
	onToken := func(token string) {
		if !streaming {
			streaming = true
		}
		fmt.Print(token)
	}

	orch := discussion.NewOrchestrator(team, a.log, events, sink)

	a.log.Info("starting discussion",
		"topic", *topic,
		"rounds", *rounds,
		"agents", strings.Join(team.Names(), ", "))

	result, err := orch.Run(ctx, discussion.RunConfig{
		Topic:        *topic,
		Rounds:       *rounds,
		ShowThinking: showThinking,
		OnToken:      onToken,
	})
	if err != nil {
		return err
	}

	if result.FinalOutput != "" {
		fmt.Println()
	}
	if result.RunID != "" {
		a.log.Info("discussion recorded", "run_id", result.RunID)
	}
	return nil
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	scenario := fs.String("scenario", "", "scenario to build a task force for")
	name := fs.String("name", "", "roster name to save under")
	model := fs.String("model", "", "model for the generated agents")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *scenario == "" {
		return fmt.Errorf("-scenario is required")
	}
	if *name == "" {
		return fmt.Errorf("-name is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.cleanup()

	if *model == "" {
		*model = a.cfg.Generation.DefaultModel
	}

	factory := discussion.NewFactory(a.generator, a.knowledge, a.log)
	records, _, err := factory.GenerateTaskForce(ctx, *scenario, *model)
	if err != nil {
		return err
	}

	file := roster.File{
		Topic:   *scenario,
		SavedAt: time.Now(),
		Agents:  records,
	}
	if err := a.rosters.Save(*name, file); err != nil {
		return err
	}

	fmt.Printf("Saved roster %q with %d agents:\n", *name, len(records))
	for _, rec := range records {
		marker := ""
		if rec.IsCoordinator {
			marker = " (coordinator)"
		}
		fmt.Printf("  %s - %s%s\n", rec.Name, rec.Role, marker)
	}
	return nil
}

func runModels(args []string) error {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.cleanup()

	models, err := a.generator.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		fmt.Println(m)
	}
	return nil
}

// printEntry writes a completed transcript entry to stdout.
func printEntry(e domain.Entry) {
	switch {
	case e.IsThinking:
		fmt.Printf("\n[%s]\n%s\n", e.Sender, e.Message)
	case e.IsSystem, e.IsSummary, e.IsDecision:
		fmt.Printf("\n=== %s ===\n%s\n", e.Sender, e.Message)
	default:
		fmt.Printf("\n%s:\n%s\n", e.Sender, e.Message)
	}
}
