// Command orchestrad is the Drop Zone daemon: it wires the provider
// adapters, cost ledger, validators, and the three workflow engines behind
// the Master Router, then either watches a directory for task files
// forever or processes whatever is already there once and exits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brightloom/orchestra/core"
	"github.com/brightloom/orchestra/dropzone"
	"github.com/brightloom/orchestra/ledger"
	"github.com/brightloom/orchestra/metrics"
	"github.com/brightloom/orchestra/observability"
	"github.com/brightloom/orchestra/providers"
	_ "github.com/brightloom/orchestra/providers/anthropic"
	_ "github.com/brightloom/orchestra/providers/bedrock"
	_ "github.com/brightloom/orchestra/providers/gemini"
	"github.com/brightloom/orchestra/providers/mock"
	_ "github.com/brightloom/orchestra/providers/openai"
	"github.com/brightloom/orchestra/router"
	"github.com/brightloom/orchestra/telemetry"
	"github.com/brightloom/orchestra/validation"
	"github.com/brightloom/orchestra/workflow/parallel"
	"github.com/brightloom/orchestra/workflow/progressive"
	"github.com/brightloom/orchestra/workflow/roles"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run builds the platform and executes the requested subcommand, returning
// the process exit code per spec.md §6: 0 on clean shutdown or an all-
// successful one-shot run, 1 on unrecoverable startup error or any task
// failure in one-shot mode.
func run(args []string) int {
	mode := "watch"
	if len(args) > 0 {
		mode = args[0]
	}

	cfg, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrad: config: %v\n", err)
		return 1
	}
	logger := cfg.Logger()

	w, err := buildDropZone(cfg, logger)
	if err != nil {
		logger.Error("orchestrad: startup failed", map[string]interface{}{"error": err.Error()})
		return 1
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "process":
		if err := w.ProcessExisting(ctx); err != nil {
			logger.Error("orchestrad: process failed", map[string]interface{}{"error": err.Error()})
			return 1
		}
		status := w.Status()
		logger.Info("orchestrad: one-shot run complete", map[string]interface{}{
			"processed": status.TasksProcessed,
			"failed":    status.TasksFailed,
		})
		if status.TasksFailed > 0 {
			return 1
		}
		return 0

	case "watch":
		logger.Info("orchestrad: starting drop zone", map[string]interface{}{"tasks_dir": w.Status().TasksDir})
		if err := w.Start(ctx); err != nil {
			logger.Error("orchestrad: watch loop failed", map[string]interface{}{"error": err.Error()})
			return 1
		}
		logger.Info("orchestrad: shut down cleanly", nil)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "orchestrad: unknown command %q (want \"watch\" or \"process\")\n", mode)
		return 1
	}
}

// buildDropZone wires every platform component from cfg: provider clients,
// the cost ledger, the validation registry, the three workflow engines,
// the Master Router, and finally the Drop Zone watcher itself.
func buildDropZone(cfg *core.Config, logger core.Logger) (*dropzone.Watcher, error) {
	clients := buildClients(cfg, logger)

	prices := ledger.NewPriceTable()
	for _, e := range defaultPrices() {
		prices.Set(e)
	}
	costLedger := ledger.New(prices, cfg.Budget, logger)

	var sinks []observability.Sink
	if fs, err := observability.NewFileSink("./dropzone/logs"); err == nil {
		sinks = append(sinks, fs)
	} else {
		logger.Warn("orchestrad: file sink unavailable", map[string]interface{}{"error": err.Error()})
	}

	var telem core.Telemetry
	if cfg.Telemetry.Enabled {
		if provider, err := telemetry.NewOTelProvider(cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint); err == nil {
			telem = provider
		} else {
			logger.Warn("orchestrad: telemetry provider unavailable, continuing without it", map[string]interface{}{"error": err.Error()})
		}
	}
	emitter := observability.NewEmitter(logger, telem, sinks...)

	validators := validation.NewRegistry()
	validators.Register("heuristic", validation.Heuristic)
	validators.Register("passthrough", validation.Passthrough)
	validators.Register("code", validation.Heuristic)
	validators.Register("tests", validation.Heuristic)
	validators.Register("review", validation.Passthrough)

	rolesOrch := roles.New(roles.Config{
		Roles:      roles.DefaultRoles(),
		Clients:    roles.ModelClients(clients),
		Validators: validators,
		Ledger:     costLedger,
		Emitter:    emitter,
		Logger:     logger,
	})

	parallelOrch := parallel.New(parallel.Config{
		Nodes:   defaultClusterNodes(),
		Clients: clients,
		Ledger:  costLedger,
		Emitter: emitter,
		Logger:  logger,
	})

	progressiveOrch := progressive.New(progressive.Config{
		Tiers:         progressive.DefaultTiers(),
		Clients:       progressive.TierClients(clients),
		QualityTarget: 80,
		Ledger:        costLedger,
		Emitter:       emitter,
		Logger:        logger,
		Validators:    validators,
		ValidatorName: "heuristic",
	})

	r := router.New(logger, rolesOrch, parallelOrch, progressiveOrch)

	var store *metrics.Store
	if s, err := metrics.NewStore("./dropzone/metrics.jsonl"); err == nil {
		store = s
	} else {
		logger.Warn("orchestrad: metrics store unavailable", map[string]interface{}{"error": err.Error()})
	}

	watcher, err := dropzone.New(dropzone.Config{
		TasksDir:     cfg.DropZone.WatchDir,
		ResultsDir:   cfg.DropZone.ResultsDir,
		ArchiveDir:   cfg.DropZone.ArchiveDir,
		Router:       r,
		Logger:       logger,
		Emitter:      emitter,
		MetricsStore: store,
	})
	if err != nil {
		return nil, err
	}
	return watcher, nil
}

// buildClients constructs one AIClient per model id referenced anywhere in
// the role definitions or tier ladder, routed to the provider adapter
// whose model-id prefix matches. Falls back to the mock adapter for any
// model no real provider is configured to serve, and for every model when
// Development.MockProvider is set, so the platform is
// runnable out of the box without credentials.
func buildClients(cfg *core.Config, logger core.Logger) map[string]core.AIClient {
	clients := make(map[string]core.AIClient)
	mockFactory, _ := providers.Get("mock")
	if mockFactory == nil {
		mockFactory = &mock.Factory{}
	}

	for _, modelID := range modelsInUse() {
		providerName := providerForModel(modelID)
		providerCfg := providerConfigFor(cfg, providerName)

		factory, ok := providers.Get(providerName)
		if !ok || !providerCfg.Enabled || cfg.Development.MockProvider {
			clients[modelID] = mockFactory.Create(&providers.AIConfig{Provider: "mock", Model: modelID, Logger: logger})
			continue
		}

		clients[modelID] = factory.Create(&providers.AIConfig{
			Provider:   providerName,
			APIKey:     providerCfg.APIKey,
			BaseURL:    providerCfg.BaseURL,
			Timeout:    providerCfg.Timeout,
			MaxRetries: providerCfg.MaxRetries,
			Model:      modelID,
			Logger:     logger,
		})
	}
	return clients
}

func providerConfigFor(cfg *core.Config, name string) core.ProviderConfig {
	switch name {
	case "anthropic":
		return cfg.Providers.Anthropic
	case "openai":
		return cfg.Providers.OpenAI
	case "bedrock":
		return cfg.Providers.Bedrock
	case "gemini":
		return cfg.Providers.Gemini
	default:
		return core.ProviderConfig{}
	}
}

// providerForModel maps a model id to the provider adapter that serves it
// by prefix, the routing scheme providers/registry.go's docs describe as
// belonging to the caller rather than the registry itself.
func providerForModel(modelID string) string {
	switch {
	case hasPrefix(modelID, "claude-"):
		return "anthropic"
	case hasPrefix(modelID, "gpt-"), hasPrefix(modelID, "o1-"), hasPrefix(modelID, "o3-"):
		return "openai"
	case hasPrefix(modelID, "gemini-"):
		return "gemini"
	case hasPrefix(modelID, "anthropic.") || hasPrefix(modelID, "amazon."):
		return "bedrock"
	default:
		return "mock"
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// modelsInUse collects every model id the role definitions and tier ladder
// reference, deduplicated, so buildClients only constructs one adapter per
// distinct model.
func modelsInUse() []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, role := range roles.DefaultRoles() {
		add(role.PrimaryModel)
		for _, fb := range role.FallbackModels {
			add(fb)
		}
	}
	for _, tier := range progressive.DefaultTiers() {
		add(tier.ModelID)
	}
	add("gpt-4")
	return out
}

// defaultClusterNodes seeds the Parallel Cluster Orchestrator with one node
// per model in use, each able to run up to three tasks at once.
func defaultClusterNodes() []parallel.NodeCapabilities {
	var nodes []parallel.NodeCapabilities
	for i, modelID := range modelsInUse() {
		nodes = append(nodes, parallel.NodeCapabilities{
			NodeID:           fmt.Sprintf("node-%d", i),
			Model:            modelID,
			MaxParallel:      3,
			ReliabilityScore: 1.0,
			Status:           parallel.NodeAvailable,
		})
	}
	return nodes
}

// defaultPrices is the static model price table from spec.md §6, one row
// per model this binary can route to.
func defaultPrices() []ledger.PriceEntry {
	return []ledger.PriceEntry{
		{ModelID: "claude-3-haiku-20240307", InputPerMillion: 0.25, OutputPerMillion: 1.25},
		{ModelID: "claude-3-5-sonnet-20241022", InputPerMillion: 3, OutputPerMillion: 15},
		{ModelID: "claude-3-opus-20240229", InputPerMillion: 15, OutputPerMillion: 75},
		{ModelID: "gpt-4", InputPerMillion: 30, OutputPerMillion: 60},
	}
}
