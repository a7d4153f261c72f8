package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/regulon-ai/regulon/pkg/agentic"
	"github.com/regulon-ai/regulon/pkg/config"
	"github.com/regulon-ai/regulon/pkg/knowledge"
	"github.com/regulon-ai/regulon/pkg/llms"
	"github.com/regulon-ai/regulon/pkg/logger"
	"github.com/regulon-ai/regulon/pkg/observability"
	"github.com/regulon-ai/regulon/pkg/orchestrator"
	"github.com/regulon-ai/regulon/pkg/prompt"
	"github.com/regulon-ai/regulon/pkg/rag"
	"github.com/regulon-ai/regulon/pkg/server"
	"github.com/regulon-ai/regulon/pkg/tool"
	"github.com/regulon-ai/regulon/pkg/vector"
)

// ServeCmd starts the HTTP query server. Zero-config overrides let an
// operator stand up the service from flags alone, same as the config
// file would produce, for local testing against a single provider.
type ServeCmd struct {
	Addr          string `help:"HTTP listen address." placeholder:"HOST:PORT"`
	LLMProvider   string `name:"llm-provider" help:"LLM provider (anthropic, openai)."`
	LLMModel      string `name:"llm-model" help:"LLM model name."`
	LLMAPIKey     string `name:"llm-api-key" help:"LLM API key (defaults to ANTHROPIC_API_KEY/OPENAI_API_KEY)."`
	VectorStore   string `name:"vector-store" help:"Vector backend (chromem, qdrant, pinecone)."`
	TopK          int    `name:"top-k" help:"Default retrieval top_k."`
	MaxIter       int    `name:"max-iterations" help:"Agentic loop iteration cap."`
	Metrics       bool   `help:"Enable Prometheus metrics." default:"false"`
	Tracing       bool   `help:"Enable OTLP tracing." default:"false"`
	TraceEndpoint string `name:"trace-endpoint" help:"OTLP gRPC collector endpoint."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	// Flags that feed required fields (llm.api_key, llm.provider, ...)
	// must land before config.Load's own internal Validate call, so they
	// go in as the env vars Load already knows how to read rather than
	// as a post-hoc struct patch.
	c.exportAsEnv()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.applyTuningOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config after overrides: %w", err)
	}

	log := logger.New(logger.Options{Level: logger.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})

	llm, err := llms.New(cfg.LLM)
	if err != nil {
		return fmt.Errorf("construct LLM provider: %w", err)
	}

	backend, err := vector.New(cfg.Vector)
	if err != nil {
		return fmt.Errorf("construct vector backend: %w", err)
	}
	gateway := vector.NewGateway(backend, vector.GatewayConfig{
		TopKDefault:        cfg.Vector.TopKDefault,
		RelevanceThreshold: cfg.Vector.RelevanceThreshold,
	})
	var retriever rag.Retriever = gateway
	if cfg.Agentic.MultiQueryExpansion {
		retriever = rag.NewMultiQueryRetriever(gateway, nil)
	}

	assembler, err := prompt.NewAssembler(cfg.LLM.Model, cfg.Agentic.PromptTokenBudget)
	if err != nil {
		return fmt.Errorf("construct prompt assembler: %w", err)
	}

	tools := tool.NewRegistry()
	if err := registerTools(tools, gateway, assembler, llm); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	loop := agentic.NewLoop(llm, tools, assembler, cfg.Agentic.MaxIterations)
	know := knowledge.NewService(cfg.Agentic.KnowledgeSummaryPath)

	metrics, err := observability.NewMetrics(&observability.MetricsConfig{Enabled: c.Metrics})
	if err != nil {
		return fmt.Errorf("construct metrics: %w", err)
	}
	observability.SetGlobalMetrics(metrics)
	if _, err := observability.InitGlobalTracer(ctx, observability.TracerConfig{
		Enabled:      c.Tracing,
		EndpointURL:  c.TraceEndpoint,
		SamplingRate: 1.0,
		ServiceName:  "regulon",
	}); err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}

	orch := orchestrator.New(orchestrator.Services{
		Gateway:         gateway,
		Retriever:       retriever,
		Assembler:       assembler,
		LLM:             llm,
		Tools:           tools,
		Loop:            loop,
		Knowledge:       know,
		RequestDeadline: cfg.Agentic.RequestDeadline,
		RefusalPhrases:  cfg.RefusalPhrases,
		Logger:          log,
	})

	addr := cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}

	srv := server.New(server.Config{
		Addr:      addr,
		Orch:      orch,
		Loop:      loop,
		Gateway:   gateway,
		Knowledge: know,
		LLM:       llm,
		Metrics:   metrics,
		Logger:    log,
	})

	fmt.Printf("regulon server ready on %s\n", addr)
	fmt.Printf("  POST /query\n  POST /query-agentic\n  GET  /query-agentic/stream\n  GET  /knowledge-summary\n  GET  /health\n")

	return srv.Start(ctx)
}

// exportAsEnv maps the zero-config flags onto the environment variables
// config.Load's applyEnvOverrides already reads, so they take effect
// ahead of Load's internal Validate rather than patching a config that
// already failed to load.
func (c *ServeCmd) exportAsEnv() {
	if c.LLMProvider != "" {
		os.Setenv("REGULON_LLM_PROVIDER", c.LLMProvider)
	}
	if c.LLMModel != "" {
		os.Setenv("REGULON_LLM_MODEL", c.LLMModel)
	}
	if c.LLMAPIKey != "" {
		os.Setenv("REGULON_LLM_API_KEY", c.LLMAPIKey)
	}
	if c.VectorStore != "" {
		os.Setenv("REGULON_VECTOR_PROVIDER", c.VectorStore)
	}
	if c.Addr != "" {
		os.Setenv("REGULON_SERVER_ADDR", c.Addr)
	}
}

// applyTuningOverrides patches fields that only narrow an already-valid
// default (never required for Load's initial Validate to pass), so
// applying them after Load is safe.
func (c *ServeCmd) applyTuningOverrides(cfg *config.Config) {
	if c.TopK != 0 {
		cfg.Vector.TopKDefault = c.TopK
	}
	if c.MaxIter != 0 {
		cfg.Agentic.MaxIterations = c.MaxIter
	}
}

// registerTools wires all five of §4.5's fixed tools against their
// concrete collaborators.
func registerTools(tools *tool.Registry, gateway *vector.Gateway, assembler *prompt.Assembler, llm llms.Provider) error {
	registrations := []tool.Tool{
		tool.NewRetrieveRegulationsTool(gateway),
		tool.NewCalculateDrawingDimensionsTool(),
		tool.NewAnalyzeDrawingComplianceTool(llm),
		tool.NewVerifyComplianceTool(llm),
		tool.NewGenerateCompliantDesignTool(assembler, llm),
	}
	for _, t := range registrations {
		if err := tools.Register(t); err != nil {
			return err
		}
	}
	return nil
}
