package main

import (
	"context"
	"net/url"
	"os"
	"strconv"

	"github.com/inherent-design/atlas-sub010/internal/activation"
	"github.com/inherent-design/atlas-sub010/internal/capacity"
	"github.com/inherent-design/atlas-sub010/internal/chunkstore"
	"github.com/inherent-design/atlas-sub010/internal/concurrency"
	"github.com/inherent-design/atlas-sub010/internal/config"
	"github.com/inherent-design/atlas-sub010/internal/consolidation"
	"github.com/inherent-design/atlas-sub010/internal/embeddings"
	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
	"github.com/inherent-design/atlas-sub010/internal/ingest"
	"github.com/inherent-design/atlas-sub010/internal/llm"
	"github.com/inherent-design/atlas-sub010/internal/logging"
	"github.com/inherent-design/atlas-sub010/internal/qntm"
	"github.com/inherent-design/atlas-sub010/internal/rerank"
	"github.com/inherent-design/atlas-sub010/internal/search"
	"github.com/inherent-design/atlas-sub010/internal/tokenizer"
	"github.com/inherent-design/atlas-sub010/internal/vacuum"
	"github.com/inherent-design/atlas-sub010/internal/watchdog"
)

// app wires every collaborator package into the concrete graph the CLI
// commands drive. It is assembled once per process invocation.
type app struct {
	cfg    *config.Config
	logger logging.Logger
	store  chunkstore.Store

	embeddings *embeddings.Registry
	llm        *llm.Registry
	reranker   *rerank.Registry
	generator  *qntm.Generator
	controller *concurrency.Controller

	ingest       *ingest.Pipeline
	search       *search.Engine
	consolidator *consolidation.Engine
	vacuum       *vacuum.Reclaimer
	activation   *activation.Engine
	watchdog     *watchdog.Watchdog
}

// newApp loads configuration, dials the chunk store, registers backends
// for the text-embedding, code-embedding and json-completion specifiers,
// and assembles the engine graph. The other specifiers are not
// registered; a non-empty text-reranking specifier only switches on the
// LLM reranker built over the json-completion backend, and its
// provider:model is not parsed. embeddingOverride/llmOverride/rerankOverride, when non-empty,
// take precedence over the loaded configuration's specifiers (the CLI's
// per-command --embedding/--llm/--reranker flags).
func newApp(ctx context.Context, embeddingOverride, llmOverride, rerankOverride string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(logging.ParseLogLevel(cfg.Logging.Level))

	store, err := dialStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	embedReg := embeddings.NewRegistry()
	llmReg := llm.NewRegistry()
	rerankReg := rerank.NewRegistry()

	textEmbedding := firstNonEmpty(embeddingOverride, cfg.Backends.TextEmbedding)
	if err := registerEmbeddingBackend(embedReg, textEmbedding); err != nil {
		return nil, err
	}
	if cfg.Backends.CodeEmbedding != "" && cfg.Backends.CodeEmbedding != textEmbedding {
		if err := registerEmbeddingBackend(embedReg, cfg.Backends.CodeEmbedding); err != nil {
			return nil, err
		}
	}

	jsonCompletion := firstNonEmpty(llmOverride, cfg.Backends.JSONCompletion)
	if err := registerLLMBackend(llmReg, jsonCompletion); err != nil {
		return nil, err
	}

	rerankSpec := firstNonEmpty(rerankOverride, cfg.Backends.TextReranking)
	if rerankSpec != "" {
		rerankBackend, ok := llmReg.Resolve(llm.CapabilityJSONCompletion)
		if ok {
			rerankReg.Register(rerank.NewLLMBackend(rerankBackend))
		}
	}

	generatorBackend, ok := llmReg.Resolve(llm.CapabilityQNTMGeneration)
	if !ok {
		return nil, atlaserrors.NoBackend(string(llm.CapabilityQNTMGeneration))
	}
	generator := qntm.New(generatorBackend)

	monitor := capacity.NewMonitor()
	controller := concurrency.New(monitor, cfg.Concurrency.Min, cfg.Concurrency.Max, cfg.Concurrency.Max)
	controller.StartWatchdog(ctx, cfg.Concurrency.PollInterval)

	tokenSvc := tokenizer.New("cl100k_base", cfg.Tokenizer.SafeLimit)

	searchEngine := search.New(search.Config{
		Store:      store,
		Embeddings: embedReg,
		Reranker:   rerankReg,
		Generator:  generator,
		Logger:     logger,
		Collection: cfg.Store.Collection,
	})

	consolidator := consolidation.New(consolidation.Config{
		Store:      store,
		Embeddings: embedReg,
		Generator:  generator,
		Classifier: generatorBackend,
		Logger:     logger,
		Collection: cfg.Store.Collection,
	})

	reclaimer := vacuum.New(vacuum.Config{
		Store:      store,
		Logger:     logger,
		Collection: cfg.Store.Collection,
	})

	activationEngine := activation.New(activation.Config{
		Search:    searchEngine,
		Generator: generator,
		Logger:    logger,
	})

	wd := watchdog.New(watchdog.Config{
		Engine:          consolidator,
		Logger:          logger,
		IngestThreshold: cfg.Watchdog.IngestThreshold,
		TimeThreshold:   cfg.Watchdog.TimeThreshold,
		DrainTimeout:    cfg.Watchdog.DrainTimeout,
	})
	wd.Start(ctx)

	ingestPipeline := ingest.New(ingest.Config{
		Store:        store,
		Embeddings:   embedReg,
		Generator:    generator,
		Tokens:       tokenSvc,
		Controller:   controller,
		Gate:         wd,
		Logger:       logger,
		Collection:   cfg.Store.Collection,
		VectorName:   "text",
		ContextLimit: cfg.Tokenizer.ContextWindow,
	})

	return &app{
		cfg:          cfg,
		logger:       logger,
		store:        store,
		embeddings:   embedReg,
		llm:          llmReg,
		reranker:     rerankReg,
		generator:    generator,
		controller:   controller,
		ingest:       ingestPipeline,
		search:       searchEngine,
		consolidator: consolidator,
		vacuum:       reclaimer,
		activation:   activationEngine,
		watchdog:     wd,
	}, nil
}

func (a *app) close() {
	a.watchdog.Stop()
	a.controller.StopWatchdog()
	_ = a.store.Close()
}

func dialStore(ctx context.Context, cfg config.StoreConfig, logger logging.Logger) (chunkstore.Store, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, atlaserrors.Config("invalid store.url %q: %v", cfg.URL, err)
	}
	host := u.Hostname()
	if host == "" {
		host = cfg.URL
	}
	port := 6334
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	return chunkstore.NewQdrantStore(ctx, chunkstore.Config{
		Host:    host,
		Port:    port,
		APIKey:  cfg.APIKey,
		UseTLS:  u.Scheme == "https",
		Timeout: cfg.Timeout,
	}, logger)
}

func registerEmbeddingBackend(reg *embeddings.Registry, spec string) error {
	provider, model, err := config.ParseSpecifier(spec)
	if err != nil {
		return err
	}
	switch provider {
	case "openai":
		reg.Register(embeddings.NewCircuitBreakerBackend(embeddings.NewOpenAIBackend(envOrEmpty("OPENAI_API_KEY"), model, 0), nil))
	default:
		return atlaserrors.Config("unknown embedding provider %q", provider)
	}
	return nil
}

func registerLLMBackend(reg *llm.Registry, spec string) error {
	provider, model, err := config.ParseSpecifier(spec)
	if err != nil {
		return err
	}
	switch provider {
	case "anthropic":
		reg.Register(llm.NewCircuitBreakerBackend(llm.NewAnthropicBackend(envOrEmpty("ANTHROPIC_API_KEY"), model), nil))
	case "openai":
		reg.Register(llm.NewCircuitBreakerBackend(llm.NewOpenAIBackend(envOrEmpty("OPENAI_API_KEY"), model), nil))
	default:
		return atlaserrors.Config("unknown llm provider %q", provider)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func envOrEmpty(key string) string {
	return os.Getenv(key)
}
