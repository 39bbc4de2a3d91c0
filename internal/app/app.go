package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"NewsCurator/internal/config"
	"NewsCurator/internal/infrastructure/linkedin"
	"NewsCurator/internal/infrastructure/llm"
	"NewsCurator/internal/infrastructure/newsapi"
	"NewsCurator/internal/infrastructure/preview"
	"NewsCurator/internal/infrastructure/rssfeed"
	"NewsCurator/internal/infrastructure/scheduler"
	"NewsCurator/internal/infrastructure/storage"
	"NewsCurator/internal/infrastructure/telegram"
	"NewsCurator/internal/logging"
	"NewsCurator/internal/metrics"
	"NewsCurator/internal/ports"
	"NewsCurator/internal/search"
	"NewsCurator/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	registry  *prometheus.Registry
	closers   []func() error
}

// New builds a runnable application instance. It opens the history backend,
// so callers must Close the result.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger, registry: prometheus.NewRegistry()}
	collector := metrics.NewCollector(a.registry)

	registry := search.NewRegistry()
	registry.Register(newsapi.NewClient(cfg.Search.Endpoint, cfg.Search.APIKey, nil))
	registry.Register(rssfeed.NewProvider(cfg.Search.Feeds, nil, baseLogger.With("component", "search.rss")))
	provider, err := registry.Resolve(cfg.Search.Provider)
	if err != nil {
		return nil, err
	}

	model, err := a.chatModel(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	store, err := a.recordStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	history := usecase.NewHistoryStore(store)

	var thumbnails ports.ThumbnailFinder
	if cfg.Preview.IsEnabled() {
		thumbnails = preview.NewOpenGraphFinder(cfg.Preview.Timeout, baseLogger.With("component", "preview"))
	}

	tiers := make([]usecase.Tier, 0, len(cfg.Search.Tiers))
	for _, t := range cfg.Search.Tiers {
		tiers = append(tiers, usecase.Tier{Name: t.Name, Query: t.Query})
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Collector: usecase.NewCollector(provider, usecase.CollectorConfig{
			Tiers:        tiers,
			Language:     cfg.Search.Language,
			SortBy:       cfg.Search.SortBy,
			PageSize:     cfg.Search.PageSize,
			Domains:      cfg.Search.Domains,
			Blocklist:    cfg.Search.Blocklist,
			MaxPerDomain: cfg.Search.MaxPerDomain,
		}, collector, baseLogger.With("component", "collector")),
		Generator: usecase.NewGenerator(model, usecase.GeneratorConfig{
			Model:                cfg.LLM.Model,
			Temperature:          cfg.LLM.PostTemperature(),
			SentimentTemperature: cfg.LLM.ScoringTemperature(),
			SystemPrompt:         cfg.LLM.SystemPrompt,
			SentimentPrompt:      cfg.LLM.SentimentPrompt,
			Sentiment:            cfg.LLM.SentimentEnabled(),
		}, collector, baseLogger.With("component", "generator")),
		History:  history,
		Sessions: usecase.NewSessions(cfg.Selection.Timeout),
		Gateway: usecase.NewGateway(
			linkedin.NewClient(cfg.LinkedIn),
			thumbnails,
			history,
			cfg.LinkedIn.MaxChars,
			collector,
			baseLogger.With("component", "gateway"),
		),
		Chat:             telegram.NewNotifier(cfg.Telegram, baseLogger.With("component", "telegram")),
		Artifacts:        storage.NewArtifactWriter(cfg.Artifacts.Dir),
		Metrics:          collector,
		Logger:           baseLogger.With("component", "pipeline"),
		Location:         cfg.Scheduler.Location(),
		Window:           cfg.Search.Window,
		Limit:            cfg.Search.Limit,
		HistoryContext:   cfg.LLM.HistoryContext,
		SelectionTimeout: cfg.Selection.Timeout,
	})

	a.scheduler = usecase.NewScheduler(
		scheduler.NewIntervalScheduler(cfg.Scheduler.Interval),
		a.pipeline,
		baseLogger.With("component", "scheduler"),
	)
	return a, nil
}

func (a *Application) chatModel(ctx context.Context) (ports.ChatModel, error) {
	var model ports.ChatModel
	switch a.cfg.LLM.Provider {
	case config.LLMProviderOpenAI:
		model = llm.NewChatGPTClient(a.cfg.LLM)
	case config.LLMProviderGemini:
		gemini, err := llm.NewGeminiClient(ctx, a.cfg.LLM)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, gemini.Close)
		model = gemini
	default:
		return nil, fmt.Errorf("llm provider %s is not supported", a.cfg.LLM.Provider)
	}
	return llm.NewRateLimited(model, a.cfg.LLM.RequestsPerMinute), nil
}

func (a *Application) recordStore(ctx context.Context) (ports.RecordStore, error) {
	h := a.cfg.History
	switch h.Backend {
	case config.HistoryBackendFile:
		store, err := storage.NewFileStore(h.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.HistoryBackendSQLite:
		store, err := storage.OpenSQLite(h.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.HistoryBackendPostgres:
		store, err := storage.OpenPostgres(h.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.HistoryBackendMongo:
		store, err := storage.OpenMongo(ctx, h.MongoURI, h.MongoDatabase, h.MongoCollection)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("history backend %s is not supported", h.Backend)
	}
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) error {
	a.serveMetrics(ctx)
	return a.pipeline.Run(ctx)
}

// Schedule repeats the pipeline until ctx is cancelled.
func (a *Application) Schedule(ctx context.Context) error {
	a.serveMetrics(ctx)
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Close releases storage and model connections.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *Application) serveMetrics(ctx context.Context) {
	if a.cfg.Metrics.Addr == "" {
		return
	}
	logger := a.logger.With("component", "metrics")
	go func() {
		if err := metrics.Serve(ctx, a.cfg.Metrics.Addr, metrics.NewRouter(a.registry), logger); err != nil {
			logger.Error("metrics server stopped", "err", err)
		}
	}()
}
