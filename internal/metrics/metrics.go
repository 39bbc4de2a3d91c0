// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

// Collector implements ports.Metrics on top of Prometheus counters.
type Collector struct {
	articles           prometheus.Counter
	tierFailures       *prometheus.CounterVec
	duplicates         prometheus.Counter
	posts              prometheus.Counter
	sentimentFallbacks prometheus.Counter
	selections         *prometheus.CounterVec
	publishes          *prometheus.CounterVec
}

var _ ports.Metrics = (*Collector)(nil)

// NewCollector registers all counters on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		articles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newscurator_articles_collected_total",
			Help: "Articles accepted by the collector.",
		}),
		tierFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newscurator_tier_failures_total",
			Help: "Search tiers that failed and were skipped.",
		}, []string{"tier"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newscurator_duplicates_filtered_total",
			Help: "Candidates dropped because their URL was already published.",
		}),
		posts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newscurator_posts_generated_total",
			Help: "Post drafts produced by the language model.",
		}),
		sentimentFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newscurator_sentiment_fallbacks_total",
			Help: "Sentiment outputs that could not be parsed.",
		}),
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newscurator_selection_attempts_total",
			Help: "Operator replies by outcome.",
		}, []string{"outcome"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newscurator_publish_total",
			Help: "Publish attempts by status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		c.articles,
		c.tierFailures,
		c.duplicates,
		c.posts,
		c.sentimentFallbacks,
		c.selections,
		c.publishes,
	)
	return c
}

func (c *Collector) ArticlesCollected(n int) { c.articles.Add(float64(n)) }

func (c *Collector) TierFailed(tier string) { c.tierFailures.WithLabelValues(tier).Inc() }

func (c *Collector) DuplicateFiltered() { c.duplicates.Inc() }

func (c *Collector) PostGenerated() { c.posts.Inc() }

func (c *Collector) SentimentFallback() { c.sentimentFallbacks.Inc() }

func (c *Collector) SelectionAttempt(outcome string) {
	c.selections.WithLabelValues(outcome).Inc()
}

func (c *Collector) PublishOutcome(status domain.PublishStatus) {
	c.publishes.WithLabelValues(string(status)).Inc()
}

// NewRouter serves /metrics from gatherer and a trivial /healthz.
func NewRouter(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// Serve runs the metrics server until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
