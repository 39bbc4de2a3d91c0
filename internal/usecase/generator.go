package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

// GeneratorConfig holds model parameters for both completion calls.
type GeneratorConfig struct {
	Model                string
	Temperature          float64
	SentimentTemperature float64
	SystemPrompt         string
	SentimentPrompt      string
	Sentiment            bool
}

// Generator turns articles into post drafts via a chat model.
type Generator struct {
	model   ports.ChatModel
	cfg     GeneratorConfig
	metrics ports.Metrics
	logger  *slog.Logger
}

// NewGenerator wires a chat model with prompts.
func NewGenerator(model ports.ChatModel, cfg GeneratorConfig, metrics ports.Metrics, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Generator{model: model, cfg: cfg, metrics: metrics, logger: logger}
}

// Generate writes one post for article. recentHistory holds previously
// published contents the model must not echo.
func (g *Generator) Generate(ctx context.Context, article domain.Article, recentHistory []string) (domain.Post, error) {
	content, err := g.model.Complete(ctx, ports.ChatRequest{
		Model:       g.cfg.Model,
		Temperature: g.cfg.Temperature,
		Messages: []ports.Message{
			{Role: "system", Content: g.cfg.SystemPrompt},
			{Role: "user", Content: buildPostPrompt(article, recentHistory)},
		},
	})
	if err != nil {
		return domain.Post{}, fmt.Errorf("generate post for %s: %w", article.URL, err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Post{}, fmt.Errorf("generate post for %s: empty completion", article.URL)
	}

	post := domain.Post{
		Content:   content,
		SourceURL: article.URL,
		Title:     article.Title,
	}

	if g.cfg.Sentiment {
		sentiment, err := g.sentiment(ctx, article)
		if err != nil {
			return domain.Post{}, err
		}
		post.Sentiment = &sentiment
	}

	g.metrics.PostGenerated()
	return post, nil
}

func (g *Generator) sentiment(ctx context.Context, article domain.Article) (domain.Sentiment, error) {
	raw, err := g.model.Complete(ctx, ports.ChatRequest{
		Model:       g.cfg.Model,
		Temperature: g.cfg.SentimentTemperature,
		Messages: []ports.Message{
			{Role: "system", Content: g.cfg.SentimentPrompt},
			{Role: "user", Content: article.Title + "\n\n" + article.Description},
		},
	})
	if err != nil {
		return domain.Sentiment{}, fmt.Errorf("sentiment for %s: %w", article.URL, err)
	}

	sentiment, ok := ParseSentiment(raw)
	if !ok {
		g.metrics.SentimentFallback()
		g.logger.Debug("sentiment output unparseable, using neutral", "url", article.URL, "raw", raw)
	}
	return sentiment, nil
}

// ParseSentiment reads "rating confidence". Anything other than exactly two
// finite numbers yields NeutralSentiment and ok=false. The result is always
// clamped.
func ParseSentiment(raw string) (domain.Sentiment, bool) {
	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return domain.NeutralSentiment, false
	}
	rating, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || math.IsNaN(rating) || math.IsInf(rating, 0) {
		return domain.NeutralSentiment, false
	}
	confidence, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || math.IsNaN(confidence) || math.IsInf(confidence, 0) {
		return domain.NeutralSentiment, false
	}
	return domain.Sentiment{Rating: rating, Confidence: confidence}.Clamp(), true
}

func buildPostPrompt(article domain.Article, recent []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", article.Title)
	fmt.Fprintf(&b, "URL: %s\n", article.URL)
	fmt.Fprintf(&b, "Description: %s\n", article.Description)

	if len(recent) > 0 {
		b.WriteString("\nThese posts were published recently. Do not repeat their wording, structure or topics:\n")
		for i, content := range recent {
			fmt.Fprintf(&b, "\n--- Post %d ---\n%s\n", i+1, strings.TrimSpace(content))
		}
	}
	return b.String()
}
