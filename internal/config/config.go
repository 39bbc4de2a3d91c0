package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv     = "NEWS_CURATOR_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	newsAPIKeyEnv     = "NEWS_API_KEY"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	geminiAPIKeyEnv   = "GEMINI_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	linkedInTokenEnv  = "LINKEDIN_ACCESS_TOKEN"
	linkedInMemberEnv = "LINKEDIN_MEMBER_ID"
	databaseDSNEnv    = "DATABASE_DSN"
	mongoURIEnv       = "MONGO_URI"
)

// Recognized search providers.
const (
	SearchProviderNewsAPI = "newsapi"
	SearchProviderRSS     = "rss"
)

// Recognized LLM providers.
const (
	LLMProviderOpenAI = "openai"
	LLMProviderGemini = "gemini"
)

// Recognized history backends.
const (
	HistoryBackendFile     = "file"
	HistoryBackendSQLite   = "sqlite"
	HistoryBackendPostgres = "postgres"
	HistoryBackendMongo    = "mongo"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Search    SearchConfig    `yaml:"search"`
	LLM       LLMConfig       `yaml:"llm"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	LinkedIn  LinkedInConfig  `yaml:"linkedin"`
	Selection SelectionConfig `yaml:"selection"`
	History   HistoryConfig   `yaml:"history"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Preview   PreviewConfig   `yaml:"preview"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SchedulerConfig defines how often the pipeline repeats in schedule mode.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// SearchConfig describes the news search provider and the collection policy.
type SearchConfig struct {
	Provider     string        `yaml:"provider"`
	Endpoint     string        `yaml:"endpoint"`
	APIKey       string        `yaml:"apiKey"`
	Language     string        `yaml:"language"`
	SortBy       string        `yaml:"sortBy"`
	PageSize     int           `yaml:"pageSize"`
	Window       time.Duration `yaml:"window"`
	Limit        int           `yaml:"limit"`
	MaxPerDomain int           `yaml:"maxPerDomain"`
	Domains      []string      `yaml:"domains"`
	Blocklist    []string      `yaml:"blocklist"`
	Tiers        []TierConfig  `yaml:"tiers"`
	Feeds        []string      `yaml:"feeds"`
}

// TierConfig is one priority level of search query.
type TierConfig struct {
	Name  string `yaml:"name"`
	Query string `yaml:"query"`
}

// LLMConfig defines how to contact the language model.
type LLMConfig struct {
	Provider             string  `yaml:"provider"`
	Endpoint             string  `yaml:"endpoint"`
	Model                string  `yaml:"model"`
	APIKey               string  `yaml:"apiKey"`
	Temperature          *float64 `yaml:"temperature"`
	SentimentTemperature *float64 `yaml:"sentimentTemperature"`
	SystemPrompt         string   `yaml:"systemPrompt"`
	SentimentPrompt      string   `yaml:"sentimentPrompt"`
	Sentiment            *bool    `yaml:"sentiment"`
	HistoryContext       int      `yaml:"historyContext"`
	RequestsPerMinute    int      `yaml:"requestsPerMinute"`
}

const (
	defaultTemperature          = 0.7
	defaultSentimentTemperature = 0.3
)

// PostTemperature is the sampling temperature for post drafts. Zero is a valid setting.
func (c LLMConfig) PostTemperature() float64 {
	if c.Temperature == nil {
		return defaultTemperature
	}
	return *c.Temperature
}

// ScoringTemperature is the sampling temperature for the sentiment call.
func (c LLMConfig) ScoringTemperature() float64 {
	if c.SentimentTemperature == nil {
		return defaultSentimentTemperature
	}
	return *c.SentimentTemperature
}

// SentimentEnabled reports whether the sentiment call should run.
func (c LLMConfig) SentimentEnabled() bool {
	return c.Sentiment == nil || *c.Sentiment
}

// TelegramConfig wires all data required to talk to the operator.
type TelegramConfig struct {
	BotToken    string        `yaml:"botToken"`
	ChatID      string        `yaml:"chatId"`
	APIBase     string        `yaml:"apiBase"`
	PollTimeout time.Duration `yaml:"pollTimeout"`
}

// LinkedInConfig holds publish endpoint credentials.
type LinkedInConfig struct {
	Endpoint    string `yaml:"endpoint"`
	AccessToken string `yaml:"accessToken"`
	MemberID    string `yaml:"memberId"`
	MaxChars    int    `yaml:"maxChars"`
}

// SelectionConfig bounds the operator wait.
type SelectionConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// HistoryConfig selects the persistence backend for published posts.
type HistoryConfig struct {
	Backend         string `yaml:"backend"`
	Path            string `yaml:"path"`
	DSN             string `yaml:"dsn"`
	MongoURI        string `yaml:"mongoUri"`
	MongoDatabase   string `yaml:"mongoDatabase"`
	MongoCollection string `yaml:"mongoCollection"`
}

// ArtifactsConfig is where run snapshots are written.
type ArtifactsConfig struct {
	Dir string `yaml:"dir"`
}

// PreviewConfig controls thumbnail scraping.
type PreviewConfig struct {
	Enabled *bool         `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// IsEnabled defaults to true when unset.
func (p PreviewConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// MetricsConfig exposes Prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An explicit path wins over NEWS_CURATOR_CONFIG.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Search.Tiers) == 0 {
		cfg.Search.Tiers = defaultConfig().Search.Tiers
	}

	return cfg
}

// Validate reports configuration problems that make a run impossible.
func (c Config) Validate() error {
	var problems []string

	switch c.Search.Provider {
	case SearchProviderNewsAPI:
		if c.Search.APIKey == "" {
			problems = append(problems, newsAPIKeyEnv+" is required for the newsapi provider")
		}
	case SearchProviderRSS:
		if len(c.Search.Feeds) == 0 {
			problems = append(problems, "search.feeds must list at least one feed for the rss provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown search provider %q", c.Search.Provider))
	}

	switch c.LLM.Provider {
	case LLMProviderOpenAI, LLMProviderGemini:
		if c.LLM.APIKey == "" {
			problems = append(problems, fmt.Sprintf("an API key is required for the %s provider", c.LLM.Provider))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown llm provider %q", c.LLM.Provider))
	}

	if t := c.LLM.PostTemperature(); t < 0 || t > 2 {
		problems = append(problems, fmt.Sprintf("llm.temperature must be between 0 and 2, got %v", t))
	}
	if t := c.LLM.ScoringTemperature(); t < 0 || t > 2 {
		problems = append(problems, fmt.Sprintf("llm.sentimentTemperature must be between 0 and 2, got %v", t))
	}

	switch c.History.Backend {
	case HistoryBackendFile, HistoryBackendSQLite:
		if c.History.Path == "" {
			problems = append(problems, "history.path is required")
		}
	case HistoryBackendPostgres:
		if c.History.DSN == "" {
			problems = append(problems, databaseDSNEnv+" is required for the postgres backend")
		}
	case HistoryBackendMongo:
		if c.History.MongoURI == "" {
			problems = append(problems, mongoURIEnv+" is required for the mongo backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown history backend %q", c.History.Backend))
	}

	if c.Telegram.BotToken == "" {
		problems = append(problems, telegramTokenEnv+" is required")
	}
	if c.Telegram.ChatID == "" {
		problems = append(problems, telegramChatIDEnv+" is required")
	}
	if c.LinkedIn.AccessToken == "" || c.LinkedIn.MemberID == "" {
		problems = append(problems, linkedInTokenEnv+" and "+linkedInMemberEnv+" are required")
	}
	if c.Search.Limit <= 0 {
		problems = append(problems, "search.limit must be positive")
	}
	if c.Selection.Timeout <= 0 {
		problems = append(problems, "selection.timeout must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(newsAPIKeyEnv); v != "" {
		c.Search.APIKey = v
	}

	// The LLM key follows the selected provider.
	switch c.LLM.Provider {
	case LLMProviderGemini:
		if v := os.Getenv(geminiAPIKeyEnv); v != "" {
			c.LLM.APIKey = v
		}
	default:
		if v := os.Getenv(openAIAPIKeyEnv); v != "" {
			c.LLM.APIKey = v
		}
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Telegram.ChatID = v
	}

	if v := os.Getenv(linkedInTokenEnv); v != "" {
		c.LinkedIn.AccessToken = v
	}
	if v := os.Getenv(linkedInMemberEnv); v != "" {
		c.LinkedIn.MemberID = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.History.DSN = v
	}
	if v := os.Getenv(mongoURIEnv); v != "" {
		c.History.MongoURI = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	base.Search = mergeSearch(base.Search, override.Search)
	base.LLM = mergeLLM(base.LLM, override.LLM)

	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	if override.Telegram.ChatID != "" {
		base.Telegram.ChatID = override.Telegram.ChatID
	}
	if override.Telegram.APIBase != "" {
		base.Telegram.APIBase = override.Telegram.APIBase
	}
	if override.Telegram.PollTimeout > 0 {
		base.Telegram.PollTimeout = override.Telegram.PollTimeout
	}

	if override.LinkedIn.Endpoint != "" {
		base.LinkedIn.Endpoint = override.LinkedIn.Endpoint
	}
	if override.LinkedIn.AccessToken != "" {
		base.LinkedIn.AccessToken = override.LinkedIn.AccessToken
	}
	if override.LinkedIn.MemberID != "" {
		base.LinkedIn.MemberID = override.LinkedIn.MemberID
	}
	if override.LinkedIn.MaxChars > 0 {
		base.LinkedIn.MaxChars = override.LinkedIn.MaxChars
	}

	if override.Selection.Timeout > 0 {
		base.Selection.Timeout = override.Selection.Timeout
	}

	if override.History.Backend != "" {
		base.History.Backend = override.History.Backend
	}
	if override.History.Path != "" {
		base.History.Path = override.History.Path
	}
	if override.History.DSN != "" {
		base.History.DSN = override.History.DSN
	}
	if override.History.MongoURI != "" {
		base.History.MongoURI = override.History.MongoURI
	}
	if override.History.MongoDatabase != "" {
		base.History.MongoDatabase = override.History.MongoDatabase
	}
	if override.History.MongoCollection != "" {
		base.History.MongoCollection = override.History.MongoCollection
	}

	if override.Artifacts.Dir != "" {
		base.Artifacts.Dir = override.Artifacts.Dir
	}

	if override.Preview.Enabled != nil {
		base.Preview.Enabled = override.Preview.Enabled
	}
	if override.Preview.Timeout > 0 {
		base.Preview.Timeout = override.Preview.Timeout
	}

	if override.Metrics.Addr != "" {
		base.Metrics.Addr = override.Metrics.Addr
	}

	return base
}

func mergeSearch(base, override SearchConfig) SearchConfig {
	if override.Provider != "" {
		base.Provider = override.Provider
	}
	if override.Endpoint != "" {
		base.Endpoint = override.Endpoint
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	if override.Language != "" {
		base.Language = override.Language
	}
	if override.SortBy != "" {
		base.SortBy = override.SortBy
	}
	if override.PageSize > 0 {
		base.PageSize = override.PageSize
	}
	if override.Window > 0 {
		base.Window = override.Window
	}
	if override.Limit > 0 {
		base.Limit = override.Limit
	}
	if override.MaxPerDomain > 0 {
		base.MaxPerDomain = override.MaxPerDomain
	}
	if override.Domains != nil {
		base.Domains = override.Domains
	}
	if override.Blocklist != nil {
		base.Blocklist = override.Blocklist
	}
	if len(override.Tiers) > 0 {
		base.Tiers = override.Tiers
	}
	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}
	return base
}

func mergeLLM(base, override LLMConfig) LLMConfig {
	if override.Provider != "" {
		base.Provider = override.Provider
		// Endpoint and model defaults belong to the OpenAI provider.
		if override.Provider == LLMProviderGemini {
			base.Endpoint = ""
			base.Model = "gemini-1.5-flash"
		}
	}
	if override.Endpoint != "" {
		base.Endpoint = override.Endpoint
	}
	if override.Model != "" {
		base.Model = override.Model
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	if override.Temperature != nil {
		base.Temperature = override.Temperature
	}
	if override.SentimentTemperature != nil {
		base.SentimentTemperature = override.SentimentTemperature
	}
	if override.SystemPrompt != "" {
		base.SystemPrompt = override.SystemPrompt
	}
	if override.SentimentPrompt != "" {
		base.SentimentPrompt = override.SentimentPrompt
	}
	if override.Sentiment != nil {
		base.Sentiment = override.Sentiment
	}
	if override.HistoryContext > 0 {
		base.HistoryContext = override.HistoryContext
	}
	if override.RequestsPerMinute > 0 {
		base.RequestsPerMinute = override.RequestsPerMinute
	}
	return base
}

// DefaultPostPrompt is the German LinkedIn persona used for post drafts.
const DefaultPostPrompt = "You are a LinkedIn content expert specializing in AI trends. " +
	"Create a smart sounding German post using the informal Du about this article. " +
	"Write in a straightforward, professional tone that is approachable and authentic. " +
	"Balance insights and value for the reader with a conversational style that feels relatable and grounded. " +
	"When appropriate incorporate elements of tech-savvy language with a focus on practical applications, " +
	"especially in Artificial Intelligence and digitization for businesses. " +
	"Keep the message concise to maximum 100 words and actionable. Include relevant hashtags."

// DefaultSentimentPrompt asks for exactly two numeric tokens.
const DefaultSentimentPrompt = "Analyze the sentiment of this article. " +
	"Return only two numbers: rating (1-5, where 5 is most positive) and confidence (0-1)."

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone, location: tz},
		Search: SearchConfig{
			Provider:     SearchProviderNewsAPI,
			Endpoint:     "https://newsapi.org/v2/everything",
			Language:     "de",
			SortBy:       "relevancy",
			PageSize:     10,
			Window:       7 * 24 * time.Hour,
			Limit:        3,
			MaxPerDomain: 1,
			Domains: []string{
				"faz.net", "sueddeutsche.de", "zeit.de", "welt.de", "handelsblatt.com",
				"heise.de", "golem.de", "t3n.de", "spiegel.de", "focus.de",
				"tagesschau.de", "stern.de", "wiwo.de", "manager-magazin.de",
			},
			Blocklist: []string{"removed.com", "news.google.com", "consent.yahoo.com"},
			Tiers: []TierConfig{
				{
					Name:  "narrow",
					Query: `"Künstliche Intelligenz" AND (Unternehmen OR Mittelstand OR Digitalisierung) AND NOT "KI-Newsletter"`,
				},
				{
					Name:  "moderate",
					Query: `("Künstliche Intelligenz" OR "generative KI") AND NOT "KI-Newsletter"`,
				},
				{
					Name:  "broad",
					Query: `(KI OR "Künstliche Intelligenz" OR "Machine Learning") AND NOT "KI-Newsletter"`,
				},
			},
		},
		LLM: LLMConfig{
			Provider:          LLMProviderOpenAI,
			Endpoint:          "https://api.openai.com/v1/chat/completions",
			Model:             "gpt-4",
			SystemPrompt:      DefaultPostPrompt,
			SentimentPrompt:   DefaultSentimentPrompt,
			HistoryContext:    10,
			RequestsPerMinute: 20,
		},
		Telegram: TelegramConfig{
			APIBase:     "https://api.telegram.org",
			PollTimeout: 30 * time.Second,
		},
		LinkedIn: LinkedInConfig{
			Endpoint: "https://api.linkedin.com/v2/ugcPosts",
			MaxChars: 3000,
		},
		Selection: SelectionConfig{Timeout: 12 * time.Hour},
		History: HistoryConfig{
			Backend:         HistoryBackendFile,
			Path:            "data/post_history.jsonl",
			MongoDatabase:   "newscurator",
			MongoCollection: "post_records",
		},
		Artifacts: ArtifactsConfig{Dir: "data"},
		Preview:   PreviewConfig{Timeout: 10 * time.Second},
	}
}
