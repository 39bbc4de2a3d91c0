package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"NewsCurator/internal/config"
	"NewsCurator/internal/ports"
	"NewsCurator/internal/retry"
)

// maxMessageRunes is Telegram's hard limit for one sendMessage text.
const maxMessageRunes = 4096

// Notifier talks to the operator chat via the bot API: it sends HTML
// messages and long-polls getUpdates for replies.
type Notifier struct {
	apiBase     string
	botToken    string
	chatID      string
	pollTimeout time.Duration
	client      *http.Client
	pollClient  *http.Client
	sendRetry   retry.Config
	logger      *slog.Logger

	offset int64
}

var _ ports.ChatChannel = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(cfg config.TelegramConfig, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = "https://api.telegram.org"
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &Notifier{
		apiBase:     apiBase,
		botToken:    cfg.BotToken,
		chatID:      cfg.ChatID,
		pollTimeout: pollTimeout,
		client:      &http.Client{Timeout: 10 * time.Second},
		pollClient:  &http.Client{Timeout: pollTimeout + 10*time.Second},
		sendRetry:   retry.Config{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
		logger:      logger,
	}
}

// Send posts an HTML-formatted message to the configured chat.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	// HTML cannot be cut safely here; callers bound their content.
	if count := utf8.RuneCountInString(text); count > maxMessageRunes {
		return fmt.Errorf("telegram message too long: %d runes, limit %d", count, maxMessageRunes)
	}

	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")
	form.Set("disable_web_page_preview", "true")
	encoded := form.Encode()

	return retry.Do(ctx, n.sendRetry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.method("sendMessage"), strings.NewReader(encoded))
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := n.client.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := fmt.Errorf("telegram error: %s %s", resp.Status, strings.TrimSpace(string(body)))
			// Only 429 and 5xx are worth another attempt.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return retry.Permanent(err)
			}
			return err
		}
		return nil
	})
}

type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message"`
}

type message struct {
	Date int64  `json:"date"`
	Text string `json:"text"`
	Chat struct {
		ID int64 `json:"id"`
	} `json:"chat"`
}

type updatesResponse struct {
	OK          bool     `json:"ok"`
	Description string   `json:"description"`
	Result      []update `json:"result"`
}

// NextReply long-polls until a text message from the configured chat,
// sent at or after since, arrives. Commands ("/start") are skipped.
// Transient poll errors are logged and retried until ctx is done.
func (n *Notifier) NextReply(ctx context.Context, since time.Time) (string, error) {
	for {
		updates, err := n.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			n.logger.Warn("telegram poll failed", "err", err)
			if err := sleep(ctx, 2*time.Second); err != nil {
				return "", err
			}
			continue
		}

		for _, u := range updates {
			n.offset = u.UpdateID + 1
			if text, ok := n.acceptable(u, since); ok {
				return text, nil
			}
		}
	}
}

func (n *Notifier) acceptable(u update, since time.Time) (string, bool) {
	if u.Message == nil {
		return "", false
	}
	if fmt.Sprint(u.Message.Chat.ID) != n.chatID {
		return "", false
	}
	if u.Message.Date < since.Unix() {
		return "", false
	}
	text := strings.TrimSpace(u.Message.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return "", false
	}
	return text, true
}

func (n *Notifier) getUpdates(ctx context.Context) ([]update, error) {
	query := url.Values{}
	query.Set("timeout", fmt.Sprint(int(n.pollTimeout.Seconds())))
	query.Set("allowed_updates", `["message"]`)
	if n.offset > 0 {
		query.Set("offset", fmt.Sprint(n.offset))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.method("getUpdates")+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := n.pollClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var decoded updatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode updates (%s): %w", resp.Status, err)
	}
	if !decoded.OK {
		return nil, fmt.Errorf("telegram getUpdates: %s", decoded.Description)
	}
	return decoded.Result, nil
}

func (n *Notifier) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", n.apiBase, n.botToken, name)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
