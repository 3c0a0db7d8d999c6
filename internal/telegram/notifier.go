package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"spot-trading-engine/pkg/errors"
	"spot-trading-engine/pkg/types"
)

// DefaultBaseURL is the Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Notifier sends messages to one chat through the Telegram Bot API and
// reads operator commands from the same chat.
type Notifier struct {
	baseURL  string
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
	logger   *zap.Logger

	mu     sync.Mutex
	offset int64
}

func NewNotifier(cfg types.TelegramConfig, logger *zap.Logger) *Notifier {
	return NewNotifierWithClient(cfg, DefaultBaseURL, &http.Client{Timeout: 10 * time.Second}, logger)
}

func NewNotifierWithClient(cfg types.TelegramConfig, baseURL string, client *http.Client, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		baseURL:  strings.TrimRight(baseURL, "/"),
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		enabled:  cfg.Enabled && cfg.BotToken != "" && cfg.ChatID != "",
		client:   client,
		logger:   logger,
	}
}

func (n *Notifier) Enabled() bool { return n.enabled }

// Send posts an HTML formatted message. A disabled notifier only logs it.
func (n *Notifier) Send(ctx context.Context, message string) error {
	if !n.enabled {
		n.logger.Info("⚠️ Telegram disabled, message dropped", zap.String("text", message))
		return nil
	}

	data := url.Values{}
	data.Set("chat_id", n.chatID)
	data.Set("text", message)
	data.Set("parse_mode", "HTML")
	data.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint("sendMessage"), strings.NewReader(data.Encode()))
	if err != nil {
		return errors.Wrap(errors.ErrCodeNotifyFailed, "failed to build telegram request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Error("❌ Telegram API error", zap.Error(err))
		return errors.Wrap(errors.ErrCodeNotifyFailed, "telegram request failed", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		n.logger.Error("❌ Telegram API response", zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return errors.Newf(errors.ErrCodeNotifyFailed, "telegram API error (%d): %s", resp.StatusCode, string(body))
	}

	n.logger.Debug("✅ Telegram message sent")
	return nil
}

type updatesResponse struct {
	OK          bool     `json:"ok"`
	Description string   `json:"description"`
	Result      []update `json:"result"`
}

type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message"`
}

type message struct {
	Chat struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	Text string `json:"text"`
}

// PollCommand returns the latest text sent to the configured chat since the
// previous poll, or "" when there is none. Older texts of the same batch are
// skipped.
func (n *Notifier) PollCommand(ctx context.Context) (string, error) {
	if !n.enabled {
		return "", nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	query := url.Values{}
	query.Set("timeout", "0")
	query.Set("allowed_updates", `["message"]`)
	if n.offset > 0 {
		query.Set("offset", strconv.FormatInt(n.offset, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint("getUpdates")+"?"+query.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeNotifyFailed, "failed to build telegram request", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeNotifyFailed, "telegram poll failed", err)
	}
	defer resp.Body.Close()

	var updates updatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&updates); err != nil {
		return "", errors.Wrap(errors.ErrCodeParseFailed, "invalid telegram updates", err)
	}
	if resp.StatusCode != http.StatusOK || !updates.OK {
		return "", errors.Newf(errors.ErrCodeNotifyFailed, "telegram getUpdates error (%d): %s", resp.StatusCode, updates.Description)
	}

	latest := ""
	for _, u := range updates.Result {
		if u.UpdateID >= n.offset {
			n.offset = u.UpdateID + 1
		}
		if u.Message == nil || strconv.FormatInt(u.Message.Chat.ID, 10) != n.chatID {
			continue
		}
		if text := strings.TrimSpace(u.Message.Text); text != "" {
			latest = text
		}
	}

	if latest != "" {
		n.logger.Info("📥 Command received", zap.String("text", latest))
	}
	return latest, nil
}

func (n *Notifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", n.baseURL, n.botToken, method)
}
