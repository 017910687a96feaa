package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"stekfinder-autopilot/internal/logger"
)

// Notifier delivers operational summaries to the ops channel. Delivery is
// best effort: implementations swallow their own failures so a notification
// can never fail or retry a job.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier sends HTML-formatted messages to a fixed Telegram chat.
// With an empty token or chat id it is a silent no-op.
type TelegramNotifier struct {
	httpClient *http.Client
	baseURL    string
	token      string
	chatID     string
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: telegramAPI,
		token:   token,
		chatID:  chatID,
	}
}

func (t *TelegramNotifier) Notify(ctx context.Context, message string) {
	if t.token == "" || t.chatID == "" {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       message,
		"parse_mode": "HTML",
	})
	if err != nil {
		logger.Debug("telegram payload marshal failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/bot"+t.token+"/sendMessage", bytes.NewReader(payload))
	if err != nil {
		logger.Debug("telegram request build failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		logger.Debug("telegram send failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Debug("telegram send rejected", "status", resp.StatusCode)
	}
}
