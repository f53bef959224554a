package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTelegramAPI = "https://api.telegram.org"

// MessageSender delivers a text message to a chat.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// TelegramClient calls the Bot API sendMessage method.
type TelegramClient struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewTelegramClient creates a client. An empty baseURL uses the public API.
func NewTelegramClient(token, baseURL string) *TelegramClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultTelegramAPI
	}
	return &TelegramClient{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendMessage posts an HTML formatted message to chatID.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID, text string) error {
	if c.token == "" {
		return fmt.Errorf("telegram bot token not configured")
	}
	if strings.TrimSpace(chatID) == "" {
		return fmt.Errorf("telegram chat id is empty")
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// the request URL embeds the bot token
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return fmt.Errorf("telegram sendMessage to %s: %w", chatID, uerr.Err)
		}
		return fmt.Errorf("telegram sendMessage to %s: %s", chatID, strings.ReplaceAll(err.Error(), c.token, "<token>"))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out apiResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK || !out.OK {
		desc := out.Description
		if desc == "" {
			desc = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("telegram sendMessage to %s failed (%d): %s", chatID, resp.StatusCode, desc)
	}
	return nil
}
