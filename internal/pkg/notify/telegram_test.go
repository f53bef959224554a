package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramClient_SendMessage(t *testing.T) {
	var got sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	c := NewTelegramClient("abc:123", srv.URL+"/")
	require.NoError(t, c.SendMessage(context.Background(), "42", "<b>hi</b>"))

	assert.Equal(t, "/botabc:123/sendMessage", path)
	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "<b>hi</b>", got.Text)
	assert.Equal(t, "HTML", got.ParseMode)
}

func TestTelegramClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	err := NewTelegramClient("t", srv.URL).SendMessage(context.Background(), "42", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot was blocked")
}

func TestTelegramClient_Misconfigured(t *testing.T) {
	assert.Error(t, NewTelegramClient("", "").SendMessage(context.Background(), "1", "x"))
	assert.Error(t, NewTelegramClient("t", "").SendMessage(context.Background(), " ", "x"))
}

func TestTelegramClient_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	const token = "123456:SECRET-BOT-TOKEN"
	err := NewTelegramClient(token, base).SendMessage(context.Background(), "42", "x")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), token)
	assert.NotContains(t, err.Error(), "SECRET")
	assert.Contains(t, err.Error(), "telegram sendMessage to 42")
}
