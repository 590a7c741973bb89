package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-chat-client/internal/config"
	"github.com/janhq/jan-chat-client/internal/domain/conversation"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		ServiceName:         "jan-chat-client",
		Environment:         "test",
		ShutdownTimeout:     time.Second,
		BaseURL:             baseURL,
		ChatEndpoint:        "/chatbot/api/chat/",
		RequestTimeout:      5 * time.Second,
		Language:            "en",
		Transports:          "live,request",
		LiveEnabled:         false,
		StoreBackend:        "memory",
		StoreKey:            "mediAI_conversations",
		StoreCacheSize:      8,
		PendingTickInterval: time.Hour,
	}
}

func TestApplicationChatsOverRequestTransport(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "re: " + body.Message})
	}))
	defer backend.Close()

	out := &syncBuffer{}
	app, cleanup, err := buildApplication(testConfig(backend.URL), zerolog.Nop(), strings.NewReader("headache\n/quit\n"), out)
	require.NoError(t, err)
	defer cleanup()
	assert.Nil(t, app.supervisor)
	assert.Nil(t, app.statusServer)

	require.NoError(t, app.Start(context.Background()))

	assert.Contains(t, out.String(), "assistant> re: headache\n")

	history := app.orch.History(context.Background())
	require.Len(t, history, 1)
	assert.Equal(t, []conversation.Message{
		{Role: conversation.RoleAssistant, Text: history[0].Messages[0].Text},
		{Role: conversation.RoleUser, Text: "headache"},
		{Role: conversation.RoleAssistant, Text: "re: headache"},
	}, history[0].Messages)
}

func TestBuildApplicationWithLiveAndBolt(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.LiveEnabled = true
	cfg.LiveRoom = "patient_default"
	cfg.StoreBackend = "bolt"
	cfg.StorePath = filepath.Join(t.TempDir(), "chat.db")
	cfg.StatusHTTPPort = 18765

	app, cleanup, err := buildApplication(cfg, zerolog.Nop(), strings.NewReader(""), &syncBuffer{})
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, app.supervisor)
	assert.NotNil(t, app.statusServer)
}

func TestProvideSupervisorRejectsBadURL(t *testing.T) {
	cfg := testConfig("ftp://example.com")
	cfg.LiveEnabled = true

	_, err := ProvideSupervisor(cfg, zerolog.Nop())
	assert.Error(t, err)
}
