package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat-client/internal/config"
	"github.com/janhq/jan-chat-client/internal/domain/chat"
	"github.com/janhq/jan-chat-client/internal/domain/conversation"
	"github.com/janhq/jan-chat-client/internal/domain/retry"
	"github.com/janhq/jan-chat-client/internal/domain/transport"
	"github.com/janhq/jan-chat-client/internal/infrastructure/httpchat"
	"github.com/janhq/jan-chat-client/internal/infrastructure/livechat"
	"github.com/janhq/jan-chat-client/internal/infrastructure/metrics"
	"github.com/janhq/jan-chat-client/internal/infrastructure/store"
	"github.com/janhq/jan-chat-client/internal/interfaces/httpserver"
	"github.com/janhq/jan-chat-client/internal/utils/idgen"
)

// ProvideStore opens the configured conversation store.
func ProvideStore(cfg *config.Config, log zerolog.Logger) (conversation.Store, func(), error) {
	if cfg.StoreBackend == "memory" {
		return store.NewMemoryStore(log), func() {}, nil
	}

	path, err := cfg.ResolvedStorePath()
	if err != nil {
		return nil, nil, err
	}
	boltStore, err := store.OpenBolt(path, cfg.StoreKey, cfg.StoreCacheSize, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open conversation store: %w", err)
	}
	cleanup := func() {
		if err := boltStore.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close conversation store")
		}
	}
	return boltStore, cleanup, nil
}

// ProvideSession provides the in-memory active conversation.
func ProvideSession() *conversation.Session {
	return conversation.NewSession(idgen.NewConversationIDs())
}

// ProvideHTTPChatClient provides the request/response transport.
func ProvideHTTPChatClient(cfg *config.Config, log zerolog.Logger) *httpchat.Client {
	return httpchat.NewClient(httpchat.Options{
		BaseURL:   cfg.BaseURL,
		Endpoint:  cfg.ChatEndpoint,
		CSRFToken: cfg.CSRFToken,
		Timeout:   cfg.RequestTimeout,
	}, log)
}

// ProvideSupervisor provides the live connection supervisor, or nil when the
// live channel is disabled.
func ProvideSupervisor(cfg *config.Config, log zerolog.Logger) (*livechat.Supervisor, error) {
	if !cfg.LiveEnabled {
		return nil, nil
	}

	url, err := cfg.LiveURL()
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if cfg.CSRFToken != "" {
		header.Set("X-CSRFToken", cfg.CSRFToken)
	}

	var initFrame json.RawMessage
	if raw := strings.TrimSpace(cfg.LiveInitFrame); raw != "" {
		initFrame = json.RawMessage(raw)
	}

	return livechat.NewSupervisor(livechat.SupervisorOptions{
		URL:               url,
		HeartbeatInterval: cfg.HeartbeatInterval,
		Reconnect:         retry.ReconnectPolicy(cfg.ReconnectDelay, cfg.MaxReconnectAttempts),
		InitFrame:         initFrame,
	}, livechat.NewWebsocketDialer(cfg.RequestTimeout, header), log), nil
}

// ProvideLiveChannel provides the live transport over sup, or nil without one.
func ProvideLiveChannel(sup *livechat.Supervisor, cfg *config.Config, log zerolog.Logger) *livechat.Channel {
	if sup == nil {
		return nil
	}
	return livechat.NewChannel(sup, livechat.ChannelOptions{
		SendRetryDelay: cfg.SendRetryDelay,
		ReplyTimeout:   cfg.LiveReplyTimeout,
	}, log)
}

// ProvideChannels lists the configured transports.
func ProvideChannels(client *httpchat.Client, live *livechat.Channel) []transport.Channel {
	channels := []transport.Channel{client}
	if live != nil {
		channels = append(channels, live)
	}
	return channels
}

// ProvideConsole provides the terminal front end.
func ProvideConsole(in io.Reader, out io.Writer) *Console {
	return NewConsole(in, out)
}

// ProvideOrchestrator provides the chat orchestrator and connects the live
// channel's status and unsolicited messages to it.
func ProvideOrchestrator(
	cfg *config.Config,
	session *conversation.Session,
	conversations conversation.Store,
	channels []transport.Channel,
	sup *livechat.Supervisor,
	live *livechat.Channel,
	console *Console,
	log zerolog.Logger,
) *chat.Orchestrator {
	orch := chat.NewOrchestrator(session, conversations, channels, chat.Options{
		Preference:         cfg.TransportPreference(),
		PendingTick:        cfg.PendingTickInterval,
		Language:           cfg.Language,
		PersistWelcomeBack: cfg.PersistWelcomeBack,
		Listener:           console.Render,
		Recorder:           metrics.Recorder{},
	}, log)

	if sup != nil {
		sup.OnStatus(orch.HandleConnectionStatus)
	}
	if live != nil {
		live.SetUnsolicitedHandler(orch.HandleUnsolicitedReply)
	}
	return orch
}

// ProvideStatusServer provides the local status server, or nil when disabled.
func ProvideStatusServer(cfg *config.Config, log zerolog.Logger, orch *chat.Orchestrator) *httpserver.HTTPServer {
	if cfg.StatusHTTPPort == 0 {
		return nil
	}
	return httpserver.New(cfg, log, orch)
}

// buildApplication wires the application by hand in the same order as the
// provider set.
func buildApplication(cfg *config.Config, log zerolog.Logger, in io.Reader, out io.Writer) (*Application, func(), error) {
	conversations, cleanup, err := ProvideStore(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	sup, err := ProvideSupervisor(cfg, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	live := ProvideLiveChannel(sup, cfg, log)
	channels := ProvideChannels(ProvideHTTPChatClient(cfg, log), live)

	console := ProvideConsole(in, out)
	orch := ProvideOrchestrator(cfg, ProvideSession(), conversations, channels, sup, live, console, log)
	statusServer := ProvideStatusServer(cfg, log, orch)

	return NewApplication(orch, sup, statusServer, console, log), cleanup, nil
}
