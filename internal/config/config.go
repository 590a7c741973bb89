package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/janhq/jan-chat-client/internal/domain/transport"
)

// Config holds all configuration for the chat client.
type Config struct {
	// Service settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"jan-chat-client"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// OpenTelemetry
	EnableTracing bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`

	// Chat backend (request/response)
	BaseURL        string        `env:"CHAT_BASE_URL" envDefault:"http://localhost:8000"`
	ChatEndpoint   string        `env:"CHAT_ENDPOINT" envDefault:"/chatbot/api/chat/"`
	CSRFToken      string        `env:"CHAT_CSRF_TOKEN"`
	RequestTimeout time.Duration `env:"CHAT_REQUEST_TIMEOUT" envDefault:"30s"`
	Language       string        `env:"CHAT_LANGUAGE" envDefault:"en"`
	Transports     string        `env:"CHAT_TRANSPORTS" envDefault:"live,request"`

	// Live channel
	LiveEnabled          bool          `env:"LIVE_ENABLED" envDefault:"true"`
	LiveWsURL            string        `env:"LIVE_WS_URL"` // derived from CHAT_BASE_URL when empty
	LiveRoom             string        `env:"LIVE_ROOM" envDefault:"patient_default"`
	HeartbeatInterval    time.Duration `env:"LIVE_HEARTBEAT_INTERVAL" envDefault:"30s"`
	ReconnectDelay       time.Duration `env:"LIVE_RECONNECT_DELAY" envDefault:"3s"`
	MaxReconnectAttempts int           `env:"LIVE_MAX_RECONNECT_ATTEMPTS" envDefault:"5"` // 0 retries forever
	SendRetryDelay       time.Duration `env:"LIVE_SEND_RETRY_DELAY" envDefault:"1s"`
	LiveReplyTimeout     time.Duration `env:"LIVE_REPLY_TIMEOUT" envDefault:"30s"`
	LiveInitFrame        string        `env:"LIVE_INIT_FRAME"` // raw JSON sent once per open

	// Conversation store
	StoreBackend   string `env:"STORE_BACKEND" envDefault:"bolt"`
	StorePath      string `env:"STORE_PATH"` // ~/.jan-chat/conversations.db when empty
	StoreKey       string `env:"STORE_KEY" envDefault:"mediAI_conversations"`
	StoreCacheSize int    `env:"STORE_CACHE_SIZE" envDefault:"64"`

	// Orchestrator
	PendingTickInterval time.Duration `env:"PENDING_TICK_INTERVAL" envDefault:"400ms"`
	PersistWelcomeBack  bool          `env:"PERSIST_WELCOME_BACK" envDefault:"false"`

	// Local status server
	StatusHTTPPort int `env:"STATUS_HTTP_PORT" envDefault:"0"` // 0 disables
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values that env tags cannot express.
func (c *Config) Validate() error {
	switch c.Language {
	case "en", "fr":
	default:
		return fmt.Errorf("CHAT_LANGUAGE must be en or fr, got %q", c.Language)
	}

	switch c.StoreBackend {
	case "bolt", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be bolt or memory, got %q", c.StoreBackend)
	}

	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("CHAT_BASE_URL is required")
	}
	if strings.TrimSpace(c.StoreKey) == "" {
		return fmt.Errorf("STORE_KEY is required")
	}

	if _, err := transport.ParsePreference(c.Transports); err != nil {
		return fmt.Errorf("CHAT_TRANSPORTS: %w", err)
	}

	durations := map[string]time.Duration{
		"CHAT_REQUEST_TIMEOUT":    c.RequestTimeout,
		"LIVE_HEARTBEAT_INTERVAL": c.HeartbeatInterval,
		"LIVE_RECONNECT_DELAY":    c.ReconnectDelay,
		"LIVE_SEND_RETRY_DELAY":   c.SendRetryDelay,
		"LIVE_REPLY_TIMEOUT":      c.LiveReplyTimeout,
		"PENDING_TICK_INTERVAL":   c.PendingTickInterval,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("LIVE_MAX_RECONNECT_ATTEMPTS must not be negative")
	}

	if raw := strings.TrimSpace(c.LiveInitFrame); raw != "" && !json.Valid([]byte(raw)) {
		return fmt.Errorf("LIVE_INIT_FRAME is not valid JSON")
	}

	if c.LiveEnabled {
		if _, err := c.LiveURL(); err != nil {
			return err
		}
	}

	return nil
}

// TransportPreference returns the parsed CHAT_TRANSPORTS list.
func (c *Config) TransportPreference() []transport.Kind {
	kinds, err := transport.ParsePreference(c.Transports)
	if err != nil {
		return []transport.Kind{transport.KindLive, transport.KindRequest}
	}
	return kinds
}

// LiveURL returns the websocket address of the chat room.
func (c *Config) LiveURL() (string, error) {
	if raw := strings.TrimSpace(c.LiveWsURL); raw != "" {
		return raw, nil
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse CHAT_BASE_URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("CHAT_BASE_URL must be http or https, got %q", u.Scheme)
	}
	u.Path = "/ws/chat/" + c.LiveRoom + "/"
	u.RawQuery = ""
	return u.String(), nil
}

// ResolvedStorePath returns STORE_PATH or the default location in the home directory.
func (c *Config) ResolvedStorePath() (string, error) {
	if c.StorePath != "" {
		return c.StorePath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".jan-chat", "conversations.db"), nil
}

// StatusAddr returns the local status server address.
func (c *Config) StatusAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.StatusHTTPPort)
}
