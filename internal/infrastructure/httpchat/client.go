// Package httpchat implements the request/response chat transport.
package httpchat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	chaterrors "github.com/janhq/jan-chat-client/internal/domain/errors"
	"github.com/janhq/jan-chat-client/internal/domain/transport"
	"github.com/janhq/jan-chat-client/internal/utils/idgen"
)

const (
	headerCSRF      = "X-CSRFToken"
	headerLanguage  = "X-Language"
	headerRequestID = "X-Request-ID"

	restartMessage = "restart"
)

// Options configures the client.
type Options struct {
	BaseURL   string
	Endpoint  string
	CSRFToken string
	Timeout   time.Duration
}

type chatRequest struct {
	Message        string `json:"message"`
	Language       string `json:"language,omitempty"`
	UseCSVFallback bool   `json:"use_csv_fallback,omitempty"`
}

type chatResponse struct {
	Message *string `json:"message"`
	Error   *string `json:"error"`
}

// Client posts one message per request and reads the reply from the response body.
type Client struct {
	httpClient *resty.Client
	endpoint   string
	csrfToken  string
	log        zerolog.Logger
}

// NewClient creates a Resty-backed client.
func NewClient(opts Options, log zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: resty.New().
			SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json").
			SetTimeout(timeout),
		endpoint:  opts.Endpoint,
		csrfToken: opts.CSRFToken,
		log:       log.With().Str("component", "http-chat").Logger(),
	}
}

// Kind identifies the request variant.
func (c *Client) Kind() transport.Kind {
	return transport.KindRequest
}

// Available is always true; failures surface per request.
func (c *Client) Available() bool {
	return true
}

// SupportsLocalFallback reports that the server honours use_csv_fallback.
func (c *Client) SupportsLocalFallback() bool {
	return true
}

// SendAndAwaitReply posts text and returns the reply message.
func (c *Client) SendAndAwaitReply(ctx context.Context, text string, opts transport.SendOptions) (string, error) {
	op := "chat request"
	if opts.UseLocalFallback {
		op = "chat fallback request"
	}

	resp, err := c.post(ctx, opts.Language, chatRequest{
		Message:        text,
		Language:       opts.Language,
		UseCSVFallback: opts.UseLocalFallback,
	})
	if err != nil {
		return "", chaterrors.NewTransportError(op, err)
	}

	if resp.IsError() {
		return "", chaterrors.NewTransportStatusError(op, resp.StatusCode(), errorText(resp.Body(), resp.Status()))
	}

	var body chatResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", chaterrors.NewProtocolViolation(op, fmt.Sprintf("decode response: %v", err))
	}

	switch {
	case body.Message != nil && *body.Message != "":
		return *body.Message, nil
	case body.Error != nil && *body.Error != "":
		return "", chaterrors.NewContentError(op, *body.Error)
	default:
		return "", chaterrors.NewProtocolViolation(op, "response carries neither message nor error")
	}
}

// Restart tells the server the user started a new chat.
func (c *Client) Restart(ctx context.Context, language string) error {
	resp, err := c.post(ctx, language, chatRequest{Message: restartMessage})
	if err != nil {
		return chaterrors.NewTransportError("restart", err)
	}
	if resp.IsError() {
		return chaterrors.NewTransportStatusError("restart", resp.StatusCode(), errorText(resp.Body(), resp.Status()))
	}
	return nil
}

func (c *Client) post(ctx context.Context, language string, body chatRequest) (*resty.Response, error) {
	requestID := idgen.RequestID()
	request := c.httpClient.R().
		SetContext(ctx).
		SetHeader(headerRequestID, requestID).
		SetBody(body)

	if c.csrfToken != "" {
		request.SetHeader(headerCSRF, c.csrfToken)
	}
	if language != "" {
		request.SetHeader(headerLanguage, language)
	}

	start := time.Now()
	resp, err := request.Post(c.endpoint)
	event := c.log.Debug().
		Str("request_id", requestID).
		Bool("use_csv_fallback", body.UseCSVFallback).
		Dur("latency", time.Since(start))
	if err != nil {
		event.Err(err).Msg("chat request failed")
		return nil, err
	}
	event.Int("status", resp.StatusCode()).Msg("chat request completed")
	return resp, nil
}

// errorText prefers the server's {error} payload over the status line.
func errorText(body []byte, status string) string {
	var payload chatResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != nil && *payload.Error != "" {
		return *payload.Error
	}
	if status == "" {
		return http.StatusText(http.StatusInternalServerError)
	}
	return status
}

var (
	_ transport.FallbackCapable = (*Client)(nil)
	_ transport.Restarter       = (*Client)(nil)
)
