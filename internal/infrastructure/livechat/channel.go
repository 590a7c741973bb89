package livechat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	chaterrors "github.com/janhq/jan-chat-client/internal/domain/errors"
	"github.com/janhq/jan-chat-client/internal/domain/retry"
	"github.com/janhq/jan-chat-client/internal/domain/status"
	"github.com/janhq/jan-chat-client/internal/domain/transport"
	"github.com/janhq/jan-chat-client/internal/infrastructure/metrics"
	"github.com/janhq/jan-chat-client/internal/utils/idgen"
)

var (
	// ErrReplyTimeout is returned when no reply arrives within the reply timeout.
	ErrReplyTimeout = errors.New("timed out waiting for live reply")
	// ErrConnectionLost is returned to in-flight requests when the connection drops.
	ErrConnectionLost = errors.New("live connection lost before reply")
)

// ChannelOptions configures a Channel.
type ChannelOptions struct {
	SendRetryDelay time.Duration
	ReplyTimeout   time.Duration
}

// UnsolicitedHandler receives bot messages that answer no in-flight request.
type UnsolicitedHandler func(text string)

type reply struct {
	text string
	err  error
}

type waiter struct {
	id     string
	sent   bool
	result chan reply // buffered, receives exactly one value
}

// Channel delivers messages over the supervised live connection and matches
// replies to requests by request_id, falling back to arrival order for frames
// without one.
type Channel struct {
	sup          *Supervisor
	sendRetry    *retry.Executor
	replyTimeout time.Duration
	log          zerolog.Logger

	mu          sync.Mutex
	waiters     []*waiter
	unsolicited UnsolicitedHandler
}

// NewChannel creates the live transport over sup and registers its frame handler.
func NewChannel(sup *Supervisor, opts ChannelOptions, log zerolog.Logger) *Channel {
	c := &Channel{
		sup: sup,
		sendRetry: retry.NewExecutor(retry.SingleRetryPolicy(opts.SendRetryDelay), func(err error) bool {
			return errors.Is(err, ErrNotOpen)
		}),
		replyTimeout: opts.ReplyTimeout,
		log:          log.With().Str("component", "live-channel").Logger(),
	}
	sup.SetFrameHandler(c.handleFrame)
	sup.OnStatus(c.handleStatus)
	return c
}

// Kind identifies the live variant.
func (c *Channel) Kind() transport.Kind {
	return transport.KindLive
}

// Available reports whether the connection is open.
func (c *Channel) Available() bool {
	return c.sup.State().IsOpen()
}

// SetUnsolicitedHandler sets the handler for server-initiated bot messages.
func (c *Channel) SetUnsolicitedHandler(fn UnsolicitedHandler) {
	c.mu.Lock()
	c.unsolicited = fn
	c.mu.Unlock()
}

// InFlight returns the number of requests awaiting a reply.
func (c *Channel) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// SendAndAwaitReply sends a text frame and waits for the matching bot reply.
// If the connection is not open the send is retried once after the retry delay.
func (c *Channel) SendAndAwaitReply(ctx context.Context, text string, opts transport.SendOptions) (string, error) {
	w := &waiter{id: idgen.RequestID(), result: make(chan reply, 1)}
	c.enqueue(w)
	defer c.remove(w)

	frame := textFrame{
		Type:      frameText,
		Content:   text,
		Sender:    senderUser,
		Language:  opts.Language,
		RequestID: w.id,
	}
	err := c.sendRetry.Execute(ctx, func(ctx context.Context, attempt int) error {
		if attempt > 0 {
			c.log.Debug().Str("request_id", w.id).Msg("retrying live send")
		}
		// Marked first: the reply can arrive before Send returns.
		c.setSent(w, true)
		if err := c.sup.Send(frame); err != nil {
			c.setSent(w, false)
			return err
		}
		c.checkOpen(w)
		return nil
	})
	if err != nil {
		return "", chaterrors.NewTransportError("live send", err)
	}

	timer := time.NewTimer(c.replyTimeout)
	defer timer.Stop()

	select {
	case r := <-w.result:
		return r.text, r.err
	case <-timer.C:
		return "", chaterrors.NewTransportError("live reply", ErrReplyTimeout)
	case <-ctx.Done():
		return "", chaterrors.NewTransportError("live reply", ctx.Err())
	}
}

func (c *Channel) enqueue(w *waiter) {
	c.mu.Lock()
	c.waiters = append(c.waiters, w)
	c.mu.Unlock()
}

func (c *Channel) remove(w *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, x := range c.waiters {
		if x == w {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}

func (c *Channel) setSent(w *waiter, sent bool) {
	c.mu.Lock()
	w.sent = sent
	c.mu.Unlock()
}

func (c *Channel) checkOpen(w *waiter) {
	// The connection may have dropped between the write and now.
	if !c.sup.State().IsOpen() {
		c.resolve(w.id, reply{err: chaterrors.NewTransportError("live reply", ErrConnectionLost)})
	}
}

// take removes and returns the waiter for id. An empty id selects the oldest
// waiter whose frame has been sent.
func (c *Channel) take(id string) *waiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if (id != "" && w.id == id) || (id == "" && w.sent) {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return w
		}
	}
	return nil
}

func (c *Channel) resolve(id string, r reply) bool {
	w := c.take(id)
	if w == nil {
		return false
	}
	w.result <- r
	return true
}

func (c *Channel) handleFrame(data []byte) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		c.violation(chaterrors.NewProtocolViolation("live frame", err.Error()))
		return
	}

	switch f.Sender {
	case senderBot:
		if f.Message == nil || *f.Message == "" {
			err := chaterrors.NewProtocolViolation("live reply", "bot frame without message")
			c.violation(err)
			// The reply is unusable but still answers the request.
			c.resolve(f.RequestID, reply{err: err})
			return
		}
		if c.resolve(f.RequestID, reply{text: *f.Message}) {
			return
		}
		if f.RequestID != "" {
			c.log.Debug().Str("request_id", f.RequestID).Msg("dropping reply for request no longer waiting")
			return
		}
		c.mu.Lock()
		handler := c.unsolicited
		c.mu.Unlock()
		if handler != nil {
			handler(*f.Message)
		}
	case senderSystem:
		if f.Error == nil || f.RequestID == "" {
			c.log.Debug().Str("sender", f.Sender).Msg("ignoring uncorrelated system frame")
			return
		}
		c.resolve(f.RequestID, reply{err: chaterrors.NewContentError("live reply", *f.Error)})
	default:
		c.log.Debug().Str("sender", f.Sender).Str("type", f.Type).Msg("ignoring frame")
	}
}

// handleStatus fails every sent request when the connection leaves Open.
func (c *Channel) handleStatus(cs status.ConnectionStatus) {
	if cs == status.ConnectionConnected || cs == status.ConnectionConnecting {
		return
	}
	c.mu.Lock()
	var lost []*waiter
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if w.sent {
			lost = append(lost, w)
		} else {
			kept = append(kept, w)
		}
	}
	c.waiters = kept
	c.mu.Unlock()

	for _, w := range lost {
		w.result <- reply{err: chaterrors.NewTransportError("live reply", ErrConnectionLost)}
	}
}

func (c *Channel) violation(err error) {
	metrics.RecordProtocolViolation(string(transport.KindLive))
	c.log.Warn().Err(err).Msg("malformed live frame")
}

var _ transport.Channel = (*Channel)(nil)
