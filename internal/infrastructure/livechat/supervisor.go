package livechat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat-client/internal/domain/retry"
	"github.com/janhq/jan-chat-client/internal/domain/status"
	"github.com/janhq/jan-chat-client/internal/infrastructure/metrics"
)

// ErrNotOpen is returned when a frame is sent while the connection is not open.
var ErrNotOpen = errors.New("live connection is not open")

const writeTimeout = 10 * time.Second

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	URL               string
	HeartbeatInterval time.Duration
	Reconnect         retry.Policy
	// InitFrame is written once after every successful open, if set.
	InitFrame json.RawMessage
}

// StatusListener receives connection status changes.
type StatusListener func(status.ConnectionStatus)

// FrameHandler receives every inbound text frame.
type FrameHandler func(data []byte)

// Supervisor owns the live connection lifecycle:
// Connecting -> Open -> Closed -> (delay) -> Connecting, until the reconnect
// policy is exhausted. While Open it runs exactly one heartbeat.
type Supervisor struct {
	opts   SupervisorOptions
	dialer Dialer
	log    zerolog.Logger

	mu         sync.RWMutex
	state      status.TransportState
	connStatus status.ConnectionStatus
	conn       Conn
	attempts   int
	listeners  []StatusListener
	onFrame    FrameHandler

	writeMu    sync.Mutex
	dials      atomic.Int64
	heartbeats atomic.Int32

	cancel    context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewSupervisor creates a new live connection supervisor.
func NewSupervisor(opts SupervisorOptions, dialer Dialer, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		opts:       opts,
		dialer:     dialer,
		log:        log.With().Str("component", "live-supervisor").Logger(),
		state:      status.StateClosed,
		connStatus: status.ConnectionDisconnected,
		done:       make(chan struct{}),
	}
}

// OnStatus registers a listener for connection status changes. Listeners run
// on the supervisor goroutine and must not block.
func (s *Supervisor) OnStatus(fn StatusListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// SetFrameHandler sets the inbound frame handler.
func (s *Supervisor) SetFrameHandler(fn FrameHandler) {
	s.mu.Lock()
	s.onFrame = fn
	s.mu.Unlock()
}

// Start begins the connect loop in background.
// Safe to call multiple times - only the first call starts the supervisor.
func (s *Supervisor) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.wg.Add(1)
		go s.run(runCtx)
		s.log.Info().Str("url", s.opts.URL).Msg("live supervisor started")
	})
}

// Stop closes the connection and waits for the loop and heartbeat to exit.
// Safe to call multiple times - only the first call stops the supervisor.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.log.Info().Msg("live supervisor stopped")
	})
}

// State returns the current transport state.
func (s *Supervisor) State() status.TransportState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status returns the current user-facing connection status.
func (s *Supervisor) Status() status.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connStatus
}

// Attempts returns the number of reconnects since the last successful open.
func (s *Supervisor) Attempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempts
}

// Dials returns the total number of connection attempts made.
func (s *Supervisor) Dials() int64 {
	return s.dials.Load()
}

// ActiveHeartbeats returns the number of running heartbeat loops (0 or 1).
func (s *Supervisor) ActiveHeartbeats() int {
	return int(s.heartbeats.Load())
}

// Send writes v as a JSON text frame. It fails with ErrNotOpen unless the
// connection is open.
func (s *Supervisor) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(data)
}

func (s *Supervisor) write(data []byte) error {
	s.mu.RLock()
	conn, state := s.conn, s.state
	s.mu.RUnlock()
	if conn == nil || !state.IsOpen() {
		return ErrNotOpen
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Supervisor) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		s.transition(status.StateConnecting)
		s.dials.Add(1)

		conn, err := s.dialer.Dial(ctx, s.opts.URL)
		if err != nil {
			s.log.Warn().Err(err).Int("attempt", s.Attempts()).Msg("live connection failed")
			s.transition(status.StateClosed)
		} else {
			s.serve(ctx, conn)
		}

		if s.stopping(ctx) {
			return
		}

		s.mu.Lock()
		attempts := s.attempts
		allowed := s.opts.Reconnect.ShouldRetry(attempts)
		if allowed {
			s.attempts++
			attempts = s.attempts
		}
		s.mu.Unlock()

		if !allowed {
			s.log.Warn().Int("attempts", attempts).Msg("max reconnect attempts reached, giving up")
			s.setStatus(status.ConnectionPermanentlyDisconnected)
			return
		}

		delay := s.opts.Reconnect.CalculateDelay(attempts)
		logEvent := s.log.Info().Int("attempt", attempts).Dur("delay", delay)
		if !s.opts.Reconnect.IsUnlimited() {
			logEvent = logEvent.Int("max_attempts", s.opts.Reconnect.MaxRetries)
		}
		logEvent.Msg("reconnecting live channel")
		metrics.RecordReconnectAttempt()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.done:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Supervisor) stopping(ctx context.Context) bool {
	select {
	case <-s.done:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// serve runs one open connection until it fails or the supervisor stops.
func (s *Supervisor) serve(ctx context.Context, conn Conn) {
	s.mu.Lock()
	s.conn = conn
	s.attempts = 0
	s.mu.Unlock()
	s.transition(status.StateOpen)
	s.log.Info().Msg("live channel open")

	if len(s.opts.InitFrame) > 0 {
		if err := s.write(s.opts.InitFrame); err != nil {
			s.log.Warn().Err(err).Msg("failed to send init frame")
		}
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		s.heartbeat(hbCtx)
	}()

	readErr := make(chan error, 1)
	go func() {
		readErr <- s.readLoop(conn)
	}()

	select {
	case err := <-readErr:
		s.transition(status.StateClosed)
		stopHeartbeat()
		<-hbDone
		s.log.Warn().Err(err).Msg("live channel closed")
	case <-s.done:
		s.shutdown(conn, stopHeartbeat, hbDone, readErr)
	case <-ctx.Done():
		s.shutdown(conn, stopHeartbeat, hbDone, readErr)
	}

	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Supervisor) shutdown(conn Conn, stopHeartbeat context.CancelFunc, hbDone <-chan struct{}, readErr <-chan error) {
	s.transition(status.StateClosing)
	stopHeartbeat()
	<-hbDone

	s.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	_ = conn.Close()
	<-readErr

	s.transition(status.StateClosed)
}

func (s *Supervisor) heartbeat(ctx context.Context) {
	s.heartbeats.Add(1)
	defer s.heartbeats.Add(-1)

	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Send(heartbeatFrame{Type: frameHeartbeat}); err != nil {
				s.log.Debug().Err(err).Msg("heartbeat not sent")
				continue
			}
			metrics.HeartbeatsSent.Inc()
		}
	}
}

func (s *Supervisor) readLoop(conn Conn) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		s.mu.RLock()
		handler := s.onFrame
		s.mu.RUnlock()
		if handler != nil {
			handler(data)
		}
	}
}

// transition moves to target, recording metrics and notifying listeners when
// the user-facing status changes.
func (s *Supervisor) transition(target status.TransportState) {
	s.mu.Lock()
	from := s.state
	if from == target {
		s.mu.Unlock()
		return
	}
	next, err := from.TransitionTo(target)
	if err != nil {
		s.log.Error().Str("from", from.String()).Str("to", target.String()).Msg("unexpected live state transition")
		next = target
	}
	s.state = next
	s.mu.Unlock()

	metrics.RecordStateTransition(from.String(), next.String())
	s.setStatus(status.ConnectionStatusFor(next))
}

func (s *Supervisor) setStatus(cs status.ConnectionStatus) {
	s.mu.Lock()
	if s.connStatus == cs {
		s.mu.Unlock()
		return
	}
	s.connStatus = cs
	listeners := append([]StatusListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(cs)
	}
}
