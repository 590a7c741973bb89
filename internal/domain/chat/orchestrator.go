// Package chat coordinates message submission, transport fallback, the
// pending indicator and session persistence.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/janhq/jan-chat-client/internal/domain/conversation"
	chaterrors "github.com/janhq/jan-chat-client/internal/domain/errors"
	"github.com/janhq/jan-chat-client/internal/domain/status"
	"github.com/janhq/jan-chat-client/internal/domain/transport"
)

// Reply sources reported to the Recorder.
const (
	SourceContentFallback = "content_fallback"
	SourceErrorMessage    = "error_message"
	SourceUnsolicited     = "unsolicited"
)

// Recorder receives delivery metrics.
type Recorder interface {
	RecordReply(source string)
	RecordTransportResult(transport, result string, elapsed time.Duration)
	RecordProtocolViolation(transport string)
	RecordStoreError()
}

type nopRecorder struct{}

func (nopRecorder) RecordReply(string)                                  {}
func (nopRecorder) RecordTransportResult(string, string, time.Duration) {}
func (nopRecorder) RecordProtocolViolation(string)                      {}
func (nopRecorder) RecordStoreError()                                   {}

// Options configures an Orchestrator.
type Options struct {
	// Preference orders the transports; the first available one is used.
	Preference []transport.Kind
	// PendingTick is the thinking indicator animation interval.
	PendingTick time.Duration
	Language    string
	// PersistWelcomeBack appends the welcome-back line to the restored log
	// instead of emitting it as an ephemeral event.
	PersistWelcomeBack bool
	Listener           Listener
	Recorder           Recorder
}

// Orchestrator owns the active session and delivers user messages.
// Concurrent Submit calls are not serialized; callers should wait for a
// reply before submitting again.
type Orchestrator struct {
	session  *conversation.Session
	store    conversation.Store
	channels []transport.Channel
	opts     Options
	emit     Listener
	recorder Recorder
	tracer   trace.Tracer
	log      zerolog.Logger

	mu         sync.RWMutex
	language   string
	replies    int
	connStatus status.ConnectionStatus
	opened     bool
}

// NewOrchestrator creates an orchestrator over the given session, store and
// transports.
func NewOrchestrator(
	session *conversation.Session,
	store conversation.Store,
	channels []transport.Channel,
	opts Options,
	log zerolog.Logger,
) *Orchestrator {
	if len(opts.Preference) == 0 {
		opts.Preference = []transport.Kind{transport.KindLive, transport.KindRequest}
	}
	if opts.PendingTick <= 0 {
		opts.PendingTick = 400 * time.Millisecond
	}
	if !SupportedLanguage(opts.Language) {
		opts.Language = DefaultLanguage
	}
	emit := opts.Listener
	if emit == nil {
		emit = nopListener
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Orchestrator{
		session:    session,
		store:      store,
		channels:   transport.Order(channels, opts.Preference),
		opts:       opts,
		emit:       emit,
		recorder:   recorder,
		tracer:     otel.Tracer("github.com/janhq/jan-chat-client/internal/domain/chat"),
		log:        log.With().Str("component", "chat-orchestrator").Logger(),
		language:   opts.Language,
		connStatus: status.ConnectionDisconnected,
	}
}

// Submit sends text and appends exactly one user and one assistant message.
// Blank input is ignored. Delivery failures never escape: the worst outcome
// is the localized error message.
func (o *Orchestrator) Submit(ctx context.Context, text string) (conversation.Message, bool) {
	if strings.TrimSpace(text) == "" {
		return conversation.Message{}, false
	}

	ctx, span := o.tracer.Start(ctx, "chat.submit")
	defer span.End()

	lang := o.Language()
	o.append(conversation.RoleUser, text, false)

	pending := startPending(o.opts.PendingTick, Text(lang, PhraseThinking), o.emit)
	reply, source, ok := o.deliver(ctx, text, lang)
	pending.stop()

	if !ok {
		reply = Text(lang, PhraseError)
	}
	msg := o.append(conversation.RoleAssistant, reply, ok)
	o.recorder.RecordReply(source)
	span.SetAttributes(
		attribute.String("chat.reply_source", source),
		attribute.Bool("chat.reply_ok", ok),
	)

	o.persist(ctx)
	return msg, true
}

// deliver tries each available transport in preference order, then one
// content fallback request. An error whose severity does not allow fallback
// ends delivery at once.
func (o *Orchestrator) deliver(ctx context.Context, text, lang string) (string, string, bool) {
	opts := transport.SendOptions{Language: lang}

	for _, ch := range o.channels {
		if !ch.Available() {
			continue
		}
		reply, err := o.attempt(ctx, ch, text, opts)
		if err == nil {
			return reply, string(ch.Kind()), true
		}
		if ctx.Err() != nil || !chaterrors.SeverityOf(err).AllowsFallback() {
			return "", SourceErrorMessage, false
		}
	}

	for _, ch := range o.channels {
		fc, ok := ch.(transport.FallbackCapable)
		if !ok || !fc.SupportsLocalFallback() || !ch.Available() {
			continue
		}
		opts.UseLocalFallback = true
		if reply, err := o.attempt(ctx, ch, text, opts); err == nil {
			return reply, SourceContentFallback, true
		}
		break
	}

	return "", SourceErrorMessage, false
}

func (o *Orchestrator) attempt(ctx context.Context, ch transport.Channel, text string, opts transport.SendOptions) (string, error) {
	kind := string(ch.Kind())
	ctx, span := o.tracer.Start(ctx, "chat.transport",
		trace.WithAttributes(
			attribute.String("chat.transport", kind),
			attribute.Bool("chat.use_local_fallback", opts.UseLocalFallback),
		),
	)
	defer span.End()

	start := time.Now()
	reply, err := ch.SendAndAwaitReply(ctx, text, opts)
	elapsed := time.Since(start)
	if err == nil {
		o.recorder.RecordTransportResult(kind, "success", elapsed)
		return reply, nil
	}

	span.RecordError(err)
	o.recorder.RecordTransportResult(kind, "failure", elapsed)
	kindOf := chaterrors.KindOf(err)
	if kindOf == chaterrors.KindProtocol {
		o.recorder.RecordProtocolViolation(kind)
	}
	o.log.Warn().
		Err(err).
		Str("transport", kind).
		Str("error_kind", string(kindOf)).
		Str("severity", string(chaterrors.SeverityOf(err))).
		Bool("use_local_fallback", opts.UseLocalFallback).
		Dur("elapsed", elapsed).
		Msg("message delivery failed")
	return "", err
}

// StartNew flushes the current session, starts an empty one and greets the user.
func (o *Orchestrator) StartNew(ctx context.Context) conversation.Conversation {
	o.persist(ctx)
	lang := o.Language()

	for _, ch := range o.channels {
		if r, ok := ch.(transport.Restarter); ok {
			if err := r.Restart(ctx, lang); err != nil {
				o.log.Debug().Err(err).Msg("restart notification failed")
			}
			break
		}
	}

	conv := o.session.Reset()
	o.setReplies(0)
	o.emit(Event{Type: EventSessionReplaced, ConversationID: conv.ID, Messages: []conversation.Message{}})
	o.emit(Event{Type: EventNotice, Text: Text(lang, PhraseNewChat), Ephemeral: true})
	o.append(conversation.RoleAssistant, Text(lang, PhraseGreeting), false)

	o.mu.Lock()
	o.opened = true
	o.mu.Unlock()
	return o.session.Snapshot()
}

// LoadHistorical replaces the session with a stored conversation. It reports
// false, leaving the session untouched, when id is unknown.
func (o *Orchestrator) LoadHistorical(ctx context.Context, id int64) bool {
	o.persist(ctx)

	conv, ok := o.store.Find(ctx, id)
	if !ok {
		o.log.Debug().Int64("conversation_id", id).Msg("conversation not found")
		return false
	}

	o.session.Replace(conv)
	o.setReplies(conv.AssistantReplies())
	o.emit(Event{Type: EventSessionReplaced, ConversationID: conv.ID, Messages: conv.Clone().Messages})
	o.welcomeBack()

	o.mu.Lock()
	o.opened = true
	o.mu.Unlock()
	return true
}

// Open is called when the chat surface is first shown. It greets the user
// for an empty session, or welcomes them back otherwise. Only the first call
// has an effect.
func (o *Orchestrator) Open(ctx context.Context) {
	o.mu.Lock()
	if o.opened {
		o.mu.Unlock()
		return
	}
	o.opened = true
	o.mu.Unlock()

	if o.session.IsEmpty() {
		o.append(conversation.RoleAssistant, Text(o.Language(), PhraseGreeting), false)
		return
	}
	o.welcomeBack()
}

func (o *Orchestrator) welcomeBack() {
	text := Text(o.Language(), PhraseWelcomeBack)
	if o.opts.PersistWelcomeBack {
		o.append(conversation.RoleAssistant, text, false)
		return
	}
	o.emit(Event{
		Type:           EventMessageAppended,
		Role:           conversation.RoleAssistant,
		Text:           text,
		ConversationID: o.session.ID(),
		Ephemeral:      true,
	})
}

// History returns stored conversations, most recently saved first.
func (o *Orchestrator) History(ctx context.Context) []conversation.Conversation {
	all := o.store.LoadAll(ctx)
	out := make([]conversation.Conversation, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
	}
	return out
}

// Current returns a copy of the active conversation.
func (o *Orchestrator) Current() conversation.Conversation {
	return o.session.Snapshot()
}

// SetLanguage switches the language used for requests and synthesized text.
func (o *Orchestrator) SetLanguage(lang string) error {
	if !SupportedLanguage(lang) {
		return ErrUnsupportedLanguage
	}
	o.mu.Lock()
	o.language = lang
	o.mu.Unlock()
	return nil
}

// Language returns the active language.
func (o *Orchestrator) Language() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.language
}

// ReplyCount returns the number of assistant replies received in the session.
func (o *Orchestrator) ReplyCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.replies
}

// ConnectionStatus returns the last reported live connection status.
func (o *Orchestrator) ConnectionStatus() status.ConnectionStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.connStatus
}

// HandleConnectionStatus records a live connection status change and
// forwards it to the UI with a localized notice.
func (o *Orchestrator) HandleConnectionStatus(cs status.ConnectionStatus) {
	o.mu.Lock()
	if o.connStatus == cs {
		o.mu.Unlock()
		return
	}
	o.connStatus = cs
	lang := o.language
	o.mu.Unlock()

	var text string
	switch cs {
	case status.ConnectionConnected:
		text = Text(lang, PhraseConnected)
	case status.ConnectionDisconnected:
		text = Text(lang, PhraseDisconnected)
	case status.ConnectionPermanentlyDisconnected:
		text = Text(lang, PhrasePermanentlyDisconnected)
	}
	o.emit(Event{Type: EventConnectionStatusChanged, Status: cs, Text: text})
}

// HandleUnsolicitedReply appends a server-initiated assistant message.
func (o *Orchestrator) HandleUnsolicitedReply(text string) {
	o.append(conversation.RoleAssistant, text, true)
	o.recorder.RecordReply(SourceUnsolicited)
	o.persist(context.Background())
}

// Close flushes the active session to the store.
func (o *Orchestrator) Close(ctx context.Context) {
	o.persist(ctx)
}

func (o *Orchestrator) append(role conversation.Role, text string, countReply bool) conversation.Message {
	msg := o.session.Append(role, text)
	if countReply {
		o.mu.Lock()
		o.replies++
		o.mu.Unlock()
	}
	o.emit(Event{
		Type:           EventMessageAppended,
		Role:           msg.Role,
		Text:           msg.Text,
		ConversationID: o.session.ID(),
	})
	return msg
}

func (o *Orchestrator) setReplies(n int) {
	o.mu.Lock()
	o.replies = n
	o.mu.Unlock()
}

// persist upserts the active session. Store failures are logged and dropped.
func (o *Orchestrator) persist(ctx context.Context) {
	snap := o.session.Snapshot()
	if snap.IsEmpty() {
		return
	}
	if err := o.store.Upsert(ctx, snap); err != nil {
		o.recorder.RecordStoreError()
		o.log.Warn().Err(err).Int64("conversation_id", snap.ID).Msg("failed to persist conversation")
	}
}
