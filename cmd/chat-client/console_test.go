package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-chat-client/internal/domain/chat"
	"github.com/janhq/jan-chat-client/internal/domain/conversation"
	"github.com/janhq/jan-chat-client/internal/domain/status"
	"github.com/janhq/jan-chat-client/internal/domain/transport"
	"github.com/janhq/jan-chat-client/internal/infrastructure/store"
)

type echoChannel struct{}

func (echoChannel) Kind() transport.Kind { return transport.KindRequest }
func (echoChannel) Available() bool      { return true }
func (echoChannel) SendAndAwaitReply(_ context.Context, text string, opts transport.SendOptions) (string, error) {
	return opts.Language + ": " + text, nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runConsole(t *testing.T, input string) (string, *chat.Orchestrator) {
	t.Helper()

	out := &syncBuffer{}
	console := NewConsole(strings.NewReader(input), out)
	orch := chat.NewOrchestrator(
		ProvideSession(),
		store.NewMemoryStore(zerolog.Nop()),
		[]transport.Channel{echoChannel{}},
		chat.Options{
			Preference:  []transport.Kind{transport.KindRequest},
			PendingTick: time.Hour,
			Listener:    console.Render,
		},
		zerolog.Nop(),
	)
	orch.Open(context.Background())

	require.NoError(t, console.Run(context.Background(), orch))
	return out.String(), orch
}

func TestConsoleChat(t *testing.T) {
	out, orch := runConsole(t, "hello\n\n/quit\nignored\n")

	assert.Contains(t, out, "assistant> "+chat.Text("en", chat.PhraseGreeting)+"\n")
	assert.Contains(t, out, "assistant> en: hello\n")
	assert.NotContains(t, out, "ignored")
	assert.Equal(t, 1, orch.ReplyCount())
	assert.Len(t, orch.Current().Messages, 3)
}

func TestConsoleStopsAtEndOfInput(t *testing.T) {
	out, _ := runConsole(t, "hi")
	assert.Contains(t, out, "assistant> en: hi\n")
}

func TestConsoleLanguageToggle(t *testing.T) {
	out, orch := runConsole(t, "/lang fr\nbonjour\n/lang de\n")

	assert.Equal(t, "fr", orch.Language())
	assert.Contains(t, out, "language: fr\n")
	assert.Contains(t, out, "assistant> fr: bonjour\n")
	assert.Contains(t, out, `unsupported language "de"`)
}

func TestConsoleNewAndLoad(t *testing.T) {
	out := &syncBuffer{}
	console := NewConsole(strings.NewReader(""), out)
	orch := chat.NewOrchestrator(
		ProvideSession(),
		store.NewMemoryStore(zerolog.Nop()),
		[]transport.Channel{echoChannel{}},
		chat.Options{PendingTick: time.Hour, Listener: console.Render},
		zerolog.Nop(),
	)
	ctx := context.Background()

	_, err := console.handle(ctx, orch, "first message")
	require.NoError(t, err)
	firstID := orch.Current().ID

	_, err = console.handle(ctx, orch, "/new")
	require.NoError(t, err)
	assert.NotEqual(t, firstID, orch.Current().ID)
	assert.Contains(t, out.String(), "* "+chat.Text("en", chat.PhraseNewChat)+"\n")

	_, err = console.handle(ctx, orch, "/history")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "first message")

	_, err = console.handle(ctx, orch, "/load 12345")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "conversation 12345 not found")

	_, err = console.handle(ctx, orch, "/load "+strconv.FormatInt(firstID, 10))
	require.NoError(t, err)
	assert.Equal(t, firstID, orch.Current().ID)
	assert.Contains(t, out.String(), "user> first message\n")
	assert.Contains(t, out.String(), "assistant> "+chat.Text("en", chat.PhraseWelcomeBack)+"\n")
}

func TestConsoleStatusAndUnknownCommand(t *testing.T) {
	out := &syncBuffer{}
	console := NewConsole(strings.NewReader(""), out)
	orch := chat.NewOrchestrator(
		ProvideSession(),
		store.NewMemoryStore(zerolog.Nop()),
		nil,
		chat.Options{PendingTick: time.Hour, Listener: console.Render},
		zerolog.Nop(),
	)
	ctx := context.Background()

	orch.HandleConnectionStatus(status.ConnectionConnected)
	_, err := console.handle(ctx, orch, "/status")
	require.NoError(t, err)
	_, err = console.handle(ctx, orch, "/nope")
	require.NoError(t, err)

	assert.Contains(t, out.String(), "connection: connected, replies: 0, language: en")
	assert.NotContains(t, out.String(), "reconnection stopped")
	assert.Contains(t, out.String(), "unknown command /nope")

	orch.HandleConnectionStatus(status.ConnectionPermanentlyDisconnected)
	_, err = console.handle(ctx, orch, "/status")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "connection: permanently_disconnected")
	assert.Contains(t, out.String(), "live reconnection stopped")
}

func TestPrintHistoryFormatsStartTime(t *testing.T) {
	out := &syncBuffer{}
	console := NewConsole(strings.NewReader(""), out)
	started := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)

	console.printHistory([]conversation.Conversation{{
		ID:        started.UnixMilli(),
		StartedAt: started.UnixMilli(),
		Messages:  []conversation.Message{{Role: conversation.RoleUser, Text: "sore throat"}},
	}})

	assert.Equal(t, fmt.Sprintf("%d  2024-03-01 09:30  sore throat\n", started.UnixMilli()), out.String())
}

func TestRenderClearsPendingLine(t *testing.T) {
	out := &syncBuffer{}
	console := NewConsole(strings.NewReader(""), out)

	console.Render(chat.Event{Type: chat.EventPendingStarted, Text: "Thinking."})
	console.Render(chat.Event{Type: chat.EventPendingEnded})
	console.Render(chat.Event{Type: chat.EventMessageAppended, Role: conversation.RoleAssistant, Text: "done"})

	pad := strings.Repeat(" ", len("assistant> Thinking."))
	assert.Equal(t, "assistant> Thinking.\r"+pad+"\rassistant> done\n", out.String())
}

func TestConsoleRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	console := NewConsole(strings.NewReader(""), &syncBuffer{})
	assert.NoError(t, console.Run(ctx, nil))
}
