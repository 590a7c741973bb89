package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/janhq/jan-chat-client/internal/domain/chat"
	"github.com/janhq/jan-chat-client/internal/domain/conversation"
	"github.com/janhq/jan-chat-client/internal/domain/status"
)

const historyTimeLayout = "2006-01-02 15:04"

const helpText = `commands:
  /new          start a new conversation
  /history      list saved conversations
  /load <id>    resume a saved conversation
  /lang <en|fr> switch language
  /status       show connection status
  /help         show this help
  /quit         save and exit`

// ChatService is the orchestrator surface the console drives.
type ChatService interface {
	Submit(ctx context.Context, text string) (conversation.Message, bool)
	StartNew(ctx context.Context) conversation.Conversation
	LoadHistorical(ctx context.Context, id int64) bool
	History(ctx context.Context) []conversation.Conversation
	SetLanguage(lang string) error
	Language() string
	ReplyCount() int
	ConnectionStatus() status.ConnectionStatus
}

// Console is a line-oriented terminal front end. Render is the orchestrator
// listener; Run reads user input.
type Console struct {
	in io.Reader

	mu      sync.Mutex
	out     io.Writer
	pending int // width of the thinking line currently on screen
}

// NewConsole creates a console over in and out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: in, out: out}
}

// Render draws one orchestrator event.
func (c *Console) Render(ev chat.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case chat.EventPendingStarted, chat.EventPendingTick:
		c.clearPending()
		line := "assistant> " + ev.Text
		fmt.Fprint(c.out, line)
		c.pending = len(line)
	case chat.EventPendingEnded:
		c.clearPending()
	case chat.EventMessageAppended:
		// The user's own line is already on screen.
		if ev.Role == conversation.RoleAssistant {
			c.clearPending()
			fmt.Fprintf(c.out, "assistant> %s\n", ev.Text)
		}
	case chat.EventSessionReplaced:
		c.clearPending()
		fmt.Fprintf(c.out, "--- conversation %d ---\n", ev.ConversationID)
		for _, msg := range ev.Messages {
			fmt.Fprintf(c.out, "%s> %s\n", msg.Role, msg.Text)
		}
	case chat.EventConnectionStatusChanged, chat.EventNotice:
		c.clearPending()
		fmt.Fprintf(c.out, "* %s\n", ev.Text)
	}
}

func (c *Console) clearPending() {
	if c.pending == 0 {
		return
	}
	fmt.Fprint(c.out, "\r"+strings.Repeat(" ", c.pending)+"\r")
	c.pending = 0
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearPending()
	fmt.Fprintf(c.out, format, args...)
}

// Run reads lines until /quit, end of input or ctx is done.
func (c *Console) Run(ctx context.Context, svc ChatService) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	// The reader blocks in Read and cannot be interrupted; it exits on the
	// next line or end of input.
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			quit, err := c.handle(ctx, svc, line)
			if err != nil || quit {
				return err
			}
		}
	}
}

func (c *Console) handle(ctx context.Context, svc ChatService, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		svc.Submit(ctx, line)
		return false, nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/new":
		svc.StartNew(ctx)
	case "/history":
		c.printHistory(svc.History(ctx))
	case "/load":
		if len(fields) != 2 {
			c.printf("usage: /load <id>\n")
			return false, nil
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || !svc.LoadHistorical(ctx, id) {
			c.printf("conversation %s not found\n", fields[1])
		}
	case "/lang":
		if len(fields) != 2 {
			c.printf("language: %s\n", svc.Language())
			return false, nil
		}
		if err := svc.SetLanguage(fields[1]); err != nil {
			if errors.Is(err, chat.ErrUnsupportedLanguage) {
				c.printf("unsupported language %q\n", fields[1])
				return false, nil
			}
			return false, err
		}
		c.printf("language: %s\n", svc.Language())
	case "/status":
		cs := svc.ConnectionStatus()
		c.printf("connection: %s, replies: %d, language: %s\n", cs, svc.ReplyCount(), svc.Language())
		if cs.IsTerminal() {
			c.printf("live reconnection stopped, restart the client to reconnect\n")
		}
	case "/help":
		c.printf("%s\n", helpText)
	default:
		c.printf("unknown command %s, try /help\n", fields[0])
	}
	return false, nil
}

func (c *Console) printHistory(history []conversation.Conversation) {
	if len(history) == 0 {
		c.printf("no saved conversations\n")
		return
	}
	for _, conv := range history {
		c.printf("%d  %s  %s\n",
			conv.ID,
			conv.Started().Format(historyTimeLayout),
			conv.Preview(40),
		)
	}
}
