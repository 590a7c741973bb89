package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/janhq/jan-chat-client/internal/domain/chat"
	"github.com/janhq/jan-chat-client/internal/infrastructure/livechat"
	"github.com/janhq/jan-chat-client/internal/interfaces/httpserver"
)

const closeTimeout = 5 * time.Second

// Application holds the main application components.
type Application struct {
	orch         *chat.Orchestrator
	supervisor   *livechat.Supervisor
	statusServer *httpserver.HTTPServer
	console      *Console
	log          zerolog.Logger
}

// NewApplication creates a new application instance. supervisor and
// statusServer may be nil.
func NewApplication(
	orch *chat.Orchestrator,
	supervisor *livechat.Supervisor,
	statusServer *httpserver.HTTPServer,
	console *Console,
	log zerolog.Logger,
) *Application {
	return &Application{
		orch:         orch,
		supervisor:   supervisor,
		statusServer: statusServer,
		console:      console,
		log:          log,
	}
}

// Start runs the chat until the console exits or ctx is cancelled, then
// saves the active conversation.
func (a *Application) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.supervisor != nil {
		a.supervisor.Start(ctx)
		defer a.supervisor.Stop()
	}

	a.orch.Open(ctx)

	g, gctx := errgroup.WithContext(ctx)
	if a.statusServer != nil {
		g.Go(func() error {
			return a.statusServer.Run(gctx)
		})
	}
	g.Go(func() error {
		// Leaving the console ends the session.
		defer cancel()
		return a.console.Run(gctx, a.orch)
	})

	err := g.Wait()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), closeTimeout)
	defer closeCancel()
	a.orch.Close(closeCtx)

	return err
}
