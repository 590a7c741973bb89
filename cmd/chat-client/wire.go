//go:build wireinject
// +build wireinject

package main

import (
	"io"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat-client/internal/config"
)

// ProviderSet is the wire provider set for the application.
var ProviderSet = wire.NewSet(
	// Infrastructure providers
	ProvideStore,
	ProvideSession,
	ProvideHTTPChatClient,
	ProvideSupervisor,
	ProvideLiveChannel,
	ProvideChannels,

	// Domain providers
	ProvideOrchestrator,

	// Interface providers
	ProvideConsole,
	ProvideStatusServer,

	// Application
	NewApplication,
)

// CreateApplication creates the application with all dependencies wired.
func CreateApplication(
	cfg *config.Config,
	log zerolog.Logger,
	in io.Reader,
	out io.Writer,
) (*Application, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
