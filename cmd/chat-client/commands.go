package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/janhq/jan-chat-client/internal/config"
	"github.com/janhq/jan-chat-client/internal/infrastructure/logger"
	"github.com/janhq/jan-chat-client/internal/infrastructure/observability"
)

var rootCmd = &cobra.Command{
	Use:   "chat-client",
	Short: "Terminal client for the Jan assistant chat service",
	Long: `chat-client talks to the assistant over a live websocket connection,
falling back to plain HTTP requests when the connection is down.

Conversations are saved locally and can be resumed later.

Examples:
  chat-client                       # start chatting
  chat-client --lang fr             # chat in French
  chat-client --transports request  # never use the live connection
  chat-client history list
  chat-client history show 1718000000000`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect saved conversations",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved conversations, most recent first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.PersistentFlags().String("lang", "", "Language for requests and messages (en, fr)")
	rootCmd.PersistentFlags().String("store", "", "Conversation store path")
	rootCmd.Flags().String("transports", "", "Transport preference, e.g. live,request")
	rootCmd.Flags().Int("status-port", -1, "Local status server port (0 disables)")
}

// loadConfig reads the environment and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if v, _ := cmd.Flags().GetString("lang"); v != "" {
		cfg.Language = v
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.StorePath = v
	}
	if f := cmd.Flags().Lookup("transports"); f != nil && f.Changed {
		cfg.Transports = f.Value.String()
	}
	if v, err := cmd.Flags().GetInt("status-port"); err == nil && v >= 0 {
		cfg.StatusHTTPPort = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	app, cleanup, err := buildApplication(cfg, log, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer cleanup()

	log.Debug().
		Str("service", cfg.ServiceName).
		Str("transports", cfg.Transports).
		Bool("live_enabled", cfg.LiveEnabled).
		Msg("starting chat client")

	return app.Start(ctx)
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, cleanup, err := ProvideStore(cfg, logger.New(cfg))
	if err != nil {
		return err
	}
	defer cleanup()

	all := store.LoadAll(cmd.Context())
	out := cmd.OutOrStdout()
	if len(all) == 0 {
		fmt.Fprintln(out, "no saved conversations")
		return nil
	}
	for i := len(all) - 1; i >= 0; i-- {
		conv := all[i]
		fmt.Fprintf(out, "%d  %s  %3d msgs  %s\n",
			conv.ID,
			conv.Started().Format(historyTimeLayout),
			len(conv.Messages),
			conv.Preview(40),
		)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid conversation id %q", args[0])
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, cleanup, err := ProvideStore(cfg, logger.New(cfg))
	if err != nil {
		return err
	}
	defer cleanup()

	conv, ok := store.Find(cmd.Context(), id)
	if !ok {
		return fmt.Errorf("conversation %d not found", id)
	}
	out := cmd.OutOrStdout()
	for _, msg := range conv.Messages {
		fmt.Fprintf(out, "%s> %s\n", msg.Role, msg.Text)
	}
	return nil
}
