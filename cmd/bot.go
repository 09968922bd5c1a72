package cmd

import (
	"context"
	"log/slog"
	"time"

	"focusgallery/admin"
	"focusgallery/cache"
	"focusgallery/config"
	"focusgallery/conversation"
	"focusgallery/galleryclient"
	"focusgallery/session"
	"focusgallery/telegram"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const sweepInterval = 30 * time.Second

func newBotCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Start the Telegram bot",
		Long: `Starts the Telegram bot. Everyone can browse the gallery with /browse;
users listed in BOT_ADMIN_IDS can add photos with /upload.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateBot(); err != nil {
				return err
			}
			return runBot(cmd.Context(), cfg)
		},
	}
}

func runBot(ctx context.Context, cfg *config.Config) error {
	var kv cache.Store = cache.NewMemory()
	var sessions session.Store = session.NewMemoryStore(cfg.SessionIdleTimeout)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedis(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB, "focusgallery:")
		if err != nil {
			return err
		}
		defer rdb.Close()
		kv = rdb
		sessions = session.NewKVStore(rdb, cfg.SessionIdleTimeout)
		slog.Info("Using Redis for sessions and cache")
	}

	if len(cfg.AdminIDs) == 0 {
		slog.Warn("BOT_ADMIN_IDS is empty, nobody can upload")
	}

	gallery := galleryclient.New(cfg.BackendURL, cfg.APIKey, galleryclient.WithCache(kv, cfg.CacheTTL))

	bot, err := telegram.Connect(cfg.BotToken)
	if err != nil {
		return err
	}
	slog.Info("Authorized on account", "username", bot.Self.UserName)

	adapter := telegram.NewAdapter(bot, slog.Default())
	engine := conversation.NewEngine(gallery, sessions, admin.NewPolicy(cfg.AdminIDs...), adapter, conversation.Options{
		TempDir: cfg.TempDir,
	})
	dispatcher := conversation.NewDispatcher(engine, adapter, slog.Default())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return adapter.Run(ctx, dispatcher) })
	g.Go(func() error { return engine.RunSweeper(ctx, sweepInterval) })

	err = g.Wait()
	dispatcher.Wait()
	slog.Info("Bot stopped")
	return err
}
