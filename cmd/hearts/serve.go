package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xylophonehero/hearts/internal/auth"
	"github.com/xylophonehero/hearts/internal/cache"
	"github.com/xylophonehero/hearts/internal/config"
	"github.com/xylophonehero/hearts/internal/database"
	"github.com/xylophonehero/hearts/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the game server",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		auth.Init(cfg.JWTSecret)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Side stores are optional; the server runs in memory without them.
		if cfg.RedisAddr != "" {
			if err := cache.InitRedis(ctx, cfg.RedisAddr); err != nil {
				log.WithError(err).Warn("redis unavailable, action history disabled")
			} else {
				defer cache.Close()
				log.WithField("addr", cfg.RedisAddr).Info("action history enabled")
			}
		}
		if cfg.DatabaseURL != "" {
			if err := database.Connect(ctx, cfg.DatabaseURL); err != nil {
				log.WithError(err).Warn("postgres unavailable, result persistence disabled")
			} else {
				defer database.Close()
				log.Info("result persistence enabled")
			}
		}

		return ws.NewServer(cfg, log).Run(ctx)
	},
}
