package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/api"
	"github.com/unsw-memes/memes/internal/assistant"
	"github.com/unsw-memes/memes/internal/auth"
	"github.com/unsw-memes/memes/internal/channels"
	"github.com/unsw-memes/memes/internal/config"
	"github.com/unsw-memes/memes/internal/dms"
	"github.com/unsw-memes/memes/internal/messages"
	"github.com/unsw-memes/memes/internal/notifications"
	"github.com/unsw-memes/memes/internal/observ"
	"github.com/unsw-memes/memes/internal/scheduler"
	"github.com/unsw-memes/memes/internal/standup"
	"github.com/unsw-memes/memes/internal/stats"
	"github.com/unsw-memes/memes/internal/store"
	"github.com/unsw-memes/memes/internal/users"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	st := store.New(cfg.DataFile, logger)
	if err := st.Restore(); err != nil {
		return fmt.Errorf("restore store: %w", err)
	}

	sched := scheduler.New(logger)
	defer sched.Stop()

	var mailer auth.Mailer
	if cfg.SMTPAddr != "" {
		mailer = &auth.SMTPMailer{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom}
	} else {
		mailer = &auth.LogMailer{Logger: logger}
	}

	authSvc := auth.NewService(st, cfg.JWTSecret, mailer, logger)
	channelsSvc := channels.NewService(st, logger)
	dmsSvc := dms.NewService(st, logger)
	messagesSvc := messages.NewService(st, sched, logger)
	standupSvc := standup.NewService(st, sched, logger)
	statsSvc := stats.NewService(st, logger)
	notificationsSvc := notifications.NewService(st, logger)
	usersSvc := users.NewService(st, cfg.PhotoDir, cfg.BaseURL, logger)
	assistantSvc := assistant.NewService(st, usersSvc, channelsSvc, logger)
	messagesSvc.SetAssistant(assistantSvc)

	handlers := api.Handlers{
		Auth:    api.NewAuthHandler(authSvc, logger),
		Channel: api.NewChannelHandler(channelsSvc, messagesSvc, logger),
		DM:      api.NewDMHandler(dmsSvc, messagesSvc, logger),
		Message: api.NewMessageHandler(messagesSvc, logger),
		Standup: api.NewStandupHandler(standupSvc, logger),
		User:    api.NewUserHandler(usersSvc, statsSvc, notificationsSvc, assistantSvc, logger),
	}

	router := api.NewRouter(handlers, authSvc, st, cfg.PhotoDir, cfg.Env, logger)

	logger.Info("starting memes server",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("data_file", cfg.DataFile),
	)

	return router.Run(":" + cfg.Port)
}
