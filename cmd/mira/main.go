package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mirajournal/internal/app"
	"mirajournal/internal/config"
	"mirajournal/internal/server"
	"mirajournal/internal/util"
	"mirajournal/pkg/ai"
	"mirajournal/pkg/queue"
	"mirajournal/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		util.Fatal("failed to init store", "err", err)
	}

	jwtLeeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		util.Fatal("failed to parse jwt leeway", "err", err)
	}
	revoker := store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
	sessions, err := store.NewJWTSessionStore(
		cfg.JWTSecret,
		time.Duration(cfg.SessionTTLHours)*time.Hour,
		revoker,
		store.JWTOptions{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   jwtLeeway,
		},
	)
	if err != nil {
		util.Fatal("failed to init session store", "err", err)
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		util.Fatal("failed to init text generator", "err", err)
	}

	replyQueue, err := queue.NewRedisReplyQueue(queue.RedisQueueConfig{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		Stream:      cfg.ReplyQueueStream,
		Group:       cfg.ReplyQueueGroup,
		MaxAttempts: cfg.ReplyMaxAttempts,
	})
	if err != nil {
		util.Fatal("failed to init reply queue", "err", err)
	}

	appCore, err := app.New(app.Config{
		Store:     st,
		Sessions:  sessions,
		Therapist: ai.NewTherapist(generator),
		Queue:     replyQueue,
		Logger:    logger,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		LoginRateLimitPerMinute:  cfg.LoginRateLimitPerMinute,
	})
	if err != nil {
		util.Fatal("failed to init http server", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	replyQueue.Start(ctx, cfg.ReplyWorkers, appCore.ProcessReplyJob)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("mira server listening", "addr", addr, "provider", cfg.AIProvider)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func newGenerator(cfg config.FileConfig) (ai.TextGenerator, error) {
	timeout := time.Duration(cfg.AITimeoutSeconds) * time.Second
	switch cfg.AIProvider {
	case "openai":
		return ai.NewOpenAICompatGenerator(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.GenerationModel, timeout), nil
	default:
		return ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GenerationModel, timeout)
	}
}
