package main // Entry point package

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/config"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/database"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/email"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/handler"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/middleware"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/queue"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/repository"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/router"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/service"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/token"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := database.Open(ctx, cfg.MongoURI)
	cancel()
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close(context.Background()) }()

	tokens := token.NewManager(
		cfg.AccessSecret,
		cfg.RefreshSecret,
		time.Duration(cfg.AccessTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTTLDays)*24*time.Hour,
	)
	sender := email.NewSMTPSender(cfg.EmailHost, cfg.SenderEmail, cfg.SenderPassword)
	store := repository.NewUserRepo(db.Users())
	svc := service.NewUserService(store, tokens, sender, queue.PublishUserRegistered, cfg.BcryptCost, cfg.ClientURL)

	cache := middleware.NewProfileCache(config.NewRedisClient(), config.LoadCacheConfig())
	h := handler.NewUserHandler(svc, cache, time.Duration(cfg.RefreshTTLDays)*24*time.Hour)

	// Welcome mail is delivered asynchronously off the broker.
	go queue.StartWelcomeMailConsumer(sender)

	e := echo.New()
	e.HideBanner = true
	router.Setup(e, h, tokens, cache, cfg.AllowedOrigins)

	addr := ":" + cfg.Port
	slog.Info("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

func setupLogger(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
