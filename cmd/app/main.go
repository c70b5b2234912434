package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quibluff/internal/bot"
	"quibluff/internal/config"
	"quibluff/internal/db"
	httpServer "quibluff/internal/http"
	"quibluff/internal/http/handlers"
	"quibluff/internal/http/middleware"
	"quibluff/internal/logger"
	"quibluff/internal/questions"
	"quibluff/internal/repository"
	"quibluff/internal/room"
	"quibluff/internal/service"
	"quibluff/internal/ws"
)

// Version устанавливается при сборке
var Version = "dev"

func main() {
	cfg := config.Load()

	logger.Init(cfg.LogLevel, cfg.LogJSON)
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString()
		log.Warn("JWT_SECRET not set - using an ephemeral secret, tokens die with the process")
	}

	var onFinish []room.FinishFunc

	// Архив игр и лидерборд (опционально)
	var history *repository.GameHistoryRepository
	if cfg.DatabaseURL != "" {
		if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
			logger.Fatal("migrations failed", "error", err)
		}
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database connection failed", "error", err)
		}
		defer pool.Close()
		history = repository.NewGameHistoryRepository(pool)
		onFinish = append(onFinish, history.Record)
		log.Info("game archive enabled")
	} else {
		log.Warn("DATABASE_URL not set - finished games are not archived")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable - rate limiting and question cache will fail open", "error", err)
		}
		cancel()
	}

	var primary questions.Provider
	if cfg.GeminiAPIKey != "" {
		gemini, err := questions.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Error("failed to init gemini, using fallback questions", "error", err)
		} else {
			primary = gemini
		}
	} else {
		log.Warn("GEMINI_API_KEY not set - using built-in questions")
	}
	var cache *questions.Cache
	if rdb != nil {
		cache = questions.NewCache(rdb, questions.DefaultTTL)
	}
	provider := questions.NewResilient(primary, cache, 20*time.Second)

	// Объявления о победителях в Telegram
	var announcer *bot.Announcer
	if cfg.BotToken != "" && len(cfg.AnnounceChatIDs) > 0 {
		var board bot.LeaderboardReader
		if history != nil {
			board = history
		}
		var err error
		announcer, err = bot.NewAnnouncer(cfg.BotToken, cfg.AnnounceChatIDs, board)
		if err != nil {
			log.Error("failed to start announcer bot", "error", err)
		} else {
			onFinish = append(onFinish, announcer.Announce)
			go announcer.Start()
		}
	}

	hub := ws.NewHub()
	opts := room.DefaultOptions()
	opts.TickInterval = cfg.TickInterval
	opts.BotTickChance = cfg.BotTickChance
	opts.BotActChance = cfg.BotActChance
	opts.IdleTTL = cfg.RoomIdleTTL
	opts.OnFinish = onFinish
	registry := room.NewRegistry(hub, opts)
	registry.StartCleanup(ctx, time.Minute)

	svc := service.NewGameService(registry, provider, service.NewPlayerTokens(cfg.JWTSecret, 12*time.Hour))

	h := &handlers.Handler{
		Rooms:     svc,
		PublicURL: cfg.PublicURL,
		BotToken:  cfg.BotToken,
		Version:   Version,
	}
	if history != nil {
		h.Leaderboard = history
	}

	r := httpServer.NewRouter(httpServer.Deps{
		Handler:       h,
		WS:            ws.NewHandler(hub, svc, svc, cfg.AllowedOrigin),
		RateLimiter:   middleware.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute),
		AllowedOrigin: cfg.AllowedOrigin,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		log.Info("server started", "port", cfg.AppPort, "version", Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	// останавливаем все комнаты и дожидаемся записи результатов
	registry.Shutdown()

	if announcer != nil {
		announcer.Stop()
	}

	log.Info("server exited")
	os.Exit(0)
}
