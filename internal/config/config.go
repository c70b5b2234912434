package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"quibluff/internal/logger"
)

type Config struct {
	AppPort       string
	AllowedOrigin string
	PublicURL     string
	JWTSecret     string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GeminiAPIKey string
	GeminiModel  string

	BotToken        string
	AnnounceChatIDs []int64

	TickInterval       time.Duration
	BotTickChance      float64
	BotActChance       float64
	RoomIdleTTL        time.Duration
	RateLimitPerMinute int

	LogLevel string
	LogJSON  bool
}

// Load читает .env (если есть), затем переменные окружения
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to read .env", "error", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv собирает Config из любой функции поиска, пустые значения получают дефолты
func FromEnv(getenv func(string) string) Config {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	return Config{
		AppPort:       get("APP_PORT", "8080"),
		AllowedOrigin: get("ALLOWED_ORIGIN", ""),
		PublicURL:     get("PUBLIC_URL", "http://localhost:5173"),
		JWTSecret:     get("JWT_SECRET", ""),

		DatabaseURL: get("DATABASE_URL", ""),

		RedisAddr:     get("REDIS_ADDR", ""),
		RedisPassword: get("REDIS_PASSWORD", ""),
		RedisDB:       atoi(get("REDIS_DB", "0"), 0),

		GeminiAPIKey: get("GEMINI_API_KEY", ""),
		GeminiModel:  get("GEMINI_MODEL", ""),

		BotToken:        get("BOT_TOKEN", ""),
		AnnounceChatIDs: parseIDs(get("ANNOUNCE_CHAT_IDS", "")),

		TickInterval:       duration(get("TICK_INTERVAL", "1s"), time.Second),
		BotTickChance:      chance(get("BOT_TICK_CHANCE", "0.5"), 0.5),
		BotActChance:       chance(get("BOT_ACT_CHANCE", "0.2"), 0.2),
		RoomIdleTTL:        duration(get("ROOM_IDLE_TTL", "30m"), 30*time.Minute),
		RateLimitPerMinute: atoi(get("RATE_LIMIT_PER_MINUTE", "30"), 30),

		LogLevel: get("LOG_LEVEL", "info"),
		LogJSON:  get("LOG_FORMAT", "") == "json",
	}
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func chance(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > 1 {
		return def
	}
	return f
}

// список id чатов через запятую, мусор пропускаем
func parseIDs(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil && id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
