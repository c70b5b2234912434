package httpserver

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quibluff/internal/http/handlers"
	"quibluff/internal/http/middleware"
	"quibluff/internal/ws"
)

type Deps struct {
	Handler       *handlers.Handler
	WS            *ws.Handler
	RateLimiter   *middleware.RedisRateLimiter
	AllowedOrigin string
}

// NewRouter собирает все маршруты на новом gin engine
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := d.Handler
	r.Use(middleware.CORS(d.AllowedOrigin))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", d.WS.HandleWS)

	api := r.Group("/api")
	api.GET("/leaderboard", h.GetLeaderboard)
	api.GET("/games", h.GetRecentGames)

	rooms := api.Group("/rooms")
	limited := rooms.Group("", d.RateLimiter.Middleware())
	limited.POST("", h.CreateRoom)
	limited.POST("/:code/join", h.JoinRoom)

	rooms.GET("/:code", h.GetRoom)
	rooms.GET("/:code/qr", h.RoomQR)
	rooms.GET("/:code/events", d.WS.HandleEvents)

	player := rooms.Group("/:code", h.RequirePlayer())
	player.POST("/settings", h.ConfigureRoom)
	player.POST("/start", h.StartGame)
	player.POST("/bluff", h.SubmitBluff)
	player.POST("/vote", h.SubmitVote)
	player.POST("/bots", h.AddBot)
	player.POST("/leave", h.LeaveRoom)
}
