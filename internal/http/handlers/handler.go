package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"quibluff/internal/domain"
	"quibluff/internal/service"
)

// RoomService: команды, которые вызывает HTTP-слой
type RoomService interface {
	CreateRoom(ctx context.Context, nickname, avatarID string) (service.PlayerSession, error)
	JoinRoom(ctx context.Context, code, nickname, avatarID string) (service.PlayerSession, error)
	Authenticate(token string) (service.PlayerClaims, error)
	ConfigureRoom(ctx context.Context, code, playerID string, settings domain.Settings) (int, error)
	StartGame(ctx context.Context, code, playerID string) error
	SubmitBluff(ctx context.Context, code, playerID, text string) error
	SubmitVote(ctx context.Context, code, playerID, optionID string) error
	AddBot(ctx context.Context, code, playerID string) (domain.Player, error)
	LeaveRoom(ctx context.Context, code, playerID string) error
	State(code string) (domain.GameState, error)
	Exists(code string) bool
}

// LeaderboardReader читает архив победителей, nil без базы
type LeaderboardReader interface {
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	Recent(ctx context.Context, limit int) ([]domain.GameSummary, error)
}

type Handler struct {
	Rooms       RoomService
	Leaderboard LeaderboardReader
	PublicURL   string
	BotToken    string
	Version     string
}

const playerIDKey = "playerID"

// RequirePlayer проверяет Bearer токен (или ?token=) и что он выдан
// для комнаты из пути
func (h *Handler) RequirePlayer() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		claims, err := h.Rooms.Authenticate(token)
		if err != nil {
			if errors.Is(err, domain.ErrRoomNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "room not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Room != c.Param("code") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token is for another room"})
			return
		}
		c.Set(playerIDKey, claims.PlayerID())
		c.Next()
	}
}

func getPlayerID(c *gin.Context) (string, bool) {
	v, ok := c.Get(playerIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// маппинг доменных ошибок в HTTP статусы
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
	case errors.Is(err, domain.ErrPlayerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
	case errors.Is(err, domain.ErrNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": "not ready"})
	case errors.Is(err, domain.ErrNotHost):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the host can do that"})
	case errors.Is(err, domain.ErrInvalidCommand):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.Version})
}
