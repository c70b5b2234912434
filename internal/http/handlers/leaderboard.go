package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 100
)

func limitParam(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return defaultLeaderboardLimit
	}
	if n > maxLeaderboardLimit {
		return maxLeaderboardLimit
	}
	return n
}

// список лучших игроков по победам в завершённых играх
func (h *Handler) GetLeaderboard(c *gin.Context) {
	if h.Leaderboard == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "leaderboard disabled"})
		return
	}

	top, err := h.Leaderboard.Leaderboard(c.Request.Context(), limitParam(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": top})
}

// последние завершённые игры
func (h *Handler) GetRecentGames(c *gin.Context) {
	if h.Leaderboard == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "leaderboard disabled"})
		return
	}

	games, err := h.Leaderboard.Recent(c.Request.Context(), limitParam(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get games"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}
