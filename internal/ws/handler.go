package ws

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"quibluff/internal/logger"
	"quibluff/internal/service"
)

// Authenticator разбирает токен игрока
type Authenticator interface {
	Authenticate(token string) (service.PlayerClaims, error)
}

// содержит зависимости для обработки WebSocket и SSE
type Handler struct {
	hub      *Hub
	auth     Authenticator
	cmds     Commands
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewHandler(hub *Hub, auth Authenticator, cmds Commands, allowedOrigin string) *Handler {
	return &Handler{
		hub:  hub,
		auth: auth,
		cmds: cmds,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		log: logger.With("component", "ws"),
	}
}

func (h *Handler) authenticate(c *gin.Context) (service.PlayerClaims, bool) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return service.PlayerClaims{}, false
	}
	claims, err := h.auth.Authenticate(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return service.PlayerClaims{}, false
	}
	return claims, true
}

// HandleWS апгрейдит /ws?token=... и обслуживает игрока до отключения
func (h *Handler) HandleWS(c *gin.Context) {
	claims, ok := h.authenticate(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "error", err)
		return
	}

	sub := h.hub.Subscribe(claims.Room, claims.PlayerID())
	client := NewClient(conn, sub, h.cmds, h.log)
	h.log.Debug("client connected", "room", claims.Room, "player", claims.PlayerID())
	go client.Run()
}

// HandleEvents отдаёт те же обновления через SSE
// для клиентов без websocket
func (h *Handler) HandleEvents(c *gin.Context) {
	claims, ok := h.authenticate(c)
	if !ok {
		return
	}
	if code := c.Param("code"); code != "" && code != claims.Room {
		c.JSON(http.StatusForbidden, gin.H{"error": "token is for another room"})
		return
	}

	sub := h.hub.Subscribe(claims.Room, claims.PlayerID())
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-sub.C:
			if !ok {
				c.SSEvent("closed", "room closed")
				return false
			}
			c.SSEvent(TypeStateUpdate, string(msg))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
