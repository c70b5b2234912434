package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"quibluff/internal/domain"
	"quibluff/internal/service"
)

type joinRequest struct {
	Nickname string `json:"nickname"`
	AvatarID string `json:"avatarId"`
	// init data Telegram WebApp, имя оттуда подставляется вместо пустого ника
	InitData string `json:"initData"`
}

func (h *Handler) nickname(req joinRequest) string {
	if strings.TrimSpace(req.Nickname) != "" {
		return req.Nickname
	}
	if n, ok := service.TelegramNickname(req.InitData, h.BotToken); ok {
		return n
	}
	return ""
}

// Создание комнаты, вызывающий становится хостом
func (h *Handler) CreateRoom(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	sess, err := h.Rooms.CreateRoom(c.Request.Context(), h.nickname(req), req.AvatarID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *Handler) JoinRoom(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	sess, err := h.Rooms.JoinRoom(c.Request.Context(), c.Param("code"), h.nickname(req), req.AvatarID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) GetRoom(c *gin.Context) {
	st, err := h.Rooms.State(c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) ConfigureRoom(c *gin.Context) {
	playerID, _ := getPlayerID(c)
	settings := domain.DefaultSettings()
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	n, err := h.Rooms.ConfigureRoom(c.Request.Context(), c.Param("code"), playerID, settings)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "totalRounds": n})
}

func (h *Handler) StartGame(c *gin.Context) {
	playerID, _ := getPlayerID(c)
	if err := h.Rooms.StartGame(c.Request.Context(), c.Param("code"), playerID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

func (h *Handler) SubmitBluff(c *gin.Context) {
	playerID, _ := getPlayerID(c)
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if err := h.Rooms.SubmitBluff(c.Request.Context(), c.Param("code"), playerID, req.Text); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) SubmitVote(c *gin.Context) {
	playerID, _ := getPlayerID(c)
	var req struct {
		OptionID string `json:"optionId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if err := h.Rooms.SubmitVote(c.Request.Context(), c.Param("code"), playerID, req.OptionID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) AddBot(c *gin.Context) {
	playerID, _ := getPlayerID(c)
	bot, err := h.Rooms.AddBot(c.Request.Context(), c.Param("code"), playerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bot)
}

func (h *Handler) LeaveRoom(c *gin.Context) {
	playerID, _ := getPlayerID(c)
	if err := h.Rooms.LeaveRoom(c.Request.Context(), c.Param("code"), playerID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// JoinLink: ссылка, на которую ведёт QR-код
func JoinLink(publicURL, code string) string {
	base := strings.TrimRight(publicURL, "/")
	return base + "/?room=" + url.QueryEscape(code)
}

// QR-код со ссылкой на вход в комнату
func (h *Handler) RoomQR(c *gin.Context) {
	code := c.Param("code")
	if !h.Rooms.Exists(code) {
		writeError(c, domain.ErrRoomNotFound)
		return
	}
	png, err := qrcode.Encode(JoinLink(h.PublicURL, code), qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render qr"})
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}
