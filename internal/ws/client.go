package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"quibluff/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 4096
	commandTimeout = 30 * time.Second
)

// Commands: что игрок может делать через сокет
type Commands interface {
	ConfigureRoom(ctx context.Context, code, playerID string, settings domain.Settings) (int, error)
	StartGame(ctx context.Context, code, playerID string) error
	SubmitBluff(ctx context.Context, code, playerID, text string) error
	SubmitVote(ctx context.Context, code, playerID, optionID string) error
	AddBot(ctx context.Context, code, playerID string) (domain.Player, error)
	LeaveRoom(ctx context.Context, code, playerID string) error
}

// входящее сообщение от клиента
type inbound struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	OptionID string           `json:"optionId,omitempty"`
	Settings *domain.Settings `json:"settings,omitempty"`
}

type Client struct {
	RoomCode string
	PlayerID string

	conn   *websocket.Conn
	sub    *Subscription
	cmds   Commands
	direct chan []byte
	done   chan struct{}
	log    *slog.Logger
}

func NewClient(conn *websocket.Conn, sub *Subscription, cmds Commands, log *slog.Logger) *Client {
	return &Client{
		RoomCode: sub.Room,
		PlayerID: sub.PlayerID,
		conn:     conn,
		sub:      sub,
		cmds:     cmds,
		direct:   make(chan []byte, 8),
		done:     make(chan struct{}),
		log:      log.With("room", sub.Room, "player", sub.PlayerID),
	}
}

// Run блокируется до разрыва соединения
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		close(c.done)
		c.sub.Close()
		_ = c.conn.Close()
		c.log.Debug("client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("read error", "error", err)
			}
			return
		}
		leave, err := c.handle(raw)
		if err != nil {
			c.sendDirect(ErrorMessage(errorText(err)))
		}
		if leave {
			return
		}
	}
}

// обрабатывает одно сообщение; true, если клиент вышел из комнаты
func (c *Client) handle(raw []byte) (bool, error) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return false, domain.ErrInvalidCommand
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case "start_game":
		err = c.cmds.StartGame(ctx, c.RoomCode, c.PlayerID)
	case "submit_bluff":
		err = c.cmds.SubmitBluff(ctx, c.RoomCode, c.PlayerID, msg.Text)
	case "submit_vote":
		err = c.cmds.SubmitVote(ctx, c.RoomCode, c.PlayerID, msg.OptionID)
	case "configure_room":
		settings := domain.DefaultSettings()
		if msg.Settings != nil {
			settings = *msg.Settings
		}
		_, err = c.cmds.ConfigureRoom(ctx, c.RoomCode, c.PlayerID, settings)
	case "add_bot":
		_, err = c.cmds.AddBot(ctx, c.RoomCode, c.PlayerID)
	case "leave_room":
		err = c.cmds.LeaveRoom(ctx, c.RoomCode, c.PlayerID)
		return err == nil, err
	default:
		err = domain.ErrInvalidCommand
	}
	if err != nil {
		c.log.Debug("command failed", "type", msg.Type, "error", err)
	}
	return false, err
}

func (c *Client) sendDirect(msg []byte) {
	select {
	case c.direct <- msg:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sub.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "room closed"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("write error", "error", err)
				return
			}
		case msg := <-c.direct:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// не отдаём клиенту внутренние детали ошибок
func errorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, domain.ErrPlayerNotFound):
		return "player not found"
	case errors.Is(err, domain.ErrNotReady):
		return "questions are not ready yet"
	case errors.Is(err, domain.ErrNotHost):
		return "only the host can do that"
	case errors.Is(err, domain.ErrInvalidCommand):
		return err.Error()
	default:
		return "internal error"
	}
}
