package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"quibluff/internal/domain"
	"quibluff/internal/logger"
	"quibluff/internal/metrics"
)

const (
	TypeStateUpdate = "game_state_update"
	TypeError       = "error"

	subscriptionBuffer = 64
)

// Message: исходящий конверт, общий для websocket и SSE
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func ErrorMessage(text string) []byte {
	b, _ := json.Marshal(Message{Type: TypeError, Payload: map[string]string{"message": text}})
	return b
}

// Subscription получает сообщения одной комнаты. C закрывается при отписке
// или закрытии комнаты
type Subscription struct {
	Room     string
	PlayerID string
	C        chan []byte

	hub    *Hub
	closed bool // под hub.mu
}

func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

type roomFeed struct {
	subs    map[*Subscription]struct{}
	version uint64
	last    []byte
}

// Hub рассылает снапшоты подписчикам. Каждый снапшот кодируется один раз
// и не доставляется в обход порядка версий
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*roomFeed
	log   *slog.Logger
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]*roomFeed),
		log:   logger.With("component", "hub"),
	}
}

// OpenRoom заводит чистую ленту для кода комнаты. Коды переиспользуются,
// поэтому всё, что осталось от прошлой комнаты, закрывается
func (h *Hub) OpenRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if f, ok := h.rooms[code]; ok {
		for sub := range f.subs {
			h.closeSub(sub)
		}
	}
	h.rooms[code] = &roomFeed{subs: make(map[*Subscription]struct{})}
}

// Subscribe регистрирует подписчика и кладёт ему последнее состояние.
// Для неоткрытой комнаты подписка возвращается уже закрытой
func (h *Hub) Subscribe(code, playerID string) *Subscription {
	sub := &Subscription{
		Room:     code,
		PlayerID: playerID,
		C:        make(chan []byte, subscriptionBuffer),
		hub:      h,
	}

	h.mu.Lock()
	f, ok := h.rooms[code]
	if !ok {
		sub.closed = true
		close(sub.C)
		h.mu.Unlock()
		h.log.Debug("subscribe to unknown room", "room", code, "player", playerID)
		return sub
	}
	f.subs[sub] = struct{}{}
	if f.last != nil {
		sub.C <- f.last
	}
	h.mu.Unlock()

	metrics.Subscribers.Inc()
	h.log.Debug("subscribed", "room", code, "player", playerID)
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.closed {
		return
	}
	if f, ok := h.rooms[sub.Room]; ok {
		delete(f.subs, sub)
	}
	h.closeSub(sub)
}

// вызывается под mu
func (h *Hub) closeSub(sub *Subscription) {
	sub.closed = true
	close(sub.C)
	metrics.Subscribers.Dec()
}

// Publish реализует room.Broadcaster. Снапшот не новее уже отправленного
// отбрасывается: запоздавшая горутина не откатит клиентов назад.
// Публикации в неоткрытые комнаты игнорируются
func (h *Hub) Publish(code string, state domain.GameState) {
	data, err := json.Marshal(Message{Type: TypeStateUpdate, Payload: state})
	if err != nil {
		h.log.Error("failed to encode state", "room", code, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.rooms[code]
	if !ok {
		return
	}
	if f.last != nil && state.Version <= f.version {
		return
	}
	f.version = state.Version
	f.last = data

	for sub := range f.subs {
		select {
		case sub.C <- data:
		default:
			// медленный читатель теряет только промежуточные снапшоты
			metrics.DroppedMessages.Inc()
			h.log.Warn("subscriber buffer full, dropping update", "room", code, "player", sub.PlayerID)
		}
	}
}

func (h *Hub) Subscribers(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if f, ok := h.rooms[code]; ok {
		return len(f.subs)
	}
	return 0
}

// CloseRoom закрывает все подписки комнаты и забывает её состояние
func (h *Hub) CloseRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.rooms[code]
	if !ok {
		return
	}
	for sub := range f.subs {
		h.closeSub(sub)
	}
	delete(h.rooms, code)
}
