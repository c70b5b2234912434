package room

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"quibluff/internal/domain"
	"quibluff/internal/logger"
	"quibluff/internal/metrics"
)

// Broadcaster рассылает снапшоты подписчикам комнаты.
// Публикации доходят только между OpenRoom и CloseRoom
type Broadcaster interface {
	OpenRoom(roomCode string)
	Publish(roomCode string, state domain.GameState)
	Subscribers(roomCode string) int
	CloseRoom(roomCode string)
}

// FinishFunc вызывается один раз на игру, вне блокировки комнаты
type FinishFunc func(ctx context.Context, summary domain.GameSummary) error

type Options struct {
	TickInterval  time.Duration
	BotTickChance float64
	BotActChance  float64
	// комнаты без подписчиков и без команд дольше этого закрываются
	IdleTTL       time.Duration
	FinishTimeout time.Duration

	NewTicker TickerFunc
	NewRand   func() *rand.Rand
	NewID     func() string
	OnFinish  []FinishFunc
}

func DefaultOptions() Options {
	return Options{
		TickInterval:  time.Second,
		BotTickChance: 0.5,
		BotActChance:  0.2,
		IdleTTL:       30 * time.Minute,
		FinishTimeout: 5 * time.Second,
	}
}

// Joined возвращается создателю комнаты или вошедшему
type Joined struct {
	RoomCode string           `json:"roomCode"`
	PlayerID string           `json:"playerId"`
	State    domain.GameState `json:"state"`
}

// Registry: код комнаты -> сессия. Мьютекс защищает только map,
// состояние комнаты защищает сама сессия
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Session

	broadcaster Broadcaster
	opts        Options
	stopped     bool // под mu; после Shutdown хуки не запускаются
	finishWG    sync.WaitGroup
	log         *slog.Logger
}

func NewRegistry(b Broadcaster, opts Options) *Registry {
	def := DefaultOptions()
	if opts.TickInterval <= 0 {
		opts.TickInterval = def.TickInterval
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = def.IdleTTL
	}
	if opts.FinishTimeout <= 0 {
		opts.FinishTimeout = def.FinishTimeout
	}
	if opts.NewTicker == nil {
		opts.NewTicker = RealTicker
	}
	if opts.NewRand == nil {
		opts.NewRand = func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	return &Registry{
		rooms:       make(map[string]*Session),
		broadcaster: b,
		opts:        opts,
		log:         logger.With("component", "registry"),
	}
}

func generateRoomCode() string {
	return strconv.Itoa(1000 + rand.IntN(9000))
}

// CreateRoom регистрирует новое лобби, вызывающий становится хостом
func (r *Registry) CreateRoom(nickname, avatarID string) Joined {
	host := domain.Player{
		ID:       r.opts.NewID(),
		Nickname: cleanNickname(nickname),
		AvatarID: avatarID,
		IsHost:   true,
	}

	r.mu.Lock()
	code := generateRoomCode()
	for r.rooms[code] != nil {
		code = generateRoomCode()
	}
	s := r.newSession(code, host)
	r.broadcaster.OpenRoom(code)
	r.rooms[code] = s
	total := len(r.rooms)
	r.mu.Unlock()

	metrics.RoomsActive.Inc()
	metrics.Commands.WithLabelValues("create_room", "ok").Inc()
	r.log.Info("room created", "room", code, "host", host.ID, "rooms", total)

	snap := s.Snapshot()
	r.broadcaster.Publish(code, snap)
	return Joined{RoomCode: code, PlayerID: host.ID, State: snap}
}

func (r *Registry) newSession(code string, host domain.Player) *Session {
	return newSession(code, host, sessionConfig{
		sched:         NewScheduler(r.opts.TickInterval, r.opts.NewTicker),
		rng:           r.opts.NewRand(),
		botTickChance: r.opts.BotTickChance,
		botActChance:  r.opts.BotActChance,
		newID:         r.opts.NewID,
		publish: func(st domain.GameState) {
			r.broadcaster.Publish(code, st)
		},
		onFinish: r.gameFinished,
	})
}

func (r *Registry) get(code string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.rooms[code]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return s, nil
}

func (r *Registry) Exists(code string) bool {
	_, err := r.get(code)
	return err == nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// JoinRoom добавляет игрока (не хоста). Ники не дедуплицируются
func (r *Registry) JoinRoom(code, nickname, avatarID string) (Joined, error) {
	s, err := r.get(code)
	if err != nil {
		metrics.Commands.WithLabelValues("join_room", "error").Inc()
		return Joined{}, err
	}
	p, snap, err := s.join(nickname, avatarID)
	metrics.Commands.WithLabelValues("join_room", metrics.CommandResult(err)).Inc()
	if err != nil {
		return Joined{}, err
	}
	return Joined{RoomCode: code, PlayerID: p.ID, State: snap}, nil
}

// ConfigureRoom сохраняет вопросы, totalRounds = их количество
func (r *Registry) ConfigureRoom(code string, settings domain.Settings, questions []domain.Question) error {
	return r.do("configure_room", code, func(s *Session) error {
		return s.configure(settings, questions)
	})
}

// StartGame возвращает ErrNotReady, пока нет вопросов
func (r *Registry) StartGame(code string) error {
	return r.do("start_game", code, func(s *Session) error {
		return s.start()
	})
}

func (r *Registry) SubmitBluff(code, playerID, text string) error {
	return r.do("submit_bluff", code, func(s *Session) error {
		return s.submitBluff(playerID, text)
	})
}

func (r *Registry) SubmitVote(code, playerID, optionID string) error {
	return r.do("submit_vote", code, func(s *Session) error {
		return s.submitVote(playerID, optionID)
	})
}

func (r *Registry) AddBot(code string) (domain.Player, error) {
	var bot domain.Player
	err := r.do("add_bot", code, func(s *Session) error {
		var err error
		bot, err = s.addBot()
		return err
	})
	return bot, err
}

// LeaveRoom убирает игрока и закрывает комнату, если ушёл хост или не осталось людей
func (r *Registry) LeaveRoom(code, playerID string) error {
	return r.do("leave_room", code, func(s *Session) error {
		abandon, err := s.leave(playerID)
		if err != nil {
			return err
		}
		if abandon {
			r.Close(code)
		}
		return nil
	})
}

func (r *Registry) Snapshot(code string) (domain.GameState, error) {
	s, err := r.get(code)
	if err != nil {
		return domain.GameState{}, err
	}
	return s.Snapshot(), nil
}

func (r *Registry) Player(code, playerID string) (domain.Player, error) {
	s, err := r.get(code)
	if err != nil {
		return domain.Player{}, err
	}
	p, ok := s.Player(playerID)
	if !ok {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return p, nil
}

func (r *Registry) do(command, code string, fn func(*Session) error) error {
	s, err := r.get(code)
	if err == nil {
		err = fn(s)
	}
	metrics.Commands.WithLabelValues(command, metrics.CommandResult(err)).Inc()
	if err != nil {
		r.log.Debug("command rejected", "command", command, "room", code, "error", err)
	}
	return err
}

// Close останавливает планировщик комнаты и удаляет её
func (r *Registry) Close(code string) {
	r.mu.Lock()
	s, ok := r.rooms[code]
	if ok {
		delete(r.rooms, code)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	s.close()
	s.mute()
	r.broadcaster.CloseRoom(code)
	metrics.RoomsActive.Dec()
	r.log.Info("room closed", "room", code)
}

// Shutdown закрывает все комнаты и ждёт хуки завершения
func (r *Registry) Shutdown() {
	r.mu.RLock()
	codes := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		codes = append(codes, code)
	}
	r.mu.RUnlock()

	for _, code := range codes {
		r.Close(code)
	}

	// Add и Wait не должны пересекаться
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.finishWG.Wait()
}

func (r *Registry) gameFinished(st domain.GameState) {
	metrics.GamesFinished.WithLabelValues(string(st.Mode)).Inc()
	if len(r.opts.OnFinish) == 0 {
		return
	}

	r.mu.RLock()
	if r.stopped {
		r.mu.RUnlock()
		r.log.Warn("game finished after shutdown, hooks skipped", "room", st.RoomCode)
		return
	}
	r.finishWG.Add(len(r.opts.OnFinish))
	r.mu.RUnlock()

	summary := domain.SummaryFromState(st, time.Now())
	for _, fn := range r.opts.OnFinish {
		go func(fn FinishFunc) {
			defer r.finishWG.Done()
			ctx, cancel := context.WithTimeout(context.Background(), r.opts.FinishTimeout)
			defer cancel()
			if err := fn(ctx, summary); err != nil {
				r.log.Error("finish hook failed", "room", summary.RoomCode, "error", err)
			}
		}(fn)
	}
}

// StartCleanup периодически закрывает комнаты без подписчиков,
// простаивающие дольше IdleTTL
func (r *Registry) StartCleanup(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				r.sweepIdle(now)
			}
		}
	}()
}

func (r *Registry) sweepIdle(now time.Time) int {
	r.mu.RLock()
	var stale []string
	for code, s := range r.rooms {
		if r.broadcaster.Subscribers(code) > 0 {
			continue
		}
		if now.Sub(s.IdleSince()) > r.opts.IdleTTL {
			stale = append(stale, code)
		}
	}
	r.mu.RUnlock()

	for _, code := range stale {
		r.log.Info("closing idle room", "room", code)
		r.Close(code)
	}
	return len(stale)
}
