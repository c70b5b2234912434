package room

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"quibluff/internal/domain"
	"quibluff/internal/game"
	"quibluff/internal/logger"
	"quibluff/internal/metrics"
)

const (
	maxBluffLength = 80
	maxNickname    = 24
)

// Session владеет состоянием комнаты. Любое изменение (команда игрока
// или тик планировщика) идёт под mu
type Session struct {
	code string

	mu         sync.Mutex
	state      domain.GameState
	questions  []domain.Question
	sched      *Scheduler
	tickGen    uint64 // тики старого цикла игнорируются
	closed     bool
	lastActive time.Time
	rng        *rand.Rand

	botTickChance float64
	botActChance  float64
	newID         func() string

	// outMu упорядочивает отправку снапшотов и закрытие: после muted комната
	// ничего не публикует и не сообщает о конце игры
	outMu    sync.Mutex
	muted    bool
	publish  func(domain.GameState)
	onFinish func(domain.GameState)
	log      *slog.Logger
}

type sessionConfig struct {
	sched         *Scheduler
	rng           *rand.Rand
	botTickChance float64
	botActChance  float64
	newID         func() string
	publish       func(domain.GameState)
	onFinish      func(domain.GameState)
}

func newSession(code string, host domain.Player, cfg sessionConfig) *Session {
	return &Session{
		code:          code,
		state:         domain.NewGameState(code, host),
		sched:         cfg.sched,
		lastActive:    time.Now(),
		rng:           cfg.rng,
		botTickChance: cfg.botTickChance,
		botActChance:  cfg.botActChance,
		newID:         cfg.newID,
		publish:       cfg.publish,
		onFinish:      cfg.onFinish,
		log:           logger.ForRoom(code),
	}
}

// commit увеличивает версию и возвращает снапшот, mu уже взят
func (s *Session) commit(touch bool) domain.GameState {
	s.state.Version++
	if touch {
		s.lastActive = time.Now()
	}
	return s.state.Clone()
}

func (s *Session) Snapshot() domain.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) Player(id string) (domain.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.Player(id)
	if !ok {
		return domain.Player{}, false
	}
	return *p, true
}

func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) join(nickname, avatarID string) (domain.Player, domain.GameState, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Player{}, domain.GameState{}, domain.ErrRoomNotFound
	}

	p := domain.Player{
		ID:       s.newID(),
		Nickname: cleanNickname(nickname),
		AvatarID: avatarID,
	}
	s.state.Players = append(s.state.Players, p)
	snap := s.commit(true)
	s.mu.Unlock()

	s.log.Info("player joined", "player", p.ID, "nickname", p.Nickname, "players", len(snap.Players))
	s.emit(snap, false)
	return p, snap, nil
}

func (s *Session) addBot() (domain.Player, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Player{}, domain.ErrRoomNotFound
	}
	if s.state.InRound() {
		s.mu.Unlock()
		return domain.Player{}, fmt.Errorf("%w: bots join between games", domain.ErrInvalidCommand)
	}

	bots := 0
	for _, p := range s.state.Players {
		if p.IsBot {
			bots++
		}
	}
	if bots >= len(game.BotNames) {
		s.mu.Unlock()
		return domain.Player{}, fmt.Errorf("%w: room already has %d bots", domain.ErrInvalidCommand, bots)
	}

	bot := domain.Player{
		ID:       fmt.Sprintf("bot-%d", bots),
		Nickname: game.BotNames[bots],
		AvatarID: game.BotAvatars[bots%len(game.BotAvatars)],
		IsBot:    true,
	}
	s.state.Players = append(s.state.Players, bot)
	snap := s.commit(true)
	s.mu.Unlock()

	s.log.Info("bot added", "bot", bot.ID)
	s.emit(snap, false)
	return bot, nil
}

func (s *Session) configure(settings domain.Settings, questions []domain.Question) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	if s.state.InRound() {
		s.mu.Unlock()
		return fmt.Errorf("%w: game in progress", domain.ErrInvalidCommand)
	}

	prepared := make([]domain.Question, len(questions))
	for i, q := range questions {
		prepared[i] = q.Clone()
	}
	s.questions = prepared

	if settings.Mode.Valid() {
		s.state.Mode = settings.Mode
	}
	if settings.Time > 0 {
		s.state.TimePerQuestion = settings.Time
	}
	s.state.Topic = settings.Topic
	// столько раундов, сколько реально пришло вопросов
	s.state.TotalRounds = len(prepared)
	s.state.CurrentPhase = domain.PhaseSettings
	s.state.CurrentRound = 0
	s.state.CurrentQuestion = nil
	s.state.CurrentOptions = []domain.AnswerOption{}
	s.state.TimeLeft = 0
	s.state.Winner = nil
	snap := s.commit(true)
	s.mu.Unlock()

	s.log.Info("room configured", "mode", snap.Mode, "rounds", snap.TotalRounds, "requested", settings.Rounds, "topic", settings.Topic)
	s.emit(snap, false)
	return nil
}

func (s *Session) start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	if len(s.questions) == 0 {
		s.mu.Unlock()
		s.log.Warn("cannot start game: no questions prepared")
		return domain.ErrNotReady
	}

	for i := range s.state.Players {
		s.state.Players[i].Score = 0
		s.state.Players[i].ResetRound()
	}
	s.state.Winner = nil
	s.state.TotalRounds = len(s.questions)
	game.StartRound(&s.state, s.questions[0], 1)

	s.tickGen++
	gen := s.tickGen
	s.sched.Start(func() bool { return s.tick(gen) })
	snap := s.commit(true)
	s.mu.Unlock()

	s.log.Info("game started", "mode", snap.Mode, "rounds", snap.TotalRounds, "phase", snap.CurrentPhase)
	s.emit(snap, false)
	return nil
}

func (s *Session) submitBluff(playerID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > maxBluffLength {
		return fmt.Errorf("%w: bluff must be 1-%d characters", domain.ErrInvalidCommand, maxBluffLength)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	p, ok := s.state.Player(playerID)
	if !ok {
		s.mu.Unlock()
		return domain.ErrPlayerNotFound
	}
	if s.state.CurrentPhase != domain.PhaseBluffing {
		phase := s.state.CurrentPhase
		s.mu.Unlock()
		return fmt.Errorf("%w: bluffs are not accepted during %s", domain.ErrInvalidCommand, phase)
	}
	if q := s.state.CurrentQuestion; q != nil && strings.EqualFold(text, strings.TrimSpace(q.CorrectAnswer)) {
		s.mu.Unlock()
		return fmt.Errorf("%w: bluff matches the real answer", domain.ErrInvalidCommand)
	}

	p.CurrentBluff = text
	snap := s.commit(true)
	s.mu.Unlock()

	s.emit(snap, false)
	return nil
}

func (s *Session) submitVote(playerID, optionID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	p, ok := s.state.Player(playerID)
	if !ok {
		s.mu.Unlock()
		return domain.ErrPlayerNotFound
	}
	if s.state.CurrentPhase != domain.PhaseVoting {
		phase := s.state.CurrentPhase
		s.mu.Unlock()
		return fmt.Errorf("%w: votes are not accepted during %s", domain.ErrInvalidCommand, phase)
	}
	opt, ok := s.state.Option(optionID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: unknown option %q", domain.ErrInvalidCommand, optionID)
	}
	if opt.AuthorID == playerID {
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot vote for your own bluff", domain.ErrInvalidCommand)
	}

	p.SelectedAnswerID = opt.ID
	snap := s.commit(true)
	s.mu.Unlock()

	s.emit(snap, false)
	return nil
}

// leave убирает игрока. true, если комнату надо закрыть:
// ушёл хост или не осталось людей
func (s *Session) leave(playerID string) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, domain.ErrRoomNotFound
	}

	idx := -1
	for i, p := range s.state.Players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false, domain.ErrPlayerNotFound
	}

	wasHost := s.state.Players[idx].IsHost
	s.state.Players = append(s.state.Players[:idx], s.state.Players[idx+1:]...)
	if wasHost || s.state.HumanCount() == 0 {
		s.mu.Unlock()
		s.log.Info("room abandoned", "player", playerID, "host_left", wasHost)
		return true, nil
	}
	snap := s.commit(true)
	s.mu.Unlock()

	s.log.Info("player left", "player", playerID, "players", len(snap.Players))
	s.emit(snap, false)
	return false, nil
}

// один шаг отсчёта; false завершает цикл
func (s *Session) tick(gen uint64) bool {
	s.mu.Lock()
	if s.closed || gen != s.tickGen || s.state.IsOver() {
		s.mu.Unlock()
		return false
	}

	metrics.Ticks.Inc()
	var tr *game.Transition
	if s.state.TimeLeft > 0 {
		s.state.TimeLeft--
		if s.rng.Float64() < s.botTickChance {
			game.SimulateBots(&s.state, s.rng, s.botActChance)
		}
	} else {
		t := game.Advance(&s.state, s.questions, s.rng)
		tr = &t
		if t.Finished {
			s.sched.Stop()
		}
	}
	snap := s.commit(false)
	s.mu.Unlock()

	if tr != nil {
		metrics.PhaseTransitions.WithLabelValues(string(tr.From), string(tr.To)).Inc()
		s.log.Debug("phase transition", "from", tr.From, "to", tr.To, "round", snap.CurrentRound)
	}
	finished := tr != nil && tr.Finished
	if finished && snap.Winner != nil {
		s.log.Info("game over", "winner", snap.Winner.ID, "score", snap.Winner.Score)
	}
	s.emit(snap, finished)
	return !finished
}

// emit публикует снапшот, снятый под mu, а для законченной игры вызывает
// хук завершения. После mute ничего не уходит
func (s *Session) emit(snap domain.GameState, finished bool) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.muted {
		return
	}
	s.publish(snap)
	if finished {
		s.onFinish(snap)
	}
}

// mute дожидается текущего emit и блокирует все следующие
func (s *Session) mute() {
	s.outMu.Lock()
	s.muted = true
	s.outMu.Unlock()
}

// close останавливает планировщик; дальше тики и команды видят закрытую комнату
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.tickGen++
	s.sched.Stop()
}

func cleanNickname(n string) string {
	n = strings.TrimSpace(n)
	if n == "" {
		return "Player"
	}
	if utf8.RuneCountInString(n) > maxNickname {
		return string([]rune(n)[:maxNickname])
	}
	return n
}
