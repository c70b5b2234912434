package domain

// Поля сериализуются в camelCase: фронтенд читает game_state_update как есть
type GameMode string

const (
	ModeBluff   GameMode = "BLUFF"
	ModeClassic GameMode = "CLASSIC"
)

func (m GameMode) Valid() bool {
	return m == ModeBluff || m == ModeClassic
}

type Phase string

const (
	PhaseLobby       Phase = "LOBBY"
	PhaseSettings    Phase = "SETTINGS"
	PhaseBluffing    Phase = "BLUFFING"
	PhaseVoting      Phase = "VOTING"
	PhaseResult      Phase = "RESULT"
	PhaseLeaderboard Phase = "LEADERBOARD"
)

// SystemAuthor: автор правильного ответа и дистракторов classic-режима
const SystemAuthor = "SYSTEM"

// Длительности фаз в секундах
const (
	BluffingSeconds    = 45
	VotingSeconds      = 30
	ResultSeconds      = 10
	LeaderboardSeconds = 5
)

// Очки за раунд
const (
	CorrectGuessPoints = 1000
	FooledPlayerPoints = 500
)

const (
	DefaultRounds          = 5
	DefaultTimePerQuestion = 30
	MaxRounds              = 20
)

type Player struct {
	ID               string `json:"id"`
	Nickname         string `json:"nickname"`
	AvatarID         string `json:"avatarId"`
	Score            int    `json:"score"`
	IsHost           bool   `json:"isHost"`
	IsBot            bool   `json:"isBot,omitempty"`
	CurrentBluff     string `json:"currentBluff,omitempty"`
	SelectedAnswerID string `json:"selectedAnswerId,omitempty"`
}

// ResetRound очищает поля, которые живут один раунд
func (p *Player) ResetRound() {
	p.CurrentBluff = ""
	p.SelectedAnswerID = ""
}

type AnswerOption struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	AuthorID string `json:"authorId"`
}

type Question struct {
	ID            string         `json:"id"`
	Text          string         `json:"text"`
	CorrectAnswer string         `json:"correctAnswer"`
	Category      string         `json:"category,omitempty"`
	Options       []AnswerOption `json:"options,omitempty"`
}

// Settings приходят от хоста при настройке комнаты
type Settings struct {
	Mode   GameMode `json:"mode"`
	Rounds int      `json:"rounds"`
	Time   int      `json:"time"`
	Topic  string   `json:"topic"`
}

func DefaultSettings() Settings {
	return Settings{
		Mode:   ModeBluff,
		Rounds: DefaultRounds,
		Time:   DefaultTimePerQuestion,
		Topic:  "general knowledge",
	}
}

type GameState struct {
	RoomCode        string         `json:"roomCode"`
	Players         []Player       `json:"players"`
	Mode            GameMode       `json:"mode"`
	Topic           string         `json:"topic,omitempty"`
	CurrentPhase    Phase          `json:"currentPhase"`
	CurrentRound    int            `json:"currentRound"`
	TotalRounds     int            `json:"totalRounds"`
	TimePerQuestion int            `json:"timePerQuestion"`
	CurrentQuestion *Question      `json:"currentQuestion,omitempty"`
	CurrentOptions  []AnswerOption `json:"currentOptions"`
	TimeLeft        int            `json:"timeLeft"`
	Winner          *Player        `json:"winner,omitempty"`
	Version         uint64         `json:"version"`
}

// NewGameState создаёт лобби, в котором пока только хост
func NewGameState(code string, host Player) GameState {
	host.IsHost = true
	return GameState{
		RoomCode:        code,
		Players:         []Player{host},
		Mode:            ModeBluff,
		CurrentPhase:    PhaseLobby,
		TotalRounds:     DefaultRounds,
		TimePerQuestion: DefaultTimePerQuestion,
		CurrentOptions:  []AnswerOption{},
	}
}

func (s *GameState) Player(id string) (*Player, bool) {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i], true
		}
	}
	return nil, false
}

func (s *GameState) Option(id string) (AnswerOption, bool) {
	for _, o := range s.CurrentOptions {
		if o.ID == id {
			return o, true
		}
	}
	return AnswerOption{}, false
}

// IsCorrect сравнивает по тексту: в classic-режиме дистракторы тоже
// системные, поэтому автор не подходит
func (s *GameState) IsCorrect(o AnswerOption) bool {
	return s.CurrentQuestion != nil && o.Text == s.CurrentQuestion.CorrectAnswer
}

// игра окончена, когда в финальном лидерборде есть победитель
func (s *GameState) IsOver() bool {
	return s.CurrentPhase == PhaseLeaderboard && s.Winner != nil
}

// идёт цикл раундов
func (s *GameState) InRound() bool {
	switch s.CurrentPhase {
	case PhaseBluffing, PhaseVoting, PhaseResult:
		return true
	case PhaseLeaderboard:
		return s.Winner == nil
	}
	return false
}

func (s *GameState) HumanCount() int {
	n := 0
	for _, p := range s.Players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

// Clone делает глубокую копию, которую можно отдавать другим горутинам
func (s GameState) Clone() GameState {
	out := s
	out.Players = append([]Player(nil), s.Players...)
	out.CurrentOptions = append([]AnswerOption{}, s.CurrentOptions...)
	if s.CurrentQuestion != nil {
		q := s.CurrentQuestion.Clone()
		out.CurrentQuestion = &q
	}
	if s.Winner != nil {
		w := *s.Winner
		out.Winner = &w
	}
	return out
}

func (q Question) Clone() Question {
	out := q
	if q.Options != nil {
		out.Options = append([]AnswerOption(nil), q.Options...)
	}
	return out
}
