package domain

import "time"

// GameSummary: то, что остаётся от игры (строка архива и объявление)
type GameSummary struct {
	ID         int64     `db:"id" json:"id"`
	RoomCode   string    `db:"room_code" json:"roomCode"`
	Mode       GameMode  `db:"mode" json:"mode"`
	Topic      string    `db:"topic" json:"topic,omitempty"`
	Rounds     int       `db:"rounds" json:"rounds"`
	Winner     Player    `db:"-" json:"winner"`
	Players    []Player  `db:"players" json:"players"`
	FinishedAt time.Time `db:"finished_at" json:"finishedAt"`
}

// LeaderboardEntry: победы из архива, сгруппированные по нику
type LeaderboardEntry struct {
	Nickname  string `db:"winner_nickname" json:"nickname"`
	Wins      int64  `db:"wins" json:"wins"`
	BestScore int    `db:"best_score" json:"bestScore"`
}

// SummaryFromState собирает запись архива из финального состояния
func SummaryFromState(s GameState, finishedAt time.Time) GameSummary {
	sum := GameSummary{
		RoomCode:   s.RoomCode,
		Mode:       s.Mode,
		Topic:      s.Topic,
		Rounds:     s.TotalRounds,
		Players:    append([]Player(nil), s.Players...),
		FinishedAt: finishedAt,
	}
	if s.Winner != nil {
		sum.Winner = *s.Winner
	}
	return sum
}
