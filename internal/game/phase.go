package game

import (
	"math/rand/v2"

	"quibluff/internal/domain"
)

const (
	realOptionID      = "real"
	bluffOptionPrefix = "bluff-"
)

// Transition описывает один переход фазы
type Transition struct {
	From     domain.Phase
	To       domain.Phase
	Deltas   map[string]int // очки за переход VOTING -> RESULT
	Finished bool           // игра дошла до финального лидерборда
}

// StartRound загружает вопрос q как раунд round и открывает первую фазу:
// BLUFFING в режиме блефа, VOTING с готовыми вариантами в classic
func StartRound(s *domain.GameState, q domain.Question, round int) {
	s.CurrentRound = round
	cq := q.Clone()
	s.CurrentQuestion = &cq
	for i := range s.Players {
		s.Players[i].ResetRound()
	}

	if s.Mode == domain.ModeClassic {
		s.CurrentPhase = domain.PhaseVoting
		s.CurrentOptions = append([]domain.AnswerOption{}, q.Options...)
		s.TimeLeft = s.TimePerQuestion
		return
	}
	s.CurrentPhase = domain.PhaseBluffing
	s.CurrentOptions = []domain.AnswerOption{}
	s.TimeLeft = domain.BluffingSeconds
}

// Advance выполняет переход, когда timeLeft дошёл до нуля. Фазы вне цикла
// раундов и законченную игру не трогает
func Advance(s *domain.GameState, questions []domain.Question, rng *rand.Rand) Transition {
	t := Transition{From: s.CurrentPhase, To: s.CurrentPhase}
	if s.IsOver() {
		return t
	}

	switch s.CurrentPhase {
	case domain.PhaseBluffing:
		if s.CurrentQuestion == nil {
			Finish(s)
			t.Finished = true
			break
		}
		s.CurrentOptions = BuildBluffOptions(s, rng)
		s.CurrentPhase = domain.PhaseVoting
		s.TimeLeft = domain.VotingSeconds

	case domain.PhaseVoting:
		t.Deltas = Score(*s)
		ApplyScores(s, t.Deltas)
		s.CurrentPhase = domain.PhaseResult
		s.TimeLeft = domain.ResultSeconds

	case domain.PhaseResult:
		s.CurrentPhase = domain.PhaseLeaderboard
		s.TimeLeft = domain.LeaderboardSeconds

	case domain.PhaseLeaderboard:
		next := s.CurrentRound + 1
		// нехватка вопросов тоже завершает игру, а не роняет её
		if next > s.TotalRounds || next > len(questions) {
			Finish(s)
			t.Finished = true
			break
		}
		StartRound(s, questions[next-1], next)
	}

	t.To = s.CurrentPhase
	return t
}

// BuildBluffOptions собирает правильный ответ и все блефы в перемешанный список.
// Боты без блефа получают заготовку, чтобы за них тоже можно было голосовать
func BuildBluffOptions(s *domain.GameState, rng *rand.Rand) []domain.AnswerOption {
	opts := []domain.AnswerOption{{
		ID:       realOptionID,
		Text:     s.CurrentQuestion.CorrectAnswer,
		AuthorID: domain.SystemAuthor,
	}}
	for i := range s.Players {
		p := &s.Players[i]
		if p.CurrentBluff == "" && p.IsBot {
			p.CurrentBluff = BotBluff(*s, *p, rng)
		}
		if p.CurrentBluff == "" {
			continue
		}
		opts = append(opts, domain.AnswerOption{
			ID:       bluffOptionPrefix + p.ID,
			Text:     p.CurrentBluff,
			AuthorID: p.ID,
		})
	}
	Shuffle(opts, rng)
	return opts
}

// Finish завершает игру: финальный лидерборд с победителем
func Finish(s *domain.GameState) {
	s.CurrentPhase = domain.PhaseLeaderboard
	s.TimeLeft = 0
	s.Winner = Winner(s.Players)
}

// при равенстве очков побеждает тот, кто зашёл раньше
func Winner(players []domain.Player) *domain.Player {
	if len(players) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(players); i++ {
		if players[i].Score > players[best].Score {
			best = i
		}
	}
	w := players[best]
	return &w
}

// Shuffle: Фишер-Йейтс без смещения
func Shuffle(opts []domain.AnswerOption, rng *rand.Rand) {
	rng.Shuffle(len(opts), func(i, j int) {
		opts[i], opts[j] = opts[j], opts[i]
	})
}
