package game

import "quibluff/internal/domain"

// Score считает очки за завершённое голосование по id игрока.
// Верный выбор даёт голосующему CorrectGuessPoints, выбор чужого блефа
// даёт его автору FooledPlayerPoints
func Score(s domain.GameState) map[string]int {
	deltas := make(map[string]int)
	for _, voter := range s.Players {
		if voter.SelectedAnswerID == "" {
			continue
		}
		opt, ok := s.Option(voter.SelectedAnswerID)
		if !ok || opt.AuthorID == voter.ID {
			continue
		}
		if s.IsCorrect(opt) {
			deltas[voter.ID] += domain.CorrectGuessPoints
			continue
		}
		if opt.AuthorID == domain.SystemAuthor {
			continue
		}
		if _, ok := s.Player(opt.AuthorID); ok {
			deltas[opt.AuthorID] += domain.FooledPlayerPoints
		}
	}
	return deltas
}

// ApplyScores только добавляет, очки не уменьшаются
func ApplyScores(s *domain.GameState, deltas map[string]int) {
	for i := range s.Players {
		if d := deltas[s.Players[i].ID]; d > 0 {
			s.Players[i].Score += d
		}
	}
}
