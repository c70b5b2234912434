package game

import (
	"math/rand/v2"
	"strings"

	"quibluff/internal/domain"
)

var BotNames = []string{
	"Professor Know-It-All",
	"Mr. Wiseguy",
	"Guess Champion",
	"Randomizer",
	"Trivia Master",
}

var BotAvatars = []string{"🐶", "🐱", "🐭", "🐹", "🐰"}

var fillerBluffs = []string{
	"Definitely not this one",
	"Something funny",
	"No idea at all",
	"It must be this",
	"A bot's best bluff",
	"The usual suspect",
}

// BotBluff выбирает заготовку, которую в этом раунде ещё никто не использовал
// и которая не совпадает с ответом, и подписывает её ником бота
func BotBluff(s domain.GameState, bot domain.Player, rng *rand.Rand) string {
	return pickFiller(s, rng) + " (" + bot.Nickname + ")"
}

func pickFiller(s domain.GameState, rng *rand.Rand) string {
	used := make(map[string]bool, len(s.Players))
	for _, p := range s.Players {
		if p.CurrentBluff != "" {
			used[strings.ToLower(p.CurrentBluff)] = true
		}
	}
	if s.CurrentQuestion != nil {
		used[strings.ToLower(s.CurrentQuestion.CorrectAnswer)] = true
	}

	free := make([]string, 0, len(fillerBluffs))
	for _, b := range fillerBluffs {
		if !used[strings.ToLower(b)] {
			free = append(free, b)
		}
	}
	if len(free) == 0 {
		return fillerBluffs[rng.IntN(len(fillerBluffs))]
	}
	return free[rng.IntN(len(free))]
}

// VotableOptions: всё, кроме собственного блефа игрока
func VotableOptions(s domain.GameState, playerID string) []domain.AnswerOption {
	out := make([]domain.AnswerOption, 0, len(s.CurrentOptions))
	for _, o := range s.CurrentOptions {
		if o.AuthorID != playerID {
			out = append(out, o)
		}
	}
	return out
}

// SimulateBots: каждый бот, который ещё не сходил в текущей фазе, ходит
// с вероятностью chance. Возвращает true, если кто-то сходил
func SimulateBots(s *domain.GameState, rng *rand.Rand, chance float64) bool {
	changed := false
	for i := range s.Players {
		bot := &s.Players[i]
		if !bot.IsBot {
			continue
		}

		switch s.CurrentPhase {
		case domain.PhaseBluffing:
			if bot.CurrentBluff != "" || rng.Float64() >= chance {
				continue
			}
			bot.CurrentBluff = BotBluff(*s, *bot, rng)
			changed = true

		case domain.PhaseVoting:
			if bot.SelectedAnswerID != "" || rng.Float64() >= chance {
				continue
			}
			opts := VotableOptions(*s, bot.ID)
			if len(opts) == 0 {
				continue
			}
			bot.SelectedAnswerID = opts[rng.IntN(len(opts))].ID
			changed = true
		}
	}
	return changed
}
