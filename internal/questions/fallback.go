package questions

import (
	"math/rand/v2"

	"quibluff/internal/domain"
)

func systemOptions(id string, texts ...string) []domain.AnswerOption {
	opts := make([]domain.AnswerOption, len(texts))
	for i, t := range texts {
		opts[i] = domain.AnswerOption{ID: id + "-" + string(rune('1'+i)), Text: t, AuthorID: domain.SystemAuthor}
	}
	return opts
}

// встроенные вопросы: нет провайдера или все источники упали
var fallbackQuestions = []domain.Question{
	{
		ID:            "f1",
		Text:          "Which animal is known for having rectangular pupils?",
		CorrectAnswer: "Goat",
		Category:      "animals",
		Options:       systemOptions("f1", "Goat", "Cat", "Snake", "Horse"),
	},
	{
		ID:            "f2",
		Text:          "What was the first toy ever advertised on television?",
		CorrectAnswer: "Mr. Potato Head",
		Category:      "history",
		Options:       systemOptions("f2", "Mr. Potato Head", "Barbie", "Lego", "Monopoly"),
	},
	{
		ID:            "f3",
		Text:          "What is a group of flamingos called?",
		CorrectAnswer: "A flamboyance",
		Category:      "animals",
		Options:       systemOptions("f3", "A flamboyance", "A parade", "A blush", "A choir"),
	},
	{
		ID:            "f4",
		Text:          "In which country did the croque-monsieur originate?",
		CorrectAnswer: "France",
		Category:      "food",
		Options:       systemOptions("f4", "France", "Belgium", "Switzerland", "Italy"),
	},
	{
		ID:            "f5",
		Text:          "How many hearts does an octopus have?",
		CorrectAnswer: "Three",
		Category:      "science",
		Options:       systemOptions("f5", "Three", "One", "Two", "Eight"),
	},
}

// Fallback отдаёт до count встроенных вопросов. В режиме блефа без вариантов:
// их собирают с игроков
func Fallback(count int, mode domain.GameMode, rng *rand.Rand) []domain.Question {
	count = ClampCount(count)
	if count > len(fallbackQuestions) {
		count = len(fallbackQuestions)
	}
	out := make([]domain.Question, count)
	for i := range out {
		q := fallbackQuestions[i].Clone()
		if mode == domain.ModeClassic {
			rng.Shuffle(len(q.Options), func(i, j int) { q.Options[i], q.Options[j] = q.Options[j], q.Options[i] })
		} else {
			q.Options = nil
		}
		out[i] = q
	}
	return out
}
