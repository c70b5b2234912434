// Package questions готовит список вопросов до начала игры.
package questions

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"

	"quibluff/internal/domain"
)

// ErrNoQuestions: провайдер не дал ничего пригодного
var ErrNoQuestions = errors.New("no questions generated")

// Provider генерирует count вопросов по теме. Classic-вопросы приходят с готовыми
// вариантами, вопросы для блефа только с правильным ответом
type Provider interface {
	Generate(ctx context.Context, topic string, count int, mode domain.GameMode) ([]domain.Question, error)
}

const (
	ClassicDistractors = 3
	MaxQuestions       = domain.MaxRounds
)

// ClampCount держит число раундов в допустимых пределах
func ClampCount(n int) int {
	switch {
	case n <= 0:
		return domain.DefaultRounds
	case n > MaxQuestions:
		return MaxQuestions
	default:
		return n
	}
}

// BuildClassicOptions: правильный ответ и ровно три дистрактора, перемешанные.
// Недостающие дистракторы заполняются заглушками
func BuildClassicOptions(index int, correct string, wrong []string, rng *rand.Rand) []domain.AnswerOption {
	opts := make([]domain.AnswerOption, 0, ClassicDistractors+1)
	opts = append(opts, domain.AnswerOption{
		ID:       optionID(index, "real"),
		Text:     correct,
		AuthorID: domain.SystemAuthor,
	})

	used := map[string]bool{correct: true}
	for _, w := range wrong {
		if len(opts) == ClassicDistractors+1 {
			break
		}
		if w == "" || used[w] {
			continue
		}
		used[w] = true
		opts = append(opts, domain.AnswerOption{
			ID:       optionID(index, "wrong-"+strconv.Itoa(len(opts)-1)),
			Text:     w,
			AuthorID: domain.SystemAuthor,
		})
	}
	for pad := 1; len(opts) < ClassicDistractors+1; pad++ {
		text := "Option " + strconv.Itoa(pad)
		if used[text] {
			continue
		}
		used[text] = true
		opts = append(opts, domain.AnswerOption{
			ID:       optionID(index, "wrong-"+strconv.Itoa(len(opts)-1)),
			Text:     text,
			AuthorID: domain.SystemAuthor,
		})
	}

	rng.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
	return opts
}

func optionID(index int, suffix string) string {
	return "q" + strconv.Itoa(index) + "-" + suffix
}
