package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quibluff/internal/domain"
)

func votingState(players ...domain.Player) domain.GameState {
	s := stateWith(domain.ModeBluff, players...)
	s.CurrentPhase = domain.PhaseVoting
	s.CurrentQuestion = &domain.Question{ID: "q1", CorrectAnswer: "Paris"}
	s.CurrentOptions = []domain.AnswerOption{{ID: "real", Text: "Paris", AuthorID: domain.SystemAuthor}}
	for _, p := range s.Players {
		if p.CurrentBluff != "" {
			s.CurrentOptions = append(s.CurrentOptions, domain.AnswerOption{ID: "bluff-" + p.ID, Text: p.CurrentBluff, AuthorID: p.ID})
		}
	}
	return s
}

func TestScore_BothCorrect(t *testing.T) {
	s := votingState(
		domain.Player{ID: "a", SelectedAnswerID: "real"},
		domain.Player{ID: "b", SelectedAnswerID: "real"},
	)

	deltas := Score(s)

	assert.Equal(t, map[string]int{"a": 1000, "b": 1000}, deltas)
}

func TestScore_FoolingIsPerVoter(t *testing.T) {
	s := votingState(
		domain.Player{ID: "a", CurrentBluff: "Lyon", SelectedAnswerID: "real"},
		domain.Player{ID: "b", SelectedAnswerID: "bluff-a"},
		domain.Player{ID: "c", SelectedAnswerID: "bluff-a"},
	)

	deltas := Score(s)

	assert.Equal(t, 1000+2*500, deltas["a"])
	assert.Zero(t, deltas["b"])
	assert.Zero(t, deltas["c"])
}

func TestScore_BluffMatchingAnswerCountsAsCorrect(t *testing.T) {
	s := votingState(
		domain.Player{ID: "a", CurrentBluff: "Paris"},
		domain.Player{ID: "b", SelectedAnswerID: "bluff-a"},
	)

	deltas := Score(s)

	assert.Equal(t, 1000, deltas["b"])
	assert.Zero(t, deltas["a"], "a correct option earns its author nothing")
}

func TestScore_SelfVoteEarnsNothing(t *testing.T) {
	s := votingState(domain.Player{ID: "a", CurrentBluff: "Lyon", SelectedAnswerID: "bluff-a"})
	assert.Empty(t, Score(s))
}

func TestScore_ClassicDistractorsAreNotAuthors(t *testing.T) {
	s := votingState(domain.Player{ID: "a", SelectedAnswerID: "d1"})
	s.CurrentOptions = append(s.CurrentOptions, domain.AnswerOption{ID: "d1", Text: "Berlin", AuthorID: domain.SystemAuthor})
	assert.Empty(t, Score(s))
}

func TestScore_TotalDelta(t *testing.T) {
	s := votingState(
		domain.Player{ID: "a", CurrentBluff: "Lyon", SelectedAnswerID: "bluff-b", Score: 200},
		domain.Player{ID: "b", CurrentBluff: "Nice", SelectedAnswerID: "real", Score: 300},
		domain.Player{ID: "c", SelectedAnswerID: "bluff-a"},
		domain.Player{ID: "d", SelectedAnswerID: "bluff-a"},
		domain.Player{ID: "e", SelectedAnswerID: "real"},
		domain.Player{ID: "f"},
	)
	before := map[string]int{}
	total := 0
	for _, p := range s.Players {
		before[p.ID] = p.Score
		total += p.Score
	}

	ApplyScores(&s, Score(s))

	after := 0
	for _, p := range s.Players {
		assert.GreaterOrEqual(t, p.Score, before[p.ID])
		after += p.Score
	}
	correctVoters, foolingVotes := 2, 3
	assert.Equal(t, 1000*correctVoters+500*foolingVotes, after-total)
}
