package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quibluff/internal/domain"
)

func TestSimulateBots_Bluffing(t *testing.T) {
	s := stateWith(domain.ModeBluff,
		domain.Player{ID: "h"},
		domain.Player{ID: "bot-0", IsBot: true},
		domain.Player{ID: "bot-1", IsBot: true, CurrentBluff: "already"},
	)
	StartRound(&s, domain.Question{ID: "q", CorrectAnswer: "Paris"}, 1)
	s.Players[2].CurrentBluff = "already"

	changed := SimulateBots(&s, newRng(), 1)

	assert.True(t, changed)
	assert.Empty(t, s.Players[0].CurrentBluff, "humans are never touched")
	assert.NotEmpty(t, s.Players[1].CurrentBluff)
	assert.NotEqual(t, "already", s.Players[1].CurrentBluff)
	assert.Equal(t, "already", s.Players[2].CurrentBluff)
}

func TestSimulateBots_ZeroChanceDoesNothing(t *testing.T) {
	s := stateWith(domain.ModeBluff, domain.Player{ID: "h"}, domain.Player{ID: "bot-0", IsBot: true})
	StartRound(&s, domain.Question{ID: "q", CorrectAnswer: "Paris"}, 1)

	assert.False(t, SimulateBots(&s, newRng(), 0))
	assert.Empty(t, s.Players[1].CurrentBluff)
}

func TestSimulateBots_VotingNeverPicksOwnBluff(t *testing.T) {
	for i := 0; i < 50; i++ {
		s := stateWith(domain.ModeBluff, domain.Player{ID: "h"}, domain.Player{ID: "bot-0", IsBot: true})
		s.CurrentPhase = domain.PhaseVoting
		s.CurrentQuestion = &domain.Question{CorrectAnswer: "Paris"}
		s.CurrentOptions = []domain.AnswerOption{
			{ID: "real", Text: "Paris", AuthorID: domain.SystemAuthor},
			{ID: "bluff-bot-0", Text: "Lyon", AuthorID: "bot-0"},
		}

		require.True(t, SimulateBots(&s, newRng(), 1))
		assert.Equal(t, "real", s.Players[1].SelectedAnswerID)
	}
}

func TestSimulateBots_KeepsExistingVote(t *testing.T) {
	s := stateWith(domain.ModeClassic, domain.Player{ID: "h"}, domain.Player{ID: "bot-0", IsBot: true})
	StartRound(&s, classicQuestion("q1", "A"), 1)
	s.Players[1].SelectedAnswerID = "q1-a"

	assert.False(t, SimulateBots(&s, newRng(), 1))
	assert.Equal(t, "q1-a", s.Players[1].SelectedAnswerID)
}

func TestBotBluff_AvoidsAnswerAndUsedTexts(t *testing.T) {
	bot := domain.Player{ID: "bot-0", Nickname: "Randomizer", IsBot: true}
	other := domain.Player{ID: "bot-1", Nickname: "Mr. Wiseguy", IsBot: true, CurrentBluff: fillerBluffs[2] + " (Mr. Wiseguy)"}
	s := stateWith(domain.ModeBluff, domain.Player{ID: "h", CurrentBluff: fillerBluffs[0]}, other, bot)
	s.CurrentQuestion = &domain.Question{CorrectAnswer: fillerBluffs[1]}

	rng := newRng()
	for i := 0; i < 100; i++ {
		b := BotBluff(s, bot, rng)
		require.True(t, strings.HasSuffix(b, " (Randomizer)"), b)
		filler := strings.TrimSuffix(b, " (Randomizer)")
		assert.NotEqual(t, fillerBluffs[0], filler)
		assert.NotEqual(t, fillerBluffs[1], filler)
		assert.NotEqual(t, fillerBluffs[2], filler)
	}
}

func TestSimulateBots_BluffsCarryNickname(t *testing.T) {
	s := stateWith(domain.ModeBluff,
		domain.Player{ID: "h"},
		domain.Player{ID: "bot-0", Nickname: BotNames[0], IsBot: true},
		domain.Player{ID: "bot-1", Nickname: BotNames[1], IsBot: true},
	)
	StartRound(&s, domain.Question{ID: "q1", CorrectAnswer: "Paris"}, 1)

	require.True(t, SimulateBots(&s, newRng(), 1))

	for _, p := range s.Players[1:] {
		assert.True(t, strings.HasSuffix(p.CurrentBluff, " ("+p.Nickname+")"), p.CurrentBluff)
	}
	assert.NotEqual(t, s.Players[1].CurrentBluff, s.Players[2].CurrentBluff)
}

func TestVotableOptions(t *testing.T) {
	s := domain.GameState{CurrentOptions: []domain.AnswerOption{
		{ID: "real", AuthorID: domain.SystemAuthor},
		{ID: "bluff-a", AuthorID: "a"},
		{ID: "bluff-b", AuthorID: "b"},
	}}

	opts := VotableOptions(s, "a")

	require.Len(t, opts, 2)
	for _, o := range opts {
		assert.NotEqual(t, "a", o.AuthorID)
	}
}
