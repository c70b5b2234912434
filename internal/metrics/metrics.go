package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quibluff"

var (
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rooms_active",
		Help:      "Rooms currently registered.",
	})

	SchedulersRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "schedulers_running",
		Help:      "Room tick loops currently running.",
	})

	Ticks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ticks_total",
		Help:      "Authoritative ticks processed across all rooms.",
	})

	PhaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "phase_transitions_total",
		Help:      "Round phase transitions by source and target phase.",
	}, []string{"from", "to"})

	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Player commands by name and outcome.",
	}, []string{"command", "result"})

	GamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "games_finished_total",
		Help:      "Games that reached the final leaderboard.",
	}, []string{"mode"})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "subscribers",
		Help:      "Open state subscriptions (websocket and SSE).",
	})

	DroppedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_messages_total",
		Help:      "State updates dropped because a subscriber buffer was full.",
	})

	QuestionSource = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "question_batches_total",
		Help:      "Prepared question batches by source (provider, cache, fallback).",
	}, []string{"source"})
)

// CommandResult: метка результата для счётчика Commands
func CommandResult(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
