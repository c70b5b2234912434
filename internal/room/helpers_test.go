package room

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quibluff/internal/domain"
)

// fakeClock выдаёт тикеры, которые срабатывают только по команде теста
type fakeClock struct {
	mu      sync.Mutex
	chans   []chan time.Time
	active  int
	created int
}

func (f *fakeClock) NewTicker(time.Duration) (<-chan time.Time, func()) {
	c := make(chan time.Time)
	f.mu.Lock()
	f.chans = append(f.chans, c)
	f.active++
	f.created++
	f.mu.Unlock()

	var once sync.Once
	return c, func() {
		once.Do(func() {
			f.mu.Lock()
			f.active--
			f.mu.Unlock()
		})
	}
}

func (f *fakeClock) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeClock) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

// fire отправляет тик в тикер i; false, если никто не слушает
func (f *fakeClock) fire(i int) bool {
	f.mu.Lock()
	c := f.chans[i]
	f.mu.Unlock()
	select {
	case c <- time.Now():
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	states map[string][]domain.GameState
	subs   map[string]int
	opened []string
	closed []string
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{
		states: make(map[string][]domain.GameState),
		subs:   make(map[string]int),
	}
}

func (b *recordingBroadcaster) OpenRoom(code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened = append(b.opened, code)
}

func (b *recordingBroadcaster) Publish(code string, st domain.GameState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states[code] = append(b.states[code], st)
}

func (b *recordingBroadcaster) Subscribers(code string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs[code]
}

func (b *recordingBroadcaster) CloseRoom(code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, code)
}

func (b *recordingBroadcaster) published(code string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.states[code])
}

func (b *recordingBroadcaster) last(code string) domain.GameState {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.states[code]
	return list[len(list)-1]
}

func newTestRegistry(t *testing.T, tweak ...func(*Options)) (*Registry, *recordingBroadcaster, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	b := newRecordingBroadcaster()
	var ids atomic.Int64
	opts := Options{
		TickInterval: time.Second,
		NewTicker:    clock.NewTicker,
		NewRand:      func() *rand.Rand { return rand.New(rand.NewPCG(7, 11)) },
		NewID:        func() string { return fmt.Sprintf("p%d", ids.Add(1)) },
	}
	for _, fn := range tweak {
		fn(&opts)
	}
	r := NewRegistry(b, opts)
	t.Cleanup(r.Shutdown)
	return r, b, clock
}

func session(t *testing.T, r *Registry, code string) *Session {
	t.Helper()
	s, err := r.get(code)
	require.NoError(t, err)
	return s
}

// tickOnce вызывает тик текущего цикла напрямую, как планировщик
func tickOnce(s *Session) bool {
	s.mu.Lock()
	gen := s.tickGen
	s.mu.Unlock()
	return s.tick(gen)
}

// runPhase тикает до смены фазы и возвращает новое состояние
func runPhase(t *testing.T, s *Session) domain.GameState {
	t.Helper()
	start := s.Snapshot().CurrentPhase
	for i := 0; i < 1000; i++ {
		tickOnce(s)
		if st := s.Snapshot(); st.CurrentPhase != start || st.IsOver() {
			return st
		}
	}
	t.Fatalf("phase %s never ended", start)
	return domain.GameState{}
}

func bluffQuestions(answers ...string) []domain.Question {
	qs := make([]domain.Question, len(answers))
	for i, a := range answers {
		qs[i] = domain.Question{ID: fmt.Sprintf("q%d", i+1), Text: "where?", CorrectAnswer: a}
	}
	return qs
}

func classicQuestion(answer string) domain.Question {
	return domain.Question{
		ID:            "c1",
		Text:          "capital of France?",
		CorrectAnswer: answer,
		Options: []domain.AnswerOption{
			{ID: "c1-1", Text: "Lyon", AuthorID: domain.SystemAuthor},
			{ID: "c1-2", Text: answer, AuthorID: domain.SystemAuthor},
			{ID: "c1-3", Text: "Nice", AuthorID: domain.SystemAuthor},
			{ID: "c1-4", Text: "Lille", AuthorID: domain.SystemAuthor},
		},
	}
}
