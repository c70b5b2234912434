package room

import (
	"sync"
	"time"

	"quibluff/internal/metrics"
)

// TickerFunc создаёт источник тиков, stop его освобождает
type TickerFunc func(d time.Duration) (c <-chan time.Time, stop func())

func RealTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Scheduler ведёт отсчёт одной комнаты. Цикл всегда один:
// Start сначала отменяет предыдущий
type Scheduler struct {
	interval  time.Duration
	newTicker TickerFunc

	mu   sync.Mutex
	stop chan struct{}
}

func NewScheduler(interval time.Duration, newTicker TickerFunc) *Scheduler {
	if newTicker == nil {
		newTicker = RealTicker
	}
	return &Scheduler{interval: interval, newTicker: newTicker}
}

// Start запускает цикл: tick раз в interval, пока tick не вернёт false
// или цикл не отменят
func (s *Scheduler) Start(tick func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	stop := make(chan struct{})
	s.stop = stop

	c, release := s.newTicker(s.interval)
	metrics.SchedulersRunning.Inc()
	go s.loop(c, release, stop, tick)
}

func (s *Scheduler) loop(c <-chan time.Time, release func(), stop chan struct{}, tick func() bool) {
	defer metrics.SchedulersRunning.Dec()
	defer release()

	for {
		select {
		case <-stop:
			return
		case <-c:
			// Stop мог успеть раньше, пока тик ждал
			select {
			case <-stop:
				return
			default:
			}
			if !tick() {
				s.finished(stop)
				return
			}
		}
	}
}

// цикл закончился сам; забываем его, если его ещё не заменили
func (s *Scheduler) finished(stop chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == stop {
		close(s.stop)
		s.stop = nil
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}
