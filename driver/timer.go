package driver

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// oneShot is a timer that runs its callback at most once and never after
// being cancelled.
type oneShot struct {
	timer *time.Timer
	done  *atomic.Bool
}

// timerSet tracks outstanding one-shot timers so they can be cancelled together.
type timerSet struct {
	mut    sync.Mutex
	nextID uint64
	timers map[uint64]*oneShot
}

func newTimerSet() *timerSet {
	return &timerSet{timers: make(map[uint64]*oneShot)}
}

// start schedules fire after d.
func (s *timerSet) start(d time.Duration, fire func()) {
	s.mut.Lock()
	defer s.mut.Unlock()

	id := s.nextID
	s.nextID++

	shot := &oneShot{done: atomic.NewBool(false)}
	s.timers[id] = shot

	timersTotal.WithLabelValues(timerStarted).Inc()

	shot.timer = time.AfterFunc(d, func() {
		if !shot.done.CompareAndSwap(false, true) {
			return
		}

		s.remove(id)
		timersTotal.WithLabelValues(timerFired).Inc()

		fire()
	})
}

func (s *timerSet) remove(id uint64) {
	s.mut.Lock()
	defer s.mut.Unlock()

	delete(s.timers, id)
}

// cancelAll stops every outstanding timer and returns how many were stopped.
func (s *timerSet) cancelAll() int {
	s.mut.Lock()
	defer s.mut.Unlock()

	cancelled := 0

	for id, shot := range s.timers {
		delete(s.timers, id)

		if !shot.done.CompareAndSwap(false, true) {
			continue
		}

		shot.timer.Stop()
		timersTotal.WithLabelValues(timerCancelled).Inc()

		cancelled++
	}

	return cancelled
}

func (s *timerSet) pending() int {
	s.mut.Lock()
	defer s.mut.Unlock()

	return len(s.timers)
}
