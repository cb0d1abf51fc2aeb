package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/case-framework/survey-engine/pkg/survey/types"
)

type saveFunc func(sessionID string, questionID string, value types.AnswerValue)

// answerWrite is a value bound to the session it was entered in.
type answerWrite struct {
	sessionID string
	value     types.AnswerValue
}

type pendingSave struct {
	timer *time.Timer
	write answerWrite
	seq   uint64
}

// autoSaver debounces answer writes per question. Each question has its own
// trailing-edge timer, and at most one write per question runs at a time; a
// value arriving while a write runs is written right after it, so stored
// answers follow edit order.
type autoSaver struct {
	delay time.Duration
	save  saveFunc

	mu       sync.Mutex
	seq      uint64
	pending  map[string]*pendingSave
	running  map[string]bool
	queued   map[string]answerWrite
	inflight int
	idle     *sync.Cond
}

func newAutoSaver(delay time.Duration, save saveFunc) *autoSaver {
	s := &autoSaver{
		delay:   delay,
		save:    save,
		pending: map[string]*pendingSave{},
		running: map[string]bool{},
		queued:  map[string]answerWrite{},
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Schedule (re)starts the timer of one question. Other questions' timers are
// not touched. The value is written to sessionID whatever the engine does in
// the meantime.
func (s *autoSaver) Schedule(sessionID string, questionID string, value types.AnswerValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[questionID]
	if !ok {
		p = &pendingSave{}
		s.pending[questionID] = p
	} else {
		p.timer.Stop()
	}
	s.seq++
	p.write = answerWrite{sessionID: sessionID, value: value}
	p.seq = s.seq
	seq := p.seq
	p.timer = time.AfterFunc(s.delay, func() {
		s.fire(questionID, seq)
	})
}

func (s *autoSaver) fire(questionID string, seq uint64) {
	s.mu.Lock()
	p, ok := s.pending[questionID]
	if !ok || p.seq != seq {
		// superseded by a later edit, a flush or a cancel
		s.mu.Unlock()
		return
	}
	delete(s.pending, questionID)
	start := s.dispatchLocked(questionID, p.write)
	s.mu.Unlock()

	if start {
		s.run(questionID, p.write)
	}
}

// dispatchLocked queues value behind a running write of the same question or
// reports that the caller must run it.
func (s *autoSaver) dispatchLocked(questionID string, w answerWrite) bool {
	if s.running[questionID] {
		s.queued[questionID] = w
		return false
	}
	s.running[questionID] = true
	s.inflight++
	return true
}

func (s *autoSaver) run(questionID string, w answerWrite) {
	for {
		s.save(w.sessionID, questionID, w.value)

		s.mu.Lock()
		next, ok := s.queued[questionID]
		if ok {
			delete(s.queued, questionID)
			s.mu.Unlock()
			w = next
			continue
		}
		delete(s.running, questionID)
		s.inflight--
		if s.inflight == 0 {
			s.idle.Broadcast()
		}
		s.mu.Unlock()
		return
	}
}

// Flush writes every pending value now and waits until no write is running.
func (s *autoSaver) Flush(ctx context.Context) error {
	s.mu.Lock()
	questionIDs := make([]string, 0, len(s.pending))
	for id := range s.pending {
		questionIDs = append(questionIDs, id)
	}
	sort.Strings(questionIDs)

	type job struct {
		questionID string
		write      answerWrite
	}
	jobs := []job{}
	for _, id := range questionIDs {
		p := s.pending[id]
		p.timer.Stop()
		delete(s.pending, id)
		if s.dispatchLocked(id, p.write) {
			jobs = append(jobs, job{questionID: id, write: p.write})
		}
	}
	s.mu.Unlock()

	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			// hand the rest to background writers so nothing is lost
			go s.run(j.questionID, j.write)
			continue
		}
		s.run(j.questionID, j.write)
	}
	return s.wait(ctx)
}

func (s *autoSaver) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.mu.Lock()
		for s.inflight > 0 {
			s.idle.Wait()
		}
		s.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel drops every value not yet handed to a writer.
func (s *autoSaver) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
	for id := range s.queued {
		delete(s.queued, id)
	}
}

// Pending is the number of questions with an unsaved value.
func (s *autoSaver) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) + len(s.queued)
}
