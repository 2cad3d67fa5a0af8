package script

import (
	"log"
	"sync"
	"time"
)

// Scheduler holds parked script continuations, sorted by resume time. The
// coordinator's tick loop pops the due ones and hands them back to the
// interpreter, so a waiting script never occupies a goroutine.
type Scheduler struct {
	mu          sync.Mutex
	pending     []*Pending
	maxPerActor int
}

// NewScheduler creates a scheduler with a per-actor cap on parked
// continuations, so a runaway actor cannot flood the queue.
func NewScheduler() *Scheduler {
	return &Scheduler{maxPerActor: 100}
}

// Add parks a continuation, inserted sorted by ResumeAt.
func (s *Scheduler) Add(p *Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxPerActor > 0 {
		count := 0
		for _, e := range s.pending {
			if e.Actor.ID == p.Actor.ID {
				count++
			}
		}
		if count >= s.maxPerActor {
			log.Printf("script: dropping continuation for %s, per-actor limit (%d) reached",
				p.Actor.ID, s.maxPerActor)
			return
		}
	}
	inserted := false
	for i, e := range s.pending {
		if p.ResumeAt.Before(e.ResumeAt) {
			s.pending = append(s.pending[:i+1], s.pending[i:]...)
			s.pending[i] = p
			inserted = true
			break
		}
	}
	if !inserted {
		s.pending = append(s.pending, p)
	}
}

// Due removes and returns the continuations whose resume time has come.
func (s *Scheduler) Due(now time.Time) []*Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := 0
	for i < len(s.pending) && !s.pending[i].ResumeAt.After(now) {
		i++
	}
	if i == 0 {
		return nil
	}
	due := s.pending[:i]
	s.pending = append([]*Pending(nil), s.pending[i:]...)
	return due
}

// Len returns the number of parked continuations.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// DropActor discards all parked continuations for an actor. Returns the
// number removed.
func (s *Scheduler) DropActor(actorID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*Pending
	dropped := 0
	for _, e := range s.pending {
		if e.Actor.ID == actorID {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	s.pending = kept
	return dropped
}
