package review

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lewtec/revisor/internal/domain"
)

// Clock abstracts timer creation so the debounce can be driven by a
// fake in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled call that can be stopped before it fires.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// Saver persists per-image annotation lists after a quiet period.
// Every dirty mark re-arms the timer, superseding the pending save;
// edits during an in-flight save simply produce a subsequent one.
// Failures are logged, not retried.
type Saver struct {
	repo     domain.AnnotationRepository
	source   func(imageID string) []*domain.Annotation
	debounce time.Duration
	clock    Clock

	mu      sync.Mutex
	pending map[string]Timer
}

// NewSaver creates a Saver. source must return the current annotation
// list for an image; a nil clock means the wall clock.
func NewSaver(repo domain.AnnotationRepository, source func(imageID string) []*domain.Annotation, debounce time.Duration, clock Clock) *Saver {
	if clock == nil {
		clock = RealClock
	}
	return &Saver{
		repo:     repo,
		source:   source,
		debounce: debounce,
		clock:    clock,
		pending:  map[string]Timer{},
	}
}

// MarkDirty schedules a save for an image, replacing any pending one.
func (s *Saver) MarkDirty(imageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[imageID]; ok {
		t.Stop()
	}
	s.pending[imageID] = s.clock.AfterFunc(s.debounce, func() {
		s.flush(imageID)
	})
}

func (s *Saver) flush(imageID string) {
	s.mu.Lock()
	delete(s.pending, imageID)
	s.mu.Unlock()
	s.save(imageID)
}

// Flush saves every image with a pending timer immediately, for
// shutdown.
func (s *Saver) Flush() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.pending))
	for id, t := range s.pending {
		t.Stop()
		ids = append(ids, id)
	}
	s.pending = map[string]Timer{}
	s.mu.Unlock()
	for _, id := range ids {
		s.save(id)
	}
}

func (s *Saver) save(imageID string) {
	annotations := s.source(imageID)
	if err := s.repo.ReplaceForImage(context.Background(), imageID, annotations); err != nil {
		log.Printf("saver: while saving %d annotations for image %s: %s", len(annotations), imageID, err)
		return
	}
	log.Printf("saver: saved %d annotations for image %s", len(annotations), imageID)
}
