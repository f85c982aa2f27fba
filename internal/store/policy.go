package store

import (
	"log"

	"github.com/lewtec/revisor/internal/domain"
)

// TransitionPolicy decides what happens to a verification-state change
// that falls outside the workflow table. The store consults the policy
// on every explicit state change; swapping policies never requires
// touching call sites.
type TransitionPolicy interface {
	// Allow reports whether the transition may be applied.
	Allow(annotationID string, from, to domain.State) bool
}

// WarnAndAllow logs transitions outside the workflow table but applies
// them anyway. This is the historical behavior of the review tool,
// kept as the default so a reviewer is never blocked by the workflow.
type WarnAndAllow struct{}

func (WarnAndAllow) Allow(annotationID string, from, to domain.State) bool {
	if !domain.CanTransition(from, to) {
		log.Printf("store: transition %s -> %s on annotation %s is outside the verification workflow, applying anyway", from, to, annotationID)
	}
	return true
}

// Strict refuses transitions outside the workflow table.
type Strict struct{}

func (Strict) Allow(annotationID string, from, to domain.State) bool {
	if !domain.CanTransition(from, to) {
		log.Printf("store: transition %s -> %s on annotation %s refused", from, to, annotationID)
		return false
	}
	return true
}
