// Package store holds the authoritative per-image annotation
// collections: selection, the verification state machine, edit history
// and change notifications. Everything handed out is a snapshot copy;
// mutation only happens through the store's own methods.
package store

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/lewtec/revisor/internal/domain"
	"github.com/lewtec/revisor/internal/geometry"
)

var (
	// ErrNoImage is returned when creating without an image context.
	ErrNoImage = errors.New("store: no image context set")
	// ErrInvalidBox is returned when a new box fails minimum-size or
	// positivity validation.
	ErrInvalidBox = errors.New("store: bounding box below minimum size or outside image space")
)

// CatchAllClass absorbs class names outside the configured closed set.
const CatchAllClass = "Other"

// Options configures a Store.
type Options struct {
	// Classes is the closed class set. The catch-all is appended when
	// missing.
	Classes []string
	// MinBoxWidth/MinBoxHeight in image pixels.
	MinBoxWidth  float64
	MinBoxHeight float64
	// HistoryLimit caps the edit history; oldest entries evicted first.
	HistoryLimit int
	// Policy decides out-of-workflow state transitions. Defaults to
	// WarnAndAllow.
	Policy TransitionPolicy
	// Now is the clock, overridable in tests.
	Now func() time.Time
}

// EventKind tags a change notification.
type EventKind string

const (
	EventCreated  EventKind = "created"
	EventUpdated  EventKind = "updated"
	EventDeleted  EventKind = "deleted"
	EventSelected EventKind = "selected"
	EventLoaded   EventKind = "loaded"
)

// Event is delivered synchronously to subscribers after every change.
// Annotation is a snapshot and may be nil for load/selection-clear
// events.
type Event struct {
	Kind       EventKind
	ImageID    string
	Annotation *domain.Annotation
}

// Patch carries the fields an update wants to change; nil fields are
// left untouched. The Mask pointer distinguishes "don't touch" (nil)
// from "clear" (pointer to empty slice).
type Patch struct {
	BBox       *domain.Rect
	ClassName  *string
	Confidence *float64
	Mask       *[]domain.Point
	State      *domain.State
	Metadata   map[string]any
}

// CreateOptions carries the optional parts of a create.
type CreateOptions struct {
	// UserDrawn annotations start in the modified state instead of
	// suggested.
	UserDrawn bool
	Mask      []domain.Point
	Metadata  map[string]any
}

// Counts summarizes the current image by state.
type Counts struct {
	Suggested int `json:"suggested"`
	Modified  int `json:"modified"`
	Verified  int `json:"verified"`
	Rejected  int `json:"rejected"`
	Total     int `json:"total"`
}

type imageSet struct {
	annotations []*domain.Annotation
	selectedID  string
}

// Store owns every annotation record. It is not safe for concurrent use;
// the engine runs on a single logical thread of control and the
// surrounding application serializes access.
type Store struct {
	opts      Options
	sessionID string
	current   string
	images    map[string]*imageSet
	history   *history
	subs      []func(Event)
}

// New creates a Store. Zero-value options get workable defaults.
func New(opts Options) *Store {
	if opts.MinBoxWidth <= 0 {
		opts.MinBoxWidth = 1
	}
	if opts.MinBoxHeight <= 0 {
		opts.MinBoxHeight = 1
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	if opts.Policy == nil {
		opts.Policy = WarnAndAllow{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if !containsClass(opts.Classes, CatchAllClass) {
		opts.Classes = append(append([]string{}, opts.Classes...), CatchAllClass)
	}
	return &Store{
		opts:      opts,
		sessionID: uuid.NewString(),
		images:    map[string]*imageSet{},
		history:   newHistory(opts.HistoryLimit),
	}
}

// SessionID identifies this store instance in history entries.
func (s *Store) SessionID() string { return s.sessionID }

// Classes returns the closed class set, catch-all included.
func (s *Store) Classes() []string {
	out := make([]string, len(s.opts.Classes))
	copy(out, s.opts.Classes)
	return out
}

// Subscribe registers a change listener. Listeners run synchronously in
// the mutating call.
func (s *Store) Subscribe(fn func(Event)) {
	s.subs = append(s.subs, fn)
}

func (s *Store) notify(e Event) {
	for _, fn := range s.subs {
		fn(e)
	}
}

// SetImage switches the current image context.
func (s *Store) SetImage(imageID string) {
	s.current = imageID
	if _, ok := s.images[imageID]; !ok && imageID != "" {
		s.images[imageID] = &imageSet{}
	}
}

// CurrentImage returns the current image context, empty when unset.
func (s *Store) CurrentImage() string { return s.current }

// ClearImage drops every record for an image. Annotations do not
// outlive their image's entry.
func (s *Store) ClearImage(imageID string) {
	delete(s.images, imageID)
	if s.current == imageID {
		s.current = ""
	}
	s.notify(Event{Kind: EventLoaded, ImageID: imageID})
}

// Load installs a bulk-loaded annotation list for an image, replacing
// whatever was there. Records are cloned and coerced; an empty state
// defaults to suggested. Loads are not edits and leave no history.
func (s *Store) Load(imageID string, annotations []*domain.Annotation) {
	set := &imageSet{annotations: make([]*domain.Annotation, 0, len(annotations))}
	for _, a := range annotations {
		c := a.Clone()
		c.ImageID = imageID
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if !domain.ValidState(c.State) {
			c.State = domain.StateSuggested
		}
		c.ClassName = s.coerceClass(c.ClassName)
		c.Confidence = clampConfidence(c.Confidence)
		if c.Selected {
			set.selectedID = c.ID
		}
		set.annotations = append(set.annotations, c)
	}
	s.images[imageID] = set
	s.notify(Event{Kind: EventLoaded, ImageID: imageID})
}

// Create adds an annotation to the current image. It fails when no
// image context is set or the box fails minimum-size/positivity
// validation; class and confidence are coerced, never rejected.
func (s *Store) Create(bbox domain.Rect, className string, confidence float64, opts CreateOptions) (*domain.Annotation, error) {
	if s.current == "" {
		return nil, ErrNoImage
	}
	if !s.validBox(bbox) {
		return nil, ErrInvalidBox
	}
	now := s.opts.Now()
	state := domain.StateSuggested
	if opts.UserDrawn {
		state = domain.StateModified
	}
	a := &domain.Annotation{
		ID:         uuid.NewString(),
		ImageID:    s.current,
		BBox:       bbox,
		ClassName:  s.coerceClass(className),
		Confidence: clampConfidence(confidence),
		State:      state,
		Mask:       append([]domain.Point(nil), opts.Mask...),
		CreatedAt:  now,
		ModifiedAt: now,
		Metadata:   cloneMetadata(opts.Metadata),
	}
	set := s.set(s.current)
	set.annotations = append(set.annotations, a)
	s.history.append(HistoryEntry{
		Timestamp: now,
		Action:    ActionCreate,
		ImageID:   s.current,
		SessionID: s.sessionID,
		Snapshot:  a.Clone(),
	})
	s.notify(Event{Kind: EventCreated, ImageID: s.current, Annotation: a.Clone()})
	return a.Clone(), nil
}

// Update applies a patch to an annotation on the current image. Each
// provided field is re-validated individually; malformed values are
// clamped or coerced rather than refused. A content change while the
// annotation is still suggested promotes it to modified, unless the
// patch sets the state explicitly.
func (s *Store) Update(id string, patch Patch) bool {
	a := s.find(id)
	if a == nil {
		return false
	}
	prior := a.Clone()
	content := false

	if patch.BBox != nil {
		b := *patch.BBox
		b.X = math.Max(0, b.X)
		b.Y = math.Max(0, b.Y)
		a.BBox = geometry.ClampMinSize(b, s.opts.MinBoxWidth, s.opts.MinBoxHeight)
		content = true
	}
	if patch.ClassName != nil {
		a.ClassName = s.coerceClass(*patch.ClassName)
		content = true
	}
	if patch.Confidence != nil {
		a.Confidence = clampConfidence(*patch.Confidence)
		content = true
	}
	if patch.Mask != nil {
		a.Mask = append([]domain.Point(nil), (*patch.Mask)...)
		content = true
	}
	for k, v := range patch.Metadata {
		if a.Metadata == nil {
			a.Metadata = map[string]any{}
		}
		a.Metadata[k] = v
	}

	switch {
	case patch.State != nil && domain.ValidState(*patch.State):
		// An unknown state string is treated as absent; the promotion
		// case below still applies to it.
		if s.opts.Policy.Allow(a.ID, a.State, *patch.State) {
			a.State = *patch.State
		}
	case content && a.State == domain.StateSuggested:
		// The only automatic transition: touching content promotes a
		// suggestion to modified.
		a.State = domain.StateModified
	}

	a.ModifiedAt = s.opts.Now()
	s.history.append(HistoryEntry{
		Timestamp: a.ModifiedAt,
		Action:    ActionUpdate,
		ImageID:   a.ImageID,
		SessionID: s.sessionID,
		Snapshot:  a.Clone(),
		Prior:     prior,
	})
	s.notify(Event{Kind: EventUpdated, ImageID: a.ImageID, Annotation: a.Clone()})
	return true
}

// SetState applies an explicit verification-state change. Unknown
// states are a silent no-op; out-of-workflow transitions are decided by
// the configured policy.
func (s *Store) SetState(id string, state domain.State) bool {
	if !domain.ValidState(state) {
		return false
	}
	a := s.find(id)
	if a == nil {
		return false
	}
	if !s.opts.Policy.Allow(a.ID, a.State, state) {
		return false
	}
	prior := a.Clone()
	a.State = state
	a.ModifiedAt = s.opts.Now()
	s.history.append(HistoryEntry{
		Timestamp: a.ModifiedAt,
		Action:    ActionUpdate,
		ImageID:   a.ImageID,
		SessionID: s.sessionID,
		Snapshot:  a.Clone(),
		Prior:     prior,
	})
	s.notify(Event{Kind: EventUpdated, ImageID: a.ImageID, Annotation: a.Clone()})
	return true
}

// Delete removes an annotation from the current image, clearing the
// selection when the deleted annotation was selected.
func (s *Store) Delete(id string) bool {
	set, idx := s.locate(id)
	if idx < 0 {
		return false
	}
	a := set.annotations[idx]
	set.annotations = append(set.annotations[:idx], set.annotations[idx+1:]...)
	if set.selectedID == id {
		set.selectedID = ""
	}
	now := s.opts.Now()
	s.history.append(HistoryEntry{
		Timestamp: now,
		Action:    ActionDelete,
		ImageID:   a.ImageID,
		SessionID: s.sessionID,
		Snapshot:  a.Clone(),
	})
	s.notify(Event{Kind: EventDeleted, ImageID: a.ImageID, Annotation: a.Clone()})
	return true
}

// Select marks an annotation as the single selected one on the current
// image, deselecting any prior selection.
func (s *Store) Select(id string) bool {
	a := s.find(id)
	if a == nil {
		return false
	}
	set := s.set(s.current)
	if prev := s.find(set.selectedID); prev != nil {
		prev.Selected = false
	}
	set.selectedID = id
	a.Selected = true
	s.notify(Event{Kind: EventSelected, ImageID: a.ImageID, Annotation: a.Clone()})
	return true
}

// ClearSelection deselects whatever is selected on the current image.
func (s *Store) ClearSelection() {
	if s.current == "" {
		return
	}
	set := s.set(s.current)
	if prev := s.find(set.selectedID); prev != nil {
		prev.Selected = false
	}
	set.selectedID = ""
	s.notify(Event{Kind: EventSelected, ImageID: s.current})
}

// Selected returns the selected annotation on the current image.
func (s *Store) Selected() (*domain.Annotation, bool) {
	if s.current == "" {
		return nil, false
	}
	a := s.find(s.set(s.current).selectedID)
	if a == nil {
		return nil, false
	}
	return a.Clone(), true
}

// Get returns a snapshot of one annotation on the current image.
func (s *Store) Get(id string) (*domain.Annotation, bool) {
	a := s.find(id)
	if a == nil {
		return nil, false
	}
	return a.Clone(), true
}

// List returns snapshots of every annotation for an image, in insertion
// order. An empty imageID means the current image.
func (s *Store) List(imageID string) []*domain.Annotation {
	if imageID == "" {
		imageID = s.current
	}
	set, ok := s.images[imageID]
	if !ok {
		return nil
	}
	out := make([]*domain.Annotation, 0, len(set.annotations))
	for _, a := range set.annotations {
		out = append(out, a.Clone())
	}
	return out
}

// ListByState filters List by verification state.
func (s *Store) ListByState(state domain.State, imageID string) []*domain.Annotation {
	var out []*domain.Annotation
	for _, a := range s.List(imageID) {
		if a.State == state {
			out = append(out, a)
		}
	}
	return out
}

// Counts tallies the current image by state.
func (s *Store) Counts() Counts {
	var c Counts
	for _, a := range s.List("") {
		switch a.State {
		case domain.StateSuggested:
			c.Suggested++
		case domain.StateModified:
			c.Modified++
		case domain.StateVerified:
			c.Verified++
		case domain.StateRejected:
			c.Rejected++
		}
		c.Total++
	}
	return c
}

// History returns a copy of the edit history, oldest first.
func (s *Store) History() []HistoryEntry {
	return s.history.all()
}

func (s *Store) set(imageID string) *imageSet {
	set, ok := s.images[imageID]
	if !ok {
		set = &imageSet{}
		s.images[imageID] = set
	}
	return set
}

func (s *Store) find(id string) *domain.Annotation {
	_, idx := s.locate(id)
	if idx < 0 {
		return nil
	}
	return s.images[s.current].annotations[idx]
}

func (s *Store) locate(id string) (*imageSet, int) {
	if id == "" || s.current == "" {
		return nil, -1
	}
	set, ok := s.images[s.current]
	if !ok {
		return nil, -1
	}
	for i, a := range set.annotations {
		if a.ID == id {
			return set, i
		}
	}
	return nil, -1
}

func (s *Store) validBox(b domain.Rect) bool {
	if b.X < 0 || b.Y < 0 {
		return false
	}
	if b.Width < s.opts.MinBoxWidth || b.Height < s.opts.MinBoxHeight {
		return false
	}
	return !math.IsNaN(b.X + b.Y + b.Width + b.Height)
}

func (s *Store) coerceClass(name string) string {
	if containsClass(s.opts.Classes, name) {
		return name
	}
	return CatchAllClass
}

func containsClass(classes []string, name string) bool {
	for _, c := range classes {
		if c == name {
			return true
		}
	}
	return false
}

func clampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
