package store

import (
	"testing"
	"time"

	"github.com/lewtec/revisor/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(Options{
		Classes:      []string{"Car", "Truck", "Bus", "Motorcycle", "Bicycle"},
		MinBoxWidth:  8,
		MinBoxHeight: 8,
		HistoryLimit: 100,
	})
	s.SetImage("img-1")
	return s
}

func mustCreate(t *testing.T, s *Store, opts CreateOptions) *domain.Annotation {
	t.Helper()
	a, err := s.Create(domain.Rect{X: 10, Y: 10, Width: 40, Height: 40}, "Car", 0.9, opts)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return a
}

func TestStoreCreate(t *testing.T) {
	t.Run("machine-sourced annotations start suggested", func(t *testing.T) {
		s := newTestStore(t)
		a := mustCreate(t, s, CreateOptions{})
		if a.State != domain.StateSuggested {
			t.Errorf("State = %v, want %v", a.State, domain.StateSuggested)
		}
		if a.ID == "" {
			t.Error("expected a generated id")
		}
		if a.CreatedAt.IsZero() || a.ModifiedAt.IsZero() {
			t.Error("timestamps should be set")
		}
	})

	t.Run("user-drawn annotations start modified", func(t *testing.T) {
		s := newTestStore(t)
		a := mustCreate(t, s, CreateOptions{UserDrawn: true})
		if a.State != domain.StateModified {
			t.Errorf("State = %v, want %v", a.State, domain.StateModified)
		}
	})

	t.Run("fails without an image context", func(t *testing.T) {
		s := New(Options{MinBoxWidth: 8, MinBoxHeight: 8})
		_, err := s.Create(domain.Rect{X: 0, Y: 0, Width: 40, Height: 40}, "Car", 0.5, CreateOptions{})
		if err != ErrNoImage {
			t.Errorf("Create() error = %v, want ErrNoImage", err)
		}
	})

	t.Run("rejects undersized and negative boxes", func(t *testing.T) {
		s := newTestStore(t)
		for _, bad := range []domain.Rect{
			{X: 0, Y: 0, Width: 4, Height: 40},
			{X: 0, Y: 0, Width: 40, Height: 4},
			{X: -1, Y: 0, Width: 40, Height: 40},
		} {
			if _, err := s.Create(bad, "Car", 0.5, CreateOptions{}); err != ErrInvalidBox {
				t.Errorf("Create(%+v) error = %v, want ErrInvalidBox", bad, err)
			}
		}
	})

	t.Run("coerces unknown classes to the catch-all", func(t *testing.T) {
		s := newTestStore(t)
		a, err := s.Create(domain.Rect{X: 0, Y: 0, Width: 40, Height: 40}, "Spaceship", 0.5, CreateOptions{})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if a.ClassName != CatchAllClass {
			t.Errorf("ClassName = %v, want %v", a.ClassName, CatchAllClass)
		}
	})

	t.Run("clamps confidence into the unit interval", func(t *testing.T) {
		s := newTestStore(t)
		a, _ := s.Create(domain.Rect{X: 0, Y: 0, Width: 40, Height: 40}, "Car", 1.7, CreateOptions{})
		if a.Confidence != 1 {
			t.Errorf("Confidence = %v, want 1", a.Confidence)
		}
		b, _ := s.Create(domain.Rect{X: 0, Y: 0, Width: 40, Height: 40}, "Car", -0.2, CreateOptions{})
		if b.Confidence != 0 {
			t.Errorf("Confidence = %v, want 0", b.Confidence)
		}
	})
}

func TestStoreUpdate(t *testing.T) {
	t.Run("content change promotes a suggestion to modified", func(t *testing.T) {
		s := newTestStore(t)
		a := mustCreate(t, s, CreateOptions{})
		conf := 0.4
		if !s.Update(a.ID, Patch{Confidence: &conf}) {
			t.Fatal("Update() = false")
		}
		got, _ := s.Get(a.ID)
		if got.State != domain.StateModified {
			t.Errorf("State = %v, want %v", got.State, domain.StateModified)
		}
		if got.Confidence != 0.4 {
			t.Errorf("Confidence = %v, want 0.4", got.Confidence)
		}
	})

	t.Run("explicit state change does not trigger auto-promotion", func(t *testing.T) {
		s := newTestStore(t)
		a := mustCreate(t, s, CreateOptions{UserDrawn: true})
		st := domain.StateSuggested
		if !s.Update(a.ID, Patch{State: &st}) {
			t.Fatal("Update() = false")
		}
		got, _ := s.Get(a.ID)
		if got.State != domain.StateSuggested {
			t.Errorf("State = %v, want %v (state-only patches are not content)", got.State, domain.StateSuggested)
		}
	})

	t.Run("an unknown state string is ignored but content still promotes", func(t *testing.T) {
		s := newTestStore(t)
		a := mustCreate(t, s, CreateOptions{})
		conf := 0.7
		bogus := domain.State("limbo")
		if !s.Update(a.ID, Patch{Confidence: &conf, State: &bogus}) {
			t.Fatal("Update() = false")
		}
		got, _ := s.Get(a.ID)
		if got.State != domain.StateModified {
			t.Errorf("State = %v, want %v", got.State, domain.StateModified)
		}
		if got.Confidence != 0.7 {
			t.Errorf("Confidence = %v, want 0.7", got.Confidence)
		}
	})

	t.Run("re-validates the patched box by clamping", func(t *testing.T) {
		s := newTestStore(t)
		a := mustCreate(t, s, CreateOptions{})
		bad := domain.Rect{X: -5, Y: 3, Width: 2, Height: 100}
		s.Update(a.ID, Patch{BBox: &bad})
		got, _ := s.Get(a.ID)
		want := domain.Rect{X: 0, Y: 3, Width: 8, Height: 100}
		if got.BBox != want {
			t.Errorf("BBox = %+v, want %+v", got.BBox, want)
		}
	})

	t.Run("unknown id fails", func(t *testing.T) {
		s := newTestStore(t)
		if s.Update("nope", Patch{}) {
			t.Error("Update(unknown) = true, want false")
		}
	})

	t.Run("updates the modification timestamp", func(t *testing.T) {
		now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		s := New(Options{MinBoxWidth: 8, MinBoxHeight: 8, Now: func() time.Time { return now }})
		s.SetImage("img-1")
		a := mustCreate(t, s, CreateOptions{})
		now = now.Add(time.Minute)
		cls := "Car"
		s.Update(a.ID, Patch{ClassName: &cls})
		got, _ := s.Get(a.ID)
		if !got.ModifiedAt.Equal(now) {
			t.Errorf("ModifiedAt = %v, want %v", got.ModifiedAt, now)
		}
		if !got.CreatedAt.Equal(now.Add(-time.Minute)) {
			t.Errorf("CreatedAt = %v, want unchanged", got.CreatedAt)
		}
	})
}

func TestStoreSetState(t *testing.T) {
	t.Run("applies workflow transitions", func(t *testing.T) {
		s := newTestStore(t)
		a := mustCreate(t, s, CreateOptions{})
		if !s.SetState(a.ID, domain.StateVerified) {
			t.Fatal("SetState() = false")
		}
		got, _ := s.Get(a.ID)
		if got.State != domain.StateVerified {
			t.Errorf("State = %v, want %v", got.State, domain.StateVerified)
		}
	})

	t.Run("applies out-of-workflow transitions under the default policy", func(t *testing.T) {
		s := newTestStore(t)
		a := mustCreate(t, s, CreateOptions{})
		s.SetState(a.ID, domain.StateVerified)
		// verified -> suggested is outside the workflow table.
		if !s.SetState(a.ID, domain.StateSuggested) {
			t.Fatal("SetState() = false, want permissive application")
		}
		got, _ := s.Get(a.ID)
		if got.State != domain.StateSuggested {
			t.Errorf("State = %v, want %v", got.State, domain.StateSuggested)
		}
	})

	t.Run("unknown state is a silent no-op", func(t *testing.T) {
		s := newTestStore(t)
		a := mustCreate(t, s, CreateOptions{})
		if s.SetState(a.ID, domain.State("limbo")) {
			t.Error("SetState(limbo) = true, want false")
		}
		got, _ := s.Get(a.ID)
		if got.State != domain.StateSuggested {
			t.Errorf("State = %v, want untouched", got.State)
		}
	})
}

func TestStoreSelection(t *testing.T) {
	s := newTestStore(t)
	a := mustCreate(t, s, CreateOptions{})
	b := mustCreate(t, s, CreateOptions{})

	if !s.Select(a.ID) {
		t.Fatal("Select(a) = false")
	}
	if !s.Select(b.ID) {
		t.Fatal("Select(b) = false")
	}

	selected := 0
	for _, ann := range s.List("") {
		if ann.Selected {
			selected++
			if ann.ID != b.ID {
				t.Errorf("selected id = %v, want %v", ann.ID, b.ID)
			}
		}
	}
	if selected != 1 {
		t.Errorf("selected count = %d, want exactly 1", selected)
	}

	t.Run("deleting the selected annotation clears selection", func(t *testing.T) {
		if !s.Delete(b.ID) {
			t.Fatal("Delete() = false")
		}
		if _, ok := s.Selected(); ok {
			t.Error("expected empty selection after deleting the selected annotation")
		}
	})

	t.Run("clear selection deselects", func(t *testing.T) {
		s.Select(a.ID)
		s.ClearSelection()
		if _, ok := s.Selected(); ok {
			t.Error("expected empty selection after ClearSelection")
		}
	})
}

func TestStoreListsAndCounts(t *testing.T) {
	s := newTestStore(t)
	a := mustCreate(t, s, CreateOptions{})
	mustCreate(t, s, CreateOptions{UserDrawn: true})
	c := mustCreate(t, s, CreateOptions{})
	s.SetState(a.ID, domain.StateVerified)
	s.SetState(c.ID, domain.StateRejected)

	counts := s.Counts()
	want := Counts{Suggested: 0, Modified: 1, Verified: 1, Rejected: 1, Total: 3}
	if counts != want {
		t.Errorf("Counts() = %+v, want %+v", counts, want)
	}

	if got := s.ListByState(domain.StateVerified, ""); len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("ListByState(verified) = %v entries", len(got))
	}

	t.Run("list preserves insertion order", func(t *testing.T) {
		list := s.List("")
		if len(list) != 3 {
			t.Fatalf("List() = %d entries, want 3", len(list))
		}
		if list[0].ID != a.ID || list[2].ID != c.ID {
			t.Error("List() order does not match insertion order")
		}
	})
}

func TestStoreSnapshotsDoNotAlias(t *testing.T) {
	s := newTestStore(t)
	a := mustCreate(t, s, CreateOptions{Mask: []domain.Point{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 1}}})

	got, _ := s.Get(a.ID)
	got.ClassName = "Truck"
	got.Mask[0].X = 999

	fresh, _ := s.Get(a.ID)
	if fresh.ClassName != "Car" {
		t.Errorf("ClassName = %v, mutation of a snapshot leaked into the store", fresh.ClassName)
	}
	if fresh.Mask[0].X != 1 {
		t.Errorf("Mask[0].X = %v, mutation of a snapshot leaked into the store", fresh.Mask[0].X)
	}
}

func TestStoreLoad(t *testing.T) {
	s := newTestStore(t)
	s.Load("img-1", []*domain.Annotation{
		{BBox: domain.Rect{X: 0, Y: 0, Width: 50, Height: 50}, ClassName: "Car", Confidence: 0.8},
		{BBox: domain.Rect{X: 60, Y: 0, Width: 50, Height: 50}, ClassName: "UFO", Confidence: 3},
	})
	list := s.List("")
	if len(list) != 2 {
		t.Fatalf("List() = %d entries, want 2", len(list))
	}
	if list[0].State != domain.StateSuggested {
		t.Errorf("State = %v, want suggested default", list[0].State)
	}
	if list[1].ClassName != CatchAllClass {
		t.Errorf("ClassName = %v, want coerced catch-all", list[1].ClassName)
	}
	if list[1].Confidence != 1 {
		t.Errorf("Confidence = %v, want clamped to 1", list[1].Confidence)
	}
	if len(s.History()) != 0 {
		t.Error("bulk load should not append history entries")
	}
}

func TestStoreClearImage(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, CreateOptions{})
	s.ClearImage("img-1")
	if got := s.List("img-1"); len(got) != 0 {
		t.Errorf("List() after ClearImage = %d entries, want 0", len(got))
	}
	if s.CurrentImage() != "" {
		t.Error("clearing the current image should drop the context")
	}
}

func TestStoreEvents(t *testing.T) {
	s := newTestStore(t)
	var kinds []EventKind
	s.Subscribe(func(e Event) { kinds = append(kinds, e.Kind) })

	a := mustCreate(t, s, CreateOptions{})
	conf := 0.3
	s.Update(a.ID, Patch{Confidence: &conf})
	s.Select(a.ID)
	s.Delete(a.ID)

	want := []EventKind{EventCreated, EventUpdated, EventSelected, EventDeleted}
	if len(kinds) != len(want) {
		t.Fatalf("got %d events (%v), want %d", len(kinds), kinds, len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, kinds[i], want[i])
		}
	}
}
