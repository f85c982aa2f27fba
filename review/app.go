// Package review wires the annotation engines into a reviewable
// project: configuration, per-image sessions, debounced persistence and
// the HTTP surface the browser-side render layer talks to.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lewtec/revisor/internal/domain"
	"github.com/lewtec/revisor/internal/export"
	"github.com/lewtec/revisor/internal/imagesource"
	"github.com/lewtec/revisor/internal/roi"
	"github.com/lewtec/revisor/internal/store"
)

// App is the reviewer application: one session per image, backed by the
// image source and the persistence repository.
type App struct {
	Source *imagesource.Source
	Repo   domain.AnnotationRepository
	Config *Config

	saver *Saver

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewApp creates the application. A nil clock means the wall clock.
func NewApp(source *imagesource.Source, repo domain.AnnotationRepository, config *Config, clock Clock) *App {
	a := &App{
		Source:   source,
		Repo:     repo,
		Config:   config,
		sessions: map[string]*Session{},
	}
	a.saver = NewSaver(repo, a.annotationsFor,
		time.Duration(config.Review.SaveDebounceMS)*time.Millisecond, clock)
	return a
}

// Saver exposes the debounced saver, mainly for a shutdown flush.
func (a *App) Saver() *Saver { return a.saver }

func (a *App) annotationsFor(imageID string) []*domain.Annotation {
	a.mu.Lock()
	sess, ok := a.sessions[imageID]
	a.mu.Unlock()
	if !ok {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.Store.List(imageID)
}

// Session returns the session for an image, creating and hydrating it
// from persistence on first access.
func (a *App) Session(imageID string) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if sess, ok := a.sessions[imageID]; ok {
		return sess, nil
	}
	img, ok := a.Source.Get(imageID)
	if !ok {
		return nil, fmt.Errorf("no image with id %s", imageID)
	}
	sess := NewSession(img, a.Config)

	saved, err := a.Repo.GetForImage(context.Background(), imageID)
	if err != nil {
		return nil, fmt.Errorf("while loading saved annotations for %s: %w", imageID, err)
	}
	if len(saved) > 0 {
		sess.Store.Load(imageID, saved)
	}
	if savedROI, err := a.Repo.GetROI(context.Background(), imageID); err != nil {
		return nil, fmt.Errorf("while loading saved roi for %s: %w", imageID, err)
	} else if savedROI != nil {
		sess.ROI.Load(savedROI)
	}

	sess.Store.Subscribe(func(e store.Event) {
		switch e.Kind {
		case store.EventCreated, store.EventUpdated, store.EventDeleted:
			a.saver.MarkDirty(e.ImageID)
		}
	})
	sess.ROI.Subscribe(func(e roi.Event) {
		ctx := context.Background()
		if e.ROI == nil {
			if err := a.Repo.ClearROI(ctx, e.ImageID); err != nil {
				log.Printf("review: while clearing roi for image %s: %s", e.ImageID, err)
			}
			return
		}
		if err := a.Repo.SaveROI(ctx, e.ROI); err != nil {
			log.Printf("review: while saving roi for image %s: %s", e.ImageID, err)
		}
	})

	a.sessions[imageID] = sess
	return sess, nil
}

// Handler builds the HTTP surface.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/images", a.handleListImages)
	mux.HandleFunc("GET /api/images/{id}/annotations", a.handleGetAnnotations)
	mux.HandleFunc("POST /api/images/{id}/annotations", a.handleCreateAnnotation)
	mux.HandleFunc("PATCH /api/images/{id}/annotations/{ann}", a.handleUpdateAnnotation)
	mux.HandleFunc("DELETE /api/images/{id}/annotations/{ann}", a.handleDeleteAnnotation)
	mux.HandleFunc("POST /api/images/{id}/annotations/{ann}/select", a.handleSelect)
	mux.HandleFunc("DELETE /api/images/{id}/selection", a.handleClearSelection)
	mux.HandleFunc("PUT /api/images/{id}/roi", a.handlePutROI)
	mux.HandleFunc("DELETE /api/images/{id}/roi", a.handleDeleteROI)
	mux.HandleFunc("GET /api/images/{id}/mapping", a.handleMapping)
	mux.HandleFunc("GET /api/images/{id}/export/{format}", a.handleExport)
	mux.HandleFunc("GET /api/stats", a.handleStats)
	mux.HandleFunc("GET /asset/{id}", a.handleAsset)
	mux.HandleFunc("GET /thumb/{id}", a.handleThumb)
	mux.HandleFunc("GET /help/", a.handleHelp)
	mux.HandleFunc("GET /{$}", a.handleIndex)

	return HTTPLogger(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: while encoding response: %s", err)
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

func (a *App) session(w http.ResponseWriter, r *http.Request) *Session {
	sess, err := a.Session(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "%s", err)
		return nil
	}
	return sess
}

func (a *App) handleListImages(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Image  *domain.Image `json:"image"`
		Counts store.Counts  `json:"counts"`
	}
	out := []entry{}
	for _, img := range a.Source.List() {
		sess, err := a.Session(img.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "%s", err)
			return
		}
		sess.mu.Lock()
		counts := sess.Store.Counts()
		sess.mu.Unlock()
		out = append(out, entry{Image: img, Counts: counts})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) handleGetAnnotations(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	activeROI, _ := sess.ROI.Active()
	annotations := sess.Store.List(sess.Image.ID)
	counts := sess.Store.Counts()
	sess.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"annotations": annotations,
		"counts":      counts,
		"roi":         activeROI,
	})
}

type annotationRequest struct {
	BBox       *domain.Rect    `json:"bbox"`
	ClassName  *string         `json:"className"`
	Confidence *float64        `json:"confidence"`
	State      *domain.State   `json:"state"`
	Mask       *[]domain.Point `json:"segmentationMask"`
	UserDrawn  bool            `json:"userDrawn"`
}

func (a *App) handleCreateAnnotation(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	var req annotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %s", err)
		return
	}
	if req.BBox == nil {
		writeError(w, http.StatusBadRequest, "bbox is required")
		return
	}
	className := ""
	if req.ClassName != nil {
		className = *req.ClassName
	}
	confidence := 1.0
	if req.Confidence != nil {
		confidence = *req.Confidence
	}
	opts := store.CreateOptions{UserDrawn: req.UserDrawn}
	if req.Mask != nil {
		opts.Mask = *req.Mask
	}
	sess.mu.Lock()
	ann, err := sess.Store.Create(*req.BBox, className, confidence, opts)
	sess.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "%s", err)
		return
	}
	writeJSON(w, http.StatusCreated, ann)
}

func (a *App) handleUpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	var req annotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %s", err)
		return
	}
	id := r.PathValue("ann")
	sess.mu.Lock()
	ok := sess.Store.Update(id, store.Patch{
		BBox:       req.BBox,
		ClassName:  req.ClassName,
		Confidence: req.Confidence,
		State:      req.State,
		Mask:       req.Mask,
	})
	ann, _ := sess.Store.Get(id)
	sess.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no annotation with id %s", id)
		return
	}
	writeJSON(w, http.StatusOK, ann)
}

func (a *App) handleDeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	id := r.PathValue("ann")
	sess.mu.Lock()
	deleted := sess.Store.Delete(id)
	sess.mu.Unlock()
	if !deleted {
		writeError(w, http.StatusNotFound, "no annotation with id %s", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	id := r.PathValue("ann")
	sess.mu.Lock()
	selected := sess.Store.Select(id)
	sess.mu.Unlock()
	if !selected {
		writeError(w, http.StatusNotFound, "no annotation with id %s", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	sess.Store.ClearSelection()
	sess.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handlePutROI(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	var req struct {
		Points []domain.Point `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %s", err)
		return
	}
	sess.mu.Lock()
	created, err := sess.ROI.Create(req.Points, sess.Image.ID)
	stats, _ := sess.ROI.Stats()
	sess.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "%s", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"roi": created, "stats": stats})
}

func (a *App) handleDeleteROI(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	cleared := sess.ROI.Clear()
	sess.mu.Unlock()
	if !cleared {
		writeError(w, http.StatusNotFound, "no active roi")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleMapping(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	sw, _ := strconv.ParseFloat(r.URL.Query().Get("surface_width"), 64)
	sh, _ := strconv.ParseFloat(r.URL.Query().Get("surface_height"), 64)
	writeJSON(w, http.StatusOK, sess.Mapping(sw, sh))
}

func (a *App) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	annotations := sess.Store.List(sess.Image.ID)
	sess.mu.Unlock()
	result, err := export.Export(
		export.Format(r.PathValue("format")),
		annotations,
		export.ImageMeta{
			ID:       sess.Image.ID,
			Filename: sess.Image.Filename,
			Width:    sess.Image.Width,
			Height:   sess.Image.Height,
		},
		a.Config.ClassNames(),
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%s", err)
		return
	}
	w.Header().Set("Content-Type", result.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Write(result.Data)
}

func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Repo.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "%s", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *App) handleAsset(w http.ResponseWriter, r *http.Request) {
	f, err := a.Source.Open(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	io.Copy(w, f)
}

func (a *App) handleThumb(w http.ResponseWriter, r *http.Request) {
	size := a.Config.Review.ThumbnailSize
	thumb, err := a.Source.Thumbnail(r.PathValue("id"), size, size)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	if err := jpeg.Encode(w, thumb, &jpeg.Options{Quality: 85}); err != nil {
		log.Printf("http: while encoding thumbnail: %s", err)
	}
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Image  *domain.Image
		Counts store.Counts
	}
	var entries []entry
	for _, img := range a.Source.List() {
		sess, err := a.Session(img.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		sess.mu.Lock()
		counts := sess.Store.Counts()
		sess.mu.Unlock()
		entries = append(entries, entry{Image: img, Counts: counts})
	}
	err := RenderPage(w, "index.html", map[string]any{
		"Title":       a.Config.Meta.Title,
		"Description": a.Config.Meta.Description,
		"Images":      entries,
	})
	if err != nil {
		log.Printf("http: while rendering index: %s", err)
	}
}

func (a *App) handleHelp(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/help"), "/")
	var md strings.Builder
	title := "Class guide"
	if rest == "" {
		fmt.Fprintf(&md, "## %s\n\n", a.Config.Meta.Title)
		if a.Config.Meta.Description != "" {
			fmt.Fprintf(&md, "> %s\n\n", strings.ReplaceAll(a.Config.Meta.Description, "\n", "\n> "))
		}
		for _, cls := range a.Config.Classes {
			fmt.Fprintf(&md, "### [%s](/help/%s)\n\n", cls.Name, cls.Name)
			if cls.Description != "" {
				fmt.Fprintf(&md, "%s\n\n", cls.Description)
			}
		}
	} else {
		cls := a.Config.GetClass(rest)
		if cls == nil {
			http.NotFound(w, r)
			return
		}
		title = "Class: " + cls.Name
		fmt.Fprintf(&md, "## %s\n\n", cls.Name)
		if cls.Description == "" {
			fmt.Fprintf(&md, "(No description provided)\n")
		} else {
			fmt.Fprintf(&md, "%s\n", cls.Description)
		}
	}
	err := RenderPage(w, "help.html", map[string]any{"Title": title, "Content": md.String()})
	if err != nil {
		log.Printf("http: while rendering help: %s", err)
	}
}
