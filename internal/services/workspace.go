package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/foldkit/internal/controller"
	"github.com/fyrsmithlabs/foldkit/internal/document"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/langconfig"
	"github.com/fyrsmithlabs/foldkit/internal/viewstate"
)

var (
	// ErrNotFound indicates an unknown document id.
	ErrNotFound = errors.New("document not found")

	// ErrEmptyURI indicates a document opened without a URI.
	ErrEmptyURI = errors.New("document uri is required")
)

// Session is one open document and its controller.
type Session struct {
	ID   string
	Doc  *document.Document
	Ctrl *controller.Controller
	View *controller.MemoryView

	detach func()
}

// Workspace tracks open documents by id.
type Workspace struct {
	reg    Registry
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewWorkspace creates an empty workspace on reg.
func NewWorkspace(reg Registry) *Workspace {
	return &Workspace{
		reg:      reg,
		logger:   reg.Logger().Named("workspace"),
		sessions: make(map[string]*Session),
	}
}

// Registry returns the services the workspace builds controllers from.
func (w *Workspace) Registry() Registry { return w.reg }

// Open creates a document, restores its saved view state and computes its
// regions. An empty languageID is derived from the URI.
func (w *Workspace) Open(ctx context.Context, uri, languageID, text string) (*Session, error) {
	if uri == "" {
		return nil, ErrEmptyURI
	}
	if languageID == "" {
		languageID = langconfig.LanguageForFile(uri)
	}

	doc := document.New(uri, languageID, text)
	view := controller.NewMemoryView()
	ctrl := w.reg.NewController(doc, controller.WithView(view))
	s := &Session{ID: uuid.New().String(), Doc: doc, Ctrl: ctrl, View: view, detach: func() {}}

	w.restore(s)
	if bus := w.reg.Bus(); bus != nil {
		s.detach = bus.Attach(ctrl)
	}
	if err := ctrl.Enable(); err != nil {
		s.detach()
		return nil, fmt.Errorf("enabling folding: %w", err)
	}
	if err := ctrl.ComputeNow(ctx); err != nil && !errors.Is(err, controller.ErrNotActive) {
		s.detach()
		_ = ctrl.Close()
		return nil, err
	}

	w.mu.Lock()
	w.sessions[s.ID] = s
	w.mu.Unlock()

	w.logger.Debug("document opened",
		zap.String("id", s.ID),
		zap.String("uri", uri),
		zap.String("language", languageID),
		zap.Int("lines", doc.LineCount()),
	)
	return s, nil
}

func (w *Workspace) restore(s *Session) {
	store := w.reg.ViewState()
	if store == nil {
		return
	}
	entry, err := store.Load(s.Doc)
	switch {
	case errors.Is(err, viewstate.ErrNotFound):
		return
	case err != nil:
		w.logger.Warn("loading view state failed", zap.String("uri", s.Doc.URI()), zap.Error(err))
		return
	case entry.Drifted:
		w.logger.Debug("view state drifted, restoring checked ranges only", zap.String("uri", s.Doc.URI()))
	}
	s.Ctrl.RestoreViewState(&entry.Memento)
}

// Get returns the session with id.
func (w *Workspace) Get(id string) (*Session, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Update replaces the text of a document and recomputes its regions.
func (w *Workspace) Update(ctx context.Context, id, text string) (*Session, error) {
	s, err := w.Get(id)
	if err != nil {
		return nil, err
	}
	s.Doc.SetText(text)
	if err := s.Ctrl.ComputeNow(ctx); err != nil && !errors.Is(err, controller.ErrNotActive) {
		return nil, err
	}
	return s, nil
}

// Restore applies m to a document and persists it.
func (w *Workspace) Restore(id string, m *folding.Memento) (*Session, error) {
	s, err := w.Get(id)
	if err != nil {
		return nil, err
	}
	s.Ctrl.RestoreViewState(m)
	w.persist(s)
	return s, nil
}

// Save persists the view state of a document.
func (w *Workspace) Save(id string) error {
	s, err := w.Get(id)
	if err != nil {
		return err
	}
	w.persist(s)
	return nil
}

func (w *Workspace) persist(s *Session) {
	store := w.reg.ViewState()
	if store == nil {
		return
	}
	m := s.Ctrl.SaveViewState()
	if m == nil {
		return
	}
	if err := store.Save(s.Doc, m); err != nil {
		w.logger.Warn("saving view state failed", zap.String("uri", s.Doc.URI()), zap.Error(err))
	}
}

// Close saves the view state of a document and releases it.
func (w *Workspace) Close(id string) error {
	w.mu.Lock()
	s, ok := w.sessions[id]
	delete(w.sessions, id)
	w.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	w.persist(s)
	s.detach()
	if err := s.Ctrl.Close(); err != nil {
		return err
	}
	w.logger.Debug("document closed", zap.String("id", id), zap.String("uri", s.Doc.URI()))
	return nil
}

// List returns the open sessions ordered by URI.
func (w *Workspace) List() []*Session {
	w.mu.RLock()
	out := make([]*Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		out = append(out, s)
	}
	w.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Doc.URI() != out[j].Doc.URI() {
			return out[i].Doc.URI() < out[j].Doc.URI()
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CloseAll closes every open document.
func (w *Workspace) CloseAll() error {
	var errs []error
	for _, s := range w.List() {
		if err := w.Close(s.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
