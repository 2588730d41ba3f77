// Package persist saves and restores the canvas scene through a Backend,
// tracks unsaved changes and runs autosave.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
)

var (
	ErrEmptyName     = errors.New("canvas name is required")
	ErrNameConflict  = errors.New("a canvas with this name already exists")
	ErrSceneNotEmpty = errors.New("scene is not empty")
	ErrNotFound      = errors.New("canvas not found")
	ErrNoCurrent     = errors.New("no canvas loaded")
	ErrReadOnly      = errors.New("canvas is owned by another user")
)

// AutosaveName is the canvas autosave writes to when the scene has never
// been saved under a name.
const AutosaveName = "Autosave"

// CanvasPatch is a partial canvas update. Nil fields are left unchanged.
type CanvasPatch struct {
	Name       *string              `json:"name,omitempty"`
	Sharable   *bool                `json:"sharable,omitempty"`
	CanvasData *document.CanvasData `json:"canvas_data,omitempty"`
}

// Backend stores canvas documents.
type Backend interface {
	SaveCanvas(ctx context.Context, name string, sharable bool, data document.CanvasData) (string, error)
	UpdateCanvas(ctx context.Context, id string, patch CanvasPatch) error
	GetCanvas(ctx context.Context, id string) (document.Canvas, error)
	ListCanvases(ctx context.Context) ([]document.CanvasSummary, error)
	DeleteCanvas(ctx context.Context, id string) error
}

// Scene is the live canvas the manager snapshots and restores.
type Scene interface {
	Snapshot() document.CanvasData
	Restore(data document.CanvasData) error
	IsEmpty() bool
	Revision() uint64
}

type SaveOptions struct {
	Name      string
	Sharable  bool
	Overwrite bool
}

// Manager coordinates a Scene with a Backend. It is safe for concurrent
// use; autosave typically runs on its own goroutine.
type Manager struct {
	backend Backend
	scene   Scene

	mu        sync.Mutex
	current   *document.CanvasSummary
	cleanRev  uint64
	autosaves int
}

func NewManager(backend Backend, scene Scene) *Manager {
	return &Manager{backend: backend, scene: scene, cleanRev: scene.Revision()}
}

// Current returns the canvas the scene was last saved to or loaded from.
func (m *Manager) Current() (document.CanvasSummary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return document.CanvasSummary{}, false
	}
	return *m.current, true
}

// Detach forgets the current canvas, e.g. after "new canvas".
func (m *Manager) Detach() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

// Dirty reports whether the scene changed since the last save or load.
func (m *Manager) Dirty() bool {
	rev := m.scene.Revision()
	m.mu.Lock()
	defer m.mu.Unlock()
	return rev != m.cleanRev
}

func (m *Manager) markClean(rev uint64) {
	m.mu.Lock()
	m.cleanRev = rev
	m.mu.Unlock()
}

// Save stores the scene under opts.Name. Saving over an existing canvas of
// the same name requires opts.Overwrite.
func (m *Manager) Save(ctx context.Context, opts SaveOptions) (document.CanvasSummary, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return document.CanvasSummary{}, ErrEmptyName
	}

	rev := m.scene.Revision()
	data := m.scene.Snapshot()

	existing, err := m.findOwn(ctx, name)
	if err != nil {
		return document.CanvasSummary{}, err
	}

	var id string
	if existing != nil {
		if !opts.Overwrite {
			return document.CanvasSummary{}, fmt.Errorf("save canvas %q: %w", name, ErrNameConflict)
		}
		id = existing.ID
		if err := m.backend.UpdateCanvas(ctx, id, CanvasPatch{Sharable: &opts.Sharable, CanvasData: &data}); err != nil {
			return document.CanvasSummary{}, fmt.Errorf("update canvas %q: %w", name, err)
		}
	} else {
		id, err = m.backend.SaveCanvas(ctx, name, opts.Sharable, data)
		if err != nil {
			return document.CanvasSummary{}, fmt.Errorf("save canvas %q: %w", name, err)
		}
	}

	summary := document.CanvasSummary{ID: id, Name: name, Sharable: opts.Sharable, IsOwn: true}
	m.mu.Lock()
	m.current = &summary
	m.cleanRev = rev
	m.mu.Unlock()

	slog.Info("canvas saved", "canvas", id, "name", name, "devices", len(data.Devices))
	return summary, nil
}

// SaveCurrent writes the scene back to the current canvas.
func (m *Manager) SaveCurrent(ctx context.Context) error {
	cur, ok := m.Current()
	if !ok {
		return ErrNoCurrent
	}
	if !cur.IsOwn {
		return fmt.Errorf("update canvas %s: %w", cur.ID, ErrReadOnly)
	}

	rev := m.scene.Revision()
	data := m.scene.Snapshot()
	if err := m.backend.UpdateCanvas(ctx, cur.ID, CanvasPatch{CanvasData: &data}); err != nil {
		return fmt.Errorf("update canvas %s: %w", cur.ID, err)
	}
	m.markClean(rev)
	return nil
}

// Load replaces the scene with a stored canvas. A non-empty scene is only
// replaced when replace is set.
func (m *Manager) Load(ctx context.Context, id string, replace bool) (document.Canvas, error) {
	if !replace && !m.scene.IsEmpty() {
		return document.Canvas{}, ErrSceneNotEmpty
	}

	c, err := m.backend.GetCanvas(ctx, id)
	if err != nil {
		return document.Canvas{}, fmt.Errorf("get canvas %s: %w", id, err)
	}

	if err := m.scene.Restore(c.CanvasData); err != nil {
		return document.Canvas{}, fmt.Errorf("restore canvas %s: %w", id, err)
	}

	m.mu.Lock()
	m.current = &document.CanvasSummary{
		ID: c.ID, Name: c.Name, Sharable: c.Sharable, IsOwn: c.IsOwn, UpdatedAt: c.UpdatedAt,
	}
	m.cleanRev = m.scene.Revision()
	m.mu.Unlock()

	slog.Info("canvas loaded", "canvas", c.ID, "name", c.Name)
	return c, nil
}

func (m *Manager) List(ctx context.Context) ([]document.CanvasSummary, error) {
	list, err := m.backend.ListCanvases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list canvases: %w", err)
	}
	return list, nil
}

// Delete removes a stored canvas. Deleting the current canvas detaches the
// scene from it; the scene itself is untouched.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.backend.DeleteCanvas(ctx, id); err != nil {
		return fmt.Errorf("delete canvas %s: %w", id, err)
	}

	m.mu.Lock()
	if m.current != nil && m.current.ID == id {
		m.current = nil
	}
	m.mu.Unlock()
	return nil
}

// Autosave saves the scene if it is dirty. It writes to the current canvas
// when the user owns it, otherwise to the AutosaveName canvas. It reports
// whether a save happened. The scene is only marked clean if it has not
// changed since the snapshot was taken.
func (m *Manager) Autosave(ctx context.Context) (bool, error) {
	if !m.Dirty() {
		return false, nil
	}

	rev := m.scene.Revision()
	data := m.scene.Snapshot()

	if cur, ok := m.Current(); ok && cur.IsOwn {
		if err := m.backend.UpdateCanvas(ctx, cur.ID, CanvasPatch{CanvasData: &data}); err != nil {
			return false, fmt.Errorf("autosave canvas %s: %w", cur.ID, err)
		}
	} else {
		if data.Empty() {
			return false, nil
		}
		if err := m.saveAutosaveCanvas(ctx, data); err != nil {
			return false, fmt.Errorf("autosave: %w", err)
		}
	}

	m.mu.Lock()
	if m.cleanRev < rev {
		m.cleanRev = rev
	}
	m.autosaves++
	m.mu.Unlock()
	return true, nil
}

func (m *Manager) saveAutosaveCanvas(ctx context.Context, data document.CanvasData) error {
	existing, err := m.findOwn(ctx, AutosaveName)
	if err != nil {
		return err
	}
	if existing != nil {
		return m.backend.UpdateCanvas(ctx, existing.ID, CanvasPatch{CanvasData: &data})
	}
	_, err = m.backend.SaveCanvas(ctx, AutosaveName, false, data)
	return err
}

// Autosaves counts successful autosaves.
func (m *Manager) Autosaves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autosaves
}

// Run autosaves every interval until ctx is cancelled. Failures are logged
// and retried on the next tick.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			saved, err := m.Autosave(ctx)
			if err != nil {
				slog.Warn("autosave failed", "error", err)
				continue
			}
			if saved {
				slog.Debug("autosaved canvas")
			}
		}
	}
}

func (m *Manager) findOwn(ctx context.Context, name string) (*document.CanvasSummary, error) {
	list, err := m.backend.ListCanvases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list canvases: %w", err)
	}
	for _, c := range list {
		if c.IsOwn && strings.EqualFold(strings.TrimSpace(c.Name), name) {
			return &c, nil
		}
	}
	return nil, nil
}
