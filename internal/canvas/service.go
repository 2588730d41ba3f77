package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/db"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/persist"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/typeid"
)

var (
	ErrNotFound      = errors.New("canvas not found")
	ErrForbidden     = errors.New("forbidden")
	ErrNameConflict  = errors.New("a canvas with this name already exists")
	ErrEmptyName     = errors.New("canvas name is required")
	ErrInvalidCanvas = errors.New("invalid canvas data")
)

// Repository is the canvas storage used by the service. *db.Queries
// implements it.
type Repository interface {
	CreateCanvas(ctx context.Context, arg db.CreateCanvasParams) (db.Canvas, error)
	UpdateCanvas(ctx context.Context, arg db.UpdateCanvasParams) (db.Canvas, error)
	GetCanvas(ctx context.Context, id string) (db.Canvas, error)
	GetCanvasByOwnerAndName(ctx context.Context, ownerID, name string) (db.Canvas, error)
	ListCanvasesForUser(ctx context.Context, userID string) ([]db.CanvasListRow, error)
	DeleteCanvas(ctx context.Context, id string) error
}

// Notifier is told about stored changes so live viewers can reload.
type Notifier interface {
	CanvasUpdated(canvasID, userID string)
	CanvasDeleted(canvasID string)
}

type Service struct {
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) Create(ctx context.Context, ownerID, name string, sharable bool, data document.CanvasData) (*document.Canvas, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	payload, err := encodeData(data)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.CreateCanvas(ctx, db.CreateCanvasParams{
		ID:         typeid.NewCanvasID(),
		OwnerID:    ownerID,
		Name:       name,
		Sharable:   sharable,
		CanvasData: payload,
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("create canvas %q: %w", name, ErrNameConflict)
		}
		return nil, fmt.Errorf("create canvas: %w", err)
	}

	return toCanvas(row, ownerID)
}

// Get returns a canvas the user owns or that is shared.
func (s *Service) Get(ctx context.Context, canvasID, userID string) (*document.Canvas, error) {
	row, err := s.load(ctx, canvasID)
	if err != nil {
		return nil, err
	}
	if row.OwnerID != userID && !row.Sharable {
		return nil, ErrForbidden
	}
	return toCanvas(row, userID)
}

// GetByName looks up one of the user's own canvases, case-insensitively.
func (s *Service) GetByName(ctx context.Context, userID, name string) (*document.Canvas, error) {
	row, err := s.repo.GetCanvasByOwnerAndName(ctx, userID, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get canvas by name: %w", err)
	}
	return toCanvas(row, userID)
}

// List returns the user's canvases and every sharable canvas.
func (s *Service) List(ctx context.Context, userID string) ([]document.CanvasSummary, error) {
	rows, err := s.repo.ListCanvasesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list canvases: %w", err)
	}

	out := make([]document.CanvasSummary, len(rows))
	for i, r := range rows {
		out[i] = document.CanvasSummary{
			ID:        r.ID,
			Name:      r.Name,
			Sharable:  r.Sharable,
			IsOwn:     r.OwnerID == userID,
			UpdatedAt: formatTime(r.UpdatedAt),
		}
	}
	return out, nil
}

// Update applies a partial update. Only the owner may change a canvas.
func (s *Service) Update(ctx context.Context, canvasID, userID string, patch persist.CanvasPatch) (*document.Canvas, error) {
	row, err := s.load(ctx, canvasID)
	if err != nil {
		return nil, err
	}
	if row.OwnerID != userID {
		return nil, ErrForbidden
	}

	params := db.UpdateCanvasParams{ID: canvasID, Sharable: patch.Sharable}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		params.Name = &name
	}
	if patch.CanvasData != nil {
		if params.CanvasData, err = encodeData(*patch.CanvasData); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.UpdateCanvas(ctx, params)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrNameConflict
		}
		return nil, fmt.Errorf("update canvas: %w", err)
	}

	if s.notifier != nil {
		s.notifier.CanvasUpdated(canvasID, userID)
	}
	return toCanvas(updated, userID)
}

func (s *Service) Delete(ctx context.Context, canvasID, userID string) error {
	row, err := s.load(ctx, canvasID)
	if err != nil {
		return err
	}
	if row.OwnerID != userID {
		return ErrForbidden
	}

	if err := s.repo.DeleteCanvas(ctx, canvasID); err != nil {
		return fmt.Errorf("delete canvas: %w", err)
	}
	if s.notifier != nil {
		s.notifier.CanvasDeleted(canvasID)
	}
	return nil
}

// CanView reports whether the user may open the canvas.
func (s *Service) CanView(ctx context.Context, canvasID, userID string) error {
	_, err := s.Get(ctx, canvasID, userID)
	return err
}

func (s *Service) load(ctx context.Context, canvasID string) (db.Canvas, error) {
	if !typeid.IsCanvasID(canvasID) {
		return db.Canvas{}, ErrNotFound
	}
	row, err := s.repo.GetCanvas(ctx, canvasID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Canvas{}, ErrNotFound
		}
		return db.Canvas{}, fmt.Errorf("get canvas: %w", err)
	}
	return row, nil
}

func encodeData(data document.CanvasData) (json.RawMessage, error) {
	data = data.Clone()
	data.Normalize()
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCanvas, err)
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal canvas data: %w", err)
	}
	return payload, nil
}

func toCanvas(row db.Canvas, userID string) (*document.Canvas, error) {
	var data document.CanvasData
	if err := json.Unmarshal(row.CanvasData, &data); err != nil {
		return nil, fmt.Errorf("decode canvas %s: %w", row.ID, err)
	}
	data.Normalize()

	return &document.Canvas{
		ID:         row.ID,
		Name:       row.Name,
		Sharable:   row.Sharable,
		IsOwn:      row.OwnerID == userID,
		CreatedAt:  formatTime(row.CreatedAt),
		UpdatedAt:  formatTime(row.UpdatedAt),
		CanvasData: data,
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
