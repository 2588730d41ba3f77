package db

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MemoryURL selects the in-memory store instead of Postgres.
const MemoryURL = "memory://"

// Memory is an in-process store with the same query surface and error
// behavior as Queries: missing rows return pgx.ErrNoRows and unique
// violations a *pgconn.PgError with code 23505.
type Memory struct {
	mu       sync.Mutex
	users    map[string]User
	canvases map[string]Canvas
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:    map[string]User{},
		canvases: map[string]Canvas{},
		now:      time.Now,
	}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func (m *Memory) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == arg.Email {
			return User{}, uniqueViolation("users_email_key")
		}
	}
	u := User{ID: arg.ID, Email: arg.Email, Password: arg.Password, DisplayName: arg.DisplayName, CreatedAt: m.now()}
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, pgx.ErrNoRows
}

func (m *Memory) GetUserByID(ctx context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *Memory) nameTaken(ownerID, name, exceptID string) bool {
	for _, c := range m.canvases {
		if c.ID != exceptID && c.OwnerID == ownerID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (m *Memory) CreateCanvas(ctx context.Context, arg CreateCanvasParams) (Canvas, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nameTaken(arg.OwnerID, arg.Name, "") {
		return Canvas{}, uniqueViolation("canvases_owner_name_idx")
	}
	now := m.now()
	c := Canvas{
		ID:         arg.ID,
		OwnerID:    arg.OwnerID,
		Name:       arg.Name,
		Sharable:   arg.Sharable,
		CanvasData: slices.Clone(arg.CanvasData),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.canvases[c.ID] = c
	return c, nil
}

func (m *Memory) UpdateCanvas(ctx context.Context, arg UpdateCanvasParams) (Canvas, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.canvases[arg.ID]
	if !ok {
		return Canvas{}, pgx.ErrNoRows
	}
	if arg.Name != nil {
		if m.nameTaken(c.OwnerID, *arg.Name, c.ID) {
			return Canvas{}, uniqueViolation("canvases_owner_name_idx")
		}
		c.Name = *arg.Name
	}
	if arg.Sharable != nil {
		c.Sharable = *arg.Sharable
	}
	if arg.CanvasData != nil {
		c.CanvasData = slices.Clone(arg.CanvasData)
	}
	c.UpdatedAt = m.now()
	m.canvases[c.ID] = c
	return c, nil
}

func (m *Memory) GetCanvas(ctx context.Context, id string) (Canvas, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.canvases[id]
	if !ok {
		return Canvas{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *Memory) GetCanvasByOwnerAndName(ctx context.Context, ownerID, name string) (Canvas, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.canvases {
		if c.OwnerID == ownerID && strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return Canvas{}, pgx.ErrNoRows
}

func (m *Memory) ListCanvasesForUser(ctx context.Context, userID string) ([]CanvasListRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []CanvasListRow
	for _, c := range m.canvases {
		if c.OwnerID == userID || c.Sharable {
			out = append(out, CanvasListRow{ID: c.ID, OwnerID: c.OwnerID, Name: c.Name, Sharable: c.Sharable, UpdatedAt: c.UpdatedAt})
		}
	}
	slices.SortFunc(out, func(a, b CanvasListRow) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *Memory) DeleteCanvas(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.canvases, id)
	return nil
}
