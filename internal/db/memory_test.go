package db

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func TestMemoryUsers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u, err := m.CreateUser(ctx, CreateUserParams{ID: "user_1", Email: "a@b.c", Password: "x", DisplayName: "A"})
	require.NoError(t, err)

	_, err = m.CreateUser(ctx, CreateUserParams{ID: "user_2", Email: "a@b.c"})
	assert.True(t, isUniqueViolation(err))

	got, err := m.GetUserByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = m.GetUserByID(ctx, "user_9")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestMemoryCanvases(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	_, err := m.CreateCanvas(ctx, CreateCanvasParams{ID: "c1", OwnerID: "u1", Name: "Core", CanvasData: json.RawMessage(`{}`)})
	require.NoError(t, err)
	_, err = m.CreateCanvas(ctx, CreateCanvasParams{ID: "c2", OwnerID: "u1", Name: "core"})
	assert.True(t, isUniqueViolation(err), "names are unique per owner, case-insensitively")
	_, err = m.CreateCanvas(ctx, CreateCanvasParams{ID: "c3", OwnerID: "u2", Name: "Core", Sharable: true})
	require.NoError(t, err)
	_, err = m.CreateCanvas(ctx, CreateCanvasParams{ID: "c4", OwnerID: "u2", Name: "Private"})
	require.NoError(t, err)

	list, err := m.ListCanvasesForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c3", list[0].ID, "newest first")
	assert.Equal(t, "c1", list[1].ID)

	name := "Private"
	_, err = m.UpdateCanvas(ctx, UpdateCanvasParams{ID: "c3", Name: &name})
	assert.True(t, isUniqueViolation(err))

	sharable := true
	updated, err := m.UpdateCanvas(ctx, UpdateCanvasParams{ID: "c1", Sharable: &sharable})
	require.NoError(t, err)
	assert.True(t, updated.Sharable)
	assert.Equal(t, "Core", updated.Name)
	assert.JSONEq(t, `{}`, string(updated.CanvasData))

	byName, err := m.GetCanvasByOwnerAndName(ctx, "u1", "CORE")
	require.NoError(t, err)
	assert.Equal(t, "c1", byName.ID)

	require.NoError(t, m.DeleteCanvas(ctx, "c1"))
	_, err = m.GetCanvas(ctx, "c1")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}
