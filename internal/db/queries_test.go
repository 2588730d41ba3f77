package db

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []recordedCall
	row   fakeRow
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, recordedCall{sql, args})
	return pgconn.NewCommandTag("OK"), nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, recordedCall{sql, args})
	return nil, errors.New("not supported")
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.calls = append(f.calls, recordedCall{sql, args})
	return f.row
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *bool:
			*p = r.values[i].(bool)
		case *json.RawMessage:
			*p = r.values[i].(json.RawMessage)
		case *time.Time:
			*p = r.values[i].(time.Time)
		}
	}
	return nil
}

func TestMigrateAppliesSchema(t *testing.T) {
	f := &fakeDB{}
	require.NoError(t, Migrate(context.Background(), f))
	require.Len(t, f.calls, 1)
	assert.Contains(t, f.calls[0].sql, "CREATE TABLE IF NOT EXISTS canvases")
	assert.Equal(t, Schema(), f.calls[0].sql)
}

func TestGetCanvasScansRow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := &fakeDB{row: fakeRow{values: []any{
		"canvas_1", "user_1", "Core", true, json.RawMessage(`{"devices":[]}`), now, now,
	}}}

	c, err := New(f).GetCanvas(context.Background(), "canvas_1")
	require.NoError(t, err)
	assert.Equal(t, "Core", c.Name)
	assert.True(t, c.Sharable)
	assert.JSONEq(t, `{"devices":[]}`, string(c.CanvasData))
	assert.Equal(t, []any{"canvas_1"}, f.calls[0].args)
}

func TestGetCanvasPassesNoRows(t *testing.T) {
	f := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	_, err := New(f).GetCanvas(context.Background(), "missing")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestUpdateCanvasKeepsUnsetFields(t *testing.T) {
	now := time.Now()
	f := &fakeDB{row: fakeRow{values: []any{"c", "u", "n", false, json.RawMessage(`{}`), now, now}}}

	name := "renamed"
	_, err := New(f).UpdateCanvas(context.Background(), UpdateCanvasParams{ID: "c", Name: &name})
	require.NoError(t, err)

	call := f.calls[0]
	assert.True(t, strings.Contains(call.sql, "COALESCE($4, canvas_data)"))
	require.Len(t, call.args, 4)
	assert.Equal(t, &name, call.args[1])
	assert.Nil(t, call.args[3], "nil payload must reach the query as SQL NULL")
}
