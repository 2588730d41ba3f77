package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns queries bound to tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   time.Time
}

type Canvas struct {
	ID         string
	OwnerID    string
	Name       string
	Sharable   bool
	CanvasData json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CanvasListRow is a canvas without its payload.
type CanvasListRow struct {
	ID        string
	OwnerID   string
	Name      string
	Sharable  bool
	UpdatedAt time.Time
}

// --- users ---

const createUser = `
INSERT INTO users (id, email, password, display_name)
VALUES ($1, $2, $3, $4)
RETURNING id, email, password, display_name, created_at`

type CreateUserParams struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.ID, arg.Email, arg.Password, arg.DisplayName)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

const getUserByEmail = `
SELECT id, email, password, display_name, created_at FROM users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

const getUserByID = `
SELECT id, email, password, display_name, created_at FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

// --- canvases ---

const canvasColumns = `id, owner_id, name, sharable, canvas_data, created_at, updated_at`

func scanCanvas(row pgx.Row) (Canvas, error) {
	var c Canvas
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Sharable, &c.CanvasData, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const createCanvas = `
INSERT INTO canvases (id, owner_id, name, sharable, canvas_data)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + canvasColumns

type CreateCanvasParams struct {
	ID         string
	OwnerID    string
	Name       string
	Sharable   bool
	CanvasData json.RawMessage
}

func (q *Queries) CreateCanvas(ctx context.Context, arg CreateCanvasParams) (Canvas, error) {
	return scanCanvas(q.db.QueryRow(ctx, createCanvas, arg.ID, arg.OwnerID, arg.Name, arg.Sharable, arg.CanvasData))
}

// Nil fields keep their stored value.
const updateCanvas = `
UPDATE canvases SET
    name        = COALESCE($2, name),
    sharable    = COALESCE($3, sharable),
    canvas_data = COALESCE($4, canvas_data),
    updated_at  = now()
WHERE id = $1
RETURNING ` + canvasColumns

type UpdateCanvasParams struct {
	ID         string
	Name       *string
	Sharable   *bool
	CanvasData json.RawMessage
}

func (q *Queries) UpdateCanvas(ctx context.Context, arg UpdateCanvasParams) (Canvas, error) {
	var data any
	if arg.CanvasData != nil {
		data = arg.CanvasData
	}
	return scanCanvas(q.db.QueryRow(ctx, updateCanvas, arg.ID, arg.Name, arg.Sharable, data))
}

const getCanvas = `SELECT ` + canvasColumns + ` FROM canvases WHERE id = $1`

func (q *Queries) GetCanvas(ctx context.Context, id string) (Canvas, error) {
	return scanCanvas(q.db.QueryRow(ctx, getCanvas, id))
}

const getCanvasByOwnerAndName = `
SELECT ` + canvasColumns + ` FROM canvases WHERE owner_id = $1 AND lower(name) = lower($2)`

func (q *Queries) GetCanvasByOwnerAndName(ctx context.Context, ownerID, name string) (Canvas, error) {
	return scanCanvas(q.db.QueryRow(ctx, getCanvasByOwnerAndName, ownerID, name))
}

const listCanvasesForUser = `
SELECT id, owner_id, name, sharable, updated_at
FROM canvases
WHERE owner_id = $1 OR sharable
ORDER BY updated_at DESC`

func (q *Queries) ListCanvasesForUser(ctx context.Context, userID string) ([]CanvasListRow, error) {
	rows, err := q.db.Query(ctx, listCanvasesForUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CanvasListRow
	for rows.Next() {
		var i CanvasListRow
		if err := rows.Scan(&i.ID, &i.OwnerID, &i.Name, &i.Sharable, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteCanvas = `DELETE FROM canvases WHERE id = $1`

func (q *Queries) DeleteCanvas(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, deleteCanvas, id)
	return err
}
