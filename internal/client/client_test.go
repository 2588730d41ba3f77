package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/auth"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/canvas"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/collab"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/db"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/engine"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/persist"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/server"
)

var _ persist.Backend = (*Client)(nil)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := db.NewMemory()
	authSvc := auth.NewService(store, "test-secret")
	canvasSvc := canvas.NewService(store)
	hub := collab.NewHub()
	canvasSvc.SetNotifier(hub)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	srv := httptest.NewServer(server.NewRouter(server.Deps{
		Auth:     authSvc,
		Canvases: canvasSvc,
		Hub:      hub,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func register(t *testing.T, srv *httptest.Server, email string) *Client {
	t.Helper()
	c := New(srv.URL + "/")
	s, err := c.Register(context.Background(), email, "password123", "User "+email)
	require.NoError(t, err)
	require.NotEmpty(t, s.Token)
	assert.Equal(t, s.Token, c.Token())
	return c
}

func TestCanvasLifecycle(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	alice := register(t, srv, "alice@example.com")

	me, err := alice.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", me.Email)

	sample := document.NewSampleCanvas()
	id, err := alice.SaveCanvas(ctx, "lab", false, sample)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = alice.SaveCanvas(ctx, "LAB", false, sample)
	assert.ErrorIs(t, err, persist.ErrNameConflict)

	got, err := alice.GetCanvas(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "lab", got.Name)
	assert.True(t, got.IsOwn)
	assert.Len(t, got.CanvasData.Devices, len(sample.Devices))

	name := "lab-2"
	require.NoError(t, alice.UpdateCanvas(ctx, id, persist.CanvasPatch{Name: &name}))
	byName, err := alice.GetCanvasByName(ctx, "lab-2")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)

	list, err := alice.ListCanvases(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "lab-2", list[0].Name)

	require.NoError(t, alice.DeleteCanvas(ctx, id))
	_, err = alice.GetCanvas(ctx, id)
	assert.ErrorIs(t, err, persist.ErrNotFound)

	list, err = alice.ListCanvases(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSharingAndAuthErrors(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	alice := register(t, srv, "alice@example.com")
	bob := register(t, srv, "bob@example.com")

	private, err := alice.SaveCanvas(ctx, "private", false, document.CanvasData{})
	require.NoError(t, err)
	shared, err := alice.SaveCanvas(ctx, "shared", true, document.CanvasData{})
	require.NoError(t, err)

	_, err = bob.GetCanvas(ctx, private)
	assert.ErrorIs(t, err, ErrForbidden)

	c, err := bob.GetCanvas(ctx, shared)
	require.NoError(t, err)
	assert.False(t, c.IsOwn)

	err = bob.DeleteCanvas(ctx, shared)
	assert.ErrorIs(t, err, ErrForbidden)

	anon := New(srv.URL)
	_, err = anon.ListCanvases(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	_, err = anon.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrUnauthorized)

	s, err := anon.Login(ctx, "Alice@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", s.User.Email)
}

func TestManagerAgainstServer(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	alice := register(t, srv, "alice@example.com")

	e := engine.NewEngine(engine.DefaultOptions())
	require.NoError(t, e.LoadSample())
	mgr := persist.NewManager(alice, e)

	summary, err := mgr.Save(ctx, persist.SaveOptions{Name: "wan"})
	require.NoError(t, err)
	assert.False(t, mgr.Dirty())

	_, err = mgr.Save(ctx, persist.SaveOptions{Name: "wan"})
	assert.ErrorIs(t, err, persist.ErrNameConflict)
	_, err = mgr.Save(ctx, persist.SaveOptions{Name: "wan", Overwrite: true})
	require.NoError(t, err)

	other := engine.NewEngine(engine.DefaultOptions())
	loader := persist.NewManager(alice, other)
	c, err := loader.Load(ctx, summary.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "wan", c.Name)
	want, got := e.Snapshot(), other.Snapshot()
	require.Len(t, got.Devices, len(want.Devices))
	assert.Len(t, got.Connections, len(want.Connections))
	assert.Len(t, got.Shapes, len(want.Shapes))
	for i := range want.Devices {
		assert.Equal(t, want.Devices[i].Name, got.Devices[i].Name)
		assert.Equal(t, want.Devices[i].Position, got.Devices[i].Position)
	}
}

func TestExportSVG(t *testing.T) {
	srv := newTestServer(t)
	out, err := New(srv.URL).ExportSVG(context.Background(), document.NewSampleCanvas(), 640, 480)
	require.NoError(t, err)
	assert.Contains(t, string(out), `width="640" height="480"`)
}

func TestSettings(t *testing.T) {
	assert.Equal(t, DefaultAutosaveInterval, Settings{}.AutosaveInterval())

	srv := newTestServer(t)
	c := register(t, srv, "alice@example.com")
	s, err := c.Settings(context.Background())
	require.NoError(t, err)
	// The test server leaves the interval unset.
	assert.Equal(t, 0, s.AutosaveSeconds)
	assert.Equal(t, DefaultAutosaveInterval, s.AutosaveInterval())
}
