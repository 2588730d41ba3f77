package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/auth"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/canvas"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/cliconfig"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/collab"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/db"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/server"
)

func init() {
	color.NoColor = true
}

func run(t *testing.T, cfgPath, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.json")
	data, err := json.Marshal(document.NewSampleCanvas())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := db.NewMemory()
	canvases := canvas.NewService(store)
	hub := collab.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	canvases.SetNotifier(hub)

	srv := httptest.NewServer(server.NewRouter(server.Deps{
		Auth:     auth.NewService(store, "test-secret"),
		Canvases: canvases,
		Hub:      hub,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestValidate(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.toml")

	out, err := run(t, cfg, "", "validate", writeSample(t))
	require.NoError(t, err)
	assert.Contains(t, out, "5 devices")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"devices":[{"id":1,"name":"a","device_type":"router"}],"connections":[{"id":1,"source_device_id":1,"target_device_id":9}]}`), 0o644))
	out, err = run(t, cfg, "", "validate", bad)
	assert.Error(t, err)
	assert.Contains(t, out, "✗")
}

func TestValidateStdinWrappedCanvas(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.toml")
	payload, err := json.Marshal(document.Canvas{Name: "x", CanvasData: document.NewSampleCanvas()})
	require.NoError(t, err)

	out, err := run(t, cfg, string(payload), "validate", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "5 devices")
}

func TestSampleAndLocalExport(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.toml")
	samplePath := filepath.Join(dir, "sample.json")
	svgPath := filepath.Join(dir, "out.svg")

	_, err := run(t, cfg, "", "sample", "-o", samplePath)
	require.NoError(t, err)

	_, err = run(t, cfg, "", "export", samplePath, "-o", svgPath, "--width", "640", "--height", "480")
	require.NoError(t, err)

	svg, err := os.ReadFile(svgPath)
	require.NoError(t, err)
	assert.Contains(t, string(svg), `width="640" height="480"`)
	assert.Contains(t, string(svg), "edge-rtr-01")
}

func TestRemoteCommandsNeedLogin(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.toml")
	_, err := run(t, cfg, "", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestRegisterSaveListGetDelete(t *testing.T) {
	srv := newServer(t)
	cfg := filepath.Join(t.TempDir(), "config.toml")
	sample := writeSample(t)

	out, err := run(t, cfg, "password123\n", "--server", srv.URL, "register", "--email", "ops@example.net", "--name", "Ops")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as Ops")

	stored, err := cliconfig.Load(cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Token)
	assert.Equal(t, "ops@example.net", stored.Email)

	out, err = run(t, cfg, "", "--server", srv.URL, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No canvases yet")

	out, err = run(t, cfg, "", "--server", srv.URL, "save", sample, "--name", "wan")
	require.NoError(t, err)
	assert.Contains(t, out, "saved wan")

	_, err = run(t, cfg, "", "--server", srv.URL, "save", sample, "--name", "WAN")
	assert.Error(t, err)
	_, err = run(t, cfg, "", "--server", srv.URL, "save", sample, "--name", "wan", "--overwrite")
	require.NoError(t, err)

	out, err = run(t, cfg, "", "--server", srv.URL, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "wan")
	assert.Contains(t, out, "own")

	out, err = run(t, cfg, "", "--server", srv.URL, "get", "wan", "--data")
	require.NoError(t, err)
	var data document.CanvasData
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Len(t, data.Devices, 5)

	out, err = run(t, cfg, "", "--server", srv.URL, "export", "wan", "--remote")
	require.NoError(t, err)
	assert.Contains(t, out, "<svg")

	out, err = run(t, cfg, "", "--server", srv.URL, "delete", "wan")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted wan")

	_, err = run(t, cfg, "", "--server", srv.URL, "get", "wan")
	assert.Error(t, err)

	_, err = run(t, cfg, "", "logout")
	require.NoError(t, err)
	stored, err = cliconfig.Load(cfg)
	require.NoError(t, err)
	assert.Empty(t, stored.Token)
}
