// Package client talks to the canvas backend over HTTP. It implements
// persist.Backend so the engine's persistence manager can run against a
// remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/persist"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// APIError is a non-2xx response. It unwraps to the matching persist or
// client sentinel so callers can use errors.Is.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return persist.ErrNotFound
	case http.StatusConflict:
		return persist.ErrNameConflict
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	}
	return nil
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string { return c.token }

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Session is the result of a login or registration.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &s); err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	c.token = s.Token
	return s, nil
}

func (c *Client) Register(ctx context.Context, email, password, displayName string) (Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password, "displayName": displayName}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &s); err != nil {
		return Session{}, fmt.Errorf("register: %w", err)
	}
	c.token = s.Token
	return s, nil
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &u); err != nil {
		return User{}, fmt.Errorf("get current user: %w", err)
	}
	return u, nil
}

// DefaultAutosaveInterval applies when the server does not say otherwise.
const DefaultAutosaveInterval = 5 * time.Minute

// Settings are server-side preferences for editing clients.
type Settings struct {
	AutosaveSeconds int `json:"autosave_seconds"`
}

func (s Settings) AutosaveInterval() time.Duration {
	if s.AutosaveSeconds <= 0 {
		return DefaultAutosaveInterval
	}
	return time.Duration(s.AutosaveSeconds) * time.Second
}

func (c *Client) Settings(ctx context.Context) (Settings, error) {
	var s Settings
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &s); err != nil {
		return Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

func (c *Client) SaveCanvas(ctx context.Context, name string, sharable bool, data document.CanvasData) (string, error) {
	req := struct {
		Name       string              `json:"name"`
		Sharable   bool                `json:"sharable"`
		CanvasData document.CanvasData `json:"canvas_data"`
	}{name, sharable, data}

	var created document.Canvas
	if err := c.do(ctx, http.MethodPost, "/api/canvases", req, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (c *Client) UpdateCanvas(ctx context.Context, id string, patch persist.CanvasPatch) error {
	return c.do(ctx, http.MethodPut, "/api/canvases/"+url.PathEscape(id), patch, nil)
}

func (c *Client) GetCanvas(ctx context.Context, id string) (document.Canvas, error) {
	var out document.Canvas
	err := c.do(ctx, http.MethodGet, "/api/canvases/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) GetCanvasByName(ctx context.Context, name string) (document.Canvas, error) {
	var out document.Canvas
	err := c.do(ctx, http.MethodGet, "/api/canvases/by-name/"+url.PathEscape(name), nil, &out)
	return out, err
}

func (c *Client) ListCanvases(ctx context.Context) ([]document.CanvasSummary, error) {
	var out []document.CanvasSummary
	if err := c.do(ctx, http.MethodGet, "/api/canvases", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []document.CanvasSummary{}
	}
	return out, nil
}

func (c *Client) DeleteCanvas(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/canvases/"+url.PathEscape(id), nil, nil)
}

// ExportSVG renders data on the server.
func (c *Client) ExportSVG(ctx context.Context, data document.CanvasData, width, height int) ([]byte, error) {
	q := url.Values{}
	if width > 0 {
		q.Set("width", strconv.Itoa(width))
	}
	if height > 0 {
		q.Set("height", strconv.Itoa(height))
	}
	path := "/export/svg"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := c.send(ctx, http.MethodPost, path, data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send performs the request and returns the response for 2xx statuses.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
}

func errorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}
