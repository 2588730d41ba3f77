package collab

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var ErrUnauthorized = errors.New("unauthorized")

// Viewer identifies who is opening a canvas.
type Viewer struct {
	UserID      string
	DisplayName string
}

// Authorizer decides whether a request may watch a canvas. Returning
// ErrUnauthorized yields 401, any other error 403.
type Authorizer func(r *http.Request, canvasID string) (Viewer, error)

// Handler upgrades /ws/canvas/{canvasId} requests and attaches them to the
// hub.
type Handler struct {
	hub            *Hub
	authorize      Authorizer
	originPatterns []string
}

func NewHandler(hub *Hub, authorize Authorizer, originPatterns []string) *Handler {
	return &Handler{hub: hub, authorize: authorize, originPatterns: originPatterns}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	canvasID := mux.Vars(r)["canvasId"]

	viewer, err := h.authorize(r, canvasID)
	if err != nil {
		status := http.StatusForbidden
		if errors.Is(err, ErrUnauthorized) {
			status = http.StatusUnauthorized
		}
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h.hub, conn, viewer.UserID, viewer.DisplayName, canvasID, uuid.New().String())
	if !h.hub.Register(client) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	client.Serve(r.Context())
}

// AnonymousViewer returns a throwaway identity for unauthenticated viewers
// of shared canvases.
func AnonymousViewer() Viewer {
	return Viewer{UserID: "anon-" + uuid.New().String()[:8], DisplayName: "Anonymous"}
}
