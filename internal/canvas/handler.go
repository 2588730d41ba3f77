package canvas

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/auth"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/persist"
)

// maxBodyBytes bounds a canvas upload.
const maxBodyBytes = 8 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name       string              `json:"name"`
	Sharable   bool                `json:"sharable"`
	CanvasData document.CanvasData `json:"canvas_data"`
}

// Register mounts the canvas routes on an authenticated router.
func (h *Handler) Register(api *mux.Router) {
	api.HandleFunc("/canvases", h.List).Methods("GET")
	api.HandleFunc("/canvases", h.Create).Methods("POST")
	api.HandleFunc("/canvases/by-name/{name}", h.GetByName).Methods("GET")
	api.HandleFunc("/canvases/{canvasId}", h.Get).Methods("GET")
	api.HandleFunc("/canvases/{canvasId}", h.Update).Methods("PUT")
	api.HandleFunc("/canvases/{canvasId}", h.Delete).Methods("DELETE")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	c, err := h.service.Create(r.Context(), userID, req.Name, req.Sharable, req.CanvasData)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Info("canvas created", "canvas", c.ID, "user", userID)
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	canvasID := mux.Vars(r)["canvasId"]

	c, err := h.service.Get(r.Context(), canvasID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) GetByName(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	c, err := h.service.GetByName(r.Context(), userID, mux.Vars(r)["name"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	list, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	canvasID := mux.Vars(r)["canvasId"]

	var patch persist.CanvasPatch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	c, err := h.service.Update(r.Context(), canvasID, userID, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	canvasID := mux.Vars(r)["canvasId"]

	if err := h.service.Delete(r.Context(), canvasID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, ErrNameConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": ErrNameConflict.Error()})
	case errors.Is(err, ErrEmptyName), errors.Is(err, ErrInvalidCanvas):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
