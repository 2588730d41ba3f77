// Package server assembles the HTTP routes of the canvas backend.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/auth"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/canvas"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/collab"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/export"
	mw "github.com/nerdfunk-net/noc-canvas-sub000/internal/middleware"
)

type Deps struct {
	Auth     *auth.Service
	Canvases *canvas.Service
	Hub      *collab.Hub

	// Origins are full origins for CORS, OriginHosts the scheme-less form
	// for websocket origin checks.
	Origins     []string
	OriginHosts []string

	// AutosaveInterval is advertised to editing clients.
	AutosaveInterval time.Duration
}

func NewRouter(d Deps) *mux.Router {
	authHandler := auth.NewHandler(d.Auth)
	canvasHandler := canvas.NewHandler(d.Canvases)
	exportHandler := export.NewHandler()

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(d.Origins))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/export/svg", exportHandler.ExportSVG).Methods("POST", "OPTIONS")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(d.Auth.AuthMiddleware)
	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/settings", settingsHandler(d.AutosaveInterval)).Methods("GET")
	canvasHandler.Register(api)

	r.Handle("/ws/canvas/{canvasId}", collab.NewHandler(d.Hub, Authorizer(d.Auth, d.Canvases), d.OriginHosts))

	return r
}

func settingsHandler(autosave time.Duration) http.HandlerFunc {
	body := map[string]int{"autosave_seconds": int(autosave / time.Second)}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}
}

// Authorizer admits signed-in users who can view the canvas, and anonymous
// viewers of sharable canvases.
func Authorizer(authSvc *auth.Service, canvases *canvas.Service) collab.Authorizer {
	return func(r *http.Request, canvasID string) (collab.Viewer, error) {
		token := auth.TokenFromRequest(r)
		if token == "" {
			if err := canvases.CanView(r.Context(), canvasID, ""); err != nil {
				if errors.Is(err, canvas.ErrForbidden) {
					return collab.Viewer{}, collab.ErrUnauthorized
				}
				return collab.Viewer{}, err
			}
			return collab.AnonymousViewer(), nil
		}

		userID, err := authSvc.ValidateToken(token)
		if err != nil {
			return collab.Viewer{}, collab.ErrUnauthorized
		}
		if err := canvases.CanView(r.Context(), canvasID, userID); err != nil {
			return collab.Viewer{}, err
		}
		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			return collab.Viewer{}, err
		}
		return collab.Viewer{UserID: userID, DisplayName: user.DisplayName}, nil
	}
}
