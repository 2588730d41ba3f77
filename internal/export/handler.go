package export

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/routing"
)

const maxUploadSize = 8 << 20

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// ExportSVG renders a posted canvas payload. Query parameters width, height
// and hide (comma separated layer names) adjust the output.
func (h *Handler) ExportSVG(w http.ResponseWriter, r *http.Request) {
	var data document.CanvasData
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadSize)).Decode(&data); err != nil {
		http.Error(w, "invalid canvas payload", http.StatusBadRequest)
		return
	}
	data.Normalize()
	if err := data.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts, err := optionsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := SVG(data, opts)
	if err != nil {
		if errors.Is(err, ErrInvalidSize) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("export svg", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="canvas.svg"`)
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func optionsFromQuery(r *http.Request) (Options, error) {
	opts := DefaultOptions()
	q := r.URL.Query()
	for key, dst := range map[string]*float64{"width": &opts.Width, "height": &opts.Height} {
		if v := q.Get(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return opts, errors.New("invalid " + key)
			}
			*dst = f
		}
	}
	if hide := q.Get("hide"); hide != "" {
		for _, name := range strings.Split(hide, ",") {
			name = strings.TrimSpace(name)
			if _, ok := routing.ParseLayer(name); !ok {
				return opts, errors.New("unknown layer " + name)
			}
			opts.Hidden = append(opts.Hidden, name)
		}
	}
	return opts, nil
}
