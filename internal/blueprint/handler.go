package blueprint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/plannr/plannr/blueprint-go/internal/auth"
	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/export"
)

const maxCanvasSize = 8 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the blueprint endpoints on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/blueprints", h.List).Methods("GET")
	r.HandleFunc("/blueprints", h.Create).Methods("POST")
	r.HandleFunc("/blueprints/{blueprintId}", h.Get).Methods("GET")
	r.HandleFunc("/blueprints/{blueprintId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/blueprints/{blueprintId}/canvas", h.SaveCanvas).Methods("PUT")
	r.HandleFunc("/blueprints/{blueprintId}/export.{format}", h.Export).Methods("GET")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	bp, err := h.service.Create(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Info("blueprint created", "blueprint", bp.ID, "actor", auth.UserIDFromContext(r.Context()))
	writeJSON(w, http.StatusCreated, bp)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	bp, err := h.service.Get(r.Context(), mux.Vars(r)["blueprintId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bp)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	bps, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bps)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["blueprintId"]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SaveCanvas(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCanvasSize))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "canvas too large"})
		return
	}

	updated, err := h.service.SaveCanvas(r.Context(), mux.Vars(r)["blueprintId"], body)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"updated_at": updated})
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	format := export.Format(vars["format"])
	if format != export.FormatPNG && format != export.FormatPDF {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "format must be png or pdf"})
		return
	}

	opts := export.DefaultOptions()
	if v := r.URL.Query().Get("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil || scale <= 0 || scale > 8 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scale must be in (0, 8]"})
			return
		}
		opts.Scale = scale
	}
	if r.URL.Query().Get("grid") == "false" {
		opts.GridSize = 0
	}

	// Render to a buffer so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), &buf, vars["blueprintId"], format, opts); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, vars["blueprintId"], format))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, document.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrInvalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, export.ErrTooLarge), errors.Is(err, export.ErrEmpty):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
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
