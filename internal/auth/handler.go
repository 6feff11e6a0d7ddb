package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

const maxDisplayName = 64

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type guestRequest struct {
	DisplayName string `json:"displayName"`
}

type guestResponse struct {
	Token string `json:"token"`
	Identity
}

// Guest hands out a token for a new collaborator. Accounts live outside
// this service.
func (h *Handler) Guest(w http.ResponseWriter, r *http.Request) {
	var req guestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "displayName is required"})
		return
	}
	if len(req.DisplayName) > maxDisplayName {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "displayName is too long"})
		return
	}

	token, id, err := h.service.IssueGuest(req.DisplayName)
	if err != nil {
		slog.Error("issue guest token failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, guestResponse{Token: token, Identity: id})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, id)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
