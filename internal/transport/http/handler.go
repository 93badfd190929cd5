package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"qr-hunt-service/internal/app"
	"qr-hunt-service/internal/domain"
)

// Handler exposes the game engine over HTTP: scan, answer, and the
// pull-style recovery endpoints for team state and the leaderboard.
type Handler struct {
	service *app.GameService
}

func NewHandler(service *app.GameService) *Handler {
	return &Handler{service: service}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/scan", h.handleScan)
	mux.HandleFunc("POST /api/answer", h.handleAnswer)
	mux.HandleFunc("GET /api/team/{id}", h.handleTeam)
	mux.HandleFunc("GET /api/leaderboard", h.handleLeaderboard)
}

type scanRequest struct {
	Token  string `json:"token"`
	TeamID string `json:"teamId"`
}

type answerRequest struct {
	Token  string `json:"token"`
	TeamID string `json:"teamId"`
	Answer string `json:"answer"`
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.TeamID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token and teamId required"})
		return
	}

	result, err := h.service.Scan(r.Context(), req.Token, req.TeamID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.TeamID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token, teamId and answer required"})
		return
	}

	result, err := h.service.Answer(r.Context(), req.Token, req.TeamID, req.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.service.Team(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "team": team})
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Leaderboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

// writeError maps engine errors onto stable machine-readable kinds. The
// gating rejections are expected user-facing outcomes; only a missing
// question (content defect) and exhausted retries count as faults.
func writeError(w http.ResponseWriter, err error) {
	var (
		locked   *domain.LockedError
		mismatch *domain.LevelMismatchError
		missing  *domain.QuestionMissingError
	)
	switch {
	case errors.Is(err, domain.ErrInvalidToken):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_token"})
	case errors.Is(err, domain.ErrTeamNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "team_not_found"})
	case errors.As(err, &locked):
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "locked", "remainingMs": locked.RemainingMs})
	case errors.Is(err, domain.ErrGameCompleted):
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "completed"})
	case errors.As(err, &mismatch):
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "level_mismatch", "allowed": mismatch.Allowed})
	case errors.As(err, &missing):
		log.Printf("content defect: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "question_missing", "level": missing.Level})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "conflict"})
	default:
		log.Printf("request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}
