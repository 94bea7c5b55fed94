package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/example/retype/internal/content"
	"github.com/example/retype/internal/identity"
	"github.com/example/retype/internal/session"
	"github.com/example/retype/internal/stats"
	"github.com/example/retype/internal/typing"
	"github.com/example/retype/pkg/models"
)

// Handler serves the HTTP endpoints of one session
type Handler struct {
	s *session.Session
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func refresh(r *http.Request) bool {
	v := r.URL.Query().Get("refresh")
	return v == "1" || v == "true"
}

// GetIdentity returns the current user id and its share link
func (h *Handler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"user_id":   h.s.Identity.UserID(),
		"code_type": h.s.Identity.CodeType(),
	}
	if link, err := h.s.Identity.ShareLink(h.s.Config.ShareBaseURL); err == nil {
		resp["share_link"] = link
	}
	writeJSON(w, http.StatusOK, resp)
}

type accessCodeRequest struct {
	Code string `json:"code"`
}

// RedeemAccessCode switches the profile to the identity granted by a code
func (h *Handler) RedeemAccessCode(w http.ResponseWriter, r *http.Request) {
	var req accessCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	codeType, err := h.s.Identity.RedeemAccessCode(r.Context(), req.Code)
	switch {
	case errors.Is(err, identity.ErrInvalidAccessCode):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, identity.ErrAccessCodeUsed):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to redeem access code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":   h.s.Identity.UserID(),
		"code_type": codeType,
	})
}

type contentResponse struct {
	Set       *models.ContentSet `json:"set"`
	Progress  content.Progress   `json:"progress"`
	Completed bool               `json:"completed"`
}

// GetContent returns the current content set with completion state
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	set := h.s.Content.Current(r.Context())
	writeJSON(w, http.StatusOK, contentResponse{
		Set:       set,
		Progress:  h.s.Content.Progress(),
		Completed: h.s.Content.IsSetCompleted(),
	})
}

// CompleteItem marks a paragraph or wisdom section completed
func (h *Handler) CompleteItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := models.ContentType(vars["kind"])
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown content kind")
		return
	}
	result, err := h.s.Content.Complete(r.Context(), kind, vars["id"])
	if errors.Is(err, content.ErrUnknownItem) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetStats syncs the dashboard and returns today and total
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if refresh(r) {
		h.s.Key.Bump()
	}
	snap, forced := h.s.Dashboard.Sync(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"today":     snap.Today,
		"total":     snap.Total,
		"refreshed": forced,
	})
}

func (h *Handler) GetToday(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"today": h.s.Stats.Today(r.Context(), refresh(r))})
}

func (h *Handler) GetTotal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"total": h.s.Stats.Total(r.Context(), refresh(r))})
}

// GetWeekly returns the week at ?offset=N, 0 being the current week
func (h *Handler) GetWeekly(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n > 0 {
			writeError(w, http.StatusBadRequest, "offset must be 0 or a negative number of weeks")
			return
		}
		offset = n
	}

	week, err := h.s.Stats.Weekly(r.Context(), offset, refresh(r))
	var werr *stats.WeeklyError
	if errors.As(err, &werr) {
		writeError(w, http.StatusServiceUnavailable, werr.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, week)
}

type sessionRequest struct {
	ContentSetID string `json:"content_set_id"`
	ContentID    string `json:"content_id"`
	OriginalText string `json:"original_text"`
	TypedText    string `json:"typed_text"`
}

// CreateSession stores a finished typing session
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TypedText == "" {
		writeError(w, http.StatusBadRequest, "typed_text is required")
		return
	}
	ts, err := h.s.RecordTyping(r.Context(), req.ContentSetID, req.ContentID, req.OriginalText, req.TypedText)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to save typing session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session": ts,
		"matches": typing.Matches(req.OriginalText, req.TypedText),
	})
}
