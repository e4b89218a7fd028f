package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rocketscienceinc/bingo-backend/internal/apperror"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
	"github.com/rocketscienceinc/bingo-backend/internal/usecase"
)

var (
	errMissingSessionID = errors.New("sessionId is required")
	errMissingIndex     = errors.New("index is required")
)

type saveSessionRequest struct {
	SessionID string   `json:"sessionId"`
	Name      *string  `json:"name"`
	Size      *int     `json:"size"`
	Items     []string `json:"items"`
}

type markRequest struct {
	Index *int `json:"index"`
}

func (that *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, errMissingSessionID.Error())
		return
	}

	view, err := that.sessionService.View(r.Context(), sessionID)
	if err != nil {
		that.respondServiceError(w, "handleGetSession", err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// handleSaveSession updates the session named in the body, or creates one when it is unknown.
func (that *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	var req saveSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := that.sessionService.Upsert(r.Context(), req.SessionID, entity.SessionUpdate{
		Name:  req.Name,
		Size:  req.Size,
		Items: req.Items,
	})
	if err != nil {
		that.respondServiceError(w, "handleSaveSession", err)
		return
	}

	respondJSON(w, http.StatusOK, usecase.NewSessionView(session))
}

func (that *Server) handleToggleMark(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, errMissingSessionID.Error())
		return
	}

	var req markRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Index == nil {
		respondError(w, http.StatusBadRequest, errMissingIndex.Error())
		return
	}

	session, err := that.sessionService.ToggleMark(r.Context(), sessionID, *req.Index)
	if err != nil {
		that.respondServiceError(w, "handleToggleMark", err)
		return
	}

	respondJSON(w, http.StatusOK, usecase.NewSessionView(session))
}

func (that *Server) handleResetMarks(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, errMissingSessionID.Error())
		return
	}

	session, err := that.sessionService.ResetMarks(r.Context(), sessionID)
	if err != nil {
		that.respondServiceError(w, "handleResetMarks", err)
		return
	}

	respondJSON(w, http.StatusOK, usecase.NewSessionView(session))
}

func (that *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, errMissingSessionID.Error())
		return
	}

	session, err := that.sessionService.ResetSession(r.Context(), sessionID)
	if err != nil {
		that.respondServiceError(w, "handleResetSession", err)
		return
	}

	respondJSON(w, http.StatusOK, usecase.NewSessionView(session))
}

func (that *Server) respondServiceError(w http.ResponseWriter, method string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "method", method, "error", err)
	}

	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrInvalidConfig), errors.Is(err, apperror.ErrOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: malformed request body: %v", apperror.ErrInvalidConfig, err)
	}

	return nil
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
