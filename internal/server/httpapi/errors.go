package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/server/services"
)

// Error codes sent in {"detail": {"code": ..., "message": ...}}.
const (
	CodeInvalidInput         = "invalid_input"
	CodeUnauthorized         = "unauthorized"
	CodeTokenExpired         = "token_expired"
	CodeInvalidToken         = "invalid_token"
	CodeRefreshTokenExpired  = "refresh_token_expired"
	CodeNotFound             = "not_found"
	CodeAlreadyExists        = "already_exists"
	CodeAssistantUnavailable = "assistant_unavailable"
	CodeInternal             = "internal_error"
)

type detail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Detail detail `json:"detail"`
}

type apiError struct {
	status  int
	code    string
	message string
}

func classify(err error) apiError {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return apiError{http.StatusBadRequest, CodeInvalidInput, err.Error()}
	case errors.Is(err, common.ErrTokenExpired):
		return apiError{http.StatusUnauthorized, CodeTokenExpired, "Access token expired."}
	case errors.Is(err, common.ErrInvalidToken):
		return apiError{http.StatusUnauthorized, CodeInvalidToken, "Invalid access token."}
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return apiError{http.StatusUnauthorized, CodeRefreshTokenExpired, "Session expired, please log in again."}
	case errors.Is(err, common.ErrUnauthorized):
		return apiError{http.StatusUnauthorized, CodeUnauthorized, "Wrong email or password."}
	case errors.Is(err, common.ErrNotFound):
		return apiError{http.StatusNotFound, CodeNotFound, "Not found."}
	case errors.Is(err, common.ErrAlreadyExists):
		return apiError{http.StatusConflict, CodeAlreadyExists, "Already exists."}
	case errors.Is(err, common.ErrNoSpeech):
		return apiError{http.StatusUnprocessableEntity, common.ErrorCodeNoSpeech, services.NoSpeechMessage}
	case errors.Is(err, services.ErrTranscriptionFailed):
		return apiError{http.StatusBadGateway, services.CodeTranscriptionFailed, services.TranscriptionFailedMessage}
	case errors.Is(err, services.ErrAssistantUnavailable):
		return apiError{http.StatusBadGateway, CodeAssistantUnavailable, "The assistant is unavailable. Please retry."}
	}
	return apiError{http.StatusInternalServerError, CodeInternal, "Internal server error."}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Detail: detail{Code: code, Message: message}})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := classify(err)
	if e.status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeDetail(w, e.status, e.code, e.message)
}
