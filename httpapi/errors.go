package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	kindInvalidCredential = "invalid_credential"
	kindUnauthenticated   = "unauthenticated"
	kindAPI               = "api_error"
	kindNetwork           = "network_error"
	kindSuperseded        = "superseded"
	kindStorage           = "storage_failure"
	kindNotReady          = "not_ready"
	kindInternal          = "internal_error"
)

type errorResponse struct {
	Error          string         `json:"error"`
	Kind           string         `json:"kind"`
	RequestID      string         `json:"requestId,omitempty"`
	UpstreamStatus int            `json:"upstreamStatus,omitempty"`
	UpstreamBody   string         `json:"upstreamBody,omitempty"`
	Session        *stateResponse `json:"session,omitempty"`
}

// statusFor maps a store error to its HTTP status and kind.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, goSession.ErrInvalidCredential):
		return http.StatusBadRequest, kindInvalidCredential
	case errors.Is(err, goSession.ErrUnauthenticated):
		return http.StatusUnauthorized, kindUnauthenticated
	case errors.Is(err, goSession.ErrAPI):
		return http.StatusBadGateway, kindAPI
	case errors.Is(err, goSession.ErrNetwork):
		return http.StatusServiceUnavailable, kindNetwork
	case errors.Is(err, goSession.ErrSessionSuperseded):
		return http.StatusConflict, kindSuperseded
	case errors.Is(err, goSession.ErrStorage):
		return http.StatusInternalServerError, kindStorage
	case errors.Is(err, goSession.ErrStoreNotReady):
		return http.StatusServiceUnavailable, kindNotReady
	default:
		return http.StatusInternalServerError, kindInternal
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)
	state := h.state()
	resp := errorResponse{
		Error:     err.Error(),
		Kind:      kind,
		RequestID: chimw.GetReqID(r.Context()),
		Session:   &state,
	}

	var apiErr *goSession.APIError
	if errors.As(err, &apiErr) {
		resp.UpstreamStatus = apiErr.StatusCode
		resp.UpstreamBody = string(apiErr.Body)
	}

	if status >= http.StatusInternalServerError {
		h.logger.Warn("session request failed",
			zap.String("request_id", resp.RequestID),
			zap.String("path", r.URL.Path),
			zap.String("kind", kind),
			zap.Error(err))
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
