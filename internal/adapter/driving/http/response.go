package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/rs/zerolog/log"
)

type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data}); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeErrorMessage(w, statusFor(err), err.Error())
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message}); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrCallInProgress), errors.Is(err, domain.ErrSetupAborted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoInvitation), errors.Is(err, domain.ErrNoActiveCall):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMediaUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalidPeer), errors.Is(err, domain.ErrInvalidMediaKind):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
