package http

import (
	"encoding/json"
	"errors"
	"net/http"

	app "dental-screen/internal/application"
	"dental-screen/internal/domain/fdi"
	"dental-screen/internal/domain/xray"
)

const (
	msgInternal         = "Error interno del servidor"
	msgDetectorDown     = "El servicio de detección no está disponible. Intenta nuevamente más tarde."
	msgNotAuthenticated = "No autenticado"
)

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"detail": message}, status)
}

// respondErr переводит ошибку сервиса в HTTP-статус
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rej  *xray.Rejected
		verr *app.ValidationError
	)

	switch {
	case errors.As(err, &rej):
		respondError(w, rej.Reason, http.StatusBadRequest)
	case errors.As(err, &verr):
		respondError(w, verr.Message, http.StatusBadRequest)
	case errors.Is(err, app.ErrInvalidConfidence),
		errors.Is(err, app.ErrWeakPassword),
		errors.Is(err, app.ErrEmailTaken):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, fdi.ErrInvalidCode):
		respondError(w, fdi.ErrInvalidCode.Error(), http.StatusBadRequest)
	case errors.Is(err, app.ErrInvalidCredentials):
		respondError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, app.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, app.ErrNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, app.ErrDetector):
		h.logger.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg("detector failure")
		respondError(w, msgDetectorDown, http.StatusBadGateway)
	default:
		h.logger.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, msgInternal, http.StatusInternalServerError)
	}
}
