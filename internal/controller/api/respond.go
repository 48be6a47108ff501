package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/queueless/booking/internal/model"
)

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // не больше 1 МБ
	return json.NewDecoder(r.Body).Decode(dst)
}

// kindStatuses: клиент получает текст самой ошибки-вида без деталей
var kindStatuses = []struct {
	err    error
	status int
}{
	{model.ErrSlotUnavailable, http.StatusConflict},
	{model.ErrDuplicateBooking, http.StatusConflict},
	{model.ErrSlotExists, http.StatusConflict},
	{model.ErrEmailTaken, http.StatusConflict},
	{model.ErrNotFound, http.StatusNotFound},
	{model.ErrAccessDenied, http.StatusForbidden},
	{model.ErrUnauthenticated, http.StatusUnauthorized},
	{model.ErrInvalidCredentials, http.StatusUnauthorized},
}

// writeServiceError переводит ошибку сервиса в HTTP статус.
// Ошибки ввода отдаются с деталями, остальные виды фиксированным сообщением.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrDomainRejected),
		errors.Is(err, model.ErrSlotBooked):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, c := range kindStatuses {
		if errors.Is(err, c.err) {
			writeError(w, c.status, c.err.Error())
			return
		}
	}

	s.logger.Error("Request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
