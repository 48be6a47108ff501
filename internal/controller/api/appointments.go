package api

import (
	"fmt"
	"net/http"

	"github.com/queueless/booking/internal/model"
	"github.com/queueless/booking/internal/service"
)

type createAppointmentRequest struct {
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
	Reason   string `json:"reason"`
}

// updateAppointmentRequest: администратор присылает status, владелец поля записи
type updateAppointmentRequest struct {
	Status   *model.AppointmentStatus `json:"status"`
	Date     *string                  `json:"date"`
	TimeSlot *string                  `json:"timeSlot"`
	Reason   *string                  `json:"reason"`
}

// createAppointment POST /appointments, новая запись на слот
func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := s.reservations.Reserve(r.Context(), currentUser(r), service.ReserveRequest{
		Date:      req.Date,
		TimeLabel: req.TimeSlot,
		Reason:    req.Reason,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Appointment created successfully",
		"appointment": appt,
	})
}

// listAppointments GET /appointments?status=&date=, свои записи или все для администратора
func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.AppointmentFilter{Status: model.AppointmentStatus(q.Get("status"))}

	if raw := q.Get("date"); raw != "" {
		d, err := s.calendar.ParseDate(raw)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		filter.Date = &d
	}

	appts, err := s.reservations.List(r.Context(), currentUser(r), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if appts == nil {
		appts = []*model.Appointment{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

// getAppointment GET /appointments/{id}, запись по id
func (s *Server) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	appt, err := s.reservations.Get(r.Context(), currentUser(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"appointment": appt})
}

// updateAppointment PUT /appointments/{id}: статус от администратора, правка от владельца
func (s *Server) updateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := currentUser(r)

	var (
		appt *model.Appointment
		err  error
	)
	if user.IsAdmin() {
		if req.Status == nil {
			s.writeServiceError(w, r, fmt.Errorf("%w: status is required", model.ErrValidation))
			return
		}
		appt, err = s.reservations.UpdateStatus(r.Context(), user, id, *req.Status)
	} else {
		appt, err = s.reservations.Reschedule(r.Context(), user, id, service.EditRequest{
			Date:      nonEmpty(req.Date),
			TimeLabel: nonEmpty(req.TimeSlot),
			Reason:    nonEmpty(req.Reason),
		})
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Appointment updated successfully",
		"appointment": appt,
	})
}

// deleteAppointment DELETE /appointments/{id}, отмена записи с освобождением слота
func (s *Server) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.reservations.Release(r.Context(), currentUser(r), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Appointment cancelled successfully"})
}

// nonEmpty: пустая строка в правке означает "не менять"
func nonEmpty(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}
