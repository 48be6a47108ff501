package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/queueless/booking/internal/model"
	"github.com/queueless/booking/internal/render"
)

type createSlotRequest struct {
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
}

// listSlots GET /slots?date=YYYY-MM-DD, свободные слоты на дату
// Без даты возвращает все свободные слоты начиная с сегодня.
func (s *Server) listSlots(w http.ResponseWriter, r *http.Request) {
	var date *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := s.calendar.ParseDate(raw)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		date = &d
	}

	slots, err := s.slots.Available(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if slots == nil {
		slots = []*model.Slot{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

// weekImage GET /slots/week.png?date=YYYY-MM-DD, картинка занятости недели
func (s *Server) weekImage(w http.ResponseWriter, r *http.Request) {
	today := s.calendar.Today(time.Now())
	date := today
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := s.calendar.ParseDate(raw)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		date = d
	}

	start, slots, err := s.slots.Week(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	image, err := render.WeekImage(render.Week{
		Start:     start,
		Labels:    s.calendar.Labels,
		Slots:     slots,
		ClosedDay: s.calendar.ClosedDay,
		Today:     today,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(image)
}

// createSlot POST /slots, только администратор
func (s *Server) createSlot(w http.ResponseWriter, r *http.Request) {
	var req createSlotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	slot, err := s.slots.Create(r.Context(), currentUser(r), req.Date, req.TimeSlot)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Slot created successfully",
		"slot":    slot,
	})
}

// deleteSlot DELETE /slots/{id}, только администратор
func (s *Server) deleteSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.slots.Delete(r.Context(), currentUser(r), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Slot deleted successfully"})
}

// pathID разбирает {id}; некорректный UUID отвечает 404, как несуществующая запись
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, model.ErrNotFound.Error())
		return uuid.Nil, false
	}
	return id, true
}
