// Package api реализует HTTP интерфейс сервиса записи.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/queueless/booking/internal/service"
)

type Options struct {
	FrontendURL    string
	MetricsEnabled bool
}

type Server struct {
	users        *service.UserService
	slots        *service.SlotService
	reservations *service.ReservationService
	calendar     service.Calendar
	opts         Options
	logger       *zap.Logger
}

func NewServer(
	users *service.UserService,
	slots *service.SlotService,
	reservations *service.ReservationService,
	calendar service.Calendar,
	opts Options,
	logger *zap.Logger,
) *Server {
	return &Server{
		users:        users,
		slots:        slots,
		reservations: reservations,
		calendar:     calendar,
		opts:         opts,
		logger:       logger,
	}
}

// Router собирает chi роутер со всеми маршрутами
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(cors(s.opts.FrontendURL))

	r.Get("/health", s.health)
	if s.opts.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Post("/refresh", s.refresh)
		r.With(s.authenticate).Post("/logout", s.logout)
		r.With(s.authenticate).Get("/me", s.me)
	})

	r.Route("/slots", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/", s.listSlots)
		r.Get("/week.png", s.weekImage)
		r.With(requireAdmin).Post("/", s.createSlot)
		r.With(requireAdmin).Delete("/{id}", s.deleteSlot)
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/", s.createAppointment)
		r.Get("/", s.listAppointments)
		r.Get("/{id}", s.getAppointment)
		r.Put("/{id}", s.updateAppointment)
		r.Delete("/{id}", s.deleteAppointment)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "QueueLess API is running",
	})
}
