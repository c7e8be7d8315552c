// Package httpapi exposes the reservation commands over HTTP.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dooyeoung/medops-sub001/core/medrec"
	"github.com/dooyeoung/medops-sub001/core/verify"
)

type server struct {
	log      *slog.Logger
	records  *medrec.Service
	verifier *verify.Service
}

// NewRouter wires all routes. gatherer may be nil to disable /metrics.
func NewRouter(
	log *slog.Logger,
	records *medrec.Service,
	verifier *verify.Service,
	gatherer prometheus.Gatherer,
) http.Handler {
	s := &server{
		log:      log.With(slog.String("component", "httpapi")),
		records:  records,
		verifier: verifier,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.log))
	r.Use(recoverer(s.log))

	r.Get("/healthz", s.handleHealthz)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/reservations", func(r chi.Router) {
		r.Post("/", s.handleCreateReservation)
		r.Route("/{reservationID}", func(r chi.Router) {
			r.Get("/", s.handleGetReservation)
			r.Post("/confirm", s.handleConfirm)
			r.Post("/requeue", s.handleRequeue)
			r.Post("/assign-doctor", s.handleAssignDoctor)
			r.Post("/note", s.handleUpdateNote)
			r.Post("/complete", s.handleComplete)
			r.Post("/cancel", s.handleCancel)
		})
	})

	r.Route("/verification", func(r chi.Router) {
		r.Post("/send", s.handleSendVerification)
		r.Post("/check", s.handleCheckVerification)
	})

	return r
}
