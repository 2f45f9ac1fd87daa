package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harborhq/relay/pkg/service/delivery"
	"github.com/harborhq/relay/pkg/usecase"
	"github.com/harborhq/relay/pkg/utils/logging"
)

type Server struct {
	router      *chi.Mux
	uc          *usecase.UseCases
	coordinator *delivery.Coordinator
}

type Options func(*Server)

// WithDeliveryCoordinator exposes the channel delivery routes used by
// the external delivery scheduler
func WithDeliveryCoordinator(c *delivery.Coordinator) Options {
	return func(s *Server) {
		s.coordinator = c
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/events", recordEventHandler(s.uc))

		r.Route("/members/{memberID}", func(r chi.Router) {
			r.Get("/inbox", homeInboxHandler(s.uc))
			r.Get("/activity", activityHandler(s.uc))
			r.Post("/pause", pauseHandler(s.uc))
			r.Post("/unpause", unpauseHandler(s.uc))

			r.Get("/schedule", getScheduleHandler(s.uc))
			r.Put("/schedule", upsertScheduleHandler(s.uc))
			r.Delete("/schedule", deleteScheduleHandler(s.uc))

			r.Post("/push-subscriptions", createPushSubscriptionHandler(s.uc))
			r.Get("/push-subscriptions", listPushSubscriptionsHandler(s.uc))
		})

		r.Route("/notifications/{notificationID}", func(r chi.Router) {
			r.Post("/read", lifecycleHandler(s.uc, s.uc.Notification.MarkRead))
			r.Post("/unread", lifecycleHandler(s.uc, s.uc.Notification.MarkUnread))
			r.Post("/archive", lifecycleHandler(s.uc, s.uc.Notification.Archive))
			r.Post("/unarchive", lifecycleHandler(s.uc, s.uc.Notification.Unarchive))
			r.Post("/discard", lifecycleHandler(s.uc, s.uc.Notification.Discard))
		})

		if s.coordinator != nil {
			r.Route("/deliveries", func(r chi.Router) {
				r.Post("/slack/{notificationID}", deliverSlackHandler(s.coordinator))
				r.Delete("/slack/{notificationID}", deleteSlackHandler(s.coordinator))
				r.Post("/webpush/{notificationID}", deliverWebPushHandler(s.coordinator))
				r.Post("/email-digest/{memberID}", enqueueDigestHandler(s.coordinator))
			})
		}
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		logging.From(r.Context()).Warn("failed to write health response", "error", err.Error())
	}
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
