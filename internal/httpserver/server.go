package httpserver

import (
	"context"
	"log"
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/PortNumber53/payarc-mid/backend/internal/config"
	"github.com/PortNumber53/payarc-mid/backend/internal/handlers"
	requesttracking "github.com/PortNumber53/payarc-mid/backend/internal/middleware"
	"github.com/PortNumber53/payarc-mid/backend/internal/models"
	"github.com/PortNumber53/payarc-mid/backend/internal/payarc"
)

// APIPrefix is the namespace of every gateway endpoint.
const APIPrefix = "/payarc-mid/v1"

// maxProcessorCalls is the longest serial chain of processor calls made while
// handling one request: checkout creates a customer, tokenizes and attaches.
const maxProcessorCalls = 3

// writeTimeout leaves room for every serial processor call to time out plus
// the local database work around them.
const writeTimeout = maxProcessorCalls*payarc.RequestTimeout + 30*time.Second

// Deps are the collaborators the router dispatches to.
type Deps struct {
	DB          handlers.Pinger
	Recorder    requesttracking.RequestRecorder
	Notes       handlers.NoteLister
	Checkout    handlers.CheckoutProcessor
	Provisioner handlers.PaymentCompleter
	Canceller   handlers.CancellationPropagator
	Reconciler  handlers.EventApplier
}

// Server wraps an http.Server with convenience helpers for startup/shutdown.
type Server struct {
	httpServer *http.Server
}

// New constructs an HTTP server using the provided configuration and collaborators.
func New(cfg config.Config, deps Deps) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	if cfg.SentryDSN != "" {
		router.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	router.Use(middleware.Recoverer)

	if deps.Recorder != nil {
		router.Use(requesttracking.NewRequestTracker(deps.Recorder).Middleware())
	}

	router.Get("/healthz", handlers.Health(deps.DB))

	router.Route(APIPrefix, func(r chi.Router) {
		r.Get("/gateway", handlers.GatewayInfo(cfg.Gateway))
		r.Post("/webhook", handlers.Webhook(cfg.Gateway.WebhookSecret, deps.Reconciler))

		r.Route("/platform", func(r chi.Router) {
			r.Use(requesttracking.RequireBearer(cfg.PlatformHookToken))

			r.Post("/orders/{orderID}/checkout", handlers.Checkout(deps.Checkout))
			r.Post("/subscriptions/{subscriptionID}/payment-complete", handlers.PaymentComplete(deps.Provisioner))
			r.Post("/subscriptions/{subscriptionID}/cancelled", handlers.SubscriptionCancelled(deps.Canceller))

			if deps.Notes != nil {
				r.Get("/orders/{orderID}/notes", handlers.Notes(deps.Notes, models.NoteSubjectOrder, "orderID"))
				r.Get("/subscriptions/{subscriptionID}/notes", handlers.Notes(deps.Notes, models.NoteSubjectSubscription, "subscriptionID"))
			}
		})
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	log.Printf("[server] listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
