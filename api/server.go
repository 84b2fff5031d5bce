/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontends
  5. Metrics:    Request count and latency by route pattern (optional)

ROUTE GROUPS:
  /api/groups/*         Groups, tickets, auctions, statements
  /api/auctions/*       Auction lookup
  /api/payments         Payment recording and listing
  /api/members/*        Member management
  /api/demo/seed        Demo group (dev only)
  /healthz              Store reachability
  /metrics              Prometheus exposition (when metrics are enabled)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/chit-engine/metrics"
)

// Options configures the router.
type Options struct {
	CORSOrigins []string
	Metrics     *metrics.Metrics
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	r.Get("/healthz", h.Healthz)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Group routes
		r.Route("/groups", func(r chi.Router) {
			r.Get("/", h.ListGroups)
			r.Post("/", h.CreateGroup)

			r.Route("/{groupID}", func(r chi.Router) {
				r.Get("/", h.GetGroup)
				r.Post("/status", h.TransitionGroup)

				r.Get("/tickets", h.ListTickets)
				r.Post("/tickets", h.Enroll)
				r.Delete("/tickets/{ticketID}", h.DeactivateTicket)

				r.Get("/auctions", h.ListAuctions)
				r.Post("/auctions", h.SettleAuction)
				r.Post("/auctions/preview", h.PreviewAuction)

				r.Get("/months/{month}/statement", h.GetStatement)
			})
		})

		// Auction routes
		r.Get("/auctions/{auctionID}", h.GetAuction)

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.RecordPayment)
		})

		// Member routes
		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.CreateMember)
			r.Get("/{memberID}", h.GetMember)
			r.Delete("/{memberID}", h.DeactivateMember)
		})

		// Demo routes
		r.Post("/demo/seed", h.SeedDemo)
	})

	return r
}
