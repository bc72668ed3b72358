package handlers

import (
	"net/http"
	"time"

	"factory-tracker/internal/middleware"
	"factory-tracker/internal/services"
	"factory-tracker/internal/session"
	"factory-tracker/internal/tracker"
	"factory-tracker/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the HTTP surface talks to
type Deps struct {
	Registry *tracker.Registry
	Sessions *session.Manager
	Devices  *services.TokenStore
	Hub      *websocket.Hub
	Started  time.Time

	// Limiter throttles driver writes per client; nil disables it
	Limiter *middleware.RateLimiter
}

// NewRouter wires every route on a chi router
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", Health(deps.Registry, deps.Started))
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket endpoint (session token, if any, comes as a query param)
	r.Get("/ws", websocket.HandleWebSocket(deps.Hub, deps.Sessions))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Session(deps.Sessions))

		// Admin dashboard
		r.Get("/drivers", GetDrivers(deps.Registry))
		r.Get("/drivers/stats", GetDriverStats(deps.Registry))
		r.Delete("/drivers/{id}", DeleteDriver(deps.Registry))
		r.Get("/factory-location", GetFactoryLocation(deps.Registry))

		// Driver app
		r.Route("/driver", func(r chi.Router) {
			r.Use(middleware.RateLimit(deps.Limiter))

			r.Post("/register", RegisterDriver(deps.Registry))
			r.Post("/login", LoginDriver(deps.Registry, deps.Sessions))
			r.Post("/logout", LogoutDriver(deps.Registry))
			r.Post("/location", UpdateLocation(deps.Registry))
			r.Post("/destination", UpdateDestination(deps.Registry))
			r.Post("/fcm-token", RegisterFCMToken(deps.Registry, deps.Devices))
		})
	})

	return r
}
