package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"winshirt-sync/internal/handler"
	"winshirt-sync/internal/middleware"
)

// Config holds the configuration for creating a router. Nil handlers leave
// their routes unmounted.
type Config struct {
	Logger              zerolog.Logger
	Handler             *handler.Handler
	Lotteries           *handler.LotteryHandler
	Products            *handler.ProductHandler
	Orders              *handler.OrderHandler
	Clients             *handler.ClientHandler
	Visuals             handler.CRUD
	Categories          handler.CRUD
	AdminHandler        *handler.AdminHandler
	AuthHandler         *handler.AuthHandler
	NotificationHandler *handler.NotificationHandler
	AdminMiddleware     func(http.Handler) http.Handler
	AllowedOrigins      []string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID(cfg.Logger))
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Token", "X-Admin-Key"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	admin := func(r chi.Router) {
		if cfg.AdminMiddleware != nil {
			r.Use(cfg.AdminMiddleware)
		}
	}

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if h := cfg.Lotteries; h != nil {
			r.Route("/lotteries", func(r chi.Router) {
				r.Get("/", h.List)
				r.Get("/{id}", h.Get)
				r.Get("/{id}/ready", h.Ready)
				r.Group(func(r chi.Router) {
					admin(r)
					r.Post("/", h.Create)
					r.Put("/{id}", h.Update)
					r.Delete("/{id}", h.Delete)
					r.Post("/{id}/participants", h.AddParticipant)
					r.Post("/{id}/winner", h.SelectWinner)
					r.Post("/{id}/draw", h.Draw)
					r.Post("/{id}/featured", h.Featured)
					r.Post("/{id}/relaunch", h.Relaunch)
				})
			})
		}

		if h := cfg.Products; h != nil {
			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.List)
				r.Get("/{id}", h.Get)
				r.Group(func(r chi.Router) {
					admin(r)
					r.Post("/", h.Create)
					r.Put("/{id}", h.Update)
					r.Delete("/{id}", h.Delete)
					r.Post("/{id}/featured", h.Featured)
				})
			})
		}

		// Checkout is public; every other order route is admin-only.
		if h := cfg.Orders; h != nil {
			r.Route("/orders", func(r chi.Router) {
				r.Post("/", h.Checkout)
				r.Group(func(r chi.Router) {
					admin(r)
					r.Get("/", h.List)
					r.Get("/{id}", h.Get)
					r.Put("/{id}", h.Update)
					r.Delete("/{id}", h.Delete)
					r.Post("/{id}/status", h.UpdateStatus)
					r.Post("/{id}/delivery/events", h.AddDeliveryEvent)
					r.Put("/{id}/delivery", h.SetTracking)
				})
			})
		}

		if h := cfg.Visuals; h != nil {
			r.Route("/visuals", func(r chi.Router) {
				crud(r, h, admin)
			})
		}
		if h := cfg.Categories; h != nil {
			r.Route("/categories", func(r chi.Router) {
				crud(r, h, admin)
			})
		}

		if h := cfg.Clients; h != nil {
			r.Route("/clients", func(r chi.Router) {
				admin(r)
				r.Get("/", h.List)
				r.Get("/{id}", h.Get)
				r.Post("/", h.Create)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
			})
		}

		if h := cfg.AuthHandler; h != nil {
			r.Route("/auth", func(r chi.Router) {
				r.Post("/signup", h.SignUp)
				r.Post("/signin", h.SignIn)
				r.Post("/resend", h.Resend)
				r.Post("/confirm", h.Confirm)
				r.Post("/signout", h.SignOut)
			})
		}

		if h := cfg.NotificationHandler; h != nil {
			r.Group(func(r chi.Router) {
				admin(r)
				r.Get("/notifications", h.List)
			})
		}

		if h := cfg.AdminHandler; h != nil {
			r.Route("/admin", func(r chi.Router) {
				admin(r)
				r.Get("/backup", h.Backup)
				r.Post("/restore", h.Restore)
				r.Post("/clear", h.Clear)
				r.Get("/sync", h.Sync)
				r.Post("/resync", h.Resync)
				r.Get("/stats", h.GetStats)
				r.Get("/users", h.ListUsers)
				r.Put("/users/{id}/role", h.SetRole)
				r.Delete("/users/{id}", h.DeleteUser)
			})
		}
	})

	return r
}

// crud mounts public reads and admin-only writes of one entity.
func crud(r chi.Router, h handler.CRUD, admin func(chi.Router)) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Group(func(r chi.Router) {
		admin(r)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}
