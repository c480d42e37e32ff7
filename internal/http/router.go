package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/natours-api/internal/auth"
	"github.com/redmonkez12/natours-api/internal/booking"
	"github.com/redmonkez12/natours-api/internal/config"
	"github.com/redmonkez12/natours-api/internal/crud"
	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/ratelimit"
	"github.com/redmonkez12/natours-api/internal/review"
	"github.com/redmonkez12/natours-api/internal/tour"
	"github.com/redmonkez12/natours-api/internal/user"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth     *auth.Handler
	Access   *auth.Middleware
	Users    *user.Handler
	Tours    *tour.Handler
	Reviews  *crud.Handler[review.Review]
	Bookings *booking.Handler
	// Limiter is optional; without it /api is not rate limited.
	Limiter *ratelimit.Limiter
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, errs *httputil.ErrorWriter, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestSize(cfg.Server.BodyLimit))
	r.Use(logging.RequestLogger(logger, cfg.Server.IsDevelopment()))
	r.Use(middleware.Compress(5))
	r.Use(Sanitize)

	r.NotFound(errs.NotFoundHandler())
	r.MethodNotAllowed(errs.NotFoundHandler())

	r.Get("/health", handleHealth)

	// Production builds will not have this route at all
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/api", func(r chi.Router) {
		if h.Limiter != nil {
			r.Use(h.Limiter.Middleware)
		}
		r.Route("/v1", func(r chi.Router) {
			r.Route("/users", userRoutes(h))
			r.Route("/tours", tourRoutes(h))
			r.Route("/reviews", reviewRoutes(h))
			r.Route("/bookings", bookingRoutes(h))
			r.With(h.Access.IsLoggedIn).Get("/session", h.Auth.Session)
		})
	})

	return r
}

func userRoutes(h Handlers) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/signup", h.Auth.Signup)
		r.Post("/login", h.Auth.Login)
		r.Get("/logout", h.Auth.Logout)
		r.Post("/forgotPassword", h.Auth.ForgotPassword)
		r.Patch("/resetPassword/{token}", h.Auth.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(h.Access.Protect)

			r.Patch("/updateMyPassword", h.Auth.UpdatePassword)
			r.Get("/me", h.Users.Me)
			r.Patch("/updateMe", h.Users.UpdateMe)
			r.Delete("/deleteMe", h.Users.DeleteMe)

			r.Group(func(r chi.Router) {
				r.Use(h.Access.RestrictTo(user.RoleAdmin))

				r.Get("/", h.Users.GetAll)
				r.Post("/", h.Users.CreateUser)
				r.Get("/{id}", h.Users.GetOne)
				r.Patch("/{id}", h.Users.UpdateOne)
				r.Delete("/{id}", h.Users.DeleteOne)
			})
		})
	}
}

func tourRoutes(h Handlers) func(chi.Router) {
	return func(r chi.Router) {
		editors := h.Access.RestrictTo(user.RoleAdmin, user.RoleLeadGuide)

		r.With(tour.AliasTopTours).Get("/top-5-cheap", h.Tours.GetAll)
		r.Get("/tour-stats", h.Tours.Stats)
		r.With(h.Access.Protect, h.Access.RestrictTo(user.RoleAdmin, user.RoleLeadGuide, user.RoleGuide)).
			Get("/monthly-plan/{year}", h.Tours.MonthlyPlan)
		r.Get("/tours-within/{distance}/center/{latlng}/unit/{unit}", h.Tours.Within)
		r.Get("/distances/{latlng}/unit/{unit}", h.Tours.Distances)
		r.Get("/slug/{slug}", h.Tours.GetTourBySlug)

		r.Get("/", h.Tours.GetAll)
		r.With(h.Access.Protect, editors).Post("/", h.Tours.CreateOne)
		r.Get("/{id}", h.Tours.GetTour)
		r.With(h.Access.Protect, editors).Patch("/{id}", h.Tours.UpdateOne)
		r.With(h.Access.Protect, editors).Delete("/{id}", h.Tours.DeleteOne)

		r.Route("/{"+review.TourParam+"}/reviews", reviewRoutes(h))
	}
}

// reviewRoutes serves both /reviews and /tours/{tourId}/reviews.
func reviewRoutes(h Handlers) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(h.Access.Protect)

		r.Get("/", h.Reviews.GetAll)
		r.With(h.Access.RestrictTo(user.RoleUser)).Post("/", h.Reviews.CreateOne)
		r.Get("/{id}", h.Reviews.GetOne)
		r.With(h.Access.RestrictTo(user.RoleUser, user.RoleAdmin)).Patch("/{id}", h.Reviews.UpdateOne)
		r.With(h.Access.RestrictTo(user.RoleUser, user.RoleAdmin)).Delete("/{id}", h.Reviews.DeleteOne)
	}
}

func bookingRoutes(h Handlers) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(h.Access.Protect)

		r.Get("/my-tours", h.Bookings.MyTours)

		r.Group(func(r chi.Router) {
			r.Use(h.Access.RestrictTo(user.RoleAdmin, user.RoleLeadGuide))

			r.Get("/", h.Bookings.GetAll)
			r.Post("/", h.Bookings.CreateOne)
			r.Get("/{id}", h.Bookings.GetOne)
			r.Patch("/{id}", h.Bookings.UpdateOne)
			r.Delete("/{id}", h.Bookings.DeleteOne)
		})
	}
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} httputil.Envelope
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondMessage(w, "api is running", http.StatusOK)
}
