package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"github.com/mcoot/roomhost/internal/api/handler"
	"github.com/mcoot/roomhost/internal/api/middleware"
	"github.com/mcoot/roomhost/internal/metrics"
	commonmw "github.com/mcoot/roomhost/internal/middleware"
	"github.com/mcoot/roomhost/internal/services/auth"
	"github.com/mcoot/roomhost/internal/services/room"
	"github.com/mcoot/roomhost/internal/services/user"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	UserService    *user.Service
	RoomController room.ControllerInterface

	// Optional
	Metrics            *metrics.Metrics
	RateLimiter        *middleware.RateLimiter
	CORSAllowedOrigins []string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = middleware.NotFound()
	r.MethodNotAllowedHandler = middleware.MethodNotAllowed()

	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
		if cfg.RateLimiter != nil {
			cfg.RateLimiter.OnReject = func(route string) {
				cfg.Metrics.RateLimitedTotal.WithLabelValues(route).Inc()
			}
		}
	}

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Logger)
	userHandler := handler.NewUserHandler(cfg.UserService, cfg.Logger)
	roomHandler := handler.NewRoomHandler(cfg.RoomController, cfg.Logger)

	// Create middleware
	sessionMiddleware := middleware.Session(cfg.AuthService)
	limited := func(h http.HandlerFunc) http.Handler {
		if cfg.RateLimiter == nil {
			return h
		}
		return cfg.RateLimiter.Middleware(h)
	}

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(commonmw.Logging(cfg.Logger))
	api.NotFoundHandler = middleware.NotFound()
	api.MethodNotAllowedHandler = middleware.MethodNotAllowed()

	// Public routes
	api.Handle("/auth/login", limited(authHandler.Login)).Methods(http.MethodPost)
	api.Handle("/users", limited(userHandler.Create)).Methods(http.MethodPost)
	api.HandleFunc("/users", userHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/users/{username}", userHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/rooms", roomHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/rooms/user/{username}", roomHandler.SearchUserRooms).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{guid}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/health", handler.Health).Methods(http.MethodGet)

	// Protected routes; every response carries a renewed token
	protected := api.NewRoute().Subrouter()
	protected.Use(sessionMiddleware)
	protected.HandleFunc("/auth/change-password", authHandler.ChangePassword).Methods(http.MethodPost)
	protected.HandleFunc("/users", userHandler.Update).Methods(http.MethodPatch)
	protected.HandleFunc("/users", userHandler.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/rooms", roomHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/{guid}/join", roomHandler.Join).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/{guid}/leave", roomHandler.Leave).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/{guid}/change-host", roomHandler.ChangeHost).Methods(http.MethodPost)

	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{middleware.HeaderAuthorization, middleware.HeaderTokenExpiresAt},
		MaxAge:         300,
	})(r)
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
