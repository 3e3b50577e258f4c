package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"

	"manion_server/internal/api/handler"
	"manion_server/internal/api/middleware"
	"manion_server/internal/app/service"
	"manion_server/internal/common/security"
	"manion_server/internal/platform/config"
)

func NewRouter(
	authService *service.AuthService,
	problemService *service.ProblemService,
	communityService *service.CommunityService,
	evaluationService *service.EvaluationService,
	historyService *service.HistoryService,
	adminService *service.AdminService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Verifies a bearer token when present and puts claims in context.
	// Routes decide individually whether a token is required.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", healthCheck)

	// All API routes live under the base path the web client expects.
	r.Route(config.AppConfig.BasePath, func(base chi.Router) {
		base.Get("/health", healthCheck)

		authHandler := handler.NewAuthHandler(authService)
		authHandler.RegisterRoutes(base)

		problemHandler := handler.NewProblemHandler(problemService)
		problemHandler.RegisterRoutes(base)

		communityHandler := handler.NewCommunityHandler(communityService)
		base.Route("/community", communityHandler.RegisterRoutes)

		evaluationHandler := handler.NewEvaluationHandler(evaluationService)
		evaluationHandler.RegisterRoutes(base)

		historyHandler := handler.NewHistoryHandler(historyService)
		base.Route("/user", func(user chi.Router) {
			user.Use(middleware.Authenticator)
			historyHandler.RegisterRoutes(user)
		})

		adminHandler := handler.NewAdminHandler(adminService)
		base.Route("/admin", func(admin chi.Router) {
			admin.Use(middleware.Authenticator)
			admin.Use(middleware.AdminOnly)
			adminHandler.RegisterRoutes(admin)
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
