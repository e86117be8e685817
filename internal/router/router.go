package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"mediprep-backend/internal/handlers"
	"mediprep-backend/internal/middleware"
	"mediprep-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	courseHandler *handlers.CourseHandler,
	assessmentHandler *handlers.AssessmentHandler,
	reviewHandler *handlers.ReviewHandler,
	weaknessHandler *handlers.WeaknessHandler,
	studyPlanHandler *handlers.StudyPlanHandler,
	dashboardHandler *handlers.DashboardHandler,
	userHandler *handlers.UserHandler,
	jobHandler *handlers.JobHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// Auth (public)
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/google", authHandler.GoogleLogin)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/verify-email", authHandler.VerifyEmail)
			r.Post("/resend-verification", authHandler.ResendVerification)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Level catalog (public)
		r.Get("/levels", handlers.Levels)

		// Courses
		r.Route("/courses", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", courseHandler.Create)
			r.Get("/", courseHandler.List)
			r.Get("/{id}", courseHandler.Get)
			r.Delete("/{id}", courseHandler.Delete)
			r.Get("/{id}/sections", courseHandler.Sections)
			r.Post("/{id}/generate-questions", courseHandler.GenerateQuestions)
			r.Get("/{id}/weakness", weaknessHandler.CourseWeakness)
			r.Get("/{id}/cards", reviewHandler.ListByCourse)
		})

		// Assessments
		r.Route("/assessments", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/start", assessmentHandler.Start)
			r.Get("/", assessmentHandler.List)
			r.Get("/{id}", assessmentHandler.Get)
			r.Post("/{id}/submit", assessmentHandler.Submit)
		})

		// Spaced-repetition reviews
		r.Route("/reviews", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/due", reviewHandler.Due)
			r.Post("/", reviewHandler.Submit)
		})

		// Study plan tasks
		r.Route("/study-tasks", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", studyPlanHandler.Create)
			r.Post("/generate", studyPlanHandler.GenerateFromAssessment)
			r.Get("/", studyPlanHandler.List)
			r.Patch("/{id}", studyPlanHandler.UpdateStatus)
			r.Delete("/{id}", studyPlanHandler.Delete)
		})

		// Dashboard
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/stats", dashboardHandler.Stats)
			r.Get("/streak", dashboardHandler.Streak)
			r.Get("/activity", dashboardHandler.Activity)
		})

		// User & Settings
		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/me", userHandler.GetMe)
			r.Put("/me", userHandler.UpdateMe)
			r.Put("/password", userHandler.ChangePassword)
			r.Delete("/me", userHandler.DeleteMe)
			r.Get("/settings", userHandler.GetSettings)
			r.Put("/settings", userHandler.UpdateSettings)
			r.Get("/notifications", userHandler.GetNotificationSettings)
			r.Put("/notifications", userHandler.UpdateNotificationSettings)
		})

		// Jobs
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", jobHandler.ListRecent)
			r.Get("/{id}", jobHandler.GetJob)
			r.Delete("/{id}", jobHandler.CancelJob)
		})

		// WebSocket
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
