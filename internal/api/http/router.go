package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fe-learning/felearn/internal/auth"
	"github.com/fe-learning/felearn/internal/catalog"
	"github.com/fe-learning/felearn/internal/config"
	"github.com/fe-learning/felearn/internal/explain"
	"github.com/fe-learning/felearn/internal/history"
	"github.com/fe-learning/felearn/internal/session"
)

type nowFunc func() time.Time

type Deps struct {
	Cfg      config.Config
	Auth     *auth.AuthService
	Sessions *session.Manager
	Bank     *catalog.Bank
	History  history.Store
	Explain  *explain.Service
	Now      func() time.Time
}

// NewRouter builds the full HTTP surface: open login, JWT-protected session
// endpoints, and basic-auth admin endpoints for bank maintenance.
func NewRouter(d Deps) chi.Router {
	if d.Now == nil {
		d.Now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", LoginHandler(d.Auth, d.Sessions))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		pr.Get("/session", RenderHandler(d.Sessions, d.Bank))
		pr.Post("/session/navigate", NavigateHandler(d.Sessions))
		pr.Post("/session/quiz", StartQuizHandler(d.Sessions, d.Bank, d.Now))
		pr.Post("/session/answers", SaveAnswersHandler(d.Sessions))
		pr.Post("/session/submit", SubmitQuizHandler(d.Sessions))
		pr.Post("/session/retake", RetakeHandler(d.Sessions, d.Now))

		pr.Get("/history", ListHistoryHandler(d.Sessions, d.History))
		pr.Post("/history/view", ViewHistoryHandler(d.Sessions))
		pr.Post("/history/back", BackToHistoryHandler(d.Sessions))
		pr.Post("/history/clear", ClearHistoryHandler(d.Sessions))

		pr.Post("/explanations", ExplainHandler(d.Explain))

		pr.Get("/catalog", GetCatalogHandler(d.Bank))
	})

	r.Group(func(ar chi.Router) {
		ar.Use(auth.AdminMiddleware(d.Cfg.AdminUser, d.Cfg.AdminPassHash))

		ar.Put("/admin/catalog", UploadCatalogHandler(d.Bank))
		ar.Post("/admin/courses/import", ImportCoursesHandler(d.Bank))
		ar.Post("/admin/courses/{courseID}/quiz-sets/{quizSet}/import", ImportQuestionsHandler(d.Bank))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	return r
}
