package httpapi

import (
	"context"
	"net/http"
	"time"

	"dpgdoc-backend-go/internal/config"
	"dpgdoc-backend-go/internal/models"
	"dpgdoc-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	DB         *sqlx.DB
	Config     config.Config
	Tokens     services.TokenService
	MetricsHub *services.MetricsHub
}

func NewServer(db *sqlx.DB, cfg config.Config, hub *services.MetricsHub) *Server {
	tokens := services.TokenService{
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    cfg.JWTIssuer,
		AccessTTL: time.Duration(cfg.AccessTTLSeconds) * time.Second,
	}
	return &Server{
		DB:         db,
		Config:     cfg,
		Tokens:     tokens,
		MetricsHub: hub,
	}
}

func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", s.Register)
		api.Post("/auth/login", s.Login)
		api.Group(func(auth chi.Router) {
			auth.Use(s.WithAuth)
			auth.Get("/auth/me", s.Me)
			auth.Post("/auth/logout", s.Logout)
			auth.Post("/auth/password", s.ChangeOwnPassword)
		})

		api.Route("/tutorials", func(tutorials chi.Router) {
			tutorials.Use(s.WithAuth)
			tutorials.Get("/", s.ListTutorials)
			tutorials.With(RequireRole(models.RoleAdmin)).Post("/", s.CreateTutorial)
			tutorials.Get("/{tutorialId}", s.GetTutorial)
			tutorials.Put("/{tutorialId}", s.UpdateTutorial)
			tutorials.Delete("/{tutorialId}", s.DeleteTutorial)
			tutorials.Post("/{tutorialId}/steps", s.AddStep)
			tutorials.Put("/{tutorialId}/steps/{stepId}", s.UpdateStep)
			tutorials.Delete("/{tutorialId}/steps/{stepId}", s.DeleteStep)
		})

		api.Route("/analytics", func(analytics chi.Router) {
			analytics.Group(func(auth chi.Router) {
				auth.Use(s.WithAuth)
				auth.Post("/progress", s.StartProgress)
				auth.Get("/progress/{tutorialId}", s.GetProgress)
				auth.Put("/progress/{progressId}", s.UpdateProgress)
				auth.Get("/dashboard", s.Dashboard)
			})
			// Stats stay unauthenticated, matching the historical surface.
			analytics.Get("/tutorials/{tutorialId}/stats", s.TutorialStats)
		})

		api.Route("/users", func(users chi.Router) {
			users.Use(s.WithAuth)
			users.With(RequireRole(models.RoleAdmin)).Get("/", s.ListUsers)
			users.Get("/{userId}", s.GetUser)
			users.Put("/{userId}", s.UpdateUser)
			users.With(RequireRole(models.RoleAdmin)).Delete("/{userId}", s.DeleteUser)
			users.Post("/{userId}/password", s.ChangeUserPassword)
			users.Get("/{userId}/tutorials", s.ListUserGrants)
			users.With(RequireRole(models.RoleAdmin)).Post("/{userId}/tutorials/access", s.GrantAccess)
			users.With(RequireRole(models.RoleAdmin)).Delete("/{userId}/tutorials/{tutorialId}/access", s.RevokeAccess)
		})

		api.Route("/upload", func(upload chi.Router) {
			upload.Post("/screenshot", s.UploadScreenshot)
			upload.Post("/video", s.UploadVideo)
			upload.Delete("/screenshot/{assetId}", s.DeleteScreenshot)
			upload.Delete("/video/{assetId}", s.DeleteVideo)
		})

		api.Get("/media/assets/{assetId}/content", s.MediaContent)

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(s.WithAuth)
			admin.Use(RequireRole(models.RoleAdmin))
			admin.Get("/metrics/history", s.MetricsHistory)
		})
	})

	r.Get("/ws/metrics", s.MetricsSocket)
	r.Get("/health", s.Health)
	r.Get("/", s.Root)
	return r
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Tutorial System API",
		"version": "1.0.0",
	})
}
