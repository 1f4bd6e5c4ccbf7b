package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/edvisory/exam-engine/internal/api/http"
	"github.com/edvisory/exam-engine/internal/attempt"
	authmw "github.com/edvisory/exam-engine/internal/auth/middleware"
	"github.com/edvisory/exam-engine/internal/catalog"
	"github.com/edvisory/exam-engine/internal/config"
	"github.com/edvisory/exam-engine/internal/db"
	"github.com/edvisory/exam-engine/internal/events"
	"github.com/edvisory/exam-engine/internal/rbac"
	"github.com/edvisory/exam-engine/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	if err := authmw.EnsureAdmin(ctx, dbh, cfg.AdminUser, cfg.AdminPassHash); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}

	catalogStore := catalog.NewSQLStore(dbh)
	attemptStore := attempt.NewSQLStore(dbh)
	svc := attempt.NewService(attemptStore, catalogStore,
		attempt.WithEvents(events.NewLog(dbh)))

	authSvc := authmw.NewAuthService(cfg.AuthHMACSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsDev
	if cfg.Mode == config.ModeProd {
		origins = cfg.CORSOriginsProd
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", authmw.LoginHandler(authSvc, dbh))

	// Protected API (JWT → subject+role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc))

		// Catalog
		pr.With(rbac.Require("test:view")).
			Get("/tests", api.ListTestsHandler(catalogStore))
		pr.With(rbac.Require("test:view")).
			Get("/tests/{testID}", api.GetTestHandler(catalogStore))
		pr.With(rbac.Require("test:publish")).
			Put("/tests/{testID}", api.PutTestHandler(catalogStore))

		// Attempt lifecycle
		pr.With(rbac.Require("attempt:create")).
			Post("/attempts", api.StartAttemptHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(svc))
		pr.With(rbac.Require("attempt:save")).
			Post("/attempts/{attemptID}/answers", api.SubmitAnswerHandler(svc))
		pr.With(rbac.Require("attempt:save")).
			Patch("/attempts/{attemptID}", api.UpdateProgressHandler(svc))
		pr.With(rbac.Require("attempt:finalize")).
			Post("/attempts/{attemptID}/finalize", api.FinalizeAttemptHandler(svc))
		pr.With(rbac.RequireAny("attempt:delete-own", "attempt:delete-any")).
			Delete("/attempts/{attemptID}", api.DeleteAttemptHandler(svc))

		// Question media
		pr.Route("/assets", func(ar chi.Router) {
			ar.With(rbac.Require("test:publish")).
				Post("/{testID}", api.UploadAssetHandler(bs))
			ar.Get("/*", api.GetAssetHandler(bs))
		})

		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
