package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	api "github.com/studyhall/studyhall-lms/internal/api/http"
	auth "github.com/studyhall/studyhall-lms/internal/auth/middleware"
	"github.com/studyhall/studyhall-lms/internal/config"
	"github.com/studyhall/studyhall-lms/internal/course"
	"github.com/studyhall/studyhall-lms/internal/db"
	"github.com/studyhall/studyhall-lms/internal/eventlog"
	"github.com/studyhall/studyhall-lms/internal/quiz"
	"github.com/studyhall/studyhall-lms/internal/rbac"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	if err := seedAdmin(ctx, dbh, cfg.AdminUser, cfg.AdminPassHash); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	// --- Stores and services ---
	store := quiz.NewSQLStore(dbh)
	courses := course.NewStore(dbh)
	events := eventlog.New(dbh)
	catalog := quiz.NewCatalogService(store, courses)
	attempts := quiz.NewAttemptService(store, courses, events, cfg.PassPercent)

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT → subject+role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, true))

		pr.Route("/quizzes", func(qr chi.Router) {
			qr.With(rbac.Require("quiz:create")).Post("/", api.CreateQuizHandler(catalog))
			qr.With(rbac.Require("quiz:list-all")).Get("/", api.ListQuizzesHandler(catalog))
			qr.With(rbac.Require("quiz:view")).Get("/course/{courseID}", api.ListCourseQuizzesHandler(catalog))

			// Attempt routes come before /{quizID} so "attempts" never
			// parses as a quiz id.
			qr.With(rbac.Require("attempt:view-own")).Get("/attempts/my", api.MyAttemptsHandler(attempts))
			qr.With(rbac.Require("attempt:submit")).Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(attempts))
			qr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
				Get("/attempts/{attemptID}", api.GetAttemptHandler(attempts))

			qr.With(rbac.Require("quiz:view")).Get("/{quizID}", api.GetQuizHandler(catalog))
			qr.With(rbac.Require("quiz:update")).Patch("/{quizID}", api.UpdateQuizHandler(catalog))
			qr.With(rbac.Require("quiz:delete")).Delete("/{quizID}", api.DeleteQuizHandler(catalog))
			qr.With(rbac.Require("attempt:start")).Post("/{quizID}/start", api.StartAttemptHandler(attempts))
		})

		pr.Route("/courses", func(cr chi.Router) {
			cr.With(rbac.Require("course:create")).Post("/", api.CreateCourseHandler(courses))
			cr.With(rbac.Require("course:view")).Get("/", api.ListCoursesHandler(courses))
			cr.With(rbac.Require("course:enroll")).Post("/{courseID}/enroll", api.EnrollHandler(courses))
		})

		pr.With(rbac.Require("users:bulk_upsert")).Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:list")).Get("/users", api.ListUsersHandler(dbh))
		pr.With(rbac.Require("user:change_password")).Post("/users/change-password", api.ChangePasswordHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s, pass>=%.0f%%)", cfg.HTTPAddr, cfg.DBDriver, cfg.PassPercent)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

func seedAdmin(ctx context.Context, dbh *sql.DB, username, passHash string) error {
	_, err := dbh.ExecContext(ctx,
		`INSERT INTO users (id, username, role, password_hash) VALUES ($1,$2,'admin',$3)
		 ON CONFLICT (username) DO NOTHING`,
		uuid.NewString(), username, passHash)
	return err
}
