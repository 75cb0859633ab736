package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"couponverify/internal/api/handlers"
	"couponverify/internal/api/middleware"
	"couponverify/internal/config"
	"couponverify/internal/repository"
	"couponverify/internal/service"
)

// NewRouter wires repositories, services and handlers onto the route tree.
// The store handle is injected here and nowhere read from ambient state.
func NewRouter(conn *sql.DB, cfg config.Config, logger zerolog.Logger) http.Handler {
	couponRepo := repository.NewCouponRepo(conn)
	companyRepo := repository.NewCompanyRepo(conn)
	recordRepo := repository.NewRecordRepo(conn)
	userRepo := repository.NewUserRepo(conn)

	couponSvc := service.NewCouponService(conn, couponRepo, companyRepo, recordRepo, logger)
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret)

	couponHandler := handlers.NewCouponHandler(couponSvc, logger)
	authHandler := handlers.NewAuthHandler(authSvc, logger)

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateMax, 15*time.Minute)
	requireAuth := middleware.RequireAuth(cfg.JWTSecret)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(loginLimiter.Handler).Post("/login", authHandler.Login)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/verify", authHandler.VerifyToken)
			r.Post("/logout", authHandler.Logout)
		})
	})

	r.Route("/api/coupon", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/companies", couponHandler.ListCompanies)
		r.Post("/verify", couponHandler.Verify)
		r.Get("/records", couponHandler.ListRecords)
		r.Post("/batch-add", couponHandler.BatchAdd)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"message":"接口不存在"}`))
	})

	return r
}
