package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mhofmann/membersite/internal/config"
	"github.com/mhofmann/membersite/internal/http/handlers"
	"github.com/mhofmann/membersite/internal/http/middlewares"
	"github.com/mhofmann/membersite/internal/observability"
	"github.com/mhofmann/membersite/internal/repo/postgres"
	"github.com/mhofmann/membersite/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

type Deps struct {
	Cfg      config.Config
	Log      *slog.Logger
	Pool     *pgxpool.Pool
	Prom     *observability.Prom
	Registry *prometheus.Registry
	Sessions *session.Manager
	Nudger   handlers.WorkerNudger

	// Extra readiness probes beyond the database (redis, mailer breaker).
	Probes map[string]handlers.PingFunc
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(otelgin.Middleware("membersite-api"))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	r.Use(middlewares.CORSMiddleware(d.Cfg.CORSAllowedOrigins))

	// The guard sits in front of every request; its bypass list keeps it away
	// from the API surface and the operational endpoints.
	guard := middlewares.NewRouteGuard(d.Sessions, d.Cfg.ProtectedPaths)
	r.Use(guard.Handler())

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(d.Pool, d.Prom)
	jobsRepo := postgres.NewJobsRepo(d.Pool, d.Prom)

	// wire up handlers
	authHandler := handlers.NewAuthHandler(usersRepo, jobsRepo, d.Sessions, d.Nudger, d.Cfg, d.Log)
	adminJobsHandler := handlers.NewAdminJobsHandler(jobsRepo)
	pagesHandler := handlers.NewPagesHandler()

	probes := map[string]handlers.PingFunc{
		"postgres": func(ctx context.Context) error {
			if d.Pool == nil {
				return nil
			}

			cctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			return d.Pool.Ping(cctx)
		},
	}

	for name, probe := range d.Probes {
		probes[name] = probe
	}

	healthHandler := handlers.NewHealthHandler(probes)

	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)

	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	authMW := middlewares.NewAuthMiddleware(d.Sessions)

	api := r.Group("/api")
	api.Use(middlewares.RequireJSON())
	api.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	{
		auth := api.Group("/auth")
		auth.POST("/register", authHandler.Register)
		auth.GET("/verify-email", authHandler.VerifyEmail)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)

		admin := api.Group("/admin")
		admin.Use(authMW.RequireAuth(), authMW.RequireRole("admin"))
		admin.GET("/jobs/:id", adminJobsHandler.Get)
		admin.POST("/jobs/:id/retry", adminJobsHandler.Retry)
		admin.POST("/jobs/reprocess-dead", adminJobsHandler.ReprocessDead)
	}

	// Page routes; the guard has already run by the time these match.
	r.GET("/:locale", pagesHandler.Home)
	r.GET("/:locale/members", pagesHandler.Members)
	r.GET("/:locale/members/*rest", pagesHandler.Members)

	return r
}
