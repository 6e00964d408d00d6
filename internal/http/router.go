package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nomadworks/tourhub/internal/auth"
	"github.com/nomadworks/tourhub/internal/cache"
	"github.com/nomadworks/tourhub/internal/config"
	"github.com/nomadworks/tourhub/internal/domain/user"
	"github.com/nomadworks/tourhub/internal/http/handlers"
	"github.com/nomadworks/tourhub/internal/http/middlewares"
	"github.com/nomadworks/tourhub/internal/observability"
	"github.com/nomadworks/tourhub/internal/queue/redisclient"
	"github.com/nomadworks/tourhub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB request bodies are plenty for this API

// NewRouter wires repositories, handlers and the middleware chain.
// redisClient may be nil; the workshop list cache then falls back to the
// in-process TTL map.
func NewRouter(cfg config.Config, log *slog.Logger, pool *pgxpool.Pool, redisClient *redisclient.Client, prom *observability.Prom) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(otelgin.Middleware("tourhub-api"))

	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
	}

	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	pingDB := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	var pingRedis func() error

	if redisClient != nil {
		pingRedis = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
			defer cancel()

			return redisClient.Ping(ctx)
		}
	}

	health := handlers.NewHealthHandler(pingDB, pingRedis)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// the browse listing tolerates a few seconds of staleness
	var listCache cache.Store

	if redisClient != nil {
		listCache = cache.NewRedis(redisClient.Raw(), 10*time.Second)
	} else {
		listCache = cache.NewMemory(10 * time.Second)
	}

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool)
	refreshRepo := postgres.NewRefreshTokensRepo(pool)
	communitiesRepo := postgres.NewCommunitiesRepo(pool)
	shopsRepo := postgres.NewShopsRepo(pool)
	workshopsRepo := postgres.NewWorkshopsRepo(pool, prom)
	enrollmentsRepo := postgres.NewEnrollmentsRepo(pool, workshopsRepo, prom)
	eventsRepo := postgres.NewEventsRepo(pool)
	jobsRepo := postgres.NewJobsRepo(pool, prom)

	// auth plumbing
	jwtManager := auth.NewManager(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLDays)*24*time.Hour,
	)

	authMw := middlewares.NewAuthMiddleware(jwtManager)

	// fixed-window limiters: tight on credential endpoints, generous elsewhere
	authLimiter := middlewares.NewRateLimiter(20, time.Minute)
	apiLimiter := middlewares.NewRateLimiter(300, time.Minute)

	// wire up handlers
	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager, refreshRepo, cfg)
	usersHandler := handlers.NewUsersHandler(usersRepo, refreshRepo)
	communitiesHandler := handlers.NewCommunitiesHandler(communitiesRepo)
	shopsHandler := handlers.NewShopsHandler(shopsRepo, usersRepo, jobsRepo)
	workshopsHandler := handlers.NewWorkshopsHandler(workshopsRepo, shopsRepo, usersRepo, jobsRepo, listCache)
	enrollmentsHandler := handlers.NewEnrollmentsHandler(enrollmentsRepo, jobsRepo, usersRepo, shopsRepo, workshopsRepo)
	eventsHandler := handlers.NewEventsHandler(eventsRepo, usersRepo, jobsRepo)
	adminJobsHandler := handlers.NewAdminJobsHandler(jobsRepo)

	// auth: limited by IP because callers are anonymous here
	authGroup := r.Group("/auth")
	authGroup.Use(authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// everything below requires a valid access token
	authed := r.Group("/")
	authed.Use(authMw.RequireAuth())
	authed.Use(apiLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))

	moderators := authMw.RequireRole(user.RoleCommunityAdmin, user.RolePlatformAdmin)
	platformOnly := authMw.RequireRole(user.RolePlatformAdmin)

	// profile
	authed.GET("/users/me", usersHandler.Me)
	authed.PATCH("/users/me/password", usersHandler.ChangePassword)

	// communities
	r.GET("/communities", communitiesHandler.List)
	r.GET("/communities/:id", communitiesHandler.GetByID)
	r.GET("/communities/:id/shops", shopsHandler.ListByCommunity)
	authed.POST("/communities", platformOnly, communitiesHandler.Create)

	// shops
	r.GET("/shops/:id", shopsHandler.GetByID)
	authed.POST("/shops", authMw.RequireRole(user.RoleShopOwner), shopsHandler.Create)
	authed.POST("/shops/:id/approve", moderators, shopsHandler.Approve)
	authed.POST("/shops/:id/reject", moderators, shopsHandler.Reject)

	// workshops
	r.GET("/workshops", workshopsHandler.List)
	r.GET("/workshops/:id", workshopsHandler.GetByID)
	authed.POST("/workshops", authMw.RequireRole(user.RoleShopOwner), workshopsHandler.Create)
	authed.PUT("/workshops/:id", authMw.RequireRole(user.RoleShopOwner), workshopsHandler.Update)
	authed.POST("/workshops/:id/approve", moderators, workshopsHandler.Approve)
	authed.POST("/workshops/:id/reject", moderators, workshopsHandler.Reject)

	// enrollments
	authed.POST("/workshops/:id/enrollments", enrollmentsHandler.Enroll)
	authed.GET("/workshops/:id/enrollments", enrollmentsHandler.Roster)
	authed.GET("/me/enrollments", enrollmentsHandler.ListMine)
	authed.POST("/enrollments/:id/cancel", enrollmentsHandler.Cancel)

	// events
	r.GET("/events", eventsHandler.ListPublic)
	r.GET("/events/:id", eventsHandler.GetByID)
	authed.POST("/events", moderators, eventsHandler.Create)
	authed.POST("/events/:id/approve", platformOnly, eventsHandler.Approve)
	authed.POST("/events/:id/reject", platformOnly, eventsHandler.Reject)
	authed.POST("/events/:id/close", moderators, eventsHandler.Close)
	authed.POST("/events/:id/cancel", moderators, eventsHandler.Cancel)

	// job administration
	admin := authed.Group("/admin", platformOnly)
	{
		admin.GET("/jobs", adminJobsHandler.List)
		admin.GET("/jobs/:id", adminJobsHandler.GetByID)
		admin.POST("/jobs/:id/retry", adminJobsHandler.Retry)
		// separate prefix: a static sibling of :id would not route
		admin.POST("/dead-jobs/reprocess", adminJobsHandler.ReprocessDead)
	}

	return r
}
