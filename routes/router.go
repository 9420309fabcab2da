package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/threads/config"
	"github.com/cppla/threads/controllers"
	"github.com/cppla/threads/middleware"
	"github.com/cppla/threads/services"
	"github.com/cppla/threads/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, svc *services.Services, log *zap.Logger) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	// Access logs go to their own rolling file when one is configured.
	gl := log
	if cfg.GinPath != "" {
		if l, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
			gl = l
		}
	}
	r.Use(middleware.RequestID())
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if cfg.RequestTimeoutSec > 0 {
		r.Use(middleware.Timeout(time.Duration(cfg.RequestTimeoutSec) * time.Second))
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	opts := controllers.Options{Logger: log, CacheTTL: time.Duration(cfg.CacheTTLSec) * time.Second}
	postController := controllers.NewPostController(svc, cfg.SiteURL, opts)
	userController := controllers.NewUserController(svc, opts)
	communityController := controllers.NewCommunityController(svc, opts)
	adminController := controllers.NewAdminController(svc, opts)

	r.GET("/feed.rss", postController.RSS)

	api := r.Group("/api/v1")

	// Public reads
	api.GET("/feed", postController.ListFeed)
	api.GET("/posts/:id", postController.GetPost)
	api.GET("/users/:id", userController.GetUser)
	api.GET("/users/:id/posts", userController.ListUserPosts)
	api.GET("/communities", communityController.List)
	api.GET("/communities/:id", communityController.Get)
	api.GET("/communities/:id/posts", communityController.Posts)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(cfg.JWTSecret), middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))

	protected.GET("/me", userController.Me)
	protected.PUT("/me", userController.UpdateMe)
	protected.GET("/me/activity", userController.Activity)
	protected.POST("/me/revoke", userController.RevokeToken)
	protected.GET("/users", userController.SearchUsers)

	protected.POST("/posts", postController.CreatePost)
	protected.POST("/posts/:id/replies", postController.CreateReply)
	protected.DELETE("/posts/:id", postController.DeletePost)

	protected.POST("/communities", communityController.Create)
	protected.POST("/communities/:id/members", communityController.Join)
	protected.DELETE("/communities/:id/members", communityController.Leave)

	protected.POST("/admin/repair", adminController.Repair)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
