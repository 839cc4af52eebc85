package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/quitmate/config"
	"github.com/cppla/quitmate/controllers"
	"github.com/cppla/quitmate/events"
	"github.com/cppla/quitmate/middleware"
	"github.com/cppla/quitmate/services"
	"github.com/cppla/quitmate/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(svc *services.Set, hub *events.Hub) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	// Access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		r.Use(utils.RecoveryWithZap(utils.Logger, true))
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader, cfg.IdentityHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
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

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok", "today": svc.Calendar.Today()})
	})

	authController := controllers.NewAuthController(svc.Profiles)
	checkinController := controllers.NewCheckinController(svc.Checkins)
	milestoneController := controllers.NewMilestoneController(svc.Badges, svc.Certificates)
	profileController := controllers.NewProfileController(svc.Profiles, svc.Stats)
	counterController := controllers.NewCounterController(svc.Counters)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/login", middleware.IdentityRequired(), middleware.RateLimitMiddleware(), authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.POST("/checkins", checkinController.CheckIn)
	protected.POST("/checkins/make-up", checkinController.MakeUp)
	protected.GET("/checkins", checkinController.Records)

	protected.GET("/badges", milestoneController.Badges)
	protected.POST("/certificates", milestoneController.GenerateCertificate)
	protected.GET("/certificates", milestoneController.Certificates)

	protected.GET("/stats", profileController.Stats)
	protected.PUT("/profile/quit-date", profileController.SetQuitDate)
	protected.PATCH("/profile", profileController.UpdateInfo)

	protected.POST("/cigarettes", counterController.RecordPuff)
	protected.GET("/cigarettes/stats", counterController.CigaretteStats)
	protected.POST("/shares", counterController.RecordShare)

	if hub != nil {
		eventsController := controllers.NewEventsController(hub)
		api.GET("/events/ws", middleware.AuthRequired(), eventsController.Subscribe)
	}

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
