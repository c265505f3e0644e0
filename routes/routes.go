package routes

import (
	"github.com/Govind-619/StudyHub/controllers"
	"github.com/Govind-619/StudyHub/metrics"
	"github.com/Govind-619/StudyHub/notifications"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
)

// Options configures the router
type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	Notifier       notifications.Notifier
}

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(opts Options) *gin.Engine {
	router := gin.New()

	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.LoggerMiddleware("/healthz", "/metrics"))
	router.Use(utils.RecoveryMiddleware(func(c *gin.Context, recovered interface{}) {
		notifications.Send(opts.Notifier, notifications.PanicMessage(c.Request.Method, c.Request.URL.Path, recovered))
	}))
	router.Use(utils.CORSMiddleware(opts.AllowedOrigins))
	router.Use(utils.SecurityHeadersMiddleware())

	router.GET("/healthz", controllers.Health)
	router.GET("/metrics", metrics.Handler())

	// PayHere server-to-server notification; authenticated by its signature only
	router.POST("/payhere/notify", controllers.PayHereNotify)
	router.POST("/notify", controllers.PayHereNotify)

	// API version group
	api := router.Group("/" + utils.APIVersion)
	{
		initUserRoutes(api, opts.JWTSecret)
		initCreatorRoutes(api, opts.JWTSecret)
		initAdminRoutes(api, opts.JWTSecret)
	}

	return router
}
