package routes

import (
	"github.com/Govind-619/StudyHub/controllers"
	"github.com/Govind-619/StudyHub/middleware"
	"github.com/gin-gonic/gin"
)

// initUserRoutes initializes all user-related routes
func initUserRoutes(router *gin.RouterGroup, jwtSecret string) {
	// Public routes (no authentication required)
	router.POST("/login", controllers.Login)

	// Protected routes (authentication required)
	user := router.Group("")
	user.Use(middleware.AuthMiddleware(jwtSecret))
	{
		user.POST("/logout", controllers.Logout)

		payments := user.Group("/payments")
		{
			payments.POST("/generate-hash", controllers.GenerateCheckoutHash)
			payments.POST("/finalize-payment-user", controllers.FinalizePaymentUser)
		}

		user.POST("/join-requests", controllers.SubmitJoinRequest)
		user.POST("/upgrade-requests", controllers.SubmitUpgradeRequest)
	}
}

// initCreatorRoutes initializes the creator self-service routes
func initCreatorRoutes(router *gin.RouterGroup, jwtSecret string) {
	creator := router.Group("/creator")
	creator.Use(middleware.AuthMiddleware(jwtSecret), middleware.CreatorMiddleware())
	{
		creator.GET("/dashboard", controllers.CreatorDashboard)
		creator.GET("/attributions", controllers.ListMyAttributions)
		creator.GET("/withdrawals", controllers.ListMyWithdrawals)
		creator.POST("/withdrawals", controllers.RequestWithdrawal)
	}
}
