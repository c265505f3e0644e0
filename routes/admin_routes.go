package routes

import (
	"github.com/Govind-619/StudyHub/controllers"
	"github.com/Govind-619/StudyHub/middleware"
	"github.com/gin-gonic/gin"
)

// initAdminRoutes initializes all admin-related routes
func initAdminRoutes(router *gin.RouterGroup, jwtSecret string) {
	admin := router.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtSecret), middleware.AdminMiddleware())
	{
		admin.POST("/payments/finalize", controllers.AdminFinalizePayment)

		// Users and partners
		admin.GET("/users", controllers.GetUsers)
		admin.PATCH("/users/:id/block", controllers.BlockUser)
		admin.GET("/creators", controllers.ListCreators)
		admin.POST("/creators", controllers.CreateCreator)
		admin.PATCH("/creators/:id", controllers.UpdateCreator)
		admin.GET("/cmos", controllers.ListCMOs)
		admin.POST("/cmos", controllers.CreateCMO)
		admin.GET("/discount-codes", controllers.ListDiscountCodes)
		admin.POST("/discount-codes", controllers.CreateDiscountCode)
		admin.PATCH("/discount-codes/:id/toggle", controllers.ToggleDiscountCode)

		// Bank transfer requests
		admin.GET("/join-requests", controllers.ListJoinRequests)
		admin.POST("/join-requests/:id/approve", controllers.ApproveJoinRequest)
		admin.POST("/join-requests/:id/reject", controllers.RejectJoinRequest)
		admin.GET("/upgrade-requests", controllers.ListUpgradeRequests)
		admin.POST("/upgrade-requests/:id/approve", controllers.ApproveUpgradeRequest)
		admin.POST("/upgrade-requests/:id/reject", controllers.RejectUpgradeRequest)

		// Refunds
		admin.POST("/refunds/otp", controllers.RequestRefundOTP)
		admin.POST("/refunds", controllers.RefundPayment)

		// Settings
		admin.GET("/settings/payment-mode", controllers.GetPaymentMode)
		admin.PUT("/settings/payment-mode", controllers.UpdatePaymentMode)

		// Commission
		commission := admin.Group("/commission")
		{
			commission.POST("/evaluate-tiers", controllers.EvaluateTiers)
			commission.POST("/recalculate-stats", controllers.RecalculateStats)
			commission.GET("/tiers", controllers.ListCommissionTiers)
			commission.PUT("/tiers", controllers.ReplaceCommissionTiers)
		}
		admin.GET("/cmo-payouts", controllers.ListCMOPayouts)
		admin.PATCH("/cmo-payouts/:id", controllers.UpdateCMOPayout)

		// Reports
		admin.GET("/reports/commissions.xlsx", controllers.DownloadCommissionReportExcel)
		admin.GET("/reports/commissions.pdf", controllers.DownloadCommissionReportPDF)

		// Withdrawals
		admin.GET("/withdrawals", controllers.ListWithdrawals)
		admin.POST("/withdrawals/:id/approve", controllers.ApproveWithdrawal)
		admin.POST("/withdrawals/:id/reject", controllers.RejectWithdrawal)
	}
}
