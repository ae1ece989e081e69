package routes

import (
	"github.com/gin-gonic/gin"

	"damagereport-be/controllers"
	"damagereport-be/middlewares"
	"damagereport-be/models"
)

// ReportRoutes sets up the driver-facing report routes
func ReportRoutes(r *gin.Engine, rc *controllers.ReportController, auth, createLimit gin.HandlerFunc) {
	reports := r.Group("/api/reports", auth, middlewares.RequireRole(models.RoleDriver))
	{
		reports.GET("", rc.ListReports)
		reports.POST("", createLimit, rc.CreateReport)
		reports.GET("/:id", rc.GetReport)
		reports.PUT("/:id", rc.UpdateReport)
		reports.DELETE("/:id", rc.DeleteReport)
		reports.POST("/:id/submit", rc.SubmitReport)
	}
}

// ReviewRoutes sets up the supervisor review routes
func ReviewRoutes(r *gin.Engine, rc *controllers.ReportController, auth gin.HandlerFunc) {
	review := r.Group("/api/review", auth, middlewares.RequireRole(models.RoleSupervisor))
	{
		review.GET("/reports", rc.ListSubmittedReports)
		review.POST("/reports/:id/approve", rc.ApproveReport)
	}
}
