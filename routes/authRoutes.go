package routes

import (
	"github.com/gin-gonic/gin"

	"damagereport-be/controllers"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, ac *controllers.AuthController, auth gin.HandlerFunc) {
	group := r.Group("/api/auth")
	{
		group.POST("/register", ac.RegisterUser)
		group.POST("/login", ac.LoginUser)
		group.GET("/me", auth, ac.GetMe)
		group.POST("/logout", ac.LogoutUser)
	}
}
