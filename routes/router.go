package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"damagereport-be/config"
	"damagereport-be/controllers"
	"damagereport-be/middlewares"
	"damagereport-be/services"
)

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Settings config.Settings
	Users    controllers.UserStore
	Reports  *services.ReportService
	Redis    redis.UniversalClient
}

// NewRouter wires middleware, controllers and routes into a gin engine.
func NewRouter(d Dependencies) *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = services.MaxPhotoBytes + 1<<20

	corsConfig := cors.Config{
		AllowOrigins:     d.Settings.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	auth := middlewares.AuthMiddleware(d.Settings.JWTSecret, d.Users)
	createLimit := middlewares.ReportRateLimiter(d.Redis, "report-limit", d.Settings.ReportDailyLimit)

	AuthRoutes(r, controllers.NewAuthController(d.Users, d.Settings.JWTSecret, d.Settings.IsProduction(), d.Settings.Domain), auth)
	rc := controllers.NewReportController(d.Reports)
	ReportRoutes(r, rc, auth, createLimit)
	ReviewRoutes(r, rc, auth)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	return r
}
