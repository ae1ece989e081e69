package middlewares

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateLimitWindow = 24 * time.Hour

// ReportRateLimiter caps how many reports one user may file per 24h window.
func ReportRateLimiter(rdb redis.UniversalClient, prefix string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		ctx := c.Request.Context()
		userKey := prefix + ":" + actor.ID.Hex()

		count, err := rdb.Incr(ctx, userKey).Result()
		if err != nil {
			log.Printf("Error incrementing rate limit for %s: %v", userKey, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
			return
		}

		// TTL starts with the first report of the window.
		if count == 1 {
			if err := rdb.Expire(ctx, userKey, rateLimitWindow).Err(); err != nil {
				log.Printf("Error setting rate limit TTL for %s: %v", userKey, err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
				return
			}
		}

		if count > int64(limit) {
			retryAfter, _ := rdb.TTL(ctx, userKey).Result()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter.Seconds(),
			})
			return
		}

		c.Next()
	}
}
