package handler

import (
	"fmt"
	"log"
	"strings"
	"time"

	"securebank/internal/session"
	"securebank/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

const ctxUserID = "user_id"

// LoggerMiddleware logs one line per request.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware turns a handler panic into a 500 instead of killing
// the process.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware allows the browser dashboard to call the API.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// AuthMiddleware resolves the bearer token to a user id via the session
// store and aborts unauthenticated requests.
func AuthMiddleware(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" || token == c.GetHeader("Authorization") {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}

		userID, err := sessions.Get(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired session")
			c.Abort()
			return
		}

		c.Set(ctxUserID, userID)
		c.Next()
	}
}

// RateLimitMiddleware caps requests per client per minute with a Redis
// fixed window counter.
func RateLimitMiddleware(rdb *redis.Client, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if perMinute <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", c.ClientIP(), time.Now().Format("200601021504"))
		count, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			// rate limiting is advisory, never a reason to fail a request
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(c.Request.Context(), key, time.Minute)
		}

		if count > int64(perMinute) {
			response.Error(c, response.CodeRateLimited, "too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}
