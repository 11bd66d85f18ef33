package handler

import (
	"securebank/internal/config"
	"securebank/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter wires middleware and routes. Everything under /api/v1 except
// auth requires a valid session.
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())
	r.Use(RateLimitMiddleware(rdb, cfg.Business.RateLimitPerMinute))

	sessions := session.NewStore(rdb, cfg.Session.SessionTTL())
	h := NewHandler(db, sessions, cfg)

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", AuthMiddleware(sessions), h.Logout)
	}

	authed := api.Group("")
	authed.Use(AuthMiddleware(sessions))
	{
		authed.GET("/profile", h.GetProfile)
		authed.PUT("/profile", h.UpdateProfile)
		authed.POST("/profile/password", h.ChangePassword)

		authed.GET("/accounts", h.ListAccounts)
		authed.GET("/accounts/:id/transactions", h.ListTransactions)
		authed.GET("/stats", h.GetStats)

		authed.POST("/transfers", h.Transfer)

		authed.GET("/cards", h.ListCards)
		authed.POST("/cards/:id/block", h.BlockCard)
		authed.POST("/cards/:id/unblock", h.UnblockCard)

		authed.GET("/beneficiaries", h.ListBeneficiaries)
		authed.POST("/beneficiaries", h.AddBeneficiary)
		authed.DELETE("/beneficiaries/:id", h.DeleteBeneficiary)

		authed.GET("/notifications", h.ListNotifications)
		authed.POST("/notifications/:id/read", h.MarkNotificationRead)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
