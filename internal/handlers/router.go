package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/auth"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/pkg/utils"
)

// RouterDeps bundles what NewRouter wires together.
type RouterDeps struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Health       *HealthHandler
	Sessions     *auth.SessionResolver
	Codec        *auth.Codec
	LoginLimiter utils.Limiter
}

// NewRouter builds the gin engine with every route of the service.
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger())

	router.GET("/health", d.Health.HealthCheck)

	session := d.Sessions.Middleware()

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/login", utils.RateLimitMiddleware(d.LoginLimiter), d.Auth.Login)
		authRoutes.POST("/refresh", auth.RefreshTokenMiddleware(d.Codec), d.Auth.Refresh)
		authRoutes.POST("/logout", session, d.Auth.Logout)
		authRoutes.POST("/logout-all", session, d.Auth.LogoutAll)
	}

	userRoutes := router.Group("/users")
	{
		userRoutes.POST("", d.Users.Signup)
		userRoutes.GET("/email/:email", d.Users.CheckEmail)
		userRoutes.GET("/nickname/:nickname", d.Users.CheckNickname)

		own := userRoutes.Group("/:user_id", session, auth.RequireOwner("user_id"))
		{
			own.GET("", d.Users.GetUser)
			own.PATCH("/profile", d.Users.UpdateProfile)
			own.PATCH("/password", d.Users.ChangePassword)
			own.DELETE("", d.Users.DeleteAccount)
		}
	}

	return router
}
