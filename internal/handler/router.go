package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mpan/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Shares    *ShareHandler
	Access    *AccessHandler
	Mounts    *MountHandler
	JWTSecret []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/login", deps.Auth.Login)
	api.GET("/logout", deps.Auth.Logout)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/share/generate", deps.Shares.GenerateLink)
	authGroup.GET("/share/list", deps.Shares.List)
	authGroup.POST("/share/cancel", deps.Shares.Cancel)
	authGroup.POST("/share/mount", deps.Mounts.Mount)

	// public share surface: callers may be anonymous, but a logged-in
	// account is recognized for the mount-implies-access rule
	publicGroup := api.Group("/public")
	publicGroup.Use(middleware.OptionalJWTAuth(deps.JWTSecret))
	publicGroup.GET("/share/access", deps.Access.Validate)
	publicGroup.POST("/share/valid-code", deps.Access.ValidateCode)
	publicGroup.GET("/share/sharer", deps.Shares.Sharer)
}
