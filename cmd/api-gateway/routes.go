package main

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/civic-archive-api/internal/handler"
	"github.com/noah-isme/civic-archive-api/internal/middleware"
	"github.com/noah-isme/civic-archive-api/internal/models"
)

type routeHandlers struct {
	auth      *handler.AuthHandler
	archive   *handler.ArchiveHandler
	community *handler.CommunityHandler
	export    *handler.ExportHandler
	audit     middleware.AuditWriter
	logger    *zap.Logger
}

// registerRoutes mounts the archive API under prefix.
func registerRoutes(r *gin.Engine, prefix string, tokens middleware.TokenValidator, h routeHandlers) {
	api := r.Group(prefix)
	requireAuth := middleware.JWT(tokens)
	optionalAuth := middleware.OptionalJWT(tokens)

	auth := api.Group("/auth")
	auth.POST("/login", h.auth.Login)
	auth.POST("/refresh", h.auth.Refresh)
	auth.POST("/logout", requireAuth, h.auth.Logout)
	auth.GET("/me", requireAuth, h.auth.Me)

	archive := api.Group("/archive")
	archive.GET("/", optionalAuth, h.archive.List)
	archive.GET("/uploads/tags/", optionalAuth, middleware.WithResponseMeta(), h.archive.Tags)
	archive.GET("/export", requireAuth, middleware.RequireRoles(models.RoleAdmin), h.export.Export)

	upload := archive.Group("/upload")
	upload.POST("/", requireAuth, h.archive.Upload)
	upload.GET("/:id", optionalAuth, h.archive.Get)
	upload.PUT("/:id", requireAuth, h.archive.Replace)
	upload.PATCH("/:id", requireAuth, h.archive.Patch)
	upload.DELETE("/:id", requireAuth, h.archive.Delete)
	upload.GET("/download/:id", optionalAuth, h.archive.Download)
	upload.GET("/thumbnail/:id", optionalAuth, h.archive.Thumbnail)
	upload.POST("/tags/search/", optionalAuth, h.archive.SearchTags)

	upload.GET("/:id/comments", optionalAuth, h.community.ListComments)
	upload.POST("/:id/comments", requireAuth, h.community.CreateComment)
	upload.DELETE("/comments/:id", requireAuth,
		middleware.Audit(h.audit, h.logger, models.AuditActionCommentDelete, models.AuditResourceComment), h.community.DeleteComment)

	upload.POST("/bookmark/create/", requireAuth, h.community.CreateBookmark)
	upload.GET("/bookmark/:id/", requireAuth, h.community.GetBookmark)
	upload.DELETE("/bookmark/:id/", requireAuth, h.community.DeleteBookmark)
	upload.GET("/bookmarks/", requireAuth, h.community.ListBookmarks)
}
