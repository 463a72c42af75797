package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/auth"
	"github.com/unsw-memes/memes/internal/middleware"
	"github.com/unsw-memes/memes/internal/store"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth    *AuthHandler
	Channel *ChannelHandler
	DM      *DMHandler
	Message *MessageHandler
	Standup *StandupHandler
	User    *UserHandler
}

// NewRouter builds the gin engine: public auth routes, the authenticated /v1
// surface, static profile photos, and a snapshot of the store after every
// successful mutating request.
func NewRouter(h Handlers, authSvc *auth.Service, st *store.Store, photoDir string, env string, logger *zap.Logger) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	r.Use(snapshotAfterWrite(st))

	r.Static("/imgurl", photoDir)

	public := r.Group("/v1/auth")
	{
		public.POST("/register", h.Auth.Register)
		public.POST("/login", h.Auth.Login)
		public.POST("/passwordreset/request", h.Auth.PasswordResetRequest)
		public.POST("/passwordreset/reset", h.Auth.PasswordReset)
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(authSvc))
	{
		v1.POST("/auth/logout", h.Auth.Logout)

		v1.POST("/channels", h.Channel.Create)
		v1.GET("/channels/list", h.Channel.List)
		v1.GET("/channels/listall", h.Channel.ListAll)
		v1.GET("/channels/:id/details", h.Channel.Details)
		v1.POST("/channels/:id/join", h.Channel.Join)
		v1.POST("/channels/:id/invite", h.Channel.Invite)
		v1.POST("/channels/:id/leave", h.Channel.Leave)
		v1.POST("/channels/:id/addowner", h.Channel.AddOwner)
		v1.POST("/channels/:id/removeowner", h.Channel.RemoveOwner)
		v1.GET("/channels/:id/messages", h.Channel.Messages)
		v1.POST("/channels/:id/messages", h.Channel.Send)
		v1.POST("/channels/:id/messages/sendlater", h.Channel.SendLater)
		v1.POST("/channels/:id/standup/start", h.Standup.Start)
		v1.GET("/channels/:id/standup/active", h.Standup.Active)
		v1.POST("/channels/:id/standup/send", h.Standup.Send)

		v1.POST("/dms", h.DM.Create)
		v1.GET("/dms/list", h.DM.List)
		v1.GET("/dms/:id/details", h.DM.Details)
		v1.POST("/dms/:id/leave", h.DM.Leave)
		v1.DELETE("/dms/:id", h.DM.Remove)
		v1.GET("/dms/:id/messages", h.DM.Messages)
		v1.POST("/dms/:id/messages", h.DM.Send)
		v1.POST("/dms/:id/messages/sendlater", h.DM.SendLater)

		v1.PUT("/messages/:id", h.Message.Edit)
		v1.DELETE("/messages/:id", h.Message.Remove)
		v1.POST("/messages/:id/react", h.Message.React)
		v1.POST("/messages/:id/unreact", h.Message.Unreact)
		v1.POST("/messages/:id/pin", h.Message.Pin)
		v1.POST("/messages/:id/unpin", h.Message.Unpin)
		v1.POST("/messages/:id/share", h.Message.Share)
		v1.GET("/search", h.Message.Search)

		v1.GET("/users/all", h.User.All)
		v1.GET("/users/stats", h.User.WorkspaceStats)
		v1.GET("/users/me/stats", h.User.UserStats)
		v1.PUT("/users/me/name", h.User.SetName)
		v1.PUT("/users/me/email", h.User.SetEmail)
		v1.PUT("/users/me/handle", h.User.SetHandle)
		v1.POST("/users/me/photo", h.User.UploadPhoto)
		v1.GET("/users/:id", h.User.Profile)

		v1.GET("/notifications", h.User.Notifications)

		v1.DELETE("/admin/users/:id", h.User.AdminRemove)
		v1.POST("/admin/users/:id/permission", h.User.AdminSetPermission)

		v1.POST("/assistant", h.User.AssistantCreate)
	}

	return r
}

// requestLogger logs each request at debug level with method, path, status
// and latency.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// snapshotAfterWrite persists the store after any non-GET request that
// succeeded. Failed requests change nothing, so there is nothing to flush.
func snapshotAfterWrite(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Request.Method != "GET" && c.Writer.Status() < 400 {
			st.Flush()
		}
	}
}
