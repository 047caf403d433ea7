package app

import (
	"commudev_backend/internal/config"
	"commudev_backend/internal/middleware"
	"commudev_backend/pkg/monitoring"
	"commudev_backend/pkg/security"
	"time"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// reads that degrade to safe defaults for anonymous callers
	optional := router.Group("/api")
	optional.Use(middleware.TryAuthMiddleware(cfg))
	{
		optional.GET("/posts/:id", c.community.GetPost)
		optional.GET("/posts/:id/like", c.community.LikeStatus)
		optional.GET("/posts/:id/comments", c.community.ListComments)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerFriendRoutes(authGroup, c)
		a.registerChatRoutes(authGroup, c, cfg)
		a.registerCommunityRoutes(authGroup, c)
		a.registerNotificationRoutes(authGroup, c)
	}
}

func (a *App) registerFriendRoutes(group *gin.RouterGroup, c *controllers) {
	friends := group.Group("/friends")
	{
		friends.GET("", c.friend.ListFriends)
		friends.POST("/requests", c.friend.SendRequest)
		friends.GET("/requests/pending", c.friend.ListPending)
		friends.GET("/requests/sent", c.friend.ListSent)
		friends.POST("/requests/:id/accept", c.friend.Accept)
		friends.POST("/requests/:id/reject", c.friend.Reject)
		friends.GET("/:userId/status", c.friend.Status)
		friends.DELETE("/:userId", c.friend.Remove)
	}
}

func (a *App) registerChatRoutes(group *gin.RouterGroup, c *controllers, cfg *config.Config) {
	// typing signals arrive on every keystroke burst; bound them per user
	typingLimit := security.RateLimiterBy(a.ctx, int(cfg.Chat.WSRatePerSecond*60), time.Minute, middleware.UserKey)

	chat := group.Group("/chat")
	{
		chat.GET("/ws", c.chat.HandleWS)
		chat.POST("/conversations", c.chat.CreateConversation)
		chat.GET("/conversations", c.chat.ListConversations)
		chat.DELETE("/conversations/:id", c.chat.DeleteConversation)
		chat.GET("/conversations/:id/messages", c.chat.ListMessages)
		chat.POST("/conversations/:id/messages", c.chat.SendMessage)
		chat.POST("/conversations/:id/read", c.chat.MarkRead)
		chat.GET("/conversations/:id/unread", c.chat.UnreadCount)
		chat.POST("/conversations/:id/typing", typingLimit, c.chat.SetTyping)
		chat.GET("/conversations/:id/typing", c.chat.TypingUsers)
		chat.PUT("/messages/:id", c.chat.EditMessage)
		chat.DELETE("/messages/:id", c.chat.DeleteMessage)
	}
}

func (a *App) registerCommunityRoutes(group *gin.RouterGroup, c *controllers) {
	group.POST("/posts", c.community.CreatePost)
	group.POST("/posts/:id/like", c.community.ToggleLike)
	group.POST("/posts/:id/comments", c.community.CreateComment)
	group.GET("/comments/mine", c.community.ListMyComments)
	group.PUT("/comments/:id", c.community.UpdateComment)
	group.DELETE("/comments/:id", c.community.DeleteComment)
}

func (a *App) registerNotificationRoutes(group *gin.RouterGroup, c *controllers) {
	notifications := group.Group("/notifications")
	{
		notifications.GET("", c.notification.List)
		notifications.GET("/unread", c.notification.ListUnread)
		notifications.GET("/unread/count", c.notification.UnreadCount)
		notifications.PUT("/read-all", c.notification.MarkAllRead)
		notifications.PUT("/:id/read", c.notification.MarkRead)
		notifications.DELETE("/:id", c.notification.Delete)
		notifications.DELETE("", c.notification.DeleteAll)
	}
}
