package router

import (
	"net/http"
	"socialwall/internal/handlers"
	"socialwall/internal/middleware"
	"socialwall/internal/services"
	"socialwall/internal/storage"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// Deps is everything the route table needs, built once in main.
type Deps struct {
	Auth          *services.AuthService
	Likes         *services.LikeService
	Comments      *services.CommentService
	Posts         *services.PostService
	Feed          *services.FeedService
	Friends       *services.FriendshipService
	Users         *services.UserService
	Media         storage.MediaStore
	UserCache     *middleware.UserCache
	CORSOrigins   []string
	SessionSecret string // Signs the cookie holding the refresh token
	SessionMaxAge time.Duration
	SecureCookie  bool
}

// New builds the engine with the global middleware chain and all routes.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RecoveryMiddleware(), middleware.RequestLogger())

	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"http://localhost:5173"}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	store := cookie.NewStore([]byte(d.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(d.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   d.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("socialwall_session", store))

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	if d.UserCache == nil {
		d.UserCache = middleware.NewUserCache()
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(d.Auth)
	postHandler := handlers.NewPostHandler(d.Posts, d.Comments, d.Media)
	commentHandler := handlers.NewCommentHandler(d.Comments, d.Likes)
	likeHandler := handlers.NewLikeHandler(d.Likes)
	feedHandler := handlers.NewFeedHandler(d.Feed)
	friendshipHandler := handlers.NewFriendshipHandler(d.Friends)
	userHandler := handlers.NewUserHandler(d.Users, d.UserCache)
	imageHandler := handlers.NewImageHandler(d.Media)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 公共路由 (Public Routes)
	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.Register) // 注册
		auth.POST("/login", authHandler.Login)       // 登录，写入 refresh session
		auth.POST("/refresh", authHandler.Refresh)   // 换取新的 access token
		auth.POST("/logout", authHandler.Logout)     // 退出登录
	}

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired(d.Auth, d.UserCache))
	{
		authorized.GET("/auth/me", authHandler.Me)

		authorized.GET("/feed", feedHandler.Feed)         // 我的动态
		authorized.GET("/wall/:wallId", feedHandler.Wall) // 用户主页墙

		authorized.POST("/posts", postHandler.Create)               // 发帖 (JSON 或 multipart)
		authorized.GET("/posts/:id", postHandler.Get)               // 帖子详情
		authorized.PUT("/posts/:id", postHandler.Update)            // 编辑帖子
		authorized.DELETE("/posts/:id", postHandler.Delete)         // 删除帖子，级联评论和点赞
		authorized.GET("/posts/:id/comments", postHandler.Comments) // 顶层评论
		authorized.GET("/posts/:id/likes", postHandler.Likes)       // 帖子点赞列表

		authorized.POST("/comments", commentHandler.Create)             // 评论/回复
		authorized.GET("/comments/:id", commentHandler.Get)             // 单条评论
		authorized.PUT("/comments/:id", commentHandler.Update)          // 编辑评论
		authorized.PUT("/comments/:id/delete", commentHandler.Delete)   // 软删除评论
		authorized.GET("/comments/:id/replies", commentHandler.Replies) // 回复分页
		authorized.GET("/comments/:id/likes", commentHandler.Likes)     // 评论点赞列表

		authorized.POST("/likes", likeHandler.Create)           // 点赞
		authorized.DELETE("/likes", likeHandler.Delete)         // 按目标取消点赞
		authorized.DELETE("/likes/:id", likeHandler.DeleteByID) // 按 id 取消点赞
		authorized.GET("/likes/sample", likeHandler.Sample)     // 点赞预览

		authorized.GET("/friends", friendshipHandler.List)                     // 好友列表
		authorized.DELETE("/friends/:userId", friendshipHandler.Remove)        // 删除好友/撤回请求
		authorized.GET("/friends/requests", friendshipHandler.Requests)        // 收到的请求
		authorized.POST("/friends/requests", friendshipHandler.Send)           // 发送请求
		authorized.PUT("/friends/requests/:userId", friendshipHandler.Respond) // 接受/拒绝

		authorized.POST("/media", imageHandler.Upload) // 上传图片，返回 url

		authorized.PUT("/users/me", userHandler.UpdateMe) // 修改姓名
		authorized.GET("/users/:id", userHandler.Profile) // 用户主页头部
	}
}
