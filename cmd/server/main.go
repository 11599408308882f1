package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"socialwall/internal/config"
	"socialwall/internal/db"
	"socialwall/internal/middleware"
	"socialwall/internal/router"
	"socialwall/internal/services"
	"socialwall/internal/storage"
	"socialwall/internal/utils"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	utils.InitLogger(cfg.LogLevel)
	defer utils.Logger.Sync()
	gin.SetMode(cfg.GinMode())

	// Initialize Database
	conn, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		utils.Logger.Fatal("数据库连接失败", zap.Error(err))
	}

	media, err := newMediaStore(cfg)
	if err != nil {
		utils.Logger.Fatal("初始化存储失败", zap.Error(err))
	}

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	likes := services.NewLikeService(conn)
	aggregate := services.NewAggregator(conn, likes)

	r := router.New(router.Deps{
		Auth:          services.NewAuthService(conn, tokens),
		Likes:         likes,
		Comments:      services.NewCommentService(conn, likes),
		Posts:         services.NewPostService(conn, likes, aggregate),
		Feed:          services.NewFeedService(conn, aggregate),
		Friends:       services.NewFriendshipService(conn),
		Users:         services.NewUserService(conn),
		Media:         media,
		UserCache:     middleware.NewUserCache(),
		CORSOrigins:   cfg.CORSOrigins,
		SessionSecret: cfg.SessionSecret,
		SessionMaxAge: cfg.RefreshTokenTTL,
		SecureCookie:  !cfg.Debug,
	})
	if cfg.MediaBackend == "local" {
		r.Static(cfg.MediaBaseURL, cfg.MediaDir)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.Logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Logger.Fatal("启动服务器失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.Error("服务器强制关闭", zap.Error(err))
	}

	if sqlDB, err := conn.DB(); err == nil {
		sqlDB.Close()
	}
	utils.Logger.Info("服务器已优雅关闭")
}

func newMediaStore(cfg *config.Config) (storage.MediaStore, error) {
	if cfg.MediaBackend == "s3" {
		return storage.NewS3Store(cfg.S3Region, cfg.S3Bucket)
	}
	return storage.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL)
}
