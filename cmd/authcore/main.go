package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/authcore/internal/audit"
	"github.com/authcore/internal/bootstrap"
	"github.com/authcore/internal/permission"
	"github.com/authcore/internal/role"
	"github.com/authcore/internal/session"
	"github.com/authcore/internal/user"
	"github.com/authcore/pkg/config"
	"github.com/authcore/pkg/database"
	"github.com/authcore/pkg/logger"
	"github.com/authcore/pkg/middleware"
	"github.com/authcore/pkg/response"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	if err := config.Init(""); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 初始化数据库
	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer database.Close()

	// 初始化Redis
	if err := database.InitRedis(&cfg.Redis); err != nil {
		logger.Fatal("初始化Redis失败", zap.Error(err))
	}
	defer database.CloseRedis()

	// 迁移数据表并写入初始数据
	if err := bootstrap.Run(context.Background()); err != nil {
		logger.Fatal("初始化数据失败", zap.Error(err))
	}

	// 组装服务
	registry := session.NewRegistry(time.Duration(cfg.Session.TimeoutMinutes) * time.Minute)

	auditRepo := audit.NewRepository()
	auditSvc := audit.NewService(auditRepo)
	gate := auditSvc.Gate()

	permRepo := permission.NewRepository()
	permSvc := permission.NewService(permRepo, gate)

	roleRepo := role.NewRepository()
	roleSvc := role.NewService(roleRepo, permRepo, gate)

	userRepo := user.NewRepository()
	userSvc := user.NewService(userRepo, roleRepo, permRepo, registry, auditSvc)

	// HTTP服务
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Duration(cfg.Server.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.HTTP.WriteTimeout) * time.Second,
	})
	app.Use(middleware.Recovery())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.Cors())

	app.Get("/health", func(c *fiber.Ctx) error {
		return response.Success(c, fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")
	authMiddleware := session.Auth(registry)
	user.NewController(userSvc).RegisterRoutes(api, authMiddleware)
	role.NewController(roleSvc).RegisterRoutes(api, authMiddleware)
	permission.NewController(permSvc).RegisterRoutes(api, authMiddleware)
	audit.NewController(auditSvc).RegisterRoutes(api, authMiddleware)

	// 启动与优雅退出
	go func() {
		addr := cfg.Server.HTTP.Addr()
		logger.Info("HTTP服务启动", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			logger.Fatal("HTTP服务异常退出", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("收到退出信号，开始关闭")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("HTTP服务关闭失败", zap.Error(err))
	}
	logger.Info("服务已退出")
}
