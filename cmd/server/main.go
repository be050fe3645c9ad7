// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dead-inside-go/internal/config"
	"dead-inside-go/internal/handler"
	"dead-inside-go/internal/middleware"
	"dead-inside-go/internal/pipeline"
	"dead-inside-go/internal/repository"
	"dead-inside-go/internal/service"
	"dead-inside-go/pkg/database"
	"dead-inside-go/pkg/es"
	"dead-inside-go/pkg/kafka"
	"dead-inside-go/pkg/llm"
	"dead-inside-go/pkg/log"
	"dead-inside-go/pkg/storage"
	"dead-inside-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	// 1. 加载环境变量与配置
	if err := godotenv.Load(); err != nil {
		// .env 是可选的，生产环境通常直接注入环境变量
		fmt.Println("未找到 .env 文件，使用进程环境变量")
	}
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化 Redis、MinIO、Elasticsearch 和 Kafka
	database.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	characterRepo := repository.NewCharacterRepository(database.RDB)
	conversationRepo := repository.NewConversationRepository(database.RDB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TokenExpireHours)
	llmClient := llm.NewClient(cfg.OpenAI)
	characterService := service.NewCharacterService(llmClient)
	sessionService := service.NewSessionService(characterRepo, conversationRepo, llmClient, kafka.ProduceSessionEvent)
	conversationService := service.NewConversationService(conversationRepo)
	audioService := service.NewAudioService(characterRepo, llmClient, true)
	archiveService := service.NewArchiveService(cfg.Elasticsearch)

	// 6. 初始化会话归档管道 (Processor)
	processor := pipeline.NewProcessor(conversationRepo, characterRepo, cfg.Elasticsearch)

	// 7. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 7.1 定时清理已结束且超过保留时长的会话
	retention := time.Duration(cfg.Session.RetentionHours) * time.Hour
	cronRunner := cron.New()
	_, err := cronRunner.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		deleted, err := conversationService.CleanupEnded(ctx, retention)
		if err != nil {
			log.Errorf("定时清理会话失败: %v", err)
			return
		}
		if deleted > 0 {
			log.Infof("定时清理删除了 %d 个过期会话", deleted)
		}
	})
	if err != nil {
		log.Fatalf("注册定时清理任务失败: %v", err)
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	characterHandler := handler.NewCharacterHandler(characterService, characterRepo)
	conversationHandler := handler.NewConversationHandler(conversationService, sessionService)
	interactHandler := handler.NewInteractHandler(audioService, sessionService)
	audioHandler := handler.NewAudioHandler(audioService)
	authHandler := handler.NewAuthHandler(jwtManager)
	adminHandler := handler.NewAdminHandler(conversationService, archiveService)
	chatHandler := handler.NewChatHandler(conversationService, sessionService)

	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/token", authHandler.Token)
		}

		// Character 路由组
		characters := apiV1.Group("/characters")
		{
			characters.POST("/generate", characterHandler.Generate)
			characters.GET("", characterHandler.List)
			characters.GET("/:id", characterHandler.Get)
			characters.DELETE("/:id", characterHandler.Delete)
		}

		// Conversation 路由组
		conversations := apiV1.Group("/conversations")
		{
			conversations.POST("", conversationHandler.CreateTurn)
			conversations.GET("", conversationHandler.List)
			conversations.GET("/:id", conversationHandler.Get)
			conversations.DELETE("/:id", conversationHandler.Delete)
		}

		// 语音交互与透传路由
		apiV1.POST("/interact", interactHandler.Interact)
		apiV1.POST("/stt", audioHandler.Transcribe)
		apiV1.POST("/tts", audioHandler.Synthesize)

		// Chat 路由 (WebSocket)
		apiV1.GET("/chat/live/:conversationId", chatHandler.Handle)

		admin := apiV1.Group("/admin")
		// 管理员路由组，需要通过管理员 JWT 认证
		admin.Use(middleware.AdminAuthMiddleware(jwtManager))
		{
			admin.DELETE("/cleanup", adminHandler.Cleanup)
			admin.GET("/archive/search", adminHandler.SearchArchive)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费者是一个循环，会在程序退出时自然结束。
	log.Info("服务已优雅关闭")
}
