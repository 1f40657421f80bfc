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

	"field-smart-go/internal/config"
	"field-smart-go/internal/handler"
	"field-smart-go/internal/middleware"
	"field-smart-go/internal/pipeline"
	"field-smart-go/internal/repository"
	"field-smart-go/internal/service"
	"field-smart-go/pkg/database"
	"field-smart-go/pkg/embedding"
	"field-smart-go/pkg/es"
	"field-smart-go/pkg/kafka"
	"field-smart-go/pkg/log"
	"field-smart-go/pkg/storage"
	"field-smart-go/pkg/tika"
	"field-smart-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("./configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储与向量索引
	db, err := database.NewMySQL(cfg.Database.MySQL.DSN)
	if err != nil {
		log.Fatalf("MySQL 初始化失败: %v", err)
	}
	rdb, err := database.NewRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		log.Fatalf("Redis 初始化失败: %v", err)
	}
	objectStore, err := storage.New(cfg.MinIO)
	if err != nil {
		log.Fatalf("MinIO 初始化失败: %v", err)
	}
	esClient, err := es.NewClient(cfg.Elasticsearch, cfg.Embedding.Dimensions)
	if err != nil {
		log.Fatalf("Elasticsearch 初始化失败: %v", err)
	}
	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	// 4. 初始化 Repository
	fileRepo := repository.NewFileRepository(db)
	chunkRepo := repository.NewChunkRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	savedQueryRepo := repository.NewSavedQueryRepository(db)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	searchService := service.NewSearchService(embeddingClient, esClient, fileRepo, cfg.Search)
	analyticsService := service.NewAnalyticsService(analyticsRepo, savedQueryRepo, rdb)
	documentService := service.NewDocumentService(fileRepo, chunkRepo, esClient, objectStore, producer, cfg.Processing.MaxFileSize)

	// 6. 初始化文件处理管道 (Processor)
	processor := pipeline.NewProcessor(
		tikaClient,
		embeddingClient,
		objectStore,
		fileRepo,
		chunkRepo,
		esClient,
		cfg.Processing,
		cfg.Embedding.Model,
	)

	// 7. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, processor, rdb)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(jwtManager))
	{
		// 文件路由组
		files := apiV1.Group("/files")
		{
			fileHandler := handler.NewFileHandler(documentService)
			files.POST("/upload", fileHandler.Upload)
			files.GET("", fileHandler.ListFiles)
			files.GET("/:id/chunks", fileHandler.ListChunks)
			files.DELETE("/:id", fileHandler.DeleteFile)

			processHandler := handler.NewProcessHandler(processor)
			files.POST("/process", processHandler.ProcessFile)
			// 批量处理会扫描全部未处理文件，仅限管理角色触发
			files.POST("/process/batch",
				middleware.RequireRoles(token.RoleAdmin, token.RoleSupervisor),
				processHandler.ProcessBatch)
		}

		// 检索与分析路由组
		search := apiV1.Group("/search")
		{
			search.GET("", handler.NewSearchHandler(searchService, analyticsService).Search)

			analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
			search.POST("/track-click", analyticsHandler.TrackResultClick)
			search.GET("/history", analyticsHandler.GetHistory)
			search.GET("/summary", analyticsHandler.GetSummary)
			search.GET("/popular", analyticsHandler.GetPopularQueries)

			saved := search.Group("/saved")
			{
				saved.POST("", analyticsHandler.SaveQuery)
				saved.GET("", analyticsHandler.ListSavedQueries)
				saved.POST("/:id/use", analyticsHandler.UseSavedQuery)
				saved.DELETE("/:id", analyticsHandler.DeleteSavedQuery)
			}
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
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("收到停机信号, 开始优雅停机...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("服务停机失败: %v", err)
	}
	log.Info("服务已退出")
}
