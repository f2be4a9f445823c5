// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diof-search/internal/config"
	"diof-search/internal/handler"
	"diof-search/internal/metrics"
	"diof-search/internal/middleware"
	"diof-search/internal/pipeline"
	"diof-search/internal/repository"
	"diof-search/internal/seed"
	"diof-search/internal/service"
	"diof-search/pkg/database"
	"diof-search/pkg/es"
	"diof-search/pkg/kafka"
	"diof-search/pkg/log"
	"diof-search/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. 初始化配置
	configPath := os.Getenv("DIOF_CONFIG")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	if err := log.Init(cfg.Log); err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化存储与基础设施
	esClient, err := es.NewClient(cfg.Elasticsearch)
	if err != nil {
		log.Fatal("es 初始化失败", err)
	}
	docStore := es.NewStore(esClient, cfg.Elasticsearch.Refresh)

	var (
		indexRepo repository.IndexRepository
		docRepo   repository.DocumentRepository
	)
	if cfg.Database.MySQL.DSN != "" {
		database.InitMySQL(cfg.Database.MySQL.DSN)
		indexRepo = repository.NewIndexRepository(database.DB)
		docRepo = repository.NewDocumentRepository(database.DB)
	} else {
		log.Warnf("未配置 MySQL, 索引登记与入库台账将被禁用")
	}

	// 4. 初始化 Service
	indexService := service.NewIndexService(docStore, indexRepo, cfg.Analyzer, cfg.Elasticsearch.PipelineID)
	ingestService := service.NewIngestService(docStore, docRepo, indexRepo, cfg.Elasticsearch.PipelineID, cfg.Elasticsearch.IndexName)
	searchService := service.NewSearchService(docStore, cfg.Search, cfg.Elasticsearch.IndexName)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	if err := indexService.EnsurePipeline(startCtx); err != nil {
		log.Fatal("注册抽取管道失败", err)
	}
	if cfg.Elasticsearch.CreateIndexOnStart {
		if err := indexService.EnsureIndex(startCtx, cfg.Elasticsearch.IndexName); err != nil {
			log.Fatal("创建默认索引失败", err)
		}
	}
	cancelStart()

	// 5. 异步入库：MinIO 暂存 + Kafka 队列 + Redis 任务状态，三者齐备才启用
	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	var uploadService service.UploadService
	if cfg.Kafka.Brokers != "" && cfg.MinIO.Endpoint != "" {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			log.Fatal("初始化 Redis 失败", err)
		}
		defer rdb.Close()
		objects := storage.InitMinIO(cfg.MinIO)
		taskRepo := repository.NewTaskRepository(rdb)
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()

		uploadService = service.NewUploadService(docStore, objects, producer, taskRepo, cfg.Elasticsearch.IndexName)
		processor := pipeline.NewProcessor(objects, ingestService, taskRepo)
		go kafka.StartConsumer(bgCtx, cfg.Kafka, processor)
	} else {
		log.Warnf("未配置 Kafka 或 MinIO, 异步上传接口不可用")
	}

	// 6. 初始化导入目录
	if !cfg.Seed.Disabled {
		go func() {
			if _, err := seed.Import(bgCtx, cfg.Seed.Dir, cfg.Elasticsearch.IndexName, cfg.Seed.Workers, ingestService); err != nil {
				log.Warnf("初始化导入发生错误: %v", err)
			}
		}()
	}

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(cfg.Server.AllowOrigin), metrics.Middleware())
	r.MaxMultipartMemory = cfg.Server.MaxUploadSize

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.Register(r.Group("/api/v1"), handler.Handlers{
		Upload:   handler.NewUploadHandler(ingestService, uploadService, cfg.Server.MaxUploadSize),
		Search:   handler.NewSearchHandler(searchService),
		Index:    handler.NewIndexHandler(indexService),
		Document: handler.NewDocumentHandler(ingestService),
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	// 停止 Kafka 消费者与初始化导入
	cancelBg()
	log.Info("服务已优雅关闭")
}
