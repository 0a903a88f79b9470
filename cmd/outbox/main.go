package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/cache"
	"github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/database"
	"github.com/wyfcoding/pkg/limiter"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/pkg/messagequeue/outbox"
	"github.com/wyfcoding/pkg/metrics"
	"github.com/wyfcoding/pkg/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/notificationhub/internal/outbox/application"
	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
	"github.com/wyfcoding/notificationhub/internal/outbox/infrastructure/handler"
	"github.com/wyfcoding/notificationhub/internal/outbox/infrastructure/messaging"
	"github.com/wyfcoding/notificationhub/internal/outbox/infrastructure/persistence/mysql"
	outboxredis "github.com/wyfcoding/notificationhub/internal/outbox/infrastructure/persistence/redis"
	"github.com/wyfcoding/notificationhub/internal/outbox/infrastructure/scheduler"
	"github.com/wyfcoding/notificationhub/internal/outbox/infrastructure/templates"
	"github.com/wyfcoding/notificationhub/internal/outbox/interfaces/consumer"
	httpserver "github.com/wyfcoding/notificationhub/internal/outbox/interfaces/http"
)

var configPath = flag.String("config", "configs/outbox/config.toml", "config file path")

const (
	dispatchWorkers   = 8
	dispatchQueueSize = 256
)

// Config 服务扩展配置，附加各渠道处理器的凭据段
type Config struct {
	config.Config `mapstructure:",squash"`

	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
	} `mapstructure:"smtp"`

	SMS struct {
		GatewayURL string `mapstructure:"gateway_url"`
		APIKey     string `mapstructure:"api_key"`
	} `mapstructure:"sms"`

	FCM struct {
		ServerKey string `mapstructure:"server_key"`
	} `mapstructure:"fcm"`
}

func main() {
	flag.Parse()

	// 1. 配置
	var cfg Config
	if err := config.Load(*configPath, &cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 日志
	logCfg := &logging.Config{Service: cfg.Server.Name, Level: cfg.Log.Level}
	logger := logging.NewFromConfig(logCfg)
	slog.SetDefault(logger.Logger)

	// 3. 指标
	metricsImpl := metrics.NewMetrics(cfg.Server.Name)

	// 4. 数据库
	db, err := database.NewDB(cfg.Data.Database, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	if cfg.Server.Environment == "dev" {
		err := db.RawDB().AutoMigrate(
			&domain.NotificationOutbox{},
			&domain.RecipientItem{},
			&domain.NotificationChannel{},
			&outbox.Message{},
		)
		if err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	// 5. Kafka & Outbox
	kafkaProducer := kafka.NewProducer(&cfg.MessageQueue.Kafka, logger, metricsImpl)
	outboxMgr := outbox.NewManager(db.RawDB(), logger.Logger)
	pusher := func(ctx context.Context, topic, key string, payload []byte) error {
		return kafkaProducer.PublishToTopic(ctx, topic, []byte(key), payload)
	}
	outboxProcessor := outbox.NewProcessor(outboxMgr, pusher, 100, 2*time.Second)

	// 6. Redis
	redisCache, err := cache.NewRedisCache(&cfg.Data.Redis, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}
	rateLimiter := limiter.NewRedisLimiter(redisCache.GetClient(), cfg.RateLimit.Rate, cfg.RateLimit.Burst)

	// 7. 仓储与缓存
	outboxRepo := mysql.NewOutboxRepository(db.RawDB())
	channelRepo := mysql.NewChannelRepository(db.RawDB())
	statusCache := outboxredis.NewStatusCache(redisCache.GetClient(), 0)
	publisher := messaging.NewOutboxPublisher(outboxMgr)

	// 8. 调度与应用服务
	pool := scheduler.NewWorkerPool(dispatchWorkers, dispatchQueueSize)
	registry := handler.NewRegistry()
	renderer := templates.NewRenderer()
	svc := application.NewOutboxService(outboxRepo, channelRepo, registry, pool, publisher, statusCache, renderer)

	// 处理器注册表：渠道配置存在且启用但未在此注册的渠道会以
	// NOTIFICATION_CHANNEL_HANDLER_NOT_FOUND 拒绝提交
	registry.Register("email", handler.NewEmailHandler(
		cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, svc))
	registry.Register("sms", handler.NewSMSHandler(cfg.SMS.GatewayURL, cfg.SMS.APIKey, svc))
	registry.Register("fcm", handler.NewFCMHandler(cfg.FCM.ServerKey, svc))

	// 9. 回执消费端
	receiptHandler := consumer.NewReceiptHandler(svc, logger.Logger)
	consumerCfg := cfg.MessageQueue.Kafka
	consumerCfg.Topic = consumer.DeliveryReceiptTopic
	if consumerCfg.GroupID == "" {
		consumerCfg.GroupID = "notification-outbox-receipts"
	}
	receiptConsumer := kafka.NewConsumer(&consumerCfg, logger, metricsImpl)

	// 10. 接口层
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.HTTPMetricsMiddleware(metricsImpl), middleware.CORS())
	r.GET("/sys/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "service": cfg.Server.Name, "timestamp": time.Now().Unix()})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(metricsImpl.Handler()))
	}
	api := r.Group("/api")
	api.Use(middleware.RateLimitWithLimiter(rateLimiter))
	httpserver.NewHandler(svc).RegisterRoutes(api)

	// 11. 启动
	g, ctx := errgroup.WithContext(context.Background())

	pool.Start(ctx)
	receiptConsumer.Start(ctx, 3, receiptHandler.Handle)

	g.Go(func() error {
		outboxProcessor.Start()
		<-ctx.Done()
		outboxProcessor.Stop()
		return nil
	})

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.HTTP.Port)
		server := &http.Server{Addr: addr, Handler: r}
		slog.Info("HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down servers...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}
		pool.Stop()
		redisCache.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
