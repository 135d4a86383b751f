package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loyalty-service/controllers"
	"loyalty-service/database"
	"loyalty-service/repository"
	"loyalty-service/routes"
	"loyalty-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	aws_pkg "loyalty-service/pkg/aws"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal("Config load failed", zap.Error(err))
	}

	// --- Database ---
	if err := database.Connect(logger); err != nil {
		logger.Fatal("DB connection failed", zap.Error(err))
	}

	// --- AWS setup ---
	awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}
	snsClient := aws_pkg.NewSNSClient(awsCfg)

	// --- HTTP router ---
	r := gin.New()
	r.Use(gin.Recovery())

	// CloudWatch HTTP metrics middleware
	var metricsClient *aws_pkg.MetricsClient
	r.Use(func(c *gin.Context) {
		if metricsClient == nil || !metricsClient.IsEnabled() {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		go func(path, method string, status int, dur time.Duration) {
			mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			dims := map[string]string{"Service": "loyalty-service", "Method": method, "Path": path}
			_ = metricsClient.RecordCount(mctx, aws_pkg.MetricHTTPRequests, dims)
			_ = metricsClient.RecordLatency(mctx, aws_pkg.MetricHTTPLatency, dur, dims)
			if status >= 400 {
				_ = metricsClient.RecordCount(mctx, aws_pkg.MetricHTTPErrors, dims)
			}
		}(c.Request.URL.Path, c.Request.Method, c.Writer.Status(), time.Since(start))
	})

	// Structured HTTP request logging
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	})

	// Request timeout middleware
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// --- CloudWatch metrics (non-fatal) ---
	metricsClient, err = aws_pkg.NewMetricsClient(context.Background())
	if err != nil {
		logger.Warn("CloudWatch metrics client init failed (non-fatal)", zap.Error(err))
	}

	// --- Dependency injection ---
	rewardRepo := repository.NewGormRewardRepository(database.DB)
	couponRepo := repository.NewGormCouponRepository(database.DB)
	customerRepo := repository.NewGormCustomerRepository(database.DB)

	randSource := services.NewLockedRand(time.Now().UnixNano())
	evaluator := services.NewEligibilityEvaluator(couponRepo)
	selector := services.NewPrizeSelector(randSource)
	aggregator := services.NewAnalyticsAggregator(rewardRepo, logger)

	rewardService := services.NewRewardService(
		rewardRepo, couponRepo, customerRepo,
		evaluator, selector, aggregator, randSource,
		snsClient, cfg.RewardsSNSTopicARN, metricsClient, logger,
	)
	triggerService := services.NewTriggerService(rewardRepo, customerRepo, rewardService, metricsClient, logger)

	rewardController := controllers.NewRewardController(rewardService)
	couponController := controllers.NewCouponController(rewardService)
	eventController := controllers.NewEventController(triggerService)

	routes.RegisterRewardRoutes(r, rewardController)
	routes.RegisterCouponRoutes(r, couponController)
	routes.RegisterEventRoutes(r, eventController)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "loyalty-service"})
	})

	// --- Feedback queue consumer ---
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()
	if cfg.FeedbackQueueURL != "" {
		sqsConsumer := aws_pkg.NewSQSConsumer(awsCfg, cfg.FeedbackQueueURL)
		feedbackConsumer := services.NewFeedbackConsumer(sqsConsumer, triggerService, logger)
		go func() {
			if err := feedbackConsumer.Start(consumerCtx); err != nil && err != context.Canceled {
				logger.Error("Feedback consumer stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("FEEDBACK_QUEUE_URL not set, queue consumer disabled")
	}

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("Loyalty Service started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Initiating graceful shutdown...")
	consumerCancel()

	httpShutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(httpShutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := database.Close(); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}

	log.Println("Loyalty Service stopped gracefully")
}
