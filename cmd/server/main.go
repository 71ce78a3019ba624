package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LyceumX/equant/internal/client"
	"github.com/LyceumX/equant/internal/config"
	"github.com/LyceumX/equant/internal/event"
	"github.com/LyceumX/equant/internal/handler"
	"github.com/LyceumX/equant/internal/llm"
	"github.com/LyceumX/equant/internal/middleware"
	"github.com/LyceumX/equant/internal/repository"
	"github.com/LyceumX/equant/internal/service"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Default lookback for analysis requests; backtests carry their own
const analysisLookbackDays = 90

func main() {
	// Load configuration
	configPath := os.Getenv("EQUANT_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Optional backtest-history database
	var backtestRepo *repository.BacktestRepository
	if cfg.Database.Enabled {
		db, err := connectToDB(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		backtestRepo = repository.NewBacktestRepository(db, logger)
	}

	// Optional usage-event producer
	var events *event.Producer
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		events = event.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ClientID, logger)
		defer events.Close()
	}

	// Narrative provider: a missing configuration is not fatal, the
	// template fallback covers it
	provider, err := llm.NewProvider(cfg.AI, logger)
	if err != nil {
		if err == llm.ErrNotConfigured {
			logger.Warn("No LLM provider configured, narrative falls back to template summaries")
		} else {
			logger.Fatal("Failed to initialize LLM provider", zap.Error(err))
		}
	} else {
		logger.Info("LLM provider initialized", zap.String("provider", provider.Name()))
	}

	// Initialize clients
	chartClient := client.NewChartClient(cfg.MarketData.ChartURL, cfg.MarketData.Timeout, logger)
	reportClient := client.NewReportClient(cfg.Fundamentals.ReportURL, cfg.Fundamentals.Timeout, logger)

	// Initialize services
	marketDataService := service.NewMarketDataService(chartClient, cfg.MarketData.Timeout, logger)
	fundamentalService := service.NewFundamentalService(reportClient, cfg.Fundamentals.Timeout, logger)
	narrativeService := service.NewNarrativeService(provider, cfg.AI.Timeout, logger)
	analysisService := service.NewAnalysisService(
		marketDataService,
		fundamentalService,
		narrativeService,
		analysisLookbackDays,
		logger,
	)
	backtestService := service.NewBacktestService(marketDataService, cfg.Backtest, logger)

	// Initialize handlers
	analysisHandler := handler.NewAnalysisHandler(analysisService, events, cfg.Kafka.Topics["analysis"], logger)
	backtestHandler := handler.NewBacktestHandler(backtestService, backtestRepo, events, cfg.Kafka.Topics["backtest"], logger)

	// Set up HTTP server with Gin
	router := setupRouter(analysisHandler, backtestHandler, logger, cfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func createLogger(level string) (*zap.Logger, error) {
	// Parse log level
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	// Create logger config
	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

func connectToDB(dbConfig config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.DBName,
		dbConfig.SSLMode,
	)

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(dbConfig.MaxOpenConns)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	return db, nil
}

func setupRouter(
	analysisHandler *handler.AnalysisHandler,
	backtestHandler *handler.BacktestHandler,
	logger *zap.Logger,
	cfg *config.Config,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		// Analysis routes
		analyze := v1.Group("/analyze")
		{
			analyze.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret, logger))
			analyze.GET("/:symbol", analysisHandler.Analyze)
		}

		// Backtest routes (premium only)
		backtests := v1.Group("/backtest")
		{
			backtests.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret, logger))
			backtests.Use(middleware.RequirePremium(logger))

			backtests.POST("", backtestHandler.RunBacktest)
			backtests.GET("/history", backtestHandler.History)
		}
	}
	return router
}
