package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/microshop/backend/services/common/logger"
	"github.com/microshop/backend/services/common/metrics"
	"github.com/microshop/backend/services/common/middleware"
	"github.com/microshop/backend/services/order-service/controllers"
	"github.com/microshop/backend/services/order-service/database"
	"github.com/microshop/backend/services/order-service/events"
	"github.com/microshop/backend/services/order-service/models"
	"github.com/microshop/backend/services/order-service/repository"
	"github.com/microshop/backend/services/order-service/routes"
	"github.com/microshop/backend/services/order-service/services"
)

func main() {
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("order-service: %v", err)
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()
	lg := logger.Log

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		lg.Fatal("Failed to open order store", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}); err != nil {
		lg.Fatal("Migration failed", zap.Error(err))
	}

	reg := metrics.NewRegistry()

	userClient, err := services.NewUserClient(cfg.UserServiceURL, cfg.ValidationTimeout, cfg.ValidationBackoff, reg, lg)
	if err != nil {
		lg.Fatal("Invalid user service address", zap.Error(err))
	}

	var producer *events.Producer
	if cfg.KafkaBrokers != "" {
		producer = events.NewProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.OrderEventsTopic)
		defer producer.Close()
	}

	orderRepo := repository.NewGormOrderRepository(db, cfg.StoreBusyRetries, cfg.StoreBusyBackoff)
	orderService := services.NewOrderService(orderRepo, userClient, producer, cfg.StoreRetries, cfg.StoreRetryBackoff, lg)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(lg))
	r.Use(middleware.Metrics(reg))

	routes.RegisterOrderRoutes(r, controllers.NewOrderController(orderService), controllers.NewHealthController(db), reg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		lg.Info("Order Service started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Fatal("Server forced to shutdown", zap.Error(err))
	}
	lg.Info("Server exited cleanly")
}
