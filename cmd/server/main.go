package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/antonionng/luke-robert-hair-sub001/pkg/config"
	"github.com/antonionng/luke-robert-hair-sub001/pkg/database"
	"github.com/antonionng/luke-robert-hair-sub001/pkg/handlers"
	"github.com/antonionng/luke-robert-hair-sub001/pkg/middleware"
	"github.com/antonionng/luke-robert-hair-sub001/pkg/notify"
	"github.com/antonionng/luke-robert-hair-sub001/pkg/referral"
	"github.com/antonionng/luke-robert-hair-sub001/pkg/repository"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := database.InitDB(ctx, cfg.Database.URL)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("Redis unreachable at startup; rate limiting degrades to pass-through")
	}

	registry := repository.NewReferralRepository(pool)
	redemptions := repository.NewRedemptionRepository(pool)
	contacts := repository.NewContactRepository(pool)

	generator := referral.NewGenerator(registry, cfg.Referral)
	validator := referral.NewValidator(registry, redemptions)
	recorder := referral.NewRecorder(validator, redemptions, contacts, notify.NewEmailSender(cfg.SMTP))
	aggregator := referral.NewAggregator(registry, redemptions)

	referralHandler := handlers.NewReferralHandler(
		generator, validator, recorder, aggregator, registry, cfg.Server.SiteBaseURL)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{cfg.Server.SiteBaseURL},
		AllowMethods:  []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/referrals")
	api.Use(middleware.RateLimit(redisClient))
	{
		api.POST("/generate", referralHandler.Generate)
		api.POST("/validate", referralHandler.Validate)
		api.POST("/apply", referralHandler.Apply)
		api.GET("/stats", referralHandler.Stats)
	}

	backoffice := router.Group("/api")
	backoffice.Use(middleware.AdminAuth(cfg.Admin.JWTSecret))
	{
		backoffice.GET("/referrals/leaderboard", referralHandler.Leaderboard)
		backoffice.POST("/referrals/redemptions/:id/complete", referralHandler.MarkCompleted)
		backoffice.PATCH("/admin/referrals/:id", referralHandler.UpdateStatus)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logrus.Infof("Starting referral service on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start service: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Fatalf("Service forced to shutdown: %v", err)
	}

	logrus.Info("Service exited")
}
