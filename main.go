// File: dhub/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dhub/config"
	"dhub/cron"
	"dhub/database"
	recordsRepo "dhub/database/repository/records"
	"dhub/handlers"
	"dhub/middleware"
	"dhub/routes"
	"dhub/services/catalog"
	"dhub/services/flowstate"
	"dhub/services/payments"
	"dhub/services/upstream"
	"dhub/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	utils.InitializeLogger()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitFlowCache()
	stripe.Key = config.AppConfig.StripeKey

	// Upstream client and the slug cache behind the rewrite layer.
	client := upstream.NewClient(config.AppConfig.APIBaseURL, logger)
	client.Timeout = time.Duration(config.AppConfig.UpstreamTimeoutSecs) * time.Second
	client.MaxAttempts = config.AppConfig.UpstreamMaxAttempts
	slugCache := catalog.NewSlugCache(client, time.Duration(config.AppConfig.SlugCacheTTLMin)*time.Minute, logger)

	// Create the Gin router. The rewrite layer runs before logging and
	// rate limiting: a rewrite re-enters the chain, and the request must
	// only be logged and charged once, on the rewritten pass.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.SlugRewrite(router, slugCache))
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(middleware.GeolocationMiddleware())

	// Flow state, booking records and payments.
	flowStore := flowstate.NewStore(utils.GetFlowCacheClient(), time.Duration(config.AppConfig.FlowSessionTTLHours)*time.Hour)
	recordRepo := recordsRepo.NewMongoRecordRepo()
	paymentSvc := payments.NewStripeService(logger)

	cron.InitReminderClient()
	cron.InitReminderWorker(flowStore)

	handlerBundle := &handlers.HandlerBundle{
		Flow:    handlers.NewFlowHandler(flowStore, recordRepo, paymentSvc, cron.EnqueueFlowReminder, logger),
		Catalog: handlers.NewCatalogHandler(client, slugCache, utils.GetCacheClient(), logger),
		Geo:     &handlers.GeoHandler{},
	}

	routes.RegisterRoutes(router, handlerBundle)

	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetCacheClient(), utils.GetFlowCacheClient()},
		database.MongoClient,
	)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "1985"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
