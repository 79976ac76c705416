package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redisv9 "github.com/redis/go-redis/v9"

	"github.com/ecomplus/app-fb-conversions/internal/cache"
	"github.com/ecomplus/app-fb-conversions/internal/config"
	"github.com/ecomplus/app-fb-conversions/internal/database"
	"github.com/ecomplus/app-fb-conversions/internal/ecomclient"
	"github.com/ecomplus/app-fb-conversions/internal/fbclient"
	"github.com/ecomplus/app-fb-conversions/internal/handler"
	"github.com/ecomplus/app-fb-conversions/internal/middleware"
	"github.com/ecomplus/app-fb-conversions/internal/repository"
	"github.com/ecomplus/app-fb-conversions/internal/service/conversion"
	"github.com/ecomplus/app-fb-conversions/pkg/log"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to load config")
	}

	if err := log.Init(log.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize logger")
	}

	config.WatchConfig(nil)

	// optional webhook audit database
	if cfg.Database.Enabled {
		if err := database.Init(cfg); err != nil {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to initialize database")
		}
		defer database.Close()
	}

	// optional L2 cache
	var redisClient *redisv9.Client
	if cfg.Cache.Redis.Enabled {
		redisClient = redisv9.NewClient(&redisv9.Options{
			Addr:         cfg.Redis.GetAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		defer redisClient.Close()
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	ecomClient := ecomclient.NewClient(ecomclient.Options{
		BaseURL:     cfg.Ecom.BaseURL,
		AppID:       cfg.Ecom.AppID,
		AccessToken: cfg.Ecom.AccessToken,
		HTTPClient:  &http.Client{Timeout: cfg.Ecom.Timeout},
	})

	fbClient := fbclient.NewClient(fbclient.Options{
		BaseURL:    cfg.FB.GraphBaseURL,
		Version:    cfg.FB.GraphVersion,
		HTTPClient: &http.Client{Timeout: cfg.FB.Timeout},
	})

	var appDataSource conversion.AppDataSource = ecomClient
	if cfg.Cache.Local.Enabled || cfg.Cache.Redis.Enabled {
		var redisCmdable redisv9.Cmdable
		if redisClient != nil {
			redisCmdable = redisClient
		}
		localTTL := time.Duration(0)
		if cfg.Cache.Local.Enabled {
			localTTL = cfg.Cache.Local.TTL
		}
		appDataCache, err := cache.New(ecomClient, redisCmdable, cache.Options{
			LocalTTL:  localTTL,
			RedisTTL:  cfg.Cache.Redis.TTL,
			KeyPrefix: cfg.Cache.Redis.KeyPrefix,
		})
		if err != nil {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to create app data cache")
		}
		appDataSource = appDataCache
	}

	conversionService := conversion.NewService(conversion.Options{
		AppData:          appDataSource,
		Store:            ecomClient,
		Sender:           fbClient,
		EnrichRetryDelay: cfg.Conversion.EnrichRetryDelay,
	})

	var auditRepo repository.WebhookLogRepository
	if cfg.Database.Enabled {
		auditRepo = repository.NewWebhookLogRepository(database.GetDB())
	}

	webhookHandler := handler.NewWebhookHandler(conversionService, auditRepo)

	var auditHandler *handler.AuditHandler
	if auditRepo != nil {
		auditHandler = handler.NewAuditHandler(auditRepo)
	}

	router := setupRouter(cfg, webhookHandler, auditHandler, redisClient)

	server := &http.Server{
		Addr:           cfg.Server.GetAddr(),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderMB << 20,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"addr": server.Addr,
			"mode": cfg.Server.Mode,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}

func setupRouter(cfg *config.Config, webhookHandler *handler.WebhookHandler, auditHandler *handler.AuditHandler, redisClient *redisv9.Client) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())

	router.GET("/health", healthCheck(redisClient))
	router.GET("/ping", ping)

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	webhook := router.Group("/ecom")
	if cfg.RateLimit.Enabled {
		webhook.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	webhook.POST("/webhook", webhookHandler.Handle)

	if auditHandler != nil {
		audit := router.Group("/audit")
		audit.GET("/webhooks", auditHandler.List)
		audit.GET("/summary", auditHandler.Summary)
	}

	return router
}

func healthCheck(redisClient *redisv9.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		services := map[string]interface{}{}
		healthy := true

		if db := database.GetDB(); db != nil {
			services["database"] = checkDatabase()
			if s, ok := services["database"].(map[string]interface{}); ok && !s["healthy"].(bool) {
				healthy = false
			}
		}
		if redisClient != nil {
			services["redis"] = checkRedis(redisClient)
			if s, ok := services["redis"].(map[string]interface{}); ok && !s["healthy"].(bool) {
				healthy = false
			}
		}

		health := map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
			"services":  services,
		}

		if !healthy {
			health["status"] = "error"
			c.JSON(http.StatusServiceUnavailable, health)
			return
		}
		c.JSON(http.StatusOK, health)
	}
}

func ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "pong",
		"timestamp": time.Now().Unix(),
	})
}

func checkDatabase() map[string]interface{} {
	db := database.GetDB()
	sqlDB, err := db.DB()
	if err != nil {
		return map[string]interface{}{"healthy": false, "error": err.Error()}
	}
	if err := sqlDB.Ping(); err != nil {
		return map[string]interface{}{"healthy": false, "error": err.Error()}
	}
	return map[string]interface{}{"healthy": true, "status": "connected"}
}

func checkRedis(client *redisv9.Client) map[string]interface{} {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return map[string]interface{}{"healthy": false, "error": err.Error()}
	}
	return map[string]interface{}{"healthy": true, "status": "connected"}
}
