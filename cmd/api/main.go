package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/AmitJPatil13/ESahayak-Task/internal/buyer"
	"github.com/AmitJPatil13/ESahayak-Task/internal/config"
	"github.com/AmitJPatil13/ESahayak-Task/internal/handlers"
	"github.com/AmitJPatil13/ESahayak-Task/internal/logging"
	"github.com/AmitJPatil13/ESahayak-Task/internal/notify"
	"github.com/AmitJPatil13/ESahayak-Task/internal/ratelimit"
	"github.com/AmitJPatil13/ESahayak-Task/internal/scheduler"
	"github.com/AmitJPatil13/ESahayak-Task/internal/search"
	"github.com/AmitJPatil13/ESahayak-Task/internal/store"
)

func main() {
	// .env is optional; real deployments set environment variables directly
	_ = godotenv.Load()

	configPath := getEnv("CONFIG_PATH", "config/app.yaml")
	appConfig, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config from %s: %v, using defaults\n", configPath, err)
		appConfig = config.DefaultConfig()
	}

	log, err := logging.New(appConfig.Logging.Level, appConfig.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("configuration loaded", zap.String("path", configPath),
		zap.String("database", appConfig.Database.Type))

	// Select the storage backend; DB_TYPE overrides the config file
	dbType := getEnv("DB_TYPE", appConfig.Database.Type)

	var st store.Store
	switch dbType {
	case "mysql":
		mysqlCfg := appConfig.Database.MySQL
		portStr := ""
		if mysqlCfg.Port > 0 {
			portStr = fmt.Sprintf("%d", mysqlCfg.Port)
		}

		gormStore, err := store.NewGormStore(
			getEnvOrConfig(mysqlCfg.Host, "DB_HOST", "mysql"),
			getEnvOrConfig(portStr, "DB_PORT", "3306"),
			getEnvOrConfig(mysqlCfg.User, "DB_USER", "crm_user"),
			getEnvOrConfig(mysqlCfg.Password, "DB_PASSWORD", "crm_pass"),
			getEnvOrConfig(mysqlCfg.Database, "DB_NAME", "crm_db"),
		)
		if err != nil {
			log.Fatal("failed to connect to MySQL", zap.Error(err))
		}
		defer gormStore.Close()

		if err := gormStore.InitSchema(); err != nil {
			log.Fatal("failed to initialize schema", zap.Error(err))
		}
		st = gormStore
		log.Info("using MySQL with GORM")

	case "postgres":
		pgCfg := appConfig.Database.Postgres
		portStr := ""
		if pgCfg.Port > 0 {
			portStr = fmt.Sprintf("%d", pgCfg.Port)
		}

		pgStore, err := store.NewPostgresStore(
			getEnvOrConfig(pgCfg.Host, "DB_HOST", "db"),
			getEnvOrConfig(portStr, "DB_PORT", "5432"),
			getEnvOrConfig(pgCfg.User, "DB_USER", "crm_user"),
			getEnvOrConfig(pgCfg.Password, "DB_PASSWORD", "crm_pass"),
			getEnvOrConfig(pgCfg.Database, "DB_NAME", "crm_db"),
			getEnvOrConfig(pgCfg.SSLMode, "DB_SSLMODE", "disable"),
		)
		if err != nil {
			log.Fatal("failed to connect to PostgreSQL", zap.Error(err))
		}
		defer pgStore.Close()

		if err := pgStore.InitSchema(); err != nil {
			log.Fatal("failed to initialize schema", zap.Error(err))
		}
		st = pgStore
		log.Info("using PostgreSQL")

	default:
		st = store.NewMemoryStore()
		log.Info("using in-memory store")
	}

	// Optional Meilisearch index
	var searchClient *search.SearchClient
	if appConfig.Search.Enabled {
		meilisearchHost := getEnvOrConfig(appConfig.Search.Meilisearch.Host, "MEILISEARCH_HOST", "http://meilisearch:7700")
		meilisearchKey := getEnvOrConfig(appConfig.Search.Meilisearch.APIKey, "MEILISEARCH_KEY", "")

		searchClient = search.NewSearchClient(meilisearchHost, meilisearchKey)
		if err := searchClient.InitIndex(); err != nil {
			log.Warn("failed to initialize search index", zap.Error(err))
		}
	}

	rateLimiter := ratelimit.NewRateLimiter(
		appConfig.RateLimit.RequestsPerMinute,
		appConfig.RateLimit.RequestsPerHour,
		appConfig.RateLimit.Enabled,
	)
	log.Info("rate limiter initialized",
		zap.Int("requests_per_minute", appConfig.RateLimit.RequestsPerMinute),
		zap.Int("requests_per_hour", appConfig.RateLimit.RequestsPerHour),
		zap.Bool("enabled", appConfig.RateLimit.Enabled))

	notifier := notify.NewNotifier(appConfig.Webhook.URL, appConfig.Webhook.GetTimeout(), log)

	appScheduler := scheduler.NewScheduler(st, searchClient, appConfig, log)
	if err := appScheduler.Start(); err != nil {
		log.Warn("failed to start scheduler", zap.Error(err))
	}
	defer appScheduler.Stop()

	updater := buyer.NewUpdater(st, log)
	importer := buyer.NewImporter(st, log, appConfig.Import.MaxRows)

	buyerHandler := handlers.NewBuyerHandler(st, updater, importer, searchClient, notifier, log)
	adminHandler := handlers.NewAdminHandler(st, appScheduler, rateLimiter, log)
	searchHandler := handlers.NewSearchHandler(searchClient)

	// Setup Gin router
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     appConfig.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-User-ID", "X-User-Admin"},
		AllowCredentials: true,
	}))

	r.GET("/health", healthCheck)

	readOnly := handlers.IdentityMiddleware(false)
	authed := handlers.IdentityMiddleware(true)
	limited := handlers.RateLimitMiddleware(rateLimiter)

	api := r.Group("/api")
	{
		api.GET("/buyers", readOnly, buyerHandler.List)
		api.GET("/buyers/export", readOnly, buyerHandler.ExportCSV)
		api.GET("/buyers/export/xlsx", readOnly, buyerHandler.ExportXLSX)
		api.GET("/buyers/:id", readOnly, buyerHandler.Get)
		api.GET("/buyers/:id/history", readOnly, buyerHandler.History)

		api.POST("/buyers", authed, limited, buyerHandler.Create)
		api.PUT("/buyers/:id", authed, limited, buyerHandler.Update)
		api.DELETE("/buyers/:id", authed, limited, buyerHandler.Delete)
		api.POST("/buyers/import", authed, limited, buyerHandler.Import)

		api.GET("/search", readOnly, searchHandler.Search)
		api.POST("/search/reindex", authed, adminHandler.TriggerReindex)

		admin := api.Group("/admin")
		{
			admin.GET("/stats", adminHandler.GetStats)
			admin.GET("/ratelimit/stats", adminHandler.GetRateLimitStats)
		}
	}

	port := getEnvOrConfig(appConfig.Server.Port, "PORT", "8084")
	log.Info("server starting", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrConfig returns the environment variable if set, otherwise the
// config value, then the default. Env wins so deployments can override a
// baked-in config file.
func getEnvOrConfig(configValue, envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	if configValue != "" {
		return configValue
	}
	return defaultValue
}
