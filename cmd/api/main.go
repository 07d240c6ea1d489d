package main

import (
	"context"
	"net/http"
	"os"

	"pixelift/internal/application"
	apiinfra "pixelift/internal/infrastructure/api"
	"pixelift/internal/infrastructure/encryption"
	promware "pixelift/internal/infrastructure/middleware"
	"pixelift/internal/infrastructure/noncestore"
	"pixelift/internal/infrastructure/optimizer"
	"pixelift/internal/infrastructure/pagespeed"
	"pixelift/internal/infrastructure/paypal"
	"pixelift/internal/infrastructure/repository"
	shopifyinfra "pixelift/internal/infrastructure/shopify"
	"pixelift/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:8080"
	}

	// Persistence: MongoDB when configured, otherwise an in-memory demo
	// store lost on restart.
	var repo ports.Repository
	if mongoURI := os.Getenv("MONGODB_URI"); mongoURI != "" {
		client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())

		dbName := os.Getenv("MONGODB_DATABASE")
		if dbName == "" {
			dbName = "pixelift"
		}
		repo = repository.NewMongoRepository(client.Database(dbName))
		logger.Info().Str("database", dbName).Msg("Using MongoDB store")
	} else {
		repo = repository.NewMemoryRepository()
		logger.Warn().Msg("MONGODB_URI not set, using in-memory store (demo mode)")
	}

	// OAuth state nonces: Redis when configured, so state verification
	// survives multi-instance deployments.
	var nonces ports.NonceStore
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to parse REDIS_URL")
		}
		nonces = noncestore.NewRedisStore(redis.NewClient(opts))
		logger.Info().Msg("Using Redis nonce store")
	} else {
		nonces = noncestore.NewMemoryStore()
		logger.Warn().Msg("REDIS_URL not set, using in-memory nonce store (single instance only)")
	}

	var crypt ports.EncryptionService
	if key := os.Getenv("TOKEN_ENC_KEY"); key != "" {
		svc, err := encryption.NewService(key)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
		}
		crypt = svc
	} else {
		crypt = encryption.NewNoop()
		logger.Warn().Msg("TOKEN_ENC_KEY not set, access tokens stored unencrypted")
	}

	apiKey := os.Getenv("SHOPIFY_API_KEY")
	apiSecret := os.Getenv("SHOPIFY_API_SECRET")
	fallbackToken := os.Getenv("SHOPIFY_ACCESS_TOKEN")
	shopifyClient := shopifyinfra.NewClient(apiKey, apiSecret, logger)

	var vitals ports.VitalsClient
	if psiKey := os.Getenv("PAGESPEED_API_KEY"); psiKey != "" {
		vitals = pagespeed.NewClient(psiKey, logger)
	}

	var encoder ports.ImageEncoder
	if os.Getenv("OPTIMIZER_MODE") == "encode" {
		encoder = optimizer.NewEncoder(logger)
		logger.Info().Msg("Real image re-encoding enabled")
	}

	scanService := application.NewScanService(repo, shopifyClient, vitals, crypt, logger, fallbackToken)
	imageService := application.NewImageService(repo, shopifyClient, encoder, crypt, logger, fallbackToken)

	var billingService *application.BillingService
	if clientID := os.Getenv("PAYPAL_CLIENT_ID"); clientID != "" {
		price := os.Getenv("PRO_PLAN_PRICE")
		if price == "" {
			price = "9.99"
		}
		payments := paypal.NewClient(clientID, os.Getenv("PAYPAL_CLIENT_SECRET"), os.Getenv("PAYPAL_MODE"), logger)
		billingService = application.NewBillingService(payments, repo, logger, price, "USD")
	} else {
		logger.Warn().Msg("PAYPAL_CLIENT_ID not set, checkout endpoints disabled")
	}

	handler := apiinfra.NewHandler(apiinfra.Config{
		Repo:          repo,
		Scans:         scanService,
		Images:        imageService,
		Billing:       billingService,
		Shopify:       shopifyClient,
		Nonces:        nonces,
		Crypt:         crypt,
		Vitals:        vitals,
		Logger:        logger,
		APIKey:        apiKey,
		APISecret:     apiSecret,
		AppURL:        appURL,
		WebhookSecret: os.Getenv("SHOPIFY_WEBHOOK_SECRET"),
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(promware.Metrics())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	r.Mount("/api", handler.Routes())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("Starting API server")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}
