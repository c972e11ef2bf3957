package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/gatherly-app/gatherly-backend/internal/config"
	"github.com/gatherly-app/gatherly-backend/internal/consent"
	"github.com/gatherly-app/gatherly-backend/internal/database"
	"github.com/gatherly-app/gatherly-backend/internal/handlers"
	"github.com/gatherly-app/gatherly-backend/internal/identity"
	"github.com/gatherly-app/gatherly-backend/internal/middleware"
	"github.com/gatherly-app/gatherly-backend/internal/routes"
	"github.com/gatherly-app/gatherly-backend/internal/services"
	"github.com/gatherly-app/gatherly-backend/internal/store"
	"github.com/gatherly-app/gatherly-backend/pkg/utils"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	// Check encryption key (warn if not set, but don't fail)
	if cfg.EncryptionKey == "" {
		log.Println("⚠️  WARNING: ENCRYPTION_KEY not set. Field encryption will not work.")
		log.Println("   To generate a key, run: openssl rand -base64 32")
	} else if _, err := utils.GetEncryptionKey(); err != nil {
		log.Printf("⚠️  WARNING: ENCRYPTION_KEY is invalid: %v", err)
		log.Println("   Key must be base64-encoded 32 bytes. Generate with: openssl rand -base64 32")
	} else {
		log.Println("✅ Encryption key configured")
	}

	// Connect to PostgreSQL
	log.Printf("Connecting to PostgreSQL...")
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		log.Fatal("Failed to connect to PostgreSQL:", err)
	}
	defer database.DisconnectPostgres()

	// Connect to Redis
	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer database.DisconnectRedis()

	// Connect to MongoDB
	log.Printf("Connecting to MongoDB...")
	if err := database.Connect(cfg.MongoURI); err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer database.Disconnect()

	// Ensure MongoDB indexes for chat history
	if err := services.EnsureChatIndexes(context.Background()); err != nil {
		log.Printf("⚠️  WARNING: failed to ensure MongoDB chat indexes: %v", err)
	} else {
		log.Println("✅ MongoDB chat indexes ensured")
	}

	// Wire the storage-backed services into the handlers
	st := store.NewStore(database.PostgresDB)
	handlers.InitStore(st)
	handlers.InitIdentity(identity.NewGenerator(st), identity.NewResolver(st))
	handlers.InitConsent(consent.NewLedger(st))
	log.Println("✅ Identity and consent services wired")

	// Initialize Cloudinary for avatar uploads
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
			log.Println("Avatar uploads will not be available")
		} else {
			handlers.InitCloudinaryService(cld)
			log.Println("✅ Cloudinary service initialized")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. Avatar uploads will not be available")
	}

	// Start the cross-instance chat fanout
	services.StartRedisChatSubscriber(context.Background())
	log.Println("✅ Redis chat subscriber started")

	// Setup router
	r := chi.NewRouter()

	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: security headers, host check, per-IP + login rate limiting.
	// Non-production: Redis-based rate limit only.
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		log.Println("✅ Production security enabled")
	} else {
		r.Use(middleware.RateLimitMiddleware)
	}

	// Health check (no rate limit)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.SetupRoutes(r)

	log.Printf("🚀 Gatherly backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
