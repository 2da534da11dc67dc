package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"marketchat/internal/adapter/api"
	"marketchat/internal/adapter/api/handler"
	apimiddleware "marketchat/internal/adapter/api/middleware"
	"marketchat/internal/adapter/api/router"
	"marketchat/internal/adapter/repository"
	"marketchat/internal/domain/entity"
	domainrepo "marketchat/internal/domain/repository"
	"marketchat/internal/infrastructure/auth"
	"marketchat/internal/infrastructure/events"
	"marketchat/internal/infrastructure/firebase"
	"marketchat/internal/infrastructure/presence"
	"marketchat/internal/infrastructure/ratelimit"
	"marketchat/internal/infrastructure/storage"
	"marketchat/internal/infrastructure/websocket"
	"marketchat/internal/usecase"
	"marketchat/pkg/config"
	"marketchat/pkg/snowflake"
)

type repositories struct {
	chats        domainrepo.ChatRepository
	transactions domainrepo.TransactionRepository
	products     domainrepo.ProductRepository
	users        domainrepo.UserRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	healthChecks := map[string]handler.HealthCheck{}

	var opts []option.ClientOption
	switch {
	case cfg.ServiceAccountJSON != "":
		log.Printf("Using Google service account from environment variable")
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	case cfg.ServiceAccountPath != "":
		if _, err := os.Stat(cfg.ServiceAccountPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", cfg.ServiceAccountPath)
		}
		log.Printf("Using Google service account from file: %s", cfg.ServiceAccountPath)
		opts = append(opts, option.WithCredentialsFile(cfg.ServiceAccountPath))
	}

	var repos repositories
	switch cfg.StoreDriver {
	case config.StoreMemory:
		store := repository.NewMemoryStore()
		if cfg.IsDevelopment() {
			seedDemoData(store)
		}
		repos = repositories{store.Chats(), store.Transactions(), store.Products(), store.Users()}
		log.Printf("Using in-memory store")
	default:
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		repos = repositories{
			chats:        repository.NewFirestoreChatRepository(firestoreClient),
			transactions: repository.NewFirestoreTransactionRepository(firestoreClient),
			products:     repository.NewFirestoreProductRepository(firestoreClient),
			users:        repository.NewFirestoreUserRepository(firestoreClient),
		}
	}

	var verifier apimiddleware.TokenVerifier
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, time.Duration(cfg.JWTExpiry)*time.Second)
	switch cfg.AuthProvider {
	case config.AuthJWT:
		verifier = jwtManager
		log.Printf("Using HS256 JWT authentication")
	default:
		firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}
		firebaseAuthClient := firebase.NewFirebaseAuthClient(authClient)
		verifier = firebaseAuthClient
		healthChecks["firebase"] = firebaseAuthClient.TestConnection
	}

	var mirror presence.Mirror
	if cfg.RedisAddr != "" {
		redisMirror := presence.NewRedisMirror(cfg.RedisAddr)
		if err := redisMirror.Ping(ctx); err != nil {
			log.Printf("Warning: Redis at %s is not reachable yet: %v", cfg.RedisAddr, err)
		}
		defer redisMirror.Close()
		mirror = redisMirror
		healthChecks["redis"] = redisMirror.Ping
	}

	var publisher usecase.EventPublisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Printf("Publishing message events to kafka topic %s", cfg.KafkaTopic)
	}

	var uploader handler.ImageUploader
	if cfg.StorageBucket != "" {
		storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opts...)
		if err != nil {
			log.Fatalf("Failed to initialize Cloud Storage: %v", err)
		}
		defer storageClient.Close()
		uploader = storageClient
	}

	seq, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		log.Fatalf("Invalid SNOWFLAKE_NODE: %v", err)
	}

	dispatcher := usecase.NewDispatcher(presence.NewRegistry(), presence.NewPendingQueue(), mirror)
	notifier := usecase.NewNotifier(repos.chats, repos.users, dispatcher, seq)
	roomUseCase := usecase.NewChatRoomUseCase(repos.chats, repos.products, repos.users, dispatcher)
	messageUseCase := usecase.NewChatMessageUseCase(repos.chats, repos.users, dispatcher, notifier, publisher, seq)
	historyUseCase := usecase.NewHistoryUseCase(repos.chats, repos.transactions)

	limiter := ratelimit.NewRateLimiter()
	stopCleanup := make(chan struct{})
	limiter.StartCleanupRoutine(10*time.Minute, stopCleanup)
	defer close(stopCleanup)

	wsManager := websocket.NewManager(dispatcher, messageUseCase, roomUseCase, limiter, cfg.WSSendBuffer)

	handler.Setup(roomUseCase, messageUseCase, historyUseCase, notifier, dispatcher)
	handler.SetupHealthHandler(healthChecks)
	if uploader != nil {
		handler.SetupFileHandler(uploader, roomUseCase)
	}
	if cfg.AuthProvider == config.AuthJWT {
		handler.SetupDevTokenHandler(jwtManager, repos.users)
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)
	adminMiddleware := apimiddleware.NewAdminMiddleware(repos.users)

	router.Setup(e, authMiddleware, adminMiddleware, limiter)
	router.SetupDevRouter(e, cfg.Environment)
	router.SetupWebSocketRouter(e, handler.NewWebSocketHandler(wsManager, authMiddleware))

	go func() {
		log.Printf("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Printf("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

// seedDemoData gives a fresh in-memory store one listing and three users.
func seedDemoData(store *repository.MemoryStore) {
	store.PutUser(&entity.User{ID: "demo-seller", Username: "seller", Role: entity.RoleUser})
	store.PutUser(&entity.User{ID: "demo-buyer", Username: "buyer", Role: entity.RoleUser})
	store.PutUser(&entity.User{ID: "demo-admin", Username: "admin", Role: entity.RoleAdmin})
	store.PutProduct(&entity.Product{ID: "demo-product", SellerID: "demo-seller", Title: "Mechanical keyboard", Status: entity.ProductNew})
	log.Printf("Seeded demo users demo-seller, demo-buyer, demo-admin and product demo-product")
}
