package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"chat-server/internal/auth"
	"chat-server/internal/config"
	"chat-server/internal/db"
	"chat-server/internal/files"
	"chat-server/internal/handlers"
	"chat-server/internal/keys"
	"chat-server/internal/middleware"
	"chat-server/internal/observability"
	"chat-server/internal/rabbitmq"
	"chat-server/internal/repositories"
	"chat-server/internal/storage"
	"chat-server/internal/telemetry"
	"chat-server/internal/ws"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	database, err := db.Connect(cfg.DSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, "chat-server", cfg.Environment)
		if err != nil {
			log.Fatalf("failed to init tracing: %v", err)
		}
		defer shutdown(ctx)
	}

	userRepo := repositories.NewUserRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	fileRepo := repositories.NewFileRepo(database)
	keyRepo := repositories.NewKeyRepo(database)

	keyManager, err := keys.NewManager(keyRepo, masterKey(cfg.MasterKey))
	if err != nil {
		log.Fatalf("failed to init key manager: %v", err)
	}
	if err := keyManager.Bootstrap(ctx); err != nil {
		log.Fatalf("failed to bootstrap content key: %v", err)
	}
	log.Printf("content key ready version=%d", keyManager.ActiveVersion())

	store, err := objectStore(cfg)
	if err != nil {
		log.Fatalf("failed to init object store: %v", err)
	}
	envelope := files.NewEnvelope(keyManager, store, fileRepo)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(publisher))
	audit := telemetry.NewAuditEmitter(publisher, "chat.audit", "chat-server", cfg.Environment)

	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.TokenTTL)

	hub := ws.NewHub()
	pipeline := ws.NewMessagePipeline(chatRepo, messageRepo, hub)
	socket := ws.NewSocketHandler(hub, chatRepo, pipeline, verifier, audit)

	authHandler := handlers.NewAuthHandler(userRepo, verifier, audit)
	chatHandler := handlers.NewChatHandler(chatRepo, audit)
	messageHandler := handlers.NewMessageHandler(chatRepo, messageRepo)
	fileHandler := handlers.NewFileHandler(envelope, audit)

	// gin.Default already carries Logger and Recovery.
	router := gin.Default()
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.Auth(verifier)

	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)

	router.GET("/messages", authMiddleware, messageHandler.History)
	router.POST("/messages/:message_id/seen", authMiddleware, messageHandler.MarkSeen)
	router.DELETE("/messages/:message_id", authMiddleware, messageHandler.Delete)

	router.POST("/chats/private", authMiddleware, chatHandler.StartPrivateChat)

	router.POST("/files", authMiddleware, fileHandler.Upload)
	router.GET("/files/:file_id", authMiddleware, fileHandler.Download)

	router.GET("/ws", socket.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.DebugRoutes {
		debugHandler := handlers.NewDebugHandler(audit)
		router.POST("/debug/audit-test", authMiddleware, debugHandler.AuditTest)
		log.Println("debug routes enabled")
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
	}).Handler(router)

	log.Printf("chat server listening on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// masterKey decodes the configured master key. An empty value yields an
// ephemeral key: uploads survive only as long as the process, which is fine
// for development and never for production.
func masterKey(encoded string) []byte {
	if encoded == "" {
		log.Println("MASTER_KEY not set, generating ephemeral master key; stored files will be unreadable after restart")
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			log.Fatalf("failed to generate master key: %v", err)
		}
		return key
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		log.Fatalf("invalid MASTER_KEY: %v", err)
	}
	return key
}

func objectStore(cfg config.Config) (storage.ObjectStore, error) {
	if cfg.S3.AccessKeyID != "" {
		log.Printf("using s3 object store bucket=%s", cfg.S3.Bucket)
		return storage.NewS3Store(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.Endpoint, cfg.S3.Bucket, cfg.S3.Region), nil
	}
	log.Printf("using disk object store dir=%s", cfg.UploadDir)
	return storage.NewDiskStore(cfg.UploadDir)
}
