package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/auth"
	"messaging-service/internal/clients"
	"messaging-service/internal/db"
	"messaging-service/internal/handlers"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/readstate"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/views"
	"messaging-service/internal/ws"
)

const serviceName = "messaging-service"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := observability.InitTracing(context.Background(), os.Getenv("OTLP_ENDPOINT"), serviceName)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	amqpURL := os.Getenv("AMQP_URL")
	exchange := getEnv("AMQP_EXCHANGE", "marketplace.events")

	eventPublisher, err := observability.NewAMQPPublisher(amqpURL, exchange)
	if err != nil {
		log.Printf("ws event publishing disabled: %v", err)
	} else {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	auditPublisher := rabbitmq.NewPublisher(amqpURL, exchange)
	defer auditPublisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(auditPublisher))
	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, "audit.messaging", serviceName, getEnv("ENVIRONMENT", "development"))

	convoRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	blockRepo := repositories.NewBlockRepo(database)

	readState := readstate.NewEngine(convoRepo, messageRepo)

	userClient := clients.NewUserClient(getEnv("USER_SVC_URL", "http://localhost:8081"))
	catalogClient := clients.NewCatalogClient(getEnv("CATALOG_SVC_URL", "http://localhost:8082"))

	viewBuilder := views.NewBuilder(convoRepo, userClient)

	hub := ws.NewHub()
	eventRouter := ws.NewRouter(hub, viewBuilder)

	verifier := auth.NewVerifier(mustEnv("JWT_SECRET"))

	conversationHandler := handlers.NewConversationHandler(convoRepo, messageRepo, blockRepo, readState, viewBuilder, catalogClient, userClient, eventRouter)
	blockHandler := handlers.NewBlockHandler(blockRepo, convoRepo, eventRouter, auditEmitter)

	chatWS := ws.NewChatWebSocketHandler(hub, eventRouter, convoRepo, messageRepo, blockRepo, verifier)
	inboxWS := ws.NewInboxWebSocketHandler(hub, viewBuilder, verifier)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{getEnv("CORS_ORIGIN", "http://localhost:3000")},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	}))

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/conversations", authMiddleware, conversationHandler.ListConversations)
	router.POST("/conversations/start", authMiddleware, conversationHandler.StartConversation)
	router.GET("/conversations/:conversation_id/messages", authMiddleware, conversationHandler.GetMessages)
	router.POST("/conversations/:conversation_id/messages", authMiddleware, conversationHandler.PostMessage)
	router.DELETE("/conversations/:conversation_id/messages/:message_id", authMiddleware, conversationHandler.DeleteMessage)
	router.POST("/conversations/:conversation_id/read", authMiddleware, conversationHandler.MarkRead)
	router.PATCH("/conversations/:conversation_id/mute", authMiddleware, conversationHandler.Mute)
	router.DELETE("/conversations/:conversation_id/me", authMiddleware, conversationHandler.DeleteForMe)

	router.GET("/blocks", authMiddleware, blockHandler.ListBlocks)
	router.POST("/blocks", authMiddleware, blockHandler.CreateBlock)
	router.DELETE("/blocks/:block_id", authMiddleware, blockHandler.DeleteBlock)
	router.GET("/blocks/is-blocked/:user_id", authMiddleware, blockHandler.IsBlocked)
	router.GET("/reports", authMiddleware, blockHandler.ListReports)
	router.POST("/reports", authMiddleware, blockHandler.CreateReport)

	router.GET("/ws/inbox", inboxWS.Handle)
	router.GET("/ws/chats/:conversation_id", chatWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, auditEmitter, os.Getenv("DEBUG_ROUTES") == "1")

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustEnv(key string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		log.Fatalf("missing required env %s", key)
	}
	return val
}
