package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"lostfound/auth"
	"lostfound/db"
	"lostfound/inference"
	"lostfound/item"
	"lostfound/match"
	"lostfound/notification"
	"lostfound/realtime"
	"lostfound/similarity"
	"lostfound/verifier"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	pool, err := db.NewPool(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("bootstrap database pool: %v", err)
	}
	defer pool.Close()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	apiKey := os.Getenv("COHERE_API_KEY")
	if apiKey == "" {
		log.Fatal("COHERE_API_KEY is required")
	}
	cohereClient := inference.NewCohereClient(apiKey)
	embeddings := inference.NewCohereEmbeddings(cohereClient, os.Getenv("COHERE_EMBED_MODEL"))
	chat := inference.NewCohereChat(cohereClient, os.Getenv("COHERE_CHAT_MODEL"))

	var vision similarity.Vision
	if visionURL := os.Getenv("VISION_URL"); visionURL != "" {
		vision = inference.NewVisionClient(visionURL)
	} else {
		log.Print("VISION_URL not set; matching runs on text signals only")
	}

	broker, err := realtime.NewBroker(ctx, os.Getenv("REDIS_URL"))
	if err != nil {
		log.Fatalf("bootstrap realtime broker: %v", err)
	}
	if broker == nil {
		log.Print("REDIS_URL not set; realtime delivery disabled")
	} else {
		defer broker.Close()
	}

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, jwtSecret)

	notificationRepo := notification.NewRepository(pool)
	var publisher notification.Publisher
	if broker != nil {
		publisher = broker
	}
	notificationService := notification.NewService(notificationRepo, publisher, logger)

	itemRepo := item.NewRepository(pool)
	matchRepo := match.NewRepository(pool)

	scorer := similarity.NewScorer(embeddings, vision, logger)
	orchestrator := match.NewOrchestrator(itemRepo, matchRepo, scorer, notificationService, logger)
	orchestrator.Start()
	defer orchestrator.Stop()

	relevance := verifier.New(chat, logger)
	itemService := item.NewService(itemRepo, relevance, logger).
		WithCreatedHook(orchestrator)

	matchService := match.NewService(pool, matchRepo, notificationService, logger)

	log.Printf("lostfound services ready: auth=%t items=%t matches=%t",
		authService != nil, itemService != nil, matchService != nil)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Print("shutting down")
}
