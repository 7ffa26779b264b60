package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"threadly/internal/config"
	"threadly/internal/database"
	"threadly/internal/handler"
	"threadly/internal/queue"
	"threadly/internal/realtime"
	"threadly/internal/redis"
	"threadly/internal/repository"
	"threadly/internal/service"
	"threadly/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// Run wires the whole service together and blocks until SIGINT/SIGTERM.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	graphRepo := repository.NewGraphRepository(db)
	postRepo := repository.NewPostRepository(db)
	convRepo := repository.NewConversationRepository(db)
	tokenRepo := repository.NewDeviceTokenRepository(db)

	// Queue
	publisher := queue.NewPublisher(redisClient.Client)
	consumer := queue.NewConsumer(redisClient.Client)

	// Optional external collaborators: the service runs without push or
	// media when their credentials are absent.
	var fcmClient *service.FCMClient
	if cfg.FCMProjectID != "" && cfg.FCMClientEmail != "" && cfg.FCMPrivateKey != "" {
		fcmClient, err = service.NewFCMClient(context.Background(), cfg.FCMProjectID, cfg.FCMClientEmail, cfg.FCMPrivateKey)
		if err != nil {
			log.Printf("[Server] FCM init FAILED, continuing without push: %v", err)
			fcmClient = nil
		}
	} else {
		log.Println("[Server] FCM credentials not set, push notifications disabled")
	}
	pushService := service.NewPushService(fcmClient, tokenRepo, userRepo)

	var mediaService *service.MediaService
	mediaService, err = service.NewMediaService(context.Background(), cfg)
	if err != nil {
		log.Printf("[Server] Media presign disabled: %v", err)
		mediaService = nil
	}

	// Realtime
	presence := realtime.NewTracker()
	hub := realtime.NewHub(presence, cfg.WSIdleTimeout)
	dispatcher := realtime.NewDispatcher(presence, convRepo, pushService)

	// Services
	graphService := service.NewGraphService(graphRepo, userRepo, publisher)
	userService := service.NewUserService(userRepo, graphRepo)
	profileService := service.NewProfileService(userRepo, publisher)
	feedService := service.NewFeedService(userRepo, graphRepo, postRepo)
	postService := service.NewPostService(postRepo, userRepo, graphRepo, db)
	convService := service.NewConversationService(convRepo, userRepo, db, dispatcher)
	hub.SetSeenMarker(convService)

	// Sync workers (snapshot rewrites, graph repair, symmetry sweep)
	workerHandler := worker.NewHandler(userRepo, graphRepo, postRepo)
	managerCfg := worker.DefaultManagerConfig()
	managerCfg.SweepInterval = cfg.GraphSweepInterval
	manager := worker.NewManager(consumer, workerHandler, managerCfg)
	if err := manager.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	// HTTP
	routerCfg := RouterConfig{
		UserHandler:         handler.NewUserHandler(userService, profileService),
		FollowHandler:       handler.NewFollowHandler(graphService),
		FeedHandler:         handler.NewFeedHandler(feedService),
		PostHandler:         handler.NewPostHandler(postService),
		ConversationHandler: handler.NewConversationHandler(convService),
		WSHandler:           handler.NewWSHandler(hub),
		JWTSecret:           cfg.JWTSecret,
	}
	if mediaService != nil {
		routerCfg.MediaHandler = handler.NewMediaHandler(mediaService)
	}
	if fcmClient != nil {
		routerCfg.DeviceHandler = handler.NewDeviceHandler(pushService)
	}

	server := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: NewRouter(routerCfg),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on :%s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		manager.Stop()
		hub.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		log.Printf("[Server] Received %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] HTTP shutdown FAILED: %v", err)
	}

	hub.Shutdown()
	manager.Stop()

	log.Println("[Server] Shutdown complete")
	return nil
}
