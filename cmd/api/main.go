package main

import (
	"context"
	"errors"
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

	"woonruil/internal/adapter/api"
	"woonruil/internal/adapter/api/handler"
	apimiddleware "woonruil/internal/adapter/api/middleware"
	"woonruil/internal/adapter/api/router"
	"woonruil/internal/adapter/repository"
	"woonruil/internal/infrastructure/firebase"
	"woonruil/internal/infrastructure/geocoding"
	"woonruil/internal/infrastructure/ratelimit"
	"woonruil/internal/infrastructure/redis"
	"woonruil/internal/infrastructure/storage"
	"woonruil/internal/infrastructure/websocket"
	"woonruil/internal/usecase"
	"woonruil/pkg/config"
	"woonruil/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	logger.Init(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opt option.ClientOption
	if cfg.ServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		opt = option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON))
	} else {
		if _, err := os.Stat(cfg.ServiceAccountPath); os.IsNotExist(err) {
			logger.Error("Service account file does not exist: %s", cfg.ServiceAccountPath)
			os.Exit(1)
		}
		logger.Info("Using Firebase service account from file: %s", cfg.ServiceAccountPath)
		opt = option.WithCredentialsFile(cfg.ServiceAccountPath)
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{
		ProjectID:     cfg.FirebaseProject,
		StorageBucket: cfg.StorageBucket,
	}, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase: %v", err)
		os.Exit(1)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		logger.Error("Failed to initialize Firebase Auth: %v", err)
		os.Exit(1)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
	if err != nil {
		logger.Error("Failed to create Firestore client: %v", err)
		os.Exit(1)
	}
	defer firestoreClient.Close()

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opt)
	if err != nil {
		logger.Error("Failed to initialize Cloud Storage: %v", err)
		os.Exit(1)
	}
	defer storageClient.Close()

	healthChecks := map[string]handler.HealthCheck{
		"firestore": repository.PingFirestore(firestoreClient),
	}

	// Rate limit state is shared through Redis when configured.
	var windowStore ratelimit.WindowStore
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		windowStore = ratelimit.NewRedisStore(redisClient, "woonruil:ratelimit")
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
		logger.Info("API rate limiting backed by Redis")
	} else {
		memoryStore := ratelimit.NewMemoryStore()
		memoryStore.StartSweep(ctx, time.Minute)
		windowStore = memoryStore
	}

	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	listingRepo := repository.NewFirestoreListingRepository(firestoreClient)
	chatRepo := repository.NewFirestoreChatRepository(firestoreClient)
	blockRepo := repository.NewFirestoreBlockRepository(firestoreClient)

	firebaseAuthClient := firebase.NewFirebaseAuthClient(authClient, cfg.FirebaseAPIKey)

	nominatim := geocoding.NewNominatimGeocoder(cfg.NominatimBaseURL, cfg.NominatimUserAgent, nil)
	geocoder, err := geocoding.NewCachedGeocoder(nominatim, "nominatim", cfg.GeocodeCacheSize, cfg.GeocodeMissTTL)
	if err != nil {
		logger.Error("Failed to create geocode cache: %v", err)
		os.Exit(1)
	}
	googleGeocoder := geocoding.NewGoogleClient(cfg.GeocodeBaseURL, cfg.GoogleMapsAPIKey, nil)

	actionLimiter := ratelimit.NewActionLimiter(ratelimit.DefaultPolicies)
	actionLimiter.StartCleanup(ctx, 5*time.Minute, 30*time.Minute)

	geocodeUseCase := usecase.NewGeocodeUseCase(listingRepo, geocoder)
	listingUseCase := usecase.NewListingUseCase(listingRepo, storageClient, geocodeUseCase)
	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo, listingRepo, blockRepo, actionLimiter)
	userUseCase := usecase.NewUserUseCase(userRepo, firebaseAuthClient, storageClient)
	authUseCase := usecase.NewAuthUseCase(userRepo, firebaseAuthClient)

	wsManager := websocket.NewManager(websocket.ChatUseCaseService{UseCase: chatUseCase})
	wsManager.Start(ctx)
	chatUseCase.SetNotifier(wsManager)

	geocodeUseCase.StartBackfillJob(ctx, cfg.GeocodeBackfillInterval)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(apimiddleware.RequestLogger())
	e.Use(apimiddleware.Metrics())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(firebaseAuthClient)
	apiLimiter := apimiddleware.NewRateLimiter(ratelimit.NewFixedWindow(windowStore, cfg.APIRateLimit, cfg.APIRateWindow))

	userHandler := handler.NewUserHandler(userUseCase)
	listingHandler := handler.NewListingHandler(listingUseCase)

	handlers := router.Handlers{
		Auth:      handler.NewAuthHandler(authUseCase),
		User:      userHandler,
		Listing:   listingHandler,
		File:      handler.NewFileHandler(listingUseCase, userUseCase),
		Chat:      handler.NewChatHandler(chatUseCase),
		Geocode:   handler.NewGeocodeHandler(googleGeocoder),
		Health:    handler.NewHealthHandler(healthChecks),
		WebSocket: handler.NewWebSocketHandler(wsManager, firebaseAuthClient),
	}
	if cfg.IsDevelopment() {
		handlers.DevToken = handler.NewDevTokenHandler(firebaseAuthClient)
	}

	router.Setup(e, handlers, authMiddleware, apiLimiter, cfg.Environment)

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}
