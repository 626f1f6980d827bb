package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/brp-commerce/api/internal/handlers"
	"github.com/brp-commerce/api/internal/notifications"
	"github.com/brp-commerce/api/internal/payments"
	"github.com/brp-commerce/api/internal/platform/auth"
	"github.com/brp-commerce/api/internal/platform/config"
	pfirestore "github.com/brp-commerce/api/internal/platform/firestore"
	"github.com/brp-commerce/api/internal/platform/idempotency"
	"github.com/brp-commerce/api/internal/platform/observability"
	"github.com/brp-commerce/api/internal/platform/secrets"
	"github.com/brp-commerce/api/internal/repositories"
	firestoreRepo "github.com/brp-commerce/api/internal/repositories/firestore"
	"github.com/brp-commerce/api/internal/services"
	"github.com/brp-commerce/api/internal/shipping"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets("Payments.ServerKey", "Shipping.APIKey"),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(envValues, cfg, startedAt)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier, auth.WithUserGetter(firebaseVerifier))

	orderRepo, err := firestoreRepo.NewOrderRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}
	stockRepo, err := firestoreRepo.NewStockRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise stock repository", zap.Error(err))
	}
	cartRepo, err := firestoreRepo.NewCartRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise cart repository", zap.Error(err))
	}
	storeConfigRepo, err := firestoreRepo.NewStoreConfigRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise store config repository", zap.Error(err))
	}
	counterRepo, err := firestoreRepo.NewCounterRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise counter repository", zap.Error(err))
	}

	gateway, err := payments.NewMidtransGateway(payments.MidtransConfig{
		ServerKey:   cfg.Payments.ServerKey,
		BaseURL:     cfg.Payments.BaseURL,
		SnapBaseURL: cfg.Payments.SnapBaseURL,
		Timeout:     cfg.Payments.Timeout,
	})
	if err != nil {
		logger.Fatal("failed to initialise payment gateway", zap.Error(err))
	}

	courierProvider, err := shipping.NewRajaOngkirProvider(shipping.RajaOngkirConfig{
		APIKey:  cfg.Shipping.APIKey,
		BaseURL: cfg.Shipping.BaseURL,
		Timeout: cfg.Shipping.Timeout,
	})
	if err != nil {
		logger.Fatal("failed to initialise shipping provider", zap.Error(err))
	}

	mailDispatcher, pubsubClient := newMailDispatcher(ctx, logger, cfg)
	if pubsubClient != nil {
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
	}

	inventoryService, err := services.NewInventoryService(services.InventoryServiceDeps{
		Stocks: stockRepo,
		Clock:  time.Now,
		Logger: newZapServiceLogger(logger.Named("inventory")),
	})
	if err != nil {
		logger.Fatal("failed to initialise inventory service", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:            orderRepo,
		Stocks:            stockRepo,
		Carts:             cartRepo,
		StoreConfig:       storeConfigRepo,
		Counters:          counterRepo,
		Gateway:           gateway,
		Shipping:          courierProvider,
		Mail:              mailDispatcher,
		OriginCity:        cfg.Shipping.OriginCity,
		DefaultTaxPercent: cfg.Store.DefaultTaxPercent,
		Clock:             time.Now,
		Logger:            newZapServiceLogger(logger.Named("orders")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	paymentService, err := services.NewPaymentService(services.PaymentServiceDeps{
		Orders:    orderRepo,
		Gateway:   gateway,
		Mail:      mailDispatcher,
		ServerKey: cfg.Payments.ServerKey,
		Clock:     time.Now,
		Logger:    newZapServiceLogger(logger.Named("payments")),
	})
	if err != nil {
		logger.Fatal("failed to initialise payment service", zap.Error(err))
	}

	systemService, err := newSystemService(firestoreClient, pubsubClient, cfg, buildInfo)
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)
	stopCleanup := startIdempotencyCleanup(ctx, logger, idempotencyStore)
	defer stopCleanup()

	orderHandlers := handlers.NewOrderHandlers(authenticator, orderService, inventoryService,
		handlers.WithOrderIdempotency(idempotency.Middleware(idempotencyStore,
			idempotency.WithMethods(http.MethodPost),
			idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
		)),
	)
	adminHandlers := handlers.NewAdminHandlers(authenticator, inventoryService)
	webhookHandlers := handlers.NewWebhookHandlers(paymentService,
		handlers.WithWebhookRateLimit(cfg.RateLimits.WebhookBurst, time.Minute),
	)
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(systemService),
	)

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
		handlers.WithWebhookRoutes(webhookHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("brp-commerce api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["API_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["API_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func startIdempotencyCleanup(ctx context.Context, logger *zap.Logger, store *idempotency.FirestoreStore) func() {
	cleanupCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				removed, err := store.CleanupExpired(cleanupCtx, time.Now().UTC(), 200)
				if err != nil {
					logger.Warn("idempotency cleanup failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					logger.Debug("idempotency records expired", zap.Int("removed", removed))
				}
			}
		}
	}()
	return cancel
}

func newMailDispatcher(ctx context.Context, logger *zap.Logger, cfg config.Config) (notifications.Dispatcher, *pubsub.Client) {
	projectID := strings.TrimSpace(cfg.Notifications.ProjectID)
	if projectID == "" {
		projectID = strings.TrimSpace(cfg.Firestore.ProjectID)
	}
	if projectID == "" {
		projectID = strings.TrimSpace(cfg.Firebase.ProjectID)
	}
	if projectID == "" {
		logger.Warn("notifications: no project id configured; mail dispatch disabled")
		return nil, nil
	}

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		logger.Warn("notifications: pubsub client init failed; mail dispatch disabled", zap.Error(err))
		return nil, nil
	}

	dispatcher, err := notifications.NewPubSubDispatcher(client.Topic(cfg.Notifications.MailTopic))
	if err != nil {
		logger.Warn("notifications: dispatcher init failed; mail dispatch disabled", zap.Error(err))
		_ = client.Close()
		return nil, nil
	}
	return dispatcher, client
}

func newSystemService(client *firestore.Client, pubsubClient *pubsub.Client, cfg config.Config, build services.BuildInfo) (services.SystemService, error) {
	checks := make([]repositories.DependencyCheck, 0, 2)
	if client != nil {
		c := client
		checks = append(checks, repositories.DependencyCheck{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				iter := c.Collections(ctx)
				_, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		})
	}
	if pubsubClient != nil {
		topic := pubsubClient.Topic(cfg.Notifications.MailTopic)
		checks = append(checks, repositories.DependencyCheck{
			Name:    "pubsub",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := topic.Exists(ctx)
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				return err
			},
		})
	}
	if len(checks) == 0 {
		return nil, errors.New("health: no dependency checks configured")
	}
	repo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: repo,
		Clock:            time.Now,
		Build:            build,
	})
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newZapServiceLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug("service log", zFields...)
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		if value, ok := env[key]; ok {
			return strings.TrimSpace(value)
		}
		return ""
	}

	envLabel := strings.ToLower(lookup("API_ENVIRONMENT"))
	if envLabel == "" {
		envLabel = "local"
	}
	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	credentialsFile := lookup("API_FIREBASE_CREDENTIALS_FILE")

	opts := []secrets.Option{
		secrets.WithEnvironment(envLabel),
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}
