package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"adscope-integrations-layer/internal/application"
	"adscope-integrations-layer/internal/domain"
	"adscope-integrations-layer/internal/infrastructure/encryption"
	"adscope-integrations-layer/internal/infrastructure/gateway"
	appmiddleware "adscope-integrations-layer/internal/infrastructure/middleware"
	"adscope-integrations-layer/internal/infrastructure/notify"
	"adscope-integrations-layer/internal/infrastructure/pubsub"
	"adscope-integrations-layer/internal/infrastructure/repository"
	shopifyinfra "adscope-integrations-layer/internal/infrastructure/shopify"
	"adscope-integrations-layer/internal/infrastructure/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	// Get configuration from environment
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:8000"
	}

	// Connect to MongoDB
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(os.Getenv("MONGODB_DATABASE"))

	// Connect to Redis (session store)
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Get encryption key
	encryptionKey := os.Getenv("ENCRYPTION_KEY")
	if encryptionKey == "" {
		logger.Fatal().Msg("ENCRYPTION_KEY environment variable is required")
	}

	// Initialize infrastructure (implementations)
	encryptionService, err := encryption.NewService(encryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	sessionStore := store.NewRedisStore(redisClient, 24*time.Hour)
	syncPubSub := pubsub.NewSyncPubSub(logger)
	backendGateway := gateway.NewBackendGateway(backendURL, sessionStore, syncPubSub, logger)
	notifier := notify.NewLogNotifier(logger)

	// Initialize repositories
	credentialRepo := repository.NewMongoCredentialRepository(db)
	domainRepo := repository.NewMongoDomainRepository(db)

	// Service catalog with OAuth client ids from environment
	catalog := domain.DefaultCatalog()
	catalog.SetClientID("google_ads", os.Getenv("GOOGLE_ADS_CLIENT_ID"))
	catalog.SetClientID("bing_ads", os.Getenv("BING_ADS_CLIENT_ID"))
	catalog.SetClientID("mailchimp", os.Getenv("MAILCHIMP_CLIENT_ID"))

	landingVerifier := shopifyinfra.NewLandingVerifier(
		os.Getenv("SHOPIFY_API_KEY"),
		os.Getenv("SHOPIFY_API_SECRET"),
		logger,
	)

	// Initialize application services
	connectionService := application.NewConnectionService(
		catalog,
		backendGateway,
		sessionStore,
		credentialRepo,
		encryptionService,
		syncPubSub,
		notifier,
		appmiddleware.PrometheusOutcomeRecorder{},
		logger,
	)
	callbackService := application.NewCallbackService(connectionService, logger)
	sessionSyncService := application.NewSessionSyncService(sessionStore, syncPubSub, logger)
	domainService := application.NewDomainService(backendGateway, domainRepo, sessionSyncService, notifier, logger)
	landingService := application.NewLandingService(landingVerifier, backendGateway, sessionStore, syncPubSub, notifier, logger)

	// Start the reconciliation loop
	stopSync := sessionSyncService.Start(context.Background())
	defer stopSync()

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	metricsMiddleware := &appmiddleware.MetricsMiddleware{}
	r.Use(metricsMiddleware.RecordHTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(createSessionMiddleware(sessionSyncService, logger))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Integration connection routes
	r.Post("/integrations/connect", connectHandler(connectionService, logger))
	r.Get("/integrations/{service}/status", statusHandler(connectionService, logger))
	r.Get("/integrations/{service}/authorize", authorizeHandler(connectionService, logger))
	r.Get("/integrations/{service}/callback", callbackHandler(callbackService, logger))
	r.Get("/integrations/shopify/landing", landingHandler(landingService, logger))

	// Domain routes
	r.Get("/domains", domainsHandler(sessionSyncService, logger))
	r.Post("/domains", addDomainHandler(domainService, logger))
	r.Delete("/domains/{id}", removeDomainHandler(domainService, logger))
	r.Put("/domains/active", setActiveDomainHandler(sessionSyncService, logger))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("Starting API server")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// createSessionMiddleware extracts the session and account ids from
// headers so every downstream read and write is scoped correctly, and
// registers the session with the reconciliation loop.
func createSessionMiddleware(sync *application.SessionSyncService, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if sessionID := r.Header.Get("X-Session-ID"); sessionID != "" {
				ctx = domain.WithSessionID(ctx, sessionID)
				sync.Track(ctx)
			}
			if accountID := r.Header.Get("X-Account-ID"); accountID != "" {
				ctx = domain.WithAccountID(ctx, accountID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type connectRequest struct {
	ServiceName  string            `json:"service_name"`
	Credentials  map[string]string `json:"credentials"`
	PixelInstall bool              `json:"pixel_install"`
}

// connectHandler runs the credential-submit flow
func connectHandler(connections *application.ConnectionService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req connectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		outcome, err := connections.Connect(r.Context(), application.ConnectInput{
			ServiceName:  req.ServiceName,
			Credentials:  req.Credentials,
			PixelInstall: req.PixelInstall,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, outcome)
	}
}

// statusHandler reports the persisted connection state for a service
func statusHandler(connections *application.ConnectionService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credential, err := connections.Status(r.Context(), chi.URLParam(r, "service"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, credential)
	}
}

// authorizeHandler starts the OAuth flow and redirects the browser to
// the provider's authorization page
func authorizeHandler(connections *application.ConnectionService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serviceName := chi.URLParam(r, "service")

		redirectURI := r.URL.Query().Get("redirect_uri")
		if redirectURI == "" {
			http.Error(w, "redirect_uri parameter is required", http.StatusBadRequest)
			return
		}

		authURL, err := connections.BeginRedirect(r.Context(), serviceName, redirectURI)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// callbackHandler resolves the OAuth redirect return
func callbackHandler(callbacks *application.CallbackService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serviceName := chi.URLParam(r, "service")

		result, err := callbacks.Resolve(r.Context(), serviceName, r.URL.Query())
		if err != nil {
			logger.Error().Err(err).Str("service", serviceName).Msg("Callback resolution failed")
			http.Error(w, "failed to complete authorization", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"navigate_to_integrations": result.NavigateToIntegrations,
			"failure_message":          result.FailureMessage,
			"outcome":                  result.Outcome,
		})
	}
}

// landingHandler handles the Shopify landing variant
func landingHandler(landing *application.LandingService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := landing.HandleLanding(r.Context(), r.URL.RawQuery)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	}
}

// domainsHandler returns the current domain snapshot
func domainsHandler(sync *application.SessionSyncService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := sync.Snapshot(r.Context())
		if err != nil {
			http.Error(w, "failed to read domains", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}

type addDomainRequest struct {
	Domain string `json:"domain"`
}

// addDomainHandler registers a new domain and activates it
func addDomainHandler(domains *application.DomainService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addDomainRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		created, err := domains.AddDomain(r.Context(), req.Domain)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

type removeDomainRequest struct {
	Domain string `json:"domain"`
}

// removeDomainHandler deletes a domain after confirmation
func removeDomainHandler(domains *application.DomainService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid domain id", http.StatusBadRequest)
			return
		}

		var req removeDomainRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if err := domains.RemoveDomain(r.Context(), id, req.Domain); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

type setActiveDomainRequest struct {
	DomainURL string `json:"domain_url"`
}

// setActiveDomainHandler switches the active selection
func setActiveDomainHandler(sync *application.SessionSyncService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setActiveDomainRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if err := sync.SetActiveDomain(r.Context(), req.DomainURL); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeServiceError maps resolved service errors to HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownService),
		errors.Is(err, domain.ErrWrongConnectionFlow),
		errors.Is(err, domain.ErrEmptyCredential),
		errors.Is(err, domain.ErrInvalidDomainURL),
		errors.Is(err, domain.ErrDuplicateDomain),
		errors.Is(err, domain.ErrDomainConfirmation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrDomainNotFound),
		errors.Is(err, domain.ErrNoPendingConnection):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrSessionRevoked):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, domain.ErrLandingVerification),
		errors.Is(err, domain.ErrStateMismatch):
		http.Error(w, err.Error(), http.StatusForbidden)
	case domain.IsTransient(err):
		http.Error(w, "backend temporarily unavailable", http.StatusBadGateway)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
