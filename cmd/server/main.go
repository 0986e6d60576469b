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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/storeapi/internal/authkit"
	"github.com/tyemirov/storeapi/internal/authkitpg"
	"github.com/tyemirov/storeapi/internal/catalog"
	"github.com/tyemirov/storeapi/internal/events"
	"github.com/tyemirov/storeapi/internal/storage"
	"github.com/tyemirov/storeapi/internal/web"
	"github.com/tyemirov/storeapi/pkg/tokenvalidator"
	"go.uber.org/zap"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

var buildEventPublisher = func(brokers []string, logger *zap.Logger) (events.Publisher, error) {
	publisher, err := events.NewKafkaPublisher(brokers, logger)
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "storeapi",
		Short:   "Store, item and tag API with JWT authentication and a token blocklist",
		PreRunE: prepareServerConfig,
		RunE:    runServer,
	}

	rootCmd.Flags().String("listen_addr", ":8080", "HTTP listen address")
	rootCmd.Flags().String("database_url", "sqlite://storeapi.db", "Database URL (postgres:// or sqlite://)")
	rootCmd.Flags().String("jwt_signing_key", "", "HS256 signing secret for access and refresh tokens")
	rootCmd.Flags().String("jwt_issuer", "storeapi", "Issuer claim written to and required on tokens")
	rootCmd.Flags().Duration("access_ttl", 15*time.Minute, "Access token TTL")
	rootCmd.Flags().Duration("refresh_ttl", 30*24*time.Hour, "Refresh token TTL")
	rootCmd.Flags().String("revocation_store", revocationStoreMemory, "Revoked token store: memory, database, bolt or postgres")
	rootCmd.Flags().String("revocation_bolt_path", "revoked_tokens.bolt", "File used when revocation_store is bolt")
	rootCmd.Flags().StringSlice("kafka_brokers", []string{}, "Kafka brokers for user and tag events; empty disables publishing")
	rootCmd.Flags().Bool("enable_cors", false, "Enable CORS for cross-origin clients")
	rootCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled (required if enable_cors is true)")
	rootCmd.Flags().String("env_file", "", "Optional .env file loaded before configuration is read")

	for _, flagName := range []string{
		"listen_addr",
		"database_url",
		"jwt_signing_key",
		"jwt_issuer",
		"access_ttl",
		"refresh_ttl",
		"revocation_store",
		"revocation_bolt_path",
		"kafka_brokers",
		"enable_cors",
		"cors_allowed_origins",
		"env_file",
	} {
		_ = viper.BindPFlag(flagName, rootCmd.Flags().Lookup(flagName))
	}

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()

	return rootCmd
}

const (
	revocationStoreMemory   = "memory"
	revocationStoreDatabase = "database"
	revocationStoreBolt     = "bolt"
	revocationStorePostgres = "postgres"

	configCodeEnvFile                 = "config.env_file"
	configCodeMissingJWTSigningKey    = "config.missing_jwt_signing_key"
	configCodeMissingJWTIssuer        = "config.missing_jwt_issuer"
	configCodeInvalidAccessTTL        = "config.invalid_access_ttl"
	configCodeInvalidRefreshTTL       = "config.invalid_refresh_ttl"
	configCodeUninitializedServerConf = "config.uninitialized_server_config"
	configCodeInvalidRevocationStore  = "config.invalid_revocation_store"
	configCodeMissingBoltPath         = "config.missing_revocation_bolt_path"
	configCodeMissingCORSOrigins      = "config.missing_cors_allowed_origins"
)

type contextKey string

const serverConfigContextKey contextKey = "serverConfig"

func prepareServerConfig(command *cobra.Command, arguments []string) error {
	if envFile := strings.TrimSpace(viper.GetString("env_file")); envFile != "" {
		if loadErr := godotenv.Load(envFile); loadErr != nil {
			return configError(configCodeEnvFile, fmt.Sprintf("unable to load %s: %v", envFile, loadErr))
		}
	}
	serverConfig, loadErr := LoadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, serverConfigContextKey, serverConfig))
	return nil
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

func LoadServerConfig() (authkit.ServerConfig, error) {
	jwtSigningKey := viper.GetString("jwt_signing_key")
	if jwtSigningKey == "" {
		return authkit.ServerConfig{}, configError(configCodeMissingJWTSigningKey, "jwt_signing_key must be provided")
	}

	jwtIssuer := strings.TrimSpace(viper.GetString("jwt_issuer"))
	if jwtIssuer == "" {
		return authkit.ServerConfig{}, configError(configCodeMissingJWTIssuer, "jwt_issuer must be provided")
	}

	accessTTL := viper.GetDuration("access_ttl")
	if accessTTL <= 0 {
		return authkit.ServerConfig{}, configError(configCodeInvalidAccessTTL, "access_ttl must be greater than zero")
	}

	refreshTTL := viper.GetDuration("refresh_ttl")
	if refreshTTL <= 0 {
		return authkit.ServerConfig{}, configError(configCodeInvalidRefreshTTL, "refresh_ttl must be greater than zero")
	}

	return authkit.ServerConfig{
		JWTSigningKey: []byte(jwtSigningKey),
		JWTIssuer:     jwtIssuer,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}, nil
}

func runServer(command *cobra.Command, arguments []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(serverConfigContextKey)
	}
	serverConfig, ok := contextValue.(authkit.ServerConfig)
	if !ok {
		return configError(configCodeUninitializedServerConf, "server configuration not prepared; PreRunE must execute before RunE")
	}

	listenAddr := viper.GetString("listen_addr")
	databaseURL := viper.GetString("database_url")
	enableCORS := viper.GetBool("enable_cors")
	corsAllowedOrigins := splitList(viper.GetStringSlice("cors_allowed_origins"))
	kafkaBrokers := splitList(viper.GetStringSlice("kafka_brokers"))

	startupCtx := commandContext
	database, databaseErr := storage.Open(startupCtx, databaseURL)
	if databaseErr != nil {
		return databaseErr
	}
	defer func() {
		if closeErr := database.Close(); closeErr != nil {
			logger.Warn("database close failed", zap.String("code", "storage.close"), zap.Error(closeErr))
		}
	}()
	logger.Info("database ready", zap.String("driver", database.Driver()))

	userStore, userStoreErr := authkit.NewDatabaseUserStore(startupCtx, database.DB)
	if userStoreErr != nil {
		return userStoreErr
	}

	registry, registryErr := buildRevocationRegistry(startupCtx, logger, database)
	if registryErr != nil {
		return registryErr
	}
	defer func() {
		if closeErr := registry.Close(); closeErr != nil {
			logger.Warn("revocation registry close failed", zap.String("code", "revocation.close"), zap.Error(closeErr))
		}
	}()

	var publisher events.Publisher = events.NopPublisher{}
	if len(kafkaBrokers) > 0 {
		kafkaPublisher, publisherErr := buildEventPublisher(kafkaBrokers, logger)
		if publisherErr != nil {
			return publisherErr
		}
		publisher = kafkaPublisher
		logger.Info("publishing domain events", zap.Strings("brokers", kafkaBrokers))
	}
	defer func() { _ = publisher.Close() }()

	clock := authkit.NewSystemClock()
	tokenIssuer, issuerErr := authkit.NewTokenIssuer(serverConfig, clock)
	if issuerErr != nil {
		return issuerErr
	}
	validator, validatorErr := tokenvalidator.New(tokenvalidator.Config{
		SigningKey: serverConfig.JWTSigningKey,
		Issuer:     serverConfig.JWTIssuer,
		Clock:      clock,
	})
	if validatorErr != nil {
		return validatorErr
	}

	metricsRecorder := authkit.NewCounterMetrics()
	authService, serviceErr := authkit.NewAuthService(authkit.ServiceDependencies{
		Users:     userStore,
		Issuer:    tokenIssuer,
		Registry:  registry,
		Publisher: publisher,
		Metrics:   metricsRecorder,
		Logger:    logger,
	})
	if serviceErr != nil {
		return serviceErr
	}
	gate := authkit.NewGate(validator, registry, logger, metricsRecorder)

	catalogRepository, repositoryErr := catalog.NewRepository(startupCtx, database.DB)
	if repositoryErr != nil {
		return repositoryErr
	}
	catalogService, catalogErr := catalog.NewService(catalogRepository, publisher, logger)
	if catalogErr != nil {
		return catalogErr
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))

	if enableCORS {
		if len(corsAllowedOrigins) == 0 {
			return configError(configCodeMissingCORSOrigins, "cors_allowed_origins must be provided when enable_cors is true")
		}
		corsMiddleware, corsErr := web.ConfigureCORS(logger, corsAllowedOrigins)
		if corsErr != nil {
			return corsErr
		}
		router.Use(corsMiddleware)
	}

	authkit.MountAuthRoutes(router, authService, gate, logger)
	catalog.MountCatalogRoutes(router, catalogService, gate.RequireFreshAccess(), logger)
	router.GET("/me", gate.RequireAccess(), web.HandleWhoAmI(logger, userStore))
	web.MountHealthRoutes(router, logger, database)

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-signalCtx.Done()
		graceCtx, graceCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", listenAddr))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	logger.Info("server stopped",
		zap.Int64("logins", metricsRecorder.Count(authkit.MetricLoginSuccess)),
		zap.Int64("revoked_rejections", metricsRecorder.Count(authkit.MetricGateRevoked)))
	return nil
}

func buildRevocationRegistry(ctx context.Context, logger *zap.Logger, database *storage.Database) (authkit.RevocationRegistry, error) {
	store := strings.ToLower(strings.TrimSpace(viper.GetString("revocation_store")))
	switch store {
	case "", revocationStoreMemory:
		logger.Info("using in-memory revocation registry")
		return authkit.NewMemoryRevocationRegistry(), nil
	case revocationStoreDatabase:
		logger.Info("using database revocation registry", zap.String("driver", database.Driver()))
		registry, err := authkit.NewDatabaseRevocationRegistry(ctx, database.DB)
		if err != nil {
			return nil, err
		}
		return registry, nil
	case revocationStoreBolt:
		boltPath := strings.TrimSpace(viper.GetString("revocation_bolt_path"))
		if boltPath == "" {
			return nil, configError(configCodeMissingBoltPath, "revocation_bolt_path must be provided when revocation_store is bolt")
		}
		logger.Info("using bolt revocation registry", zap.String("path", boltPath))
		registry, err := authkit.NewBoltRevocationRegistry(boltPath)
		if err != nil {
			return nil, err
		}
		return registry, nil
	case revocationStorePostgres:
		if !storage.IsPostgres(database.DB) {
			return nil, configError(configCodeInvalidRevocationStore, "revocation_store postgres requires a postgres database_url")
		}
		logger.Info("using pgx revocation registry")
		pool, err := authkitpg.BuildPool(ctx, viper.GetString("database_url"))
		if err != nil {
			return nil, err
		}
		registry, err := authkitpg.NewPostgresRevocationRegistry(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return registry, nil
	default:
		return nil, configError(configCodeInvalidRevocationStore, fmt.Sprintf("revocation_store must be one of memory, database, bolt, postgres; got %q", store))
	}
}

// splitList flattens comma separated entries, which is how list values arrive from APP_ environment variables.
func splitList(values []string) []string {
	flattened := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				flattened = append(flattened, trimmed)
			}
		}
	}
	return flattened
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		duration := time.Since(startTime)
		logger.Info("http",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", duration),
		)
	}
}
