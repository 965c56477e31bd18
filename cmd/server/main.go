package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/paywalled/paid-content/pkg/paidcontent/api"
	"github.com/paywalled/paid-content/pkg/paidcontent/config"
)

// envConfig is the flat environment surface of the server binary. It maps
// onto config.ServerConfig; environment-specific parsing stays in the
// executable, not in the library.
type envConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	ContentSecretHex string `env:"CONTENT_SECRET_HEX"`

	LedgerType  string `env:"LEDGER_TYPE" env-default:"memory"`
	LedgerPath  string `env:"LEDGER_PATH"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBSchema    string `env:"DB_SCHEMA" env-default:"paidcontent"`

	StorageType  string `env:"STORAGE_TYPE" env-default:"memory"`
	FSBaseDir    string `env:"FS_BASE_DIR"`
	S3Region     string `env:"S3_REGION"`
	S3Bucket     string `env:"S3_BUCKET"`
	S3AccessKey  string `env:"S3_ACCESS_KEY"`
	S3SecretKey  string `env:"S3_SECRET_KEY"`
	S3Endpoint   string `env:"S3_ENDPOINT"`
	S3PathStyle  bool   `env:"S3_USE_PATH_STYLE"`
	S3KeyPrefix  string `env:"S3_KEY_PREFIX"`
	S3MakeBucket bool   `env:"S3_CREATE_BUCKET"`

	GatewayURL          string `env:"PAYMENT_GATEWAY_URL"`
	ChallengeSecret     string `env:"CHALLENGE_SECRET"`
	ChallengeTTLSeconds int    `env:"CHALLENGE_TTL_SECONDS" env-default:"300"`

	PriceAmount   string `env:"PRICE_AMOUNT" env-default:"0.01"`
	PriceCurrency string `env:"PRICE_CURRENCY" env-default:"USDC"`
	PriceNetwork  string `env:"PRICE_NETWORK" env-default:"base"`
	PriceAsset    string `env:"PRICE_ASSET"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var env envConfig
	if err := cleanenv.ReadEnv(&env); err != nil {
		logger.Error("reading environment", "error", err)
		os.Exit(1)
	}

	serverConfig, err := config.Load(withEnv(env))
	if err != nil {
		logger.Error("loading configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	svc, err := serverConfig.BuildService(ctx, logger)
	if err != nil {
		logger.Error("building service", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]string{"status": "ok"})
	})
	r.Mount("/items", handler.Routes())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverConfig.Port),
		Handler: r,
	}

	go func() {
		logger.Info("paid-content server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"ledger", serverConfig.LedgerType,
			"backend", serverConfig.DefaultStorageBackend)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server exiting")
}

// withEnv maps the flat environment surface onto the library config.
func withEnv(env envConfig) config.Option {
	return func(c *config.ServerConfig) error {
		c.Port = env.Port
		c.Environment = env.Environment
		c.ContentSecretHex = env.ContentSecretHex
		c.LedgerType = env.LedgerType
		c.LedgerPath = env.LedgerPath
		c.DatabaseURL = env.DatabaseURL
		c.DBSchema = env.DBSchema
		c.GatewayURL = env.GatewayURL
		c.ChallengeSecret = env.ChallengeSecret
		c.ChallengeTTL = time.Duration(env.ChallengeTTLSeconds) * time.Second
		c.PriceDefaults.Amount = env.PriceAmount
		c.PriceDefaults.Currency = env.PriceCurrency
		c.PriceDefaults.Network = env.PriceNetwork
		c.PriceDefaults.Asset = env.PriceAsset

		backend := config.StorageBackendConfig{
			Name: env.StorageType,
			Type: env.StorageType,
		}
		switch env.StorageType {
		case "memory":
		case "fs":
			backend.BaseDir = env.FSBaseDir
		case "s3":
			backend.Region = env.S3Region
			backend.Bucket = env.S3Bucket
			backend.AccessKeyID = env.S3AccessKey
			backend.SecretAccessKey = env.S3SecretKey
			backend.Endpoint = env.S3Endpoint
			backend.UsePathStyle = env.S3PathStyle
			backend.KeyPrefix = env.S3KeyPrefix
			backend.CreateBucket = env.S3MakeBucket
		default:
			return fmt.Errorf("unsupported STORAGE_TYPE: %s", env.StorageType)
		}
		c.StorageBackends = []config.StorageBackendConfig{backend}
		c.DefaultStorageBackend = backend.Name
		return nil
	}
}
