// Package config assembles a paidcontent.Service from declarative server
// configuration: which ledger store, which storage backends, which payment
// verifier, and the content secret.
package config

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paywalled/paid-content/pkg/paidcontent"
	"github.com/paywalled/paid-content/pkg/paidcontent/cipher"
	"github.com/paywalled/paid-content/pkg/paidcontent/ledger"
	"github.com/paywalled/paid-content/pkg/paidcontent/payment"
	fsstorage "github.com/paywalled/paid-content/pkg/paidcontent/storage/fs"
	memorystorage "github.com/paywalled/paid-content/pkg/paidcontent/storage/memory"
	s3storage "github.com/paywalled/paid-content/pkg/paidcontent/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:                  "8080",
		Environment:           "development",
		LedgerType:            "memory",
		DBSchema:              "paidcontent",
		DefaultStorageBackend: "memory",
		StorageBackends: []StorageBackendConfig{
			{Name: "memory", Type: "memory"},
		},
		ChallengeTTL: paidcontent.DefaultChallengeTTL,
		PreviewBound: paidcontent.DefaultPreviewBound,
		PriceDefaults: paidcontent.PriceTerms{
			Amount:   "0.01",
			Currency: "USDC",
			Network:  "base",
		},
	}
}

// ServerConfig represents server configuration for the paid-content service.
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// ContentSecretHex is the hex encoding of the 32-byte symmetric secret.
	// Absence is a startup-time warning, not a crash; encrypt and decrypt
	// calls fail until it is set.
	ContentSecretHex string

	// Ledger persistence
	LedgerType  string // "memory", "file", "postgres"
	LedgerPath  string // registry file path when LedgerType is "file"
	DatabaseURL string // connection string when LedgerType is "postgres"
	DBSchema    string

	// Storage configuration
	DefaultStorageBackend string
	StorageBackends       []StorageBackendConfig

	// Payment configuration
	GatewayURL      string // empty selects the local development verifier
	ChallengeSecret string // enables signed challenge tokens when set
	ChallengeTTL    time.Duration

	// Publishing defaults
	PriceDefaults paidcontent.PriceTerms
	PreviewBound  int
}

// StorageBackendConfig represents configuration for a storage backend.
type StorageBackendConfig struct {
	Name string
	Type string // "memory", "fs", "s3"

	// fs
	BaseDir string

	// s3
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
	KeyPrefix       string
	CreateBucket    bool
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.LedgerType {
	case "memory":
	case "file":
		if c.LedgerPath == "" {
			return errors.New("ledger_path is required when using the file ledger")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when using the postgres ledger")
		}
	default:
		return errors.New("ledger_type must be 'memory', 'file' or 'postgres'")
	}

	if c.ContentSecretHex != "" {
		secret, err := hex.DecodeString(c.ContentSecretHex)
		if err != nil {
			return fmt.Errorf("content secret is not valid hex: %w", err)
		}
		if len(secret) != cipher.KeySize {
			return fmt.Errorf("content secret must be %d bytes, got %d", cipher.KeySize, len(secret))
		}
	}

	found := false
	for _, backend := range c.StorageBackends {
		if backend.Name == c.DefaultStorageBackend {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default storage backend '%s' not found in configured backends", c.DefaultStorageBackend)
	}
	return nil
}

// BuildService creates a Service instance from the server configuration.
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (paidcontent.Service, error) {
	options := []paidcontent.Option{
		paidcontent.WithCipher(cipher.New()),
		paidcontent.WithLogger(logger),
		paidcontent.WithPriceDefaults(c.PriceDefaults),
		paidcontent.WithChallengeTTL(c.ChallengeTTL),
		paidcontent.WithPreviewBound(c.PreviewBound),
	}

	led, err := c.buildLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("building ledger: %w", err)
	}
	options = append(options, paidcontent.WithLedger(led))

	for _, backendConfig := range c.StorageBackends {
		store, err := buildStorageBackend(backendConfig)
		if err != nil {
			return nil, fmt.Errorf("building storage backend %s: %w", backendConfig.Name, err)
		}
		options = append(options, paidcontent.WithBlobStore(backendConfig.Name, store))
	}
	options = append(options, paidcontent.WithDefaultBackend(c.DefaultStorageBackend))

	verifier, err := c.buildVerifier()
	if err != nil {
		return nil, fmt.Errorf("building payment verifier: %w", err)
	}
	options = append(options, paidcontent.WithPaymentVerifier(verifier))

	if c.ChallengeSecret != "" {
		signer, err := payment.NewChallengeSigner([]byte(c.ChallengeSecret))
		if err != nil {
			return nil, fmt.Errorf("building challenge signer: %w", err)
		}
		options = append(options, paidcontent.WithChallengeSigner(signer))
	}

	if c.ContentSecretHex != "" {
		secret, err := hex.DecodeString(c.ContentSecretHex)
		if err != nil {
			return nil, fmt.Errorf("decoding content secret: %w", err)
		}
		options = append(options, paidcontent.WithSecret(secret))
	}

	return paidcontent.New(options...)
}

func (c *ServerConfig) buildLedger(ctx context.Context) (paidcontent.Ledger, error) {
	var store ledger.Store
	switch c.LedgerType {
	case "memory":
		store = ledger.NewMemStore()
	case "file":
		fs, err := ledger.NewFileStore(c.LedgerPath)
		if err != nil {
			return nil, err
		}
		store = fs
	case "postgres":
		pg, err := ledger.NewPGStore(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, err
		}
		store = pg
	default:
		return nil, fmt.Errorf("unsupported ledger type: %s", c.LedgerType)
	}
	return ledger.New(ctx, store)
}

func (c *ServerConfig) buildVerifier() (paidcontent.PaymentVerifier, error) {
	if c.GatewayURL == "" {
		return payment.NewLocalVerifier(), nil
	}
	return payment.NewGateway(c.GatewayURL)
}

func buildStorageBackend(cfg StorageBackendConfig) (paidcontent.BlobStore, error) {
	switch cfg.Type {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{BaseDir: cfg.BaseDir})
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 cfg.Region,
			Bucket:                 cfg.Bucket,
			AccessKeyID:            cfg.AccessKeyID,
			SecretAccessKey:        cfg.SecretAccessKey,
			Endpoint:               cfg.Endpoint,
			UsePathStyle:           cfg.UsePathStyle,
			KeyPrefix:              cfg.KeyPrefix,
			CreateBucketIfNotExist: cfg.CreateBucket,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", cfg.Type)
	}
}
