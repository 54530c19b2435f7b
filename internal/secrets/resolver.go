package secrets

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// Source identifies where secrets are read from
type Source string

const (
	SourceEnvironment Source = "environment"
	SourceVault       Source = "vault"
	// SourceAuto picks the environment in development and the vault elsewhere
	SourceAuto Source = "auto"
)

// Store reads a single secret by name
type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

type ResolverConfig struct {
	Source      Source
	VaultName   string
	Environment string
	CacheTTL    time.Duration
}

// Resolver resolves secrets with environment-variable overrides
type Resolver struct {
	source Source
	store  Store
	logger *zap.Logger
}

// NewResolver builds a resolver for the configured source
func NewResolver(cfg ResolverConfig, logger *zap.Logger) (*Resolver, error) {
	source := resolveSource(cfg.Source, cfg.Environment, cfg.VaultName)

	r := &Resolver{source: source, logger: logger, store: envStore{}}
	if source == SourceVault {
		if cfg.VaultName == "" {
			return nil, fmt.Errorf("vault name required when using vault secret source")
		}
		store, err := NewVaultStore(cfg.VaultName, cfg.CacheTTL, logger)
		if err != nil {
			return nil, err
		}
		r.store = store
	}

	logger.Info("Secrets resolver initialized",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment),
	)
	return r, nil
}

// NewResolverWithStore is used where the backing store is supplied directly
func NewResolverWithStore(store Store, logger *zap.Logger) *Resolver {
	return &Resolver{source: SourceVault, store: store, logger: logger}
}

func resolveSource(source Source, environment, vaultName string) Source {
	if source != SourceAuto && source != "" {
		return source
	}
	switch environment {
	case "development", "local", "test", "":
		return SourceEnvironment
	}
	if vaultName == "" {
		return SourceEnvironment
	}
	return SourceVault
}

// UsesVault reports whether secrets come from Key Vault
func (r *Resolver) UsesVault() bool {
	return r.source == SourceVault
}

// Resolve returns envName when set, else the named secret from the store
func (r *Resolver) Resolve(ctx context.Context, secretName, envName string) (string, error) {
	if v := os.Getenv(envName); v != "" {
		r.logger.Debug("Using environment override", zap.String("env_name", envName))
		return v, nil
	}
	return r.store.Get(ctx, secretName)
}

type envStore struct{}

func (envStore) Get(_ context.Context, name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("environment variable '%s' not set", name)
	}
	return v, nil
}
