package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

// VaultStore reads secrets from Azure Key Vault with a TTL cache
type VaultStore struct {
	client *azsecrets.Client
	logger *zap.Logger
	ttl    time.Duration

	mu    sync.Mutex
	cache map[string]cachedSecret
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

// NewVaultStore authenticates with DefaultAzureCredential (environment,
// managed identity or Azure CLI) against https://<vault>.vault.azure.net/.
func NewVaultStore(vaultName string, ttl time.Duration, logger *zap.Logger) (*VaultStore, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", vaultName)
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	logger.Info("Azure Key Vault client initialized", zap.String("vault_url", vaultURL))

	return &VaultStore{
		client: client,
		logger: logger,
		ttl:    ttl,
		cache:  make(map[string]cachedSecret),
	}, nil
}

// Get returns the latest version of the named secret
func (s *VaultStore) Get(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	if c, ok := s.cache[name]; ok && time.Now().Before(c.expiresAt) {
		s.mu.Unlock()
		return c.value, nil
	}
	s.mu.Unlock()

	resp, err := s.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get secret '%s': %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret '%s' has no value", name)
	}

	s.mu.Lock()
	s.cache[name] = cachedSecret{value: *resp.Value, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()

	s.logger.Debug("Secret retrieved from Key Vault", zap.String("secret_name", name))
	return *resp.Value, nil
}
