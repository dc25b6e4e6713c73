package secrets

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Fetcher is the subset of the Secrets Manager client the cache needs
type Fetcher interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Store looks up a secret string by id
type Store interface {
	Secret(ctx context.Context, secretID string) (string, bool)
}

// Cache memoizes secret strings for the lifetime of the process. Entries never
// expire. Failed lookups are not cached, so a later call retries.
type Cache struct {
	fetcher Fetcher
	logger  *zap.Logger

	mu     sync.RWMutex
	values map[string]string
	group  singleflight.Group
}

// NewCache creates a cache backed by fetcher
func NewCache(fetcher Fetcher, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		fetcher: fetcher,
		logger:  logger,
		values:  make(map[string]string),
	}
}

// Secret returns the secret string for secretID. The second value is false
// when the secret could not be retrieved.
func (c *Cache) Secret(ctx context.Context, secretID string) (string, bool) {
	c.mu.RLock()
	v, ok := c.values[secretID]
	c.mu.RUnlock()
	if ok {
		return v, true
	}

	res, err, _ := c.group.Do(secretID, func() (interface{}, error) {
		c.mu.RLock()
		v, ok := c.values[secretID]
		c.mu.RUnlock()
		if ok {
			return v, nil
		}
		v, err := c.fetch(ctx, secretID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.values[secretID] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		c.logger.Error("error when retrieving secret", zap.String("secretId", secretID), zap.Error(err))
		return "", false
	}
	return res.(string), true
}

func (c *Cache) fetch(ctx context.Context, secretID string) (string, error) {
	out, err := c.fetcher.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("get secret value: %w", err)
	}
	if out == nil || out.SecretString == nil {
		return "", errors.New("secret has no string value")
	}
	return *out.SecretString, nil
}
