// Package app wires configuration, logging and AWS clients for the entry
// points.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/auth"
	"github.com/mosajjal/devops-events/pkg/config"
	"github.com/mosajjal/devops-events/pkg/logging"
	"github.com/mosajjal/devops-events/pkg/secrets"
	"github.com/mosajjal/devops-events/pkg/storage"
	s3storage "github.com/mosajjal/devops-events/pkg/storage/s3"
	"github.com/mosajjal/devops-events/pkg/transform"
)

// App holds the process wide dependencies
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	Transformer *transform.Transformer

	awsOnce sync.Once
	awsCfg  aws.Config
	awsErr  error
}

// New loads configuration and builds the logger. AWS clients are created on
// first use.
func New(args []string) (*App, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &App{
		Config:      cfg,
		Logger:      logger,
		Transformer: transform.New(cfg.AlarmSolutionID, logger),
	}, nil
}

// AWS returns the shared SDK config
func (a *App) AWS(ctx context.Context) (aws.Config, error) {
	a.awsOnce.Do(func() {
		a.awsCfg, a.awsErr = config.LoadAWS(ctx, a.Config)
	})
	return a.awsCfg, a.awsErr
}

// Archive returns the failure archive, or nil when none is configured or it
// cannot be set up. Processing works without one.
func (a *App) Archive(ctx context.Context) storage.Backend {
	if a.Config.FailureURL == "" {
		return nil
	}
	awsCfg, err := a.AWS(ctx)
	if err != nil {
		a.Logger.Error("failed to setup failure storage", zap.Error(err))
		return nil
	}
	backend, err := s3storage.NewStorage(storage.Config{Provider: "s3", URL: a.Config.FailureURL}, awsCfg, a.Logger)
	if err != nil {
		a.Logger.Error("failed to setup failure storage", zap.Error(err))
		return nil
	}
	return backend
}

// Authorizer returns the webhook authorizer backed by Secrets Manager
func (a *App) Authorizer(ctx context.Context) (*auth.GitHubAuthorizer, error) {
	awsCfg, err := a.AWS(ctx)
	if err != nil {
		return nil, err
	}
	store := secrets.NewCache(secretsmanager.NewFromConfig(awsCfg), a.Logger)
	return auth.NewGitHubAuthorizer(auth.Options{
		UseSecret: a.Config.UseSecret,
		SecretID:  a.Config.WebhookSecretID(),
	}, store, nil, a.Logger), nil
}
