package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/app"
	"github.com/mosajjal/devops-events/pkg/dispatch"
)

var handler dispatch.Handler

func init() {
	ctx := context.Background()
	a, err := app.New(nil)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	authorizer, err := a.Authorizer(ctx)
	if err != nil {
		a.Logger.Fatal("unable to load AWS config", zap.Error(err))
	}
	handler = dispatch.NewGitHub(authorizer, a.Transformer, a.Archive(ctx), a.Config.WebhookConcurrency, a.Logger).Handle
	a.Logger.Info("github parser initialized",
		zap.String("useSecret", a.Config.UseSecret),
		zap.Int("concurrency", a.Config.WebhookConcurrency),
	)
}

func main() {
	lambda.Start(handler)
}
