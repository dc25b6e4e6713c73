package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/mosajjal/devops-events/pkg/app"
	"github.com/mosajjal/devops-events/pkg/dispatch"
)

var handler dispatch.Handler

func init() {
	a, err := app.New(nil)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	handler = dispatch.NewEvents(a.Transformer, a.Archive(context.Background()), a.Logger).Handle
	a.Logger.Info("event parser initialized")
}

func main() {
	lambda.Start(handler)
}
