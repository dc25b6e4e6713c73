package storage

import (
	"context"

	"github.com/mosajjal/devops-events/pkg/models"
)

// Backend archives records whose processing failed, so they can be replayed
// after a fix. Archiving never changes what is returned to Firehose.
type Backend interface {
	// Store saves one batch worth of failed records
	Store(ctx context.Context, records []*models.FailedRecord) error

	// Close cleans up resources
	Close() error
}

// Config holds common storage configuration
type Config struct {
	Provider string // s3
	URL      string
}
