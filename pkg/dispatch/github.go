package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/auth"
	"github.com/mosajjal/devops-events/pkg/models"
	"github.com/mosajjal/devops-events/pkg/storage"
	"github.com/mosajjal/devops-events/pkg/transform"
)

// GitHub authorizes webhook records and transforms push events. Records are
// processed concurrently since each may wait on the secret store.
type GitHub struct {
	runner
	authorizer  auth.Authorizer
	transformer *transform.Transformer
}

// NewGitHub creates the webhook parser
func NewGitHub(authorizer auth.Authorizer, tr *transform.Transformer, archive storage.Backend, concurrency int, logger *zap.Logger) *GitHub {
	return &GitHub{
		runner:      newRunner("github", archive, concurrency, logger),
		authorizer:  authorizer,
		transformer: tr,
	}
}

// Handle processes a batch
func (g *GitHub) Handle(ctx context.Context, batch models.Batch) (models.Response, error) {
	return g.run(ctx, batch, g.process), nil
}

func (g *GitHub) process(ctx context.Context, record models.BatchRecord, ordinal, _ int) (models.Envelope, error) {
	raw, err := decodeText(record)
	if err != nil {
		return models.Envelope{}, err
	}

	if !g.authorizer.Authorize(ctx, raw) {
		g.logger.Warn("unauthorized webhook request", zap.Int("record", ordinal), zap.String("recordId", record.RecordID))
		return models.DroppedEnvelope(record), nil
	}

	res, err := g.transformer.GitHub(raw, ordinal)
	if err != nil {
		return models.Envelope{}, err
	}
	if res.Dropped() {
		return models.DroppedEnvelope(record), nil
	}
	return models.OkEnvelope(record.RecordID, res.Payload()), nil
}
