package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/models"
	"github.com/mosajjal/devops-events/pkg/storage"
	"github.com/mosajjal/devops-events/pkg/transform"
)

// CodeBuild filters metric stream records down to project level metrics
type CodeBuild struct {
	runner
	transformer *transform.Transformer
}

// NewCodeBuild creates the build metrics parser
func NewCodeBuild(tr *transform.Transformer, archive storage.Backend, logger *zap.Logger) *CodeBuild {
	return &CodeBuild{
		runner:      newRunner("codebuild", archive, 1, logger),
		transformer: tr,
	}
}

// Handle processes a batch
func (c *CodeBuild) Handle(ctx context.Context, batch models.Batch) (models.Response, error) {
	return c.run(ctx, batch, c.process), nil
}

func (c *CodeBuild) process(_ context.Context, record models.BatchRecord, ordinal, _ int) (models.Envelope, error) {
	raw, err := decodeText(record)
	if err != nil {
		return models.Envelope{}, err
	}
	res, err := c.transformer.CodeBuild(raw, ordinal)
	if err != nil {
		return models.Envelope{}, err
	}
	if res.Dropped() {
		return models.DroppedEnvelope(record), nil
	}
	return models.OkEnvelope(record.RecordID, res.Payload()), nil
}
