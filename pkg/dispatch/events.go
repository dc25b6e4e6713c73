package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/models"
	"github.com/mosajjal/devops-events/pkg/storage"
	"github.com/mosajjal/devops-events/pkg/transform"
)

var errInvalidJSON = errors.New("record data is not valid JSON")

// Events routes EventBridge events to a transform by their source field
type Events struct {
	runner
	transformer *transform.Transformer
}

// NewEvents creates the multiplexed event parser. archive may be nil.
func NewEvents(tr *transform.Transformer, archive storage.Backend, logger *zap.Logger) *Events {
	return &Events{
		runner:      newRunner("events", archive, 1, logger),
		transformer: tr,
	}
}

// Handle processes a batch
func (e *Events) Handle(ctx context.Context, batch models.Batch) (models.Response, error) {
	return e.run(ctx, batch, e.process), nil
}

func (e *Events) process(_ context.Context, record models.BatchRecord, ordinal, total int) (models.Envelope, error) {
	raw, err := decodeText(record)
	if err != nil {
		return models.Envelope{}, err
	}
	if !gjson.ValidBytes(raw) {
		return models.Envelope{}, errInvalidJSON
	}

	source := gjson.GetBytes(raw, "source").String()
	fn := e.transformer.ForSource(source)
	if fn == nil {
		e.logger.Debug("unsupported event source", zap.Int("record", ordinal), zap.String("source", source))
		return models.DroppedEnvelope(record), nil
	}

	res, err := fn(raw, ordinal)
	if err != nil {
		return models.Envelope{}, err
	}
	if res.Dropped() {
		return models.DroppedEnvelope(record), nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, res.Payload()); err != nil {
		return models.Envelope{}, err
	}
	// records are concatenated by Firehose, so all but the last get a separator
	if ordinal < total {
		buf.WriteByte('\n')
	}
	return models.OkEnvelope(record.RecordID, buf.Bytes()), nil
}
