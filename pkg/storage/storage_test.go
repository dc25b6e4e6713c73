package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mosajjal/devops-events/pkg/models"
)

type memoryBackend struct {
	stored [][]*models.FailedRecord
}

func (m *memoryBackend) Store(_ context.Context, records []*models.FailedRecord) error {
	m.stored = append(m.stored, records)
	return nil
}

func (m *memoryBackend) Close() error { return nil }

func TestBackendContract(t *testing.T) {
	var b Backend = &memoryBackend{}
	records := []*models.FailedRecord{{RecordID: "r1", Parser: "events", Error: "boom"}}

	assert.NoError(t, b.Store(context.Background(), records))
	assert.NoError(t, b.Close())
	assert.Len(t, b.(*memoryBackend).stored, 1)
}
