// Package dispatch runs a Firehose transformation batch through a parser and
// builds the response. Every input record yields exactly one output record,
// in input order, whatever happens while processing it.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mosajjal/devops-events/pkg/models"
	"github.com/mosajjal/devops-events/pkg/storage"
)

// Handler is the Lambda entry point signature shared by all parsers
type Handler func(ctx context.Context, batch models.Batch) (models.Response, error)

// processFunc turns one record into its envelope. ordinal is 1-based.
type processFunc func(ctx context.Context, record models.BatchRecord, ordinal, total int) (models.Envelope, error)

// runner holds what every parser does around its per-record work
type runner struct {
	parser      string
	archive     storage.Backend
	logger      *zap.Logger
	concurrency int
	now         func() time.Time
}

func newRunner(parser string, archive storage.Backend, concurrency int, logger *zap.Logger) runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return runner{
		parser:      parser,
		archive:     archive,
		logger:      logger.With(zap.String("parser", parser)),
		concurrency: concurrency,
		now:         time.Now,
	}
}

func (r runner) run(ctx context.Context, batch models.Batch, process processFunc) models.Response {
	total := len(batch.Records)
	out := make([]models.Envelope, total)

	var (
		mu       sync.Mutex
		failures []*models.FailedRecord
		dropped  atomic.Int64
	)

	one := func(i int) {
		record := batch.Records[i]
		ordinal := i + 1
		env, err := r.safeProcess(ctx, process, record, ordinal, total)
		if err != nil {
			r.logger.Error("error processing record",
				zap.Int("record", ordinal),
				zap.String("recordId", record.RecordID),
				zap.Error(err),
			)
			env = models.DroppedEnvelope(record)
			mu.Lock()
			failures = append(failures, &models.FailedRecord{
				Time:     r.now().UTC(),
				Parser:   r.parser,
				Ordinal:  ordinal,
				RecordID: record.RecordID,
				Error:    err.Error(),
				Data:     record.Data,
			})
			mu.Unlock()
		}
		if !env.IsOk() {
			dropped.Add(1)
		}
		out[i] = env
	}

	if r.concurrency == 1 {
		for i := range batch.Records {
			one(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(r.concurrency)
		for i := range batch.Records {
			g.Go(func() error {
				one(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	if len(failures) > 0 && r.archive != nil {
		if err := r.archive.Store(ctx, failures); err != nil {
			r.logger.Error("failed to archive failed records", zap.Int("count", len(failures)), zap.Error(err))
		}
	}

	r.logger.Info("batch processed",
		zap.String("invocationId", batch.InvocationID),
		zap.Int("total", total),
		zap.Int64("dropped", dropped.Load()),
		zap.Int("failed", len(failures)),
	)
	return models.Response{Records: out}
}

// safeProcess turns a panic in a single record into an error for that record
func (r runner) safeProcess(ctx context.Context, process processFunc, record models.BatchRecord, ordinal, total int) (env models.Envelope, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return process(ctx, record, ordinal, total)
}

// decodeText base64 decodes a record and replaces invalid UTF-8
func decodeText(record models.BatchRecord) ([]byte, error) {
	raw, err := record.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode record data: %w", err)
	}
	return bytes.ToValidUTF8(raw, []byte("�")), nil
}
