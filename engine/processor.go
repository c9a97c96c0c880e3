package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/thisisjab/sieve/entity"
)

// RecordProcessor is an interface that defines the contract for record processors.
type RecordProcessor interface {
	Name() string
	Process(record entity.Record) (entity.Record, error)
}

type processorManager struct {
	processors   []RecordProcessor
	logger       *slog.Logger
	workersCount int
}

func newProcessorManager(logger *slog.Logger, processors []RecordProcessor, workersCount int) *processorManager {
	return &processorManager{
		processors:   processors,
		logger:       logger,
		workersCount: workersCount,
	}
}

// run fans records out to the workers. Each worker writes to its record's
// own slot, so the output keeps the input order.
func (pm *processorManager) run(ctx context.Context, records []entity.Record) ([]entity.Record, error) {
	if len(pm.processors) == 0 || len(records) == 0 {
		return records, nil
	}

	results := make([]entity.Record, len(records))
	jobs := make(chan int)

	spawnWorker := func(workerId int) {
		for {
			select {
			case <-ctx.Done():
				return
			case i, ok := <-jobs:
				if !ok {
					// The jobs channel is closed and empty. No more work.
					return
				}
				results[i] = pm.processRecord(records[i])
				pm.logger.Debug("processed record", "worker_id", workerId, "index", i)
			}
		}
	}

	var wg sync.WaitGroup
	for i := range min(pm.workersCount, len(records)) {
		wg.Go(func() {
			spawnWorker(i)
		})
	}

	var err error
feed:
	for i := range records {
		select {
		case jobs <- i:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	// A worker may have seen the cancellation before taking the last jobs.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// processRecord runs every processor in turn. A failing processor is logged
// and skipped; the record continues with its last good value.
func (pm *processorManager) processRecord(record entity.Record) entity.Record {
	for _, p := range pm.processors {
		processed, err := p.Process(record)
		if err != nil {
			pm.logger.Error("Failed to process record", "processor", p.Name(), "error", err)
			continue
		}

		record = processed
	}

	return record
}
