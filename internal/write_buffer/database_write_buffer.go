package write_buffer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Avi18971911/Culprit/internal/db/elasticsearch/client"
	"go.uber.org/zap"
)

const WriteQueueSize = 30
const flushTimeOut = 10 * time.Second

type DatabaseWriteBuffer[ValueType any] interface {
	WriteToBuffer(value []ValueType)
	Flush(ctx context.Context) error
}

// DatabaseWriteBufferImpl queues documents and bulk indexes them once more than
// queueSize are waiting. Flush drains whatever is left and waits for bulk writes
// already in flight.
type DatabaseWriteBufferImpl[ValueType any] struct {
	writeQueue  []ValueType
	queueSize   int
	ac          client.CulpritClient
	esIndexName string
	logger      *zap.Logger
	mu          sync.Mutex
	inFlight    sync.WaitGroup
}

func NewDatabaseWriteBufferImpl[ValueType any](
	ac client.CulpritClient,
	esIndexName string,
	queueSize int,
	logger *zap.Logger,
) *DatabaseWriteBufferImpl[ValueType] {
	if queueSize <= 0 {
		queueSize = WriteQueueSize
	}
	return &DatabaseWriteBufferImpl[ValueType]{
		writeQueue:  []ValueType{},
		queueSize:   queueSize,
		ac:          ac,
		esIndexName: esIndexName,
		logger:      logger,
	}
}

func (wbc *DatabaseWriteBufferImpl[ValueType]) WriteToBuffer(value []ValueType) {
	wbc.mu.Lock()
	wbc.writeQueue = append(wbc.writeQueue, value...)
	var batch []ValueType
	if len(wbc.writeQueue) > wbc.queueSize {
		batch = wbc.writeQueue
		wbc.writeQueue = []ValueType{}
	}
	wbc.mu.Unlock()

	if batch != nil {
		wbc.inFlight.Add(1)
		go func() {
			defer wbc.inFlight.Done()
			ctx, cancel := context.WithTimeout(context.Background(), flushTimeOut)
			defer cancel()
			if err := wbc.flushToElasticsearch(ctx, batch); err != nil {
				wbc.logger.Error("Failed to flush to Elasticsearch", zap.Error(err), zap.Int("count", len(batch)))
			}
		}()
	}
}

// Flush indexes every queued value and waits for earlier overflow writes before
// returning, or until ctx is done.
func (wbc *DatabaseWriteBufferImpl[ValueType]) Flush(ctx context.Context) error {
	wbc.mu.Lock()
	batch := wbc.writeQueue
	wbc.writeQueue = []ValueType{}
	wbc.mu.Unlock()

	bulkCtx, cancel := context.WithTimeout(ctx, flushTimeOut)
	defer cancel()
	flushErr := wbc.flushToElasticsearch(bulkCtx, batch)

	done := make(chan struct{})
	go func() {
		wbc.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return flushErr
	case <-ctx.Done():
		return errors.Join(flushErr, fmt.Errorf("waiting for in-flight writes: %w", ctx.Err()))
	}
}

func (wbc *DatabaseWriteBufferImpl[ValueType]) flushToElasticsearch(ctx context.Context, batch []ValueType) error {
	if len(batch) == 0 {
		return nil
	}
	metaMap, dataMap, err := client.ToMetaAndDataMap(batch)
	if err != nil {
		return fmt.Errorf("error converting write queue to meta and data map: %w", err)
	}
	if err := wbc.ac.BulkIndex(ctx, metaMap, dataMap, wbc.esIndexName); err != nil {
		return fmt.Errorf("error bulk indexing to Elasticsearch: %w", err)
	}
	return nil
}
