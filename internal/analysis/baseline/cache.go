package baseline

import (
	"context"
	"errors"
	"fmt"

	"github.com/Avi18971911/Culprit/internal/trace/model"
	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

var (
	ErrKeyNotFound = errors.New("baseline not found within the cache")
	ErrSetFailed   = errors.New("failed to set baseline in cache")
)

// Cache keeps one baseline per reference window. Stored baselines are never mutated:
// writes and reads both copy.
type Cache struct {
	cache  *ristretto.Cache
	logger *zap.Logger
}

// NewCache sizes the cache by the number of baseline entries it may hold across all windows.
func NewCache(maxEntries int64, logger *zap.Logger) (*Cache, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("baseline cache needs a positive size, got %d", maxEntries)
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create baseline cache: %w", err)
	}
	return &Cache{cache: cache, logger: logger}, nil
}

func (c *Cache) Get(window model.TimeWindow) (model.Baseline, error) {
	value, found := c.cache.Get(window.Key())
	if !found {
		return nil, ErrKeyNotFound
	}
	typedValue, ok := value.(model.Baseline)
	if !ok {
		return nil, fmt.Errorf("value not of expected type %T returned from baseline cache", value)
	}
	return clone(typedValue), nil
}

func (c *Cache) Put(window model.TimeWindow, baseline model.Baseline) error {
	if !c.cache.Set(window.Key(), clone(baseline), int64(len(baseline))+1) {
		return ErrSetFailed
	}
	c.cache.Wait()
	return nil
}

// GetOrCompute returns the cached baseline for window, computing and storing it on a miss.
// A baseline that cannot be stored is still returned.
func (c *Cache) GetOrCompute(
	ctx context.Context,
	window model.TimeWindow,
	compute func(ctx context.Context) (model.Baseline, error),
) (model.Baseline, error) {
	baseline, err := c.Get(window)
	if err == nil {
		c.logger.Debug("Baseline cache hit", zap.String("window", window.Key()))
		return baseline, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}

	baseline, err = compute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute baseline: %w", err)
	}
	if err := c.Put(window, baseline); err != nil {
		c.logger.Warn("Failed to cache baseline", zap.String("window", window.Key()), zap.Error(err))
	}
	return baseline, nil
}

func (c *Cache) Close() {
	c.cache.Close()
}

func clone(baseline model.Baseline) model.Baseline {
	copied := make(model.Baseline, len(baseline))
	for key, value := range baseline {
		copied[key] = value
	}
	return copied
}
