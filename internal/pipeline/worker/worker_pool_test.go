package worker

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGetResultsWithWorkers(t *testing.T) {
	logger := zap.NewNop()

	t.Run("should produce one outcome per input", func(t *testing.T) {
		input := []int{1, 2, 3, 4, 5}
		square := func(ctx context.Context, v int) (int, string, error) {
			return v * v, "", nil
		}
		var values []int
		for outcome := range GetResultsWithWorkers(context.Background(), input, square, 3, time.Second, logger) {
			assert.NoError(t, outcome.Err)
			assert.Equal(t, input[outcome.Index]*input[outcome.Index], outcome.Value)
			values = append(values, outcome.Value)
		}
		sort.Ints(values)
		assert.Equal(t, []int{1, 4, 9, 16, 25}, values)
	})

	t.Run("should report failures without dropping other inputs", func(t *testing.T) {
		failing := errors.New("boom")
		fn := func(ctx context.Context, v string) (string, string, error) {
			if v == "bad" {
				return "", "Failed to process input", failing
			}
			return v, "", nil
		}
		var failures, successes int
		for outcome := range GetResultsWithWorkers(context.Background(), []string{"ok", "bad", "fine"}, fn, 1, 0, logger) {
			if outcome.Err != nil {
				assert.ErrorIs(t, outcome.Err, failing)
				assert.Equal(t, 1, outcome.Index)
				failures++
			} else {
				successes++
			}
		}
		assert.Equal(t, 1, failures)
		assert.Equal(t, 2, successes)
	})

	t.Run("should fail remaining inputs once the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		fn := func(ctx context.Context, v int) (int, string, error) {
			called = true
			return v, "", nil
		}
		count := 0
		for outcome := range GetResultsWithWorkers(ctx, []int{1, 2}, fn, 0, time.Second, logger) {
			assert.ErrorIs(t, outcome.Err, context.Canceled)
			count++
		}
		assert.Equal(t, 2, count)
		assert.False(t, called)
	})
}
