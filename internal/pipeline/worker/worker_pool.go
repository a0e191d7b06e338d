package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultTimeout = 10 * time.Second

// Outcome carries either the value produced for an input or the error that replaced it.
// Index is the position of the input in the slice handed to GetResultsWithWorkers.
type Outcome[outputType any] struct {
	Index int
	Value outputType
	Err   error
}

// GetResultsWithWorkers runs inputFunction over input with workerCount goroutines. Each call
// gets its own timeout derived from ctx. The returned channel is closed once every input has
// produced an outcome; failures are logged with the message returned by inputFunction.
func GetResultsWithWorkers[
	inputType any,
	outputType any,
](
	ctx context.Context,
	input []inputType,
	inputFunction func(ctx context.Context, input inputType) (outputType, string, error),
	workerCount int,
	timeout time.Duration,
	logger *zap.Logger,
) chan Outcome[outputType] {
	if workerCount < 1 {
		workerCount = 1
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	type indexed struct {
		index int
		value inputType
	}
	inputChannel := make(chan indexed, len(input))
	for i, item := range input {
		inputChannel <- indexed{index: i, value: item}
	}
	close(inputChannel)

	var wg sync.WaitGroup
	wg.Add(workerCount)

	resultChannel := make(chan Outcome[outputType], len(input))

	for i := 0; i < workerCount; i++ {
		go func() {
			defer wg.Done()
			for item := range inputChannel {
				if ctx.Err() != nil {
					resultChannel <- Outcome[outputType]{Index: item.index, Err: ctx.Err()}
					continue
				}
				callCtx, cancel := context.WithTimeout(ctx, timeout)
				result, errorMsg, err := inputFunction(callCtx, item.value)
				cancel()
				if err != nil {
					logger.Error(errorMsg, zap.Int("index", item.index), zap.Error(err))
					resultChannel <- Outcome[outputType]{Index: item.index, Err: err}
					continue
				}
				resultChannel <- Outcome[outputType]{Index: item.index, Value: result}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChannel)
	}()

	return resultChannel
}
