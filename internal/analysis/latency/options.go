package latency

import (
	"errors"
	"fmt"

	"github.com/Avi18971911/Culprit/internal/trace/model"
)

const (
	DefaultPercentile  = 0.95
	DefaultMaxDuration = int64(5_000_000)
)

var (
	ErrConfiguration      = errors.New("invalid selector configuration")
	ErrMissingBaseline    = fmt.Errorf("%w: normalization requested without a baseline", ErrConfiguration)
	ErrInvalidPercentile  = fmt.Errorf("%w: percentile must be in (0, 1]", ErrConfiguration)
	ErrInvalidMaxDuration = fmt.Errorf("%w: max duration must be positive", ErrConfiguration)
)

type Options struct {
	// OnlyTopPerTrace keeps a single span, the one with the largest adjusted duration, per trace.
	OnlyTopPerTrace bool
	// Normalize subtracts the baseline of each span's operation before ranking.
	Normalize bool
	// Baseline is required when Normalize is set. Missing keys count as 0.
	Baseline    model.Baseline
	Percentile  float64
	MaxDuration int64
}

func DefaultOptions() Options {
	return Options{
		Percentile:  DefaultPercentile,
		MaxDuration: DefaultMaxDuration,
	}
}

func (o Options) Validate() error {
	if o.Normalize && o.Baseline == nil {
		return ErrMissingBaseline
	}
	if !(o.Percentile > 0 && o.Percentile <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidPercentile, o.Percentile)
	}
	if o.MaxDuration <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxDuration, o.MaxDuration)
	}
	return nil
}
