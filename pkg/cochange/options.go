package cochange

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultBaseline is the weight of a pair that never changed together.
	// Inversion turns it into a distance of 1.
	DefaultBaseline = 1.0
	// DefaultIncrement is added to a pair's weight for every commit that
	// changed both files.
	DefaultIncrement = 1.0
)

// Sentinel errors for option validation.
var (
	ErrInvalidBaseline       = errors.New("baseline must be a finite number greater than 0")
	ErrInvalidIncrement      = errors.New("increment must be a finite number >= 0")
	ErrInvalidMaxCommitFiles = errors.New("max commit files must be >= 0")
)

// Options controls how co-change counts become edge weights.
type Options struct {
	Baseline  float64
	Increment float64
	// MaxCommitFiles skips commits that changed more distinct paths than
	// this. Zero means no cap.
	MaxCommitFiles int
}

// DefaultOptions returns the neutral baseline and unit increment, uncapped.
func DefaultOptions() Options {
	return Options{
		Baseline:  DefaultBaseline,
		Increment: DefaultIncrement,
	}
}

// Validate checks that every finished weight is finite and positive.
func (o Options) Validate() error {
	if !(o.Baseline > 0) || math.IsInf(o.Baseline, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidBaseline, o.Baseline)
	}

	if !(o.Increment >= 0) || math.IsInf(o.Increment, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidIncrement, o.Increment)
	}

	if o.MaxCommitFiles < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxCommitFiles, o.MaxCommitFiles)
	}

	return nil
}
