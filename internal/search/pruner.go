package search

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/attractor-ml/l96tune/internal/db"
)

// Pruner decides whether a running trial should stop early given its latest
// intermediate value.
type Pruner interface {
	ShouldPrune(ctx context.Context, study *db.Study, trialId int64, step int64, value float64) (bool, error)
}

// NopPruner never prunes.
type NopPruner struct{}

func (NopPruner) ShouldPrune(context.Context, *db.Study, int64, int64, float64) (bool, error) {
	return false, nil
}

// MedianPruner prunes a trial whose intermediate value is worse than the
// median of what completed trials reported at the same step. It stays quiet
// during the warmup period and until enough prior trials exist to make the
// median meaningful.
type MedianPruner struct {
	observations db.ObservationService

	WarmupSteps    int64
	MinPriorTrials int
}

func NewMedianPruner(observations db.ObservationService, warmupSteps int64, minPriorTrials int) *MedianPruner {
	return &MedianPruner{
		observations:   observations,
		WarmupSteps:    warmupSteps,
		MinPriorTrials: minPriorTrials,
	}
}

func (p *MedianPruner) ShouldPrune(ctx context.Context, study *db.Study, trialId int64, step int64, value float64) (bool, error) {
	if step <= p.WarmupSteps {
		return false, nil
	}
	values, err := p.observations.ValuesAtStep(ctx, study.Id, step)
	if err != nil {
		return false, errors.Wrapf(err, "failed to load prior values at step %d", step)
	}
	if len(values) < p.MinPriorTrials {
		return false, nil
	}

	sort.Float64s(values)
	median := stat.Quantile(0.5, stat.Empirical, values, nil)
	if study.Direction == db.DirectionMaximize {
		return value < median, nil
	}
	return value > median, nil
}
