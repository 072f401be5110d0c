package db

import (
	"context"
)

// Observation is one intermediate objective report from a running trial,
// keyed by step. The pruner compares these across trials at the same step.
type Observation struct {
	Id      int64
	TrialId int64
	Step    int64
	Value   float64
}

type ObservationService interface {
	CreateObservation(ctx context.Context, obs *Observation) (*Observation, error)
	ListObservations(ctx context.Context, trialId int64) ([]*Observation, error)
	// ValuesAtStep returns the values reported at the given step by trials of
	// the study that have since completed.
	ValuesAtStep(ctx context.Context, studyId int64, step int64) ([]float64, error)
}
