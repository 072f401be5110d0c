package db

import (
	"context"
	"time"
)

type TrialState string

const (
	TrialStateRunning  TrialState = "RUNNING"
	TrialStateComplete TrialState = "COMPLETE"
	TrialStatePruned   TrialState = "PRUNED"
	TrialStateFailed   TrialState = "FAILED"
)

// TerminalTrialStates are the states a trial can be left in once the driver
// has recorded its outcome. RUNNING is transient.
var TerminalTrialStates = []TrialState{TrialStateComplete, TrialStatePruned, TrialStateFailed}

func (s TrialState) Terminal() bool {
	return s == TrialStateComplete || s == TrialStatePruned || s == TrialStateFailed
}

type Trial struct {
	Id          int64
	StudyId     int64
	Number      int64
	State       TrialState
	Params      string
	Value       *float64
	Failure     *string
	CreatedTs   time.Time
	CompletedTs *time.Time
}

type TrialService interface {
	CreateTrial(ctx context.Context, trial *Trial) (*Trial, error)
	GetTrial(ctx context.Context, studyId int64, number int64) (*Trial, error)
	ListTrials(ctx context.Context, studyId int64) ([]*Trial, error)
	ListTrialsByState(ctx context.Context, studyId int64, states []TrialState) ([]*Trial, error)
	CountTrialsByState(ctx context.Context, studyId int64, states []TrialState) (int64, error)
	NextTrialNumber(ctx context.Context, studyId int64) (int64, error)
	FinishTrial(ctx context.Context, id int64, state TrialState, value *float64, failure *string, completedAt time.Time) error
	BestTrial(ctx context.Context, studyId int64, direction Direction) (*Trial, error)
}
