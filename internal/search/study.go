package search

import (
	"context"
	"database/sql"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/attractor-ml/l96tune/internal/db"
)

// ErrTrialPruned signals that a trial was stopped early by the pruner. It is
// an outcome, not a failure.
var ErrTrialPruned = errors.New("trial pruned")

// Objective evaluates one proposed trial and returns its objective value.
// Intermediate values go through the handle's Report, which also answers
// whether the trial should stop early.
type Objective interface {
	Evaluate(ctx context.Context, trial *TrialHandle) (float64, error)
}

// TrialHandle is the evaluator's view of a running trial.
type TrialHandle struct {
	Trial  *Trial
	study  *Study
	pruned bool
}

// Trial pairs the stored row with its decoded proposal.
type Trial struct {
	Record *db.Trial
	Params *Params
}

// Report persists an intermediate objective value, then asks the pruner
// whether the trial should stop. Once it answers true the evaluator is
// expected to return ErrTrialPruned.
func (h *TrialHandle) Report(ctx context.Context, step int64, value float64) (bool, error) {
	_, err := h.study.database.Observations().CreateObservation(ctx, &db.Observation{
		TrialId: h.Trial.Record.Id,
		Step:    step,
		Value:   value,
	})
	if err != nil {
		return false, errors.Wrapf(err, "failed to record observation for trial %d", h.Trial.Record.Number)
	}

	prune, err := h.study.pruner.ShouldPrune(ctx, h.study.record, h.Trial.Record.Id, step, value)
	if err != nil {
		return false, err
	}
	if prune {
		h.pruned = true
	}
	return prune, nil
}

// Study drives a sequential hyperparameter search over a durably stored
// trial history. One trial runs at a time; every proposed trial reaches a
// terminal state before the next proposal.
type Study struct {
	record   *db.Study
	database db.Database
	sampler  *Sampler
	space    *Space
	pruner   Pruner
}

// CreateOrResume loads the named study, creating it when absent. Resuming
// with a conflicting direction is an error since prior trial values would be
// ranked the wrong way.
func CreateOrResume(ctx context.Context, database db.Database, name string, direction db.Direction, space *Space, sampler *Sampler, pruner Pruner) (*Study, error) {
	if err := space.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid search space")
	}

	record, err := database.Studies().GetStudyByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		record, err = database.Studies().CreateStudy(ctx, &db.Study{Name: name, Direction: direction})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create study %s", name)
		}
		log.Printf("created study %s (%s)", name, direction)
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to load study %s", name)
	} else {
		if record.Direction != direction {
			return nil, errors.Errorf("study %s exists with direction %s, requested %s", name, record.Direction, direction)
		}
		if err := failInterruptedTrials(ctx, database, record.Id); err != nil {
			return nil, err
		}
		prior, err := database.Trials().CountTrialsByState(ctx, record.Id, db.TerminalTrialStates)
		if err != nil {
			return nil, err
		}
		log.Printf("resuming study %s with %d recorded trials", name, prior)
	}

	return &Study{
		record:   record,
		database: database,
		sampler:  sampler,
		space:    space,
		pruner:   pruner,
	}, nil
}

// failInterruptedTrials finalizes trials a previous run left RUNNING, so a
// resumed study never carries phantom in-flight work in its counts.
func failInterruptedTrials(ctx context.Context, database db.Database, studyId int64) error {
	stale, err := database.Trials().ListTrialsByState(ctx, studyId, []db.TrialState{db.TrialStateRunning})
	if err != nil {
		return errors.Wrap(err, "failed to list running trials")
	}
	message := "interrupted"
	for _, trial := range stale {
		log.Printf("marking interrupted trial %d as failed", trial.Number)
		err := database.Trials().FinishTrial(ctx, trial.Id, db.TrialStateFailed, nil, &message, time.Now())
		if err != nil {
			return errors.Wrapf(err, "failed to finalize interrupted trial %d", trial.Number)
		}
	}
	return nil
}

func (s *Study) Record() *db.Study {
	return s.record
}

// Run proposes and evaluates trials until the study holds nTrials terminal
// ones. Trials recorded by earlier runs count toward the target, so resuming
// never re-runs them. A failing trial is recorded and the study continues;
// only store errors and context cancellation abort the run.
func (s *Study) Run(ctx context.Context, objective Objective, nTrials int64) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := s.database.Trials().CountTrialsByState(ctx, s.record.Id, db.TerminalTrialStates)
		if err != nil {
			return errors.Wrap(err, "failed to count finished trials")
		}
		if done >= nTrials {
			return nil
		}

		handle, err := s.propose(ctx)
		if err != nil {
			return err
		}
		if err := s.evaluate(ctx, objective, handle); err != nil {
			return err
		}
	}
}

func (s *Study) propose(ctx context.Context) (*TrialHandle, error) {
	number, err := s.database.Trials().NextTrialNumber(ctx, s.record.Id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate trial number")
	}
	params := s.sampler.Sample(s.space)
	encoded, err := params.Marshal()
	if err != nil {
		return nil, err
	}
	record, err := s.database.Trials().CreateTrial(ctx, &db.Trial{
		StudyId: s.record.Id,
		Number:  number,
		State:   db.TrialStateRunning,
		Params:  encoded,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create trial %d", number)
	}
	return &TrialHandle{
		Trial: &Trial{Record: record, Params: params},
		study: s,
	}, nil
}

// evaluate runs the objective and records exactly one terminal state. A
// panicking objective is recorded as FAILED, same as an error return.
func (s *Study) evaluate(ctx context.Context, objective Objective, handle *TrialHandle) error {
	value, err := func() (value float64, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("objective panicked: %v", r)
			}
		}()
		return objective.Evaluate(ctx, handle)
	}()

	number := handle.Trial.Record.Number
	now := time.Now()
	switch {
	case err == nil && !handle.pruned:
		log.Printf("trial %d complete with value %.6f", number, value)
		return s.finish(ctx, handle, db.TrialStateComplete, &value, nil, now)
	case errors.Is(err, ErrTrialPruned) || (err == nil && handle.pruned):
		log.Printf("trial %d pruned", number)
		return s.finish(ctx, handle, db.TrialStatePruned, nil, nil, now)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		log.Printf("trial %d failed: %s", number, err)
		message := err.Error()
		return s.finish(ctx, handle, db.TrialStateFailed, nil, &message, now)
	}
}

func (s *Study) finish(ctx context.Context, handle *TrialHandle, state db.TrialState, value *float64, failure *string, at time.Time) error {
	err := s.database.Trials().FinishTrial(ctx, handle.Trial.Record.Id, state, value, failure, at)
	if err != nil {
		return errors.Wrapf(err, "failed to record outcome of trial %d", handle.Trial.Record.Number)
	}
	return nil
}

// Best returns the completed trial with the best value under the study's
// direction.
func (s *Study) Best(ctx context.Context) (*Trial, error) {
	record, err := s.database.Trials().BestTrial(ctx, s.record.Id, s.record.Direction)
	if err != nil {
		return nil, err
	}
	params, err := UnmarshalParams(record.Params)
	if err != nil {
		return nil, err
	}
	return &Trial{Record: record, Params: params}, nil
}

// Summary aggregates the study's recorded outcomes.
type Summary struct {
	Complete int64
	Pruned   int64
	Failed   int64
	Best     *Trial
	// Failures collects the recorded failure messages, nil when every trial
	// succeeded or was pruned.
	Failures error
}

func (s *Study) Summary(ctx context.Context) (*Summary, error) {
	summary := &Summary{}
	var err error
	if summary.Complete, err = s.database.Trials().CountTrialsByState(ctx, s.record.Id, []db.TrialState{db.TrialStateComplete}); err != nil {
		return nil, err
	}
	if summary.Pruned, err = s.database.Trials().CountTrialsByState(ctx, s.record.Id, []db.TrialState{db.TrialStatePruned}); err != nil {
		return nil, err
	}

	failed, err := s.database.Trials().ListTrialsByState(ctx, s.record.Id, []db.TrialState{db.TrialStateFailed})
	if err != nil {
		return nil, err
	}
	summary.Failed = int64(len(failed))
	var failures *multierror.Error
	for _, trial := range failed {
		if trial.Failure != nil {
			failures = multierror.Append(failures, errors.Errorf("trial %d: %s", trial.Number, *trial.Failure))
		}
	}
	summary.Failures = failures.ErrorOrNil()

	if summary.Complete > 0 {
		if summary.Best, err = s.Best(ctx); err != nil {
			return nil, err
		}
	}
	return summary, nil
}
