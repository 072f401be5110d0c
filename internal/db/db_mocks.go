package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"pgregory.net/rapid"
)

type StudiesMock struct {
	StudiesList []*Study
	nextId      int64
}

var _ StudyService = &StudiesMock{}

func (s *StudiesMock) CreateStudy(_ context.Context, study *Study) (*Study, error) {
	for _, existing := range s.StudiesList {
		if existing.Name == study.Name {
			return nil, fmt.Errorf("study %s already exists", study.Name)
		}
	}
	s.nextId++
	created := &Study{
		Id:        s.nextId,
		Name:      study.Name,
		Direction: study.Direction,
		CreatedTs: time.Now(),
	}
	s.StudiesList = append(s.StudiesList, created)
	return created, nil
}

func (s *StudiesMock) GetStudyByName(_ context.Context, name string) (*Study, error) {
	for _, study := range s.StudiesList {
		if study.Name == name {
			return study, nil
		}
	}
	return nil, errors.Wrapf(sql.ErrNoRows, "study %s not found", name)
}

func (s *StudiesMock) ListStudies(_ context.Context) ([]*Study, error) {
	return s.StudiesList, nil
}

type TrialsMock struct {
	TrialsList []*Trial
	nextId     int64
}

var _ TrialService = &TrialsMock{}

func (t *TrialsMock) CreateTrial(_ context.Context, trial *Trial) (*Trial, error) {
	for _, existing := range t.TrialsList {
		if existing.StudyId == trial.StudyId && existing.Number == trial.Number {
			return nil, fmt.Errorf("trial %d already exists in study %d", trial.Number, trial.StudyId)
		}
	}
	t.nextId++
	created := &Trial{
		Id:        t.nextId,
		StudyId:   trial.StudyId,
		Number:    trial.Number,
		State:     trial.State,
		Params:    trial.Params,
		CreatedTs: time.Now(),
	}
	t.TrialsList = append(t.TrialsList, created)
	return created, nil
}

func (t *TrialsMock) GetTrial(_ context.Context, studyId int64, number int64) (*Trial, error) {
	for _, trial := range t.TrialsList {
		if trial.StudyId == studyId && trial.Number == number {
			return trial, nil
		}
	}
	return nil, errors.Wrapf(sql.ErrNoRows, "trial %d not found in study %d", number, studyId)
}

func (t *TrialsMock) ListTrials(_ context.Context, studyId int64) ([]*Trial, error) {
	var matches []*Trial
	for _, trial := range t.TrialsList {
		if trial.StudyId == studyId {
			matches = append(matches, trial)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Number < matches[j].Number })
	return matches, nil
}

func (t *TrialsMock) ListTrialsByState(ctx context.Context, studyId int64, states []TrialState) ([]*Trial, error) {
	all, err := t.ListTrials(ctx, studyId)
	if err != nil {
		return nil, err
	}
	var matches []*Trial
	for _, trial := range all {
		for _, state := range states {
			if trial.State == state {
				matches = append(matches, trial)
				break
			}
		}
	}
	return matches, nil
}

func (t *TrialsMock) CountTrialsByState(ctx context.Context, studyId int64, states []TrialState) (int64, error) {
	matches, err := t.ListTrialsByState(ctx, studyId, states)
	if err != nil {
		return 0, err
	}
	return int64(len(matches)), nil
}

func (t *TrialsMock) NextTrialNumber(_ context.Context, studyId int64) (int64, error) {
	next := int64(0)
	for _, trial := range t.TrialsList {
		if trial.StudyId == studyId && trial.Number >= next {
			next = trial.Number + 1
		}
	}
	return next, nil
}

func (t *TrialsMock) FinishTrial(_ context.Context, id int64, state TrialState, value *float64, failure *string, completedAt time.Time) error {
	for _, trial := range t.TrialsList {
		if trial.Id == id {
			trial.State = state
			trial.Value = value
			trial.Failure = failure
			trial.CompletedTs = &completedAt
			return nil
		}
	}
	return fmt.Errorf("trial id %d not found", id)
}

func (t *TrialsMock) BestTrial(ctx context.Context, studyId int64, direction Direction) (*Trial, error) {
	completed, err := t.ListTrialsByState(ctx, studyId, []TrialState{TrialStateComplete})
	if err != nil {
		return nil, err
	}
	var best *Trial
	for _, trial := range completed {
		if trial.Value == nil {
			continue
		}
		if best == nil {
			best = trial
			continue
		}
		if direction == DirectionMaximize {
			if *trial.Value > *best.Value {
				best = trial
			}
		} else if *trial.Value < *best.Value {
			best = trial
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no completed trials in study %d", studyId)
	}
	return best, nil
}

type ObservationsMock struct {
	ObservationsList []*Observation
	Trials           *TrialsMock
	nextId           int64
}

var _ ObservationService = &ObservationsMock{}

func (o *ObservationsMock) CreateObservation(_ context.Context, obs *Observation) (*Observation, error) {
	o.nextId++
	created := &Observation{
		Id:      o.nextId,
		TrialId: obs.TrialId,
		Step:    obs.Step,
		Value:   obs.Value,
	}
	o.ObservationsList = append(o.ObservationsList, created)
	return created, nil
}

func (o *ObservationsMock) ListObservations(_ context.Context, trialId int64) ([]*Observation, error) {
	var matches []*Observation
	for _, obs := range o.ObservationsList {
		if obs.TrialId == trialId {
			matches = append(matches, obs)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Step < matches[j].Step })
	return matches, nil
}

func (o *ObservationsMock) ValuesAtStep(_ context.Context, studyId int64, step int64) ([]float64, error) {
	completed := make(map[int64]bool)
	if o.Trials != nil {
		for _, trial := range o.Trials.TrialsList {
			if trial.StudyId == studyId && trial.State == TrialStateComplete {
				completed[trial.Id] = true
			}
		}
	}
	values := make([]float64, 0)
	for _, obs := range o.ObservationsList {
		if obs.Step == step && completed[obs.TrialId] {
			values = append(values, obs.Value)
		}
	}
	return values, nil
}

type DatabaseMock struct {
	StudiesMock      *StudiesMock
	TrialsMock       *TrialsMock
	ObservationsMock *ObservationsMock
}

var _ Database = &DatabaseMock{}

func NewDatabaseMock() *DatabaseMock {
	trials := &TrialsMock{}
	return &DatabaseMock{
		StudiesMock:      &StudiesMock{},
		TrialsMock:       trials,
		ObservationsMock: &ObservationsMock{Trials: trials},
	}
}

func (d *DatabaseMock) Studies() StudyService {
	return d.StudiesMock
}

func (d *DatabaseMock) Trials() TrialService {
	return d.TrialsMock
}

func (d *DatabaseMock) Observations() ObservationService {
	return d.ObservationsMock
}

func TrialStateGenerator() *rapid.Generator[TrialState] {
	return rapid.SampledFrom([]TrialState{
		TrialStateComplete,
		TrialStatePruned,
		TrialStateFailed,
	})
}

func TrialGenerator(studyId int64) *rapid.Generator[*Trial] {
	return rapid.Custom(func(t *rapid.T) *Trial {
		state := TrialStateGenerator().Draw(t, "state")
		trial := &Trial{
			StudyId: studyId,
			Number:  rapid.Int64Range(0, 1000).Draw(t, "number"),
			State:   state,
			Params:  `{"optimizer":"adam"}`,
		}
		if state == TrialStateComplete {
			value := rapid.Float64Range(0, 100).Draw(t, "value")
			trial.Value = &value
		}
		return trial
	})
}
