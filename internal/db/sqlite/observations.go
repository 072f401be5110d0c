package sqlite

import (
	"context"

	"github.com/attractor-ml/l96tune/internal/db"
	lsql "github.com/attractor-ml/l96tune/pkg/sql"
)

type Observations struct {
	db *lsql.Instance
}

var _ db.ObservationService = &Observations{}

func NewObservations(instance *lsql.Instance) db.ObservationService {
	return &Observations{
		db: instance,
	}
}

func (o *Observations) CreateObservation(ctx context.Context, obs *db.Observation) (*db.Observation, error) {
	query := `
	INSERT INTO observations (trial_id, step, value)
	VALUES (?, ?, ?)
	`
	args := []interface{}{obs.TrialId, obs.Step, obs.Value}
	var id int64
	err := withWriteRetry(func() error {
		var err error
		id, err = o.db.ExecAndReturnId(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &db.Observation{
		Id:      id,
		TrialId: obs.TrialId,
		Step:    obs.Step,
		Value:   obs.Value,
	}, nil
}

func (o *Observations) ListObservations(ctx context.Context, trialId int64) ([]*db.Observation, error) {
	query := `
	SELECT id, trial_id, step, value
	FROM observations
	WHERE trial_id = ?
	ORDER BY step
	`
	rows, err := o.db.QueryContext(ctx, query, trialId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	response := make([]*db.Observation, 0)
	for rows.Next() {
		obs := &db.Observation{}
		if err := rows.Scan(&obs.Id, &obs.TrialId, &obs.Step, &obs.Value); err != nil {
			return nil, err
		}
		response = append(response, obs)
	}

	return response, nil
}

func (o *Observations) ValuesAtStep(ctx context.Context, studyId int64, step int64) ([]float64, error) {
	query := `
	SELECT o.value
	FROM observations o
	JOIN trials t ON t.id = o.trial_id
	WHERE t.study_id = ? AND o.step = ? AND t.state = ?
	`
	rows, err := o.db.QueryContext(ctx, query, studyId, step, string(db.TrialStateComplete))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	response := make([]float64, 0)
	for rows.Next() {
		var value float64
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		response = append(response, value)
	}

	return response, nil
}
