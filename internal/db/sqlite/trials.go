package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/attractor-ml/l96tune/internal/db"
	lsql "github.com/attractor-ml/l96tune/pkg/sql"
)

type Trials struct {
	db *lsql.Instance
}

var _ db.TrialService = &Trials{}

func NewTrials(instance *lsql.Instance) db.TrialService {
	return &Trials{
		db: instance,
	}
}

func (t *Trials) CreateTrial(ctx context.Context, trial *db.Trial) (*db.Trial, error) {
	query := `
	INSERT INTO trials (study_id, number, state, params)
	VALUES (?, ?, ?, ?)
	`
	args := []interface{}{trial.StudyId, trial.Number, string(trial.State), trial.Params}
	var id int64
	err := withWriteRetry(func() error {
		var err error
		id, err = t.db.ExecAndReturnId(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &db.Trial{
		Id:      id,
		StudyId: trial.StudyId,
		Number:  trial.Number,
		State:   trial.State,
		Params:  trial.Params,
	}, nil
}

func (t *Trials) GetTrial(ctx context.Context, studyId int64, number int64) (*db.Trial, error) {
	query := `
	SELECT id, study_id, number, state, params, value, failure, created_ts, completed_ts
	FROM trials
	WHERE study_id = ? AND number = ?
	`
	row := t.db.QueryRowContext(ctx, query, studyId, number)

	if response, err := TrialInstance(row); err != nil {
		return nil, err
	} else {
		return response, nil
	}
}

func (t *Trials) ListTrials(ctx context.Context, studyId int64) ([]*db.Trial, error) {
	query := `
	SELECT id, study_id, number, state, params, value, failure, created_ts, completed_ts
	FROM trials
	WHERE study_id = ?
	ORDER BY number
	`
	return t.listTrials(ctx, query, studyId)
}

func (t *Trials) ListTrialsByState(ctx context.Context, studyId int64, states []db.TrialState) ([]*db.Trial, error) {
	query := `
	SELECT id, study_id, number, state, params, value, failure, created_ts, completed_ts
	FROM trials
	WHERE study_id = ? AND state IN (?)
	ORDER BY number
	`
	return t.listTrials(ctx, query, studyId, stateStrings(states))
}

func (t *Trials) listTrials(ctx context.Context, query string, args ...interface{}) ([]*db.Trial, error) {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	response := make([]*db.Trial, 0)
	for rows.Next() {
		if trial, err := TrialInstance(rows); err != nil {
			return nil, err
		} else {
			response = append(response, trial)
		}
	}

	return response, nil
}

func (t *Trials) CountTrialsByState(ctx context.Context, studyId int64, states []db.TrialState) (int64, error) {
	query := `
	SELECT count(*)
	FROM trials
	WHERE study_id = ? AND state IN (?)
	`
	var count int64
	if err := t.db.QueryRowContext(ctx, query, studyId, stateStrings(states)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (t *Trials) NextTrialNumber(ctx context.Context, studyId int64) (int64, error) {
	query := `
	SELECT coalesce(max(number), -1) + 1
	FROM trials
	WHERE study_id = ?
	`
	var number int64
	if err := t.db.QueryRowContext(ctx, query, studyId).Scan(&number); err != nil {
		return 0, err
	}
	return number, nil
}

func (t *Trials) FinishTrial(ctx context.Context, id int64, state db.TrialState, value *float64, failure *string, completedAt time.Time) error {
	query := `
	UPDATE trials
	SET state = ?, value = ?, failure = ?, completed_ts = ?
	WHERE id = ?
	`
	args := []interface{}{string(state), value, failure, completedAt, id}
	return withWriteRetry(func() error {
		_, err := t.db.ExecContext(ctx, query, args...)
		return err
	})
}

func (t *Trials) BestTrial(ctx context.Context, studyId int64, direction db.Direction) (*db.Trial, error) {
	order := "ASC"
	if direction == db.DirectionMaximize {
		order = "DESC"
	}
	query := `
	SELECT id, study_id, number, state, params, value, failure, created_ts, completed_ts
	FROM trials
	WHERE study_id = ? AND state = ? AND value IS NOT NULL
	ORDER BY value ` + order + `
	LIMIT 1
	`
	row := t.db.QueryRowContext(ctx, query, studyId, string(db.TrialStateComplete))

	if response, err := TrialInstance(row); err != nil {
		return nil, err
	} else {
		return response, nil
	}
}

func TrialInstance(row lsql.RowScanner) (*db.Trial, error) {
	trial := &db.Trial{}
	var state string
	var value sql.NullFloat64
	var failure sql.NullString
	var completed sql.NullTime
	if err := row.Scan(&trial.Id, &trial.StudyId, &trial.Number, &state, &trial.Params,
		&value, &failure, &trial.CreatedTs, &completed); err != nil {
		return nil, err
	}
	trial.State = db.TrialState(state)
	if value.Valid {
		trial.Value = &value.Float64
	}
	if failure.Valid {
		trial.Failure = &failure.String
	}
	if completed.Valid {
		trial.CompletedTs = &completed.Time
	}
	return trial, nil
}

func stateStrings(states []db.TrialState) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
