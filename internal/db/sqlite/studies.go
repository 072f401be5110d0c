package sqlite

import (
	"context"
	"database/sql"

	"github.com/attractor-ml/l96tune/internal/db"
	lsql "github.com/attractor-ml/l96tune/pkg/sql"
)

type Studies struct {
	db *lsql.Instance
}

var _ db.StudyService = &Studies{}

func NewStudies(instance *lsql.Instance) db.StudyService {
	return &Studies{
		db: instance,
	}
}

func (s *Studies) CreateStudy(ctx context.Context, study *db.Study) (*db.Study, error) {
	query := `
	INSERT INTO studies (name, direction)
	VALUES (?, ?)
	`
	args := []interface{}{study.Name, string(study.Direction)}
	err := withWriteRetry(func() error {
		_, err := s.db.ExecAndReturnId(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetStudyByName(ctx, study.Name)
}

func (s *Studies) GetStudyByName(ctx context.Context, name string) (*db.Study, error) {
	query := `
	SELECT id, name, direction, created_ts
	FROM studies
	WHERE name = ?
	`
	row := s.db.QueryRowContext(ctx, query, name)

	if response, err := StudyInstance(row); err != nil {
		return nil, err
	} else {
		return response, nil
	}
}

func (s *Studies) ListStudies(ctx context.Context) ([]*db.Study, error) {
	query := `
	SELECT id, name, direction, created_ts
	FROM studies
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	response := make([]*db.Study, 0)
	for rows.Next() {
		if study, err := StudyInstance(rows); err != nil {
			return nil, err
		} else {
			response = append(response, study)
		}
	}

	return response, nil
}

func StudyInstance(row lsql.RowScanner) (*db.Study, error) {
	study := &db.Study{}
	var direction sql.NullString
	if err := row.Scan(&study.Id, &study.Name, &direction, &study.CreatedTs); err != nil {
		return nil, err
	}
	if direction.Valid {
		study.Direction = db.Direction(direction.String)
	}
	return study, nil
}
