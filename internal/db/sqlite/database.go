package sqlite

import (
	"strings"
	"time"

	"github.com/avast/retry-go"

	"github.com/attractor-ml/l96tune/internal/db"
	lsql "github.com/attractor-ml/l96tune/pkg/sql"
)

type Database struct {
	studies      db.StudyService
	trials       db.TrialService
	observations db.ObservationService
}

var _ db.Database = &Database{}

func NewDatabase(instance *lsql.Instance) db.Database {
	return &Database{
		studies:      NewStudies(instance),
		trials:       NewTrials(instance),
		observations: NewObservations(instance),
	}
}

func (d *Database) Studies() db.StudyService {
	return d.studies
}

func (d *Database) Trials() db.TrialService {
	return d.trials
}

func (d *Database) Observations() db.ObservationService {
	return d.observations
}

// withWriteRetry retries a write against transient sqlite lock contention,
// e.g. when the status endpoint is reading the same file.
func withWriteRetry(fn func() error) error {
	return retry.Do(fn,
		retry.Attempts(5),
		retry.Delay(20*time.Millisecond),
		retry.RetryIf(func(err error) bool {
			if err == nil {
				return false
			}
			msg := err.Error()
			return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
		}),
	)
}
