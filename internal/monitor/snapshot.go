package monitor

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/attractor-ml/l96tune/internal/db"
	"github.com/attractor-ml/l96tune/pkg/reconciler"
)

// TrialView is the read-only trial representation served over HTTP.
type TrialView struct {
	Number      int64      `json:"number"`
	State       string     `json:"state"`
	Params      string     `json:"params"`
	Value       *float64   `json:"value,omitempty"`
	Failure     *string    `json:"failure,omitempty"`
	CompletedTs *time.Time `json:"completed_ts,omitempty"`
}

// StudySnapshot is the cached view of one study, refreshed by the
// reconciler so HTTP reads never touch the store.
type StudySnapshot struct {
	Name      string           `json:"name"`
	Direction string           `json:"direction"`
	Counts    map[string]int64 `json:"counts"`
	Best      *TrialView       `json:"best,omitempty"`
	Trials    []TrialView      `json:"trials"`
	UpdatedTs time.Time        `json:"updated_ts"`
}

// Snapshotter keeps study snapshots fresh. Resync enqueues every known
// study; Reconcile rebuilds the snapshot of each queued study from the
// store.
type Snapshotter struct {
	database db.Database

	mu       sync.RWMutex
	byName   map[string]*StudySnapshot
	studyIds map[int64]*db.Study
}

func NewSnapshotter(database db.Database) *Snapshotter {
	return &Snapshotter{
		database: database,
		byName:   make(map[string]*StudySnapshot),
		studyIds: make(map[int64]*db.Study),
	}
}

var _ reconciler.Reconciler[int64] = &Snapshotter{}

func (s *Snapshotter) Name() string {
	return "study-snapshots"
}

func (s *Snapshotter) Reboot(ctx context.Context) {}

func (s *Snapshotter) Resync(ctx context.Context, queue *reconciler.ReconcileQueue[int64]) {
	studies, err := s.database.Studies().ListStudies(ctx)
	if err != nil {
		log.Printf("failed to list studies for snapshot resync: %s", err)
		return
	}
	s.mu.Lock()
	for _, study := range studies {
		s.studyIds[study.Id] = study
	}
	s.mu.Unlock()
	for _, study := range studies {
		queue.Add(study.Id)
	}
}

func (s *Snapshotter) Reconcile(ctx context.Context, items []reconciler.ReconcileItem[int64]) {
	for _, item := range items {
		item.Callback(s.refresh(ctx, item.ID))
	}
}

func (s *Snapshotter) refresh(ctx context.Context, studyId int64) error {
	s.mu.RLock()
	study := s.studyIds[studyId]
	s.mu.RUnlock()
	if study == nil {
		return nil
	}

	trials, err := s.database.Trials().ListTrials(ctx, studyId)
	if err != nil {
		return err
	}

	snapshot := &StudySnapshot{
		Name:      study.Name,
		Direction: string(study.Direction),
		Counts:    make(map[string]int64),
		Trials:    make([]TrialView, 0, len(trials)),
		UpdatedTs: time.Now(),
	}
	for _, trial := range trials {
		snapshot.Counts[string(trial.State)]++
		snapshot.Trials = append(snapshot.Trials, TrialView{
			Number:      trial.Number,
			State:       string(trial.State),
			Params:      trial.Params,
			Value:       trial.Value,
			Failure:     trial.Failure,
			CompletedTs: trial.CompletedTs,
		})
	}
	if best, err := s.database.Trials().BestTrial(ctx, studyId, study.Direction); err == nil {
		snapshot.Best = &TrialView{
			Number:      best.Number,
			State:       string(best.State),
			Params:      best.Params,
			Value:       best.Value,
			CompletedTs: best.CompletedTs,
		}
	}

	s.mu.Lock()
	s.byName[study.Name] = snapshot
	s.mu.Unlock()
	return nil
}

// Snapshot returns the cached view of the named study, nil when the study
// has not been observed yet.
func (s *Snapshotter) Snapshot(name string) *StudySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byName[name]
}

// Studies lists the names of every cached study.
func (s *Snapshotter) Studies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	return names
}
