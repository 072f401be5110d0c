// Package sqlite holds the embedded schema migrations for the study store,
// exposed through the go-bindata shaped Asset/AssetNames pair that the
// migration runner consumes.
package sqlite

import (
	"fmt"
	"sort"
)

var assets = map[string][]byte{
	"1_init.up.sql": []byte(`
CREATE TABLE studies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	direction TEXT NOT NULL,
	created_ts TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE trials (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	study_id INTEGER NOT NULL REFERENCES studies (id),
	number INTEGER NOT NULL,
	state TEXT NOT NULL,
	params TEXT NOT NULL,
	value REAL,
	failure TEXT,
	created_ts TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	completed_ts TIMESTAMP,
	UNIQUE (study_id, number)
);

CREATE TABLE observations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trial_id INTEGER NOT NULL REFERENCES trials (id),
	step INTEGER NOT NULL,
	value REAL NOT NULL,
	created_ts TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (trial_id, step)
);

CREATE INDEX idx_trials_study_state ON trials (study_id, state);
CREATE INDEX idx_observations_step ON observations (step);
`),
	"1_init.down.sql": []byte(`
DROP INDEX idx_observations_step;
DROP INDEX idx_trials_study_state;
DROP TABLE observations;
DROP TABLE trials;
DROP TABLE studies;
`),
}

func AssetNames() []string {
	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Asset(name string) ([]byte, error) {
	if data, ok := assets[name]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("asset %s not found", name)
}
