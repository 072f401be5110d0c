//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/attractor-ml/l96tune/internal/config"
	"github.com/attractor-ml/l96tune/internal/dataset"
	"github.com/attractor-ml/l96tune/internal/db/sqlite"
	"github.com/attractor-ml/l96tune/internal/monitor"
	"github.com/attractor-ml/l96tune/internal/objective"
	"github.com/attractor-ml/l96tune/pkg/app"
	lsql "github.com/attractor-ml/l96tune/pkg/sql"
)

// wire up the dependencies.
func InitializeDependencies() (*dependencies, error) {
	wire.Build(config.NewConfigFromEnv, app.NewInstance,
		NewStoreConfig, lsql.NewInstance,
		sqlite.NewDatabase, NewMigration,
		dataset.NewConfigFromEnv, objective.NewFixedConfigFromEnv,
		monitor.NewConfigFromEnv, monitor.NewSnapshotter, monitor.NewInstance,
		NewSnapshotManager,
		newDependencies)
	return &dependencies{}, nil
}
