package lsql

import (
	"fmt"
)

var (
	ErrDatabaseEngineNotSupported = fmt.Errorf("database engine not supported")
	ErrUpsertFailure              = fmt.Errorf("failed to insert or update row in database")
)
