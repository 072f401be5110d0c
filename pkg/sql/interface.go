package lsql

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

type RowScanner interface {
	Scan(...interface{}) error
}

type DBInterface interface {
	GetDatabaseEngine() string
	Transaction(ctx context.Context, callback TransactionFunc) error

	QueryRowContext(ctx context.Context, query string, args ...interface{}) *Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	ExecAndReturnId(ctx context.Context, query string, args ...interface{}) (int64, error)

	GenerateLimitCondition(pageSize int64) (string, error)
}

var _ DBInterface = &Instance{}
var _ DBInterface = &Tx{}
