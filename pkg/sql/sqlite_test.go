package lsql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSqliteInitialize(t *testing.T) {
	db, err := initializeTest(t)
	assert.Nil(t, err)
	assert.NotNil(t, db)
	_, err = db.ExecContext(context.Background(), "create table t(i);")
	assert.Nil(t, err)
}

func TestSqliteTransactionRollsBackOnError(t *testing.T) {
	db, err := initializeTest(t)
	assert.Nil(t, err)

	ctx := context.Background()
	_, err = db.ExecContext(ctx, "create table t(i integer);")
	assert.Nil(t, err)

	err = db.Transaction(ctx, func(ctx context.Context, tx *Tx) error {
		if _, err := tx.ExecContext(ctx, "insert into t(i) VALUES (?)", 1); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.NotNil(t, err)

	var count int64
	err = db.QueryRowContext(ctx, "select count(*) from t").Scan(&count)
	assert.Nil(t, err)
	assert.Equal(t, int64(0), count)
}
