package lsql

import (
	"os"

	ltest "github.com/attractor-ml/l96tune/pkg/test"
	_ "modernc.org/sqlite"
)

// NewTestingConfig points the store at a throwaway SQLite file using the
// cgo-free driver, so tests run without the sqlite3 toolchain requirement.
func NewTestingConfig(t ltest.T) (*Config, error) {
	file, err := os.CreateTemp("", "")
	if err != nil {
		return nil, err
	}
	t.Cleanup(func() {
		_, err := file.Stat()
		if !os.IsNotExist(err) {
			os.RemoveAll(file.Name())
		}
	})
	return &Config{
		Engine:       "sqlite",
		DatabaseName: "test",
		Address:      file.Name(),
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	}, nil
}
