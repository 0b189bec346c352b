// Package sqlstoretest opens throwaway sqlite-backed storage for tests.
package sqlstoretest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/servicebook/internal/config"
	"github.com/jwalitptl/servicebook/internal/repository/sqlstore"
)

// New returns storage backed by a fresh database file under t.TempDir.
func New(t *testing.T) *sqlstore.Storage {
	t.Helper()
	db, err := sqlstore.NewDB(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "servicebook.db"),
	})
	require.NoError(t, err)

	s := sqlstore.New(db)
	t.Cleanup(func() { s.Close() })
	return s
}
