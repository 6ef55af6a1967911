package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInit_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	err := Init(context.Background(), dbPath)
	require.NoError(t, err)
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestInit_EmptyPath(t *testing.T) {
	err := Init(context.Background(), "")
	assert.Error(t, err)
}

func TestOpen_RunsMigrations(t *testing.T) {
	s := setupTestStore(t)

	version, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)

	migrations, err := listMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, migrations[len(migrations)-1].version, version)
}

func TestInit_Idempotent(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, Init(ctx, dbPath))
	assert.NoError(t, Init(ctx, dbPath))

	s, err := Open(ctx, dbPath)
	require.NoError(t, err)
	defer s.Close()

	var applied int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&applied))
	migrations, err := listMigrations()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), applied)
}

func TestListMigrations_Ordered(t *testing.T) {
	migrations, err := listMigrations()
	require.NoError(t, err)
	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].version, migrations[i].version)
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE b = ? AND c = ?"

	sqlite := &Store{driver: driverSQLite}
	assert.Equal(t, q, sqlite.rebind(q))

	pg := &Store{driver: driverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", pg.rebind(q))
}

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres("postgres://u:p@localhost:5432/db"))
	assert.True(t, IsPostgres("postgresql://localhost/db"))
	assert.False(t, IsPostgres("/tmp/data.db"))
	assert.False(t, IsPostgres(""))
}

func TestStore_Nil(t *testing.T) {
	var s *Store
	ctx := context.Background()

	_, err := s.SchemaVersion(ctx)
	assert.ErrorIs(t, err, errDBNotInitialized)
	_, err = s.ListRuns(ctx, 1)
	assert.ErrorIs(t, err, errDBNotInitialized)
	assert.NoError(t, s.Close())
	assert.Nil(t, s.DB())
}
