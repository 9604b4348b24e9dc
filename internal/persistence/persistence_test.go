package persistence

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
)

func writeMigration(t *testing.T, dir, name, sql string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o600))
}

func TestLoadMigrations_SortedSQLOnly(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0002_b.sql", "SELECT 2;")
	writeMigration(t, dir, "0001_a.sql", "SELECT 1;")
	writeMigration(t, dir, "README.md", "notes")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o700))

	migrations, err := LoadMigrations(dir)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "0001_a", migrations[0].Version)
	assert.Equal(t, "0002_b", migrations[1].Version)
	assert.Equal(t, "SELECT 1;", migrations[0].SQL)
	assert.Len(t, migrations[0].Checksum, 64)
	assert.NotEqual(t, migrations[0].Checksum, migrations[1].Checksum)
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	_, err := LoadMigrations(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestPending(t *testing.T) {
	migrations := []Migration{
		{Version: "0001_a", Checksum: "aa"},
		{Version: "0002_b", Checksum: "bb"},
	}

	pending, err := Pending(migrations, map[string]string{})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	pending, err = Pending(migrations, map[string]string{"0001_a": "aa"})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "0002_b", pending[0].Version)

	_, err = Pending(migrations, map[string]string{"0001_a": "changed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_a")
}

func TestRunMigrations_AppliesOnce(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	pg, err := NewPostgres(ctx, config.PostgresConfig{DSN: dsn}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pg.Close)

	dir := t.TempDir()
	writeMigration(t, dir, "0001_counter.sql", `
CREATE TABLE IF NOT EXISTS migration_apply_counter (n INT NOT NULL);
INSERT INTO migration_apply_counter (n) VALUES (1);`)
	t.Cleanup(func() {
		_, _ = pg.Pool.Exec(ctx, `DROP TABLE IF EXISTS migration_apply_counter`)
		_, _ = pg.Pool.Exec(ctx, `DELETE FROM schema_migrations WHERE version = '0001_counter'`)
	})

	require.NoError(t, RunMigrations(ctx, pg.Pool, dir, zap.NewNop()))
	require.NoError(t, RunMigrations(ctx, pg.Pool, dir, zap.NewNop()))

	var rows int
	require.NoError(t, pg.Pool.QueryRow(ctx, `SELECT count(*) FROM migration_apply_counter`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestRunMigrations_NilPool(t *testing.T) {
	require.NoError(t, RunMigrations(context.Background(), nil, "unused", zap.NewNop()))
}

func TestNewRedis_UnreachableDisablesCache(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	r := NewRedis(context.Background(), config.RedisConfig{Addr: addr}, zap.NewNop())
	t.Cleanup(r.Close)

	assert.Nil(t, r.Cache())
	assert.Error(t, r.Ping(context.Background()))
}

func TestRedisCache_NilReceiver(t *testing.T) {
	var r *Redis
	assert.Nil(t, r.Cache())
}
