package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"player-session/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 15*time.Second, cfg.Session.LockTimeout)
	assert.Equal(t, 10*time.Second, cfg.Session.WriteTimeout)
	assert.Equal(t, "$", cfg.Economy.Symbol)

	balance, err := cfg.Economy.ParsedStartingBalance()
	require.NoError(t, err)
	assert.Equal(t, model.Amount(0), balance)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: mysql
  host: db.internal
  port: 3306
  user: game
  password: secret
  name: players
economy:
  starting_balance: "250.50"
  symbol: "€"
session:
  checkpoint_interval: 1m
`)
	t.Setenv("DATABASE_HOST", "override.internal")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.Equal(t, "game:secret@tcp(override.internal:3306)/players?parseTime=true&clientFoundRows=true", cfg.Database.DSN())
	assert.Equal(t, time.Minute, cfg.Session.CheckpointInterval)

	balance, err := cfg.Economy.ParsedStartingBalance()
	require.NoError(t, err)
	assert.Equal(t, model.Amount(25050), balance)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "database:\n  driver: sqlite\n"))
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = Load(writeConfig(t, "economy:\n  starting_balance: \"-5\"\n"))
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	_, err = Load(writeConfig(t, "economy:\n  starting_balance: \"ten\"\n"))
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	_, err = Load(writeConfig(t, "session:\n  lock_timeout: 5s\n  write_timeout: 10s\n"))
	assert.ErrorContains(t, err, "must exceed session.write_timeout")

	_, err = Load(writeConfig(t, "session:\n  lock_timeout: 10s\n  write_timeout: 10s\n"))
	assert.ErrorContains(t, err, "must exceed session.write_timeout")
}

func TestLoad_LockTimeoutAboveWriteTimeout(t *testing.T) {
	cfg, err := Load(writeConfig(t, "session:\n  lock_timeout: 3s\n  write_timeout: 2s\n"))
	require.NoError(t, err)
	assert.Greater(t, cfg.Session.LockTimeout, cfg.Session.WriteTimeout)
}

func TestDatabaseConfig_PostgresDSN(t *testing.T) {
	d := DatabaseConfig{Driver: DriverPostgres, Host: "h", Port: 5432, User: "u", Password: "p", Name: "n"}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", d.DSN())
}
