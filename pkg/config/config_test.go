package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiredFieldMissing(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required config")
	assert.Contains(t, err.Error(), "DATABASE_FILE_PATH")
	assert.Contains(t, err.Error(), "database_file_path")
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "/tmp/test.db")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.db", cfg.DatabaseFilePath)
	assert.Equal(t, 5, cfg.MaxBorrowsPerUser)
	assert.Equal(t, 14, cfg.BorrowDurationDays)
	assert.InDelta(t, 0.5, cfg.OverdueFineRate, 0.0001)
	assert.Equal(t, 5*time.Second, cfg.DatabaseBusyTimeout)
}

func TestNew_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database_file_path: /data/bibliodesk.db
server_port: 8080
database_debug: true
max_borrows_per_user: 3
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/data/bibliodesk.db", cfg.DatabaseFilePath)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.True(t, cfg.DatabaseDebug)
	assert.Equal(t, 3, cfg.MaxBorrowsPerUser)
}

func TestNew_EnvVarOverridesConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database_file_path: /data/bibliodesk.db
max_borrows_per_user: 3
borrow_duration_days: 7
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("MAX_BORROWS_PER_USER", "10")
	t.Setenv("BORROW_DURATION_DAYS", "21")
	t.Setenv("OVERDUE_FINE_RATE", "1.25")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxBorrowsPerUser)
	assert.Equal(t, 21, cfg.BorrowDurationDays)
	assert.InDelta(t, 1.25, cfg.OverdueFineRate, 0.0001)
}
