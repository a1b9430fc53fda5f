//go:build unit

package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test and
// restores it afterwards (equivalent of testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Queue.Driver)
	assert.Equal(t, 2, cfg.Queue.Workers)
	assert.Equal(t, 30, cfg.Forum.PageSize)
	assert.Equal(t, "-last_replied", cfg.Forum.DefaultOrdering)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FORUM_SERVER_PORT", "9090")
	t.Setenv("FORUM_QUEUE_DRIVER", "redis")
	t.Setenv("FORUM_FORUM_PAGE_SIZE", "10")
	t.Setenv("FORUM_FORUM_ADMINS", "alice,bob")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Queue.Driver)
	assert.Equal(t, 10, cfg.Forum.PageSize)
	assert.Equal(t, []string{"alice", "bob"}, cfg.Forum.Admins)
}
