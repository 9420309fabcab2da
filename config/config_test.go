package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("MONGO_DB", "threads_test")
	t.Setenv("ADMIN_USERNAMES", "alice, bob ,")
	t.Setenv("MONGO_TRANSACTIONS", "OFF")

	var c AppConfig
	applyDefaults(&c)
	applyEnvOverrides(&c)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "threads_test", c.MongoDB)
	assert.Equal(t, "off", c.MongoTransactions)
	assert.Equal(t, []string{"alice", "bob"}, c.AdminUsernames)
	assert.Equal(t, 100, c.MaxPageSize)
	assert.Equal(t, "mongo", c.StoreDriver)
	assert.Empty(t, c.RedisHost)
}

func TestLoadJSONConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"app": {"AppPort": "9000", "MaxPageSize": 25, "AdminUsernames": ["root"]},
		"mongo": {"URI": "mongodb://db:27017", "Database": "prod", "Transactions": "on"},
		"redis": {"RedisHost": "cache", "CacheTTLSec": 30},
		"log": {"Level": "debug", "Compress": true}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))
	applyDefaults(&c)

	assert.Equal(t, "9000", c.AppPort)
	assert.Equal(t, 25, c.MaxPageSize)
	assert.Equal(t, []string{"root"}, c.AdminUsernames)
	assert.Equal(t, "mongodb://db:27017", c.MongoURI)
	assert.Equal(t, "on", c.MongoTransactions)
	assert.Equal(t, "cache", c.RedisHost)
	assert.Equal(t, 30, c.CacheTTLSec)
	assert.Equal(t, 6379, c.RedisPort)
	assert.True(t, c.LogCompress)
}

func TestLoadJSONConfig_MissingAndInvalid(t *testing.T) {
	var c AppConfig
	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "absent.json"), &c))

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	assert.Error(t, loadJSONConfig(path, &c))
}
