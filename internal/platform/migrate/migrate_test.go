package migrate

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreEmbeddedInOrder(t *testing.T) {
	entries, err := fs.ReadDir(migrations, dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "00001_create_users.sql", entries[0].Name())
	assert.Equal(t, "00002_create_account_events.sql", entries[1].Name())

	for _, entry := range entries {
		data, err := fs.ReadFile(migrations, dir+"/"+entry.Name())
		require.NoError(t, err)
		body := string(data)
		assert.True(t, strings.HasPrefix(body, "-- +goose Up"), entry.Name())
		assert.Contains(t, body, "-- +goose Down", entry.Name())
	}
}

func TestUsersMigrationEnforcesCaseInsensitiveEmail(t *testing.T) {
	data, err := fs.ReadFile(migrations, dir+"/00001_create_users.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "ON users (lower(email))")
	assert.Contains(t, string(data), "'prefer-not-to-say'")
}
