package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalmia/vidly/internal/models"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		wantErr bool
	}{
		{
			name:    "in-memory database",
			dsn:     "file::memory:?cache=shared",
			wantErr: false,
		},
		{
			name:    "file database",
			dsn:     filepath.Join(t.TempDir(), "test.db"),
			wantErr: false,
		},
		{
			name:    "empty DSN falls back to in-memory",
			dsn:     "",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := Initialize(tt.dsn, false)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, conn)
			assert.NotNil(t, conn.DB)

			conn.Close()
		})
	}
}

func TestDB_Close(t *testing.T) {
	conn, err := Initialize("file::memory:?cache=shared", false)
	require.NoError(t, err)
	require.NotNil(t, conn)

	err = conn.Close()
	assert.NoError(t, err)

	// HealthCheck should fail once the connection is gone
	err = conn.HealthCheck()
	assert.Error(t, err)
}

func TestDB_HealthCheck(t *testing.T) {
	conn, err := Initialize("file::memory:?cache=shared", false)
	require.NoError(t, err)
	defer conn.Close()

	assert.NoError(t, conn.HealthCheck())
}

func TestDB_HealthCheckNil(t *testing.T) {
	var conn *DB
	assert.Error(t, conn.HealthCheck())
}

func TestAutoMigrateSessions(t *testing.T) {
	conn, err := Initialize(filepath.Join(t.TempDir(), "migrate.db"), false)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.AutoMigrate(&models.Session{}))
	assert.True(t, conn.DB.Migrator().HasTable(&models.Session{}))

	// Migrated schema round-trips a full session row
	session := &models.Session{
		ID:   "s1",
		Name: "Conference talk",
		Video: &models.VideoColumn{
			ID:    "dQw4w9WgXcQ",
			Title: "Test Video",
		},
		Messages: models.MessageList{
			{ID: "m1", Role: models.RoleUser, Content: "What is this about?"},
		},
	}
	require.NoError(t, conn.DB.Create(session).Error)

	var loaded models.Session
	require.NoError(t, conn.DB.First(&loaded, "id = ?", "s1").Error)
	assert.Equal(t, "Conference talk", loaded.Name)
	require.NotNil(t, loaded.Video)
	assert.Equal(t, "dQw4w9WgXcQ", loaded.Video.ID)
	require.Len(t, loaded.Messages, 1)
	assert.Equal(t, models.RoleUser, loaded.Messages[0].Role)
}
