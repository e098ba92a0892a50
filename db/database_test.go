package db

import (
	"path/filepath"
	"testing"

	"crm_dashboard_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeAndMigrate(t *testing.T) {
	old := DB
	defer func() { DB = old }()

	path := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, Initialize(path, "test"))
	defer Close()

	require.NoError(t, AutoMigrate(models.AllModels()...))

	for _, table := range []string{"clients", "interactions", "attachments", "tasks", "activity_logs", "profiles"} {
		assert.True(t, DB.Migrator().HasTable(table), table)
	}

	t.Run("interactions cascade with their client", func(t *testing.T) {
		client := &models.Client{Name: "Acme", Email: "a@acme.com", Country: "USA", Industry: "Tech"}
		require.NoError(t, DB.Create(client).Error)
		require.NoError(t, DB.Create(&models.Interaction{ClientID: client.ID, Type: "Call", Note: "hi", UserID: "u1"}).Error)

		require.NoError(t, DB.Delete(&models.Client{}, "id = ?", client.ID).Error)

		var count int64
		DB.Model(&models.Interaction{}).Where("client_id = ?", client.ID).Count(&count)
		assert.Equal(t, int64(0), count)
	})
}

func TestAutoMigrateWithoutInitialize(t *testing.T) {
	old := DB
	DB = nil
	defer func() { DB = old }()

	assert.Error(t, AutoMigrate(&models.Client{}))
	assert.NoError(t, Close())
}
