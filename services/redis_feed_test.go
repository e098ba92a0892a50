package services

import (
	"context"
	"os"
	"testing"
	"time"

	"crm_dashboard_go/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server; set REDIS_ADDR to enable
func TestRedisChangeFeed(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	feed := NewRedisChangeFeed(redis.NewClient(&redis.Options{Addr: addr}))
	defer feed.Close()

	sub, err := feed.Subscribe(ctx, ClientsTable)
	require.NoError(t, err)
	defer sub.Close()

	sent := models.ChangeEvent{Type: models.ChangeInsert, Table: ClientsTable, New: &models.Client{ID: "c1", Name: "Acme"}}
	require.NoError(t, feed.Publish(ctx, sent))

	select {
	case ev := <-sub.Events():
		assert.Equal(t, models.ChangeInsert, ev.Type)
		require.NotNil(t, ev.New)
		assert.Equal(t, "Acme", ev.New.Name)
	case <-ctx.Done():
		t.Fatal("timed out waiting for change event")
	}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	_, open := <-sub.Events()
	assert.False(t, open)
}
