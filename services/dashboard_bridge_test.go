package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crm_dashboard_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLister serves a mutable client list, optionally blocking until released
type fakeLister struct {
	mu      sync.Mutex
	clients []models.Client
	err     error
	gate    chan struct{}
}

func (f *fakeLister) List(ctx context.Context, q ClientQuery) ([]models.Client, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := append([]models.Client{}, f.clients...)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeLister) add(c models.Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients = append([]models.Client{c}, f.clients...)
}

func waitStats(t *testing.T, ch <-chan DashboardStats) DashboardStats {
	t.Helper()
	select {
	case stats := <-ch:
		return stats
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dashboard recompute")
	}
	return DashboardStats{}
}

func startBridge(t *testing.T, source ChangeSource, lister ClientLister) (*Bridge, <-chan DashboardStats) {
	t.Helper()
	bridge := NewBridge(source, lister)
	updates := make(chan DashboardStats, 16)
	bridge.OnChange(func(stats DashboardStats) { updates <- stats })
	require.NoError(t, bridge.Start(context.Background()))
	t.Cleanup(func() { bridge.Stop() })
	return bridge, updates
}

func TestBridge_RecomputesOnChange(t *testing.T) {
	ctx := context.Background()
	broker := NewBroker(0)
	lister := &fakeLister{clients: []models.Client{{ID: "1", Name: "Acme", Status: "active", Industry: "Retail"}}}

	bridge, updates := startBridge(t, broker, lister)

	initial := waitStats(t, updates)
	assert.Equal(t, 1, initial.TotalClients)
	assert.Equal(t, 100, initial.ConversionRate)
	assert.Equal(t, BridgeActive, bridge.State())

	added := models.Client{ID: "2", Name: "Globex", Status: "pending", Industry: "Energy"}
	lister.add(added)
	require.NoError(t, broker.Publish(ctx, models.ChangeEvent{Type: models.ChangeInsert, Table: ClientsTable, New: &added}))

	stats := waitStats(t, updates)
	assert.Equal(t, 2, stats.TotalClients)
	assert.Equal(t, 50, stats.ConversionRate)
	assert.Equal(t, stats, bridge.Snapshot())

	select {
	case msg := <-bridge.Summaries():
		assert.Equal(t, `New client "Globex" has been added!`, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no change summary delivered")
	}
}

func TestBridge_StopIgnoresLaterEvents(t *testing.T) {
	ctx := context.Background()
	broker := NewBroker(0)
	lister := &fakeLister{clients: []models.Client{{ID: "1", Name: "Acme", Status: "active"}}}

	bridge, updates := startBridge(t, broker, lister)
	before := waitStats(t, updates)

	require.NoError(t, bridge.Stop())
	assert.Equal(t, BridgeClosed, bridge.State())
	assert.Equal(t, 0, broker.Subscribers(ClientsTable))

	// A change arriving after Stop touches nothing
	added := models.Client{ID: "2", Name: "Late", Status: "pending"}
	lister.add(added)
	require.NoError(t, broker.Publish(ctx, models.ChangeEvent{Type: models.ChangeInsert, Table: ClientsTable, New: &added}))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, bridge.Snapshot())
	assert.Empty(t, updates)

	_, open := <-bridge.Summaries()
	assert.False(t, open)

	// Stop is idempotent
	assert.NoError(t, bridge.Stop())
}

func TestBridge_DiscardsInFlightFetchAfterStop(t *testing.T) {
	broker := NewBroker(0)
	lister := &fakeLister{
		clients: []models.Client{{ID: "1", Status: "active"}},
		gate:    make(chan struct{}),
	}

	bridge := NewBridge(broker, lister)
	called := make(chan struct{}, 1)
	bridge.OnChange(func(DashboardStats) { called <- struct{}{} })
	require.NoError(t, bridge.Start(context.Background()))

	stopped := make(chan struct{})
	go func() {
		bridge.Stop()
		close(stopped)
	}()

	// Let Stop mark the bridge closed before the fetch completes
	require.Eventually(t, func() bool { return bridge.State() == BridgeClosed }, time.Second, 5*time.Millisecond)
	close(lister.gate)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	assert.Empty(t, called)
	snapshot := bridge.Snapshot()
	assert.True(t, snapshot.Loading)
	assert.Equal(t, 0, snapshot.TotalClients)
}

func TestBridge_FetchError(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection reset")}
	bridge := NewBridge(NewBroker(0), lister)
	require.NoError(t, bridge.Start(context.Background()))
	defer bridge.Stop()

	require.Eventually(t, func() bool { return bridge.Snapshot().Error != "" }, 2*time.Second, 5*time.Millisecond)
	snapshot := bridge.Snapshot()
	assert.False(t, snapshot.Loading)
	assert.Equal(t, "Failed to fetch dashboard data", snapshot.Error)
}

func TestBridge_Lifecycle(t *testing.T) {
	broker := NewBroker(0)
	bridge := NewBridge(broker, &fakeLister{})
	assert.Equal(t, BridgeIdle, bridge.State())
	assert.Equal(t, "idle", bridge.State().String())

	require.NoError(t, bridge.Start(context.Background()))
	assert.ErrorIs(t, bridge.Start(context.Background()), ErrBridgeStarted)
	require.NoError(t, bridge.Stop())
	assert.ErrorIs(t, bridge.Start(context.Background()), ErrBridgeStarted)

	// Stop before Start closes the bridge without subscribing
	idle := NewBridge(broker, &fakeLister{})
	require.NoError(t, idle.Stop())
	assert.Equal(t, BridgeClosed, idle.State())
	assert.ErrorIs(t, idle.Start(context.Background()), ErrBridgeStarted)

	require.NoError(t, broker.Close())
	failing := NewBridge(broker, &fakeLister{})
	assert.ErrorIs(t, failing.Start(context.Background()), ErrSubscriptionClosed)
	assert.Equal(t, BridgeIdle, failing.State())
}

func TestLoadDashboard(t *testing.T) {
	db := setupTestDB(t)
	user := createProfile(t, db, "Ada")
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		createClient(t, db, models.Client{
			Name:           "Client " + string(rune('A'+i)),
			Status:         models.ClientStatusActive,
			Revenue:        100,
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
			AssignedUserID: &user.ID,
		})
	}

	stats, err := LoadDashboard(context.Background(), NewClientService(db, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalClients)
	assert.Equal(t, 700.0, stats.TotalRevenue)
	require.Len(t, stats.RecentClients, RecentClientsLimit)
	assert.Equal(t, "Client G", stats.RecentClients[0].Name)
	require.NotNil(t, stats.RecentClients[0].AssignedUser)
	assert.Equal(t, "Ada", stats.RecentClients[0].AssignedUser.Name)
}
