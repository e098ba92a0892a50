package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"crm_dashboard_go/models"

	"golang.org/x/sync/errgroup"
)

// BridgeState is the lifecycle stage of a Bridge
type BridgeState int

const (
	BridgeIdle BridgeState = iota
	BridgeSubscribing
	BridgeActive
	BridgeClosed
)

func (s BridgeState) String() string {
	switch s {
	case BridgeIdle:
		return "idle"
	case BridgeSubscribing:
		return "subscribing"
	case BridgeActive:
		return "active"
	case BridgeClosed:
		return "closed"
	}
	return "unknown"
}

// ErrBridgeStarted is returned by Start on a bridge that is not idle
var ErrBridgeStarted = errors.New("dashboard bridge already started")

// ClientLister is the read side of the client repository used for aggregates
type ClientLister interface {
	List(ctx context.Context, q ClientQuery) ([]models.Client, error)
}

// Bridge keeps dashboard aggregates current by recomputing them whenever the
// clients table changes. One bridge serves one dashboard view: Start when the
// view opens, Stop when it closes. After Stop no event or in-flight fetch
// touches the stats.
type Bridge struct {
	source  ChangeSource
	clients ClientLister

	mu       sync.Mutex
	state    BridgeState
	stats    DashboardStats
	sub      Subscription
	cancel   context.CancelFunc
	onChange func(DashboardStats)

	summaries chan string
	done      chan struct{}
}

func NewBridge(source ChangeSource, clients ClientLister) *Bridge {
	return &Bridge{
		source:    source,
		clients:   clients,
		stats:     EmptyDashboardStats(),
		summaries: make(chan string, 16),
		done:      make(chan struct{}),
	}
}

// OnChange registers a callback run after each successful recompute.
// It must be set before Start.
func (b *Bridge) OnChange(fn func(DashboardStats)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Summaries delivers the short text describing each client change.
// Messages are dropped when nobody reads them. The channel closes on Stop.
func (b *Bridge) Summaries() <-chan string {
	return b.summaries
}

func (b *Bridge) State() BridgeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns a copy of the current aggregates
func (b *Bridge) Snapshot() DashboardStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats.Clone()
}

// Start subscribes to client changes and loads the initial aggregates in the
// background. The subscription lives until Stop or until ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.state != BridgeIdle {
		b.mu.Unlock()
		return ErrBridgeStarted
	}
	b.state = BridgeSubscribing
	b.mu.Unlock()

	sub, err := b.source.Subscribe(ctx, ClientsTable)
	if err != nil {
		b.mu.Lock()
		if b.state == BridgeSubscribing {
			b.state = BridgeIdle
		}
		b.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	if b.state == BridgeClosed {
		// Stopped while subscribing
		b.mu.Unlock()
		cancel()
		return sub.Close()
	}
	b.sub = sub
	b.cancel = cancel
	b.state = BridgeActive
	b.mu.Unlock()

	go b.run(runCtx, sub)
	return nil
}

// Stop cancels the subscription and waits for the consumer to finish.
// Calling Stop more than once is safe.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	if b.state == BridgeClosed {
		b.mu.Unlock()
		return nil
	}
	prev := b.state
	b.state = BridgeClosed
	cancel := b.cancel
	sub := b.sub
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if sub != nil {
		err = sub.Close()
	}
	if prev == BridgeActive {
		<-b.done
	}
	close(b.summaries)
	return err
}

func (b *Bridge) run(ctx context.Context, sub Subscription) {
	defer close(b.done)

	b.recompute(ctx, "initial")

	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b.handle(ctx, ev)
		}
	}
}

func (b *Bridge) handle(ctx context.Context, ev models.ChangeEvent) {
	if !b.isActive() {
		return
	}

	if summary := SummarizeChange(ev); summary != "" {
		log.Printf("[REALTIME] %s", summary)
		select {
		case b.summaries <- summary:
		default:
		}
	}

	b.recompute(ctx, string(ev.Type))
}

func (b *Bridge) isActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == BridgeActive
}

// recompute reloads every client and the most recent ones in parallel and
// replaces the aggregates. Results arriving after Stop are discarded.
func (b *Bridge) recompute(ctx context.Context, trigger string) {
	if !b.isActive() {
		return
	}

	start := time.Now()
	stats, err := b.load(ctx)
	DashboardRecomputes.WithLabelValues(trigger).Inc()
	DashboardRecomputeSeconds.Observe(time.Since(start).Seconds())

	b.mu.Lock()
	if b.state != BridgeActive || ctx.Err() != nil {
		b.mu.Unlock()
		return
	}
	if err != nil {
		log.Printf("[WARNING] Failed to recompute dashboard (%s): %v", trigger, err)
		b.stats.Loading = false
		b.stats.Error = UserMessage(err, "Failed to fetch dashboard data")
		b.mu.Unlock()
		return
	}
	b.stats = stats
	onChange := b.onChange
	snapshot := stats.Clone()
	b.mu.Unlock()

	if onChange != nil {
		onChange(snapshot)
	}
}

func (b *Bridge) load(ctx context.Context) (DashboardStats, error) {
	return LoadDashboard(ctx, b.clients)
}

// LoadDashboard fetches every client and the most recent ones in parallel
// and aggregates them
func LoadDashboard(ctx context.Context, clients ClientLister) (DashboardStats, error) {
	var all, recent []models.Client

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = clients.List(gctx, ClientQuery{SkipEnrich: true})
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = clients.List(gctx, ClientQuery{Limit: RecentClientsLimit})
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardStats{}, err
	}

	if recent == nil {
		recent = []models.Client{}
	}
	return ComputeDashboardStats(all, recent), nil
}
