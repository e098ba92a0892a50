package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"crm_dashboard_go/models"
)

// ClientsTable is the change feed topic for client rows
const ClientsTable = "clients"

const defaultMailboxSize = 64

// ErrSubscriptionClosed is returned when subscribing on a closed broker
var ErrSubscriptionClosed = errors.New("change feed closed")

// ChangePublisher receives row changes after a successful write
type ChangePublisher interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
}

// Subscription delivers the change events of one table until closed.
// Close is idempotent.
type Subscription interface {
	Events() <-chan models.ChangeEvent
	Close() error
}

// ChangeSource opens subscriptions on a table
type ChangeSource interface {
	Subscribe(ctx context.Context, table string) (Subscription, error)
}

// ChangeFeed is both ends of a change feed
type ChangeFeed interface {
	ChangePublisher
	ChangeSource
	io.Closer
}

// Broker is an in-process change feed. Each subscriber owns a buffered
// mailbox; publishing never blocks and drops events for a full mailbox.
type Broker struct {
	mu      sync.Mutex
	subs    map[string]map[*brokerSubscription]struct{}
	mailbox int
	closed  bool
}

func NewBroker(mailbox int) *Broker {
	if mailbox <= 0 {
		mailbox = defaultMailboxSize
	}
	return &Broker{
		subs:    make(map[string]map[*brokerSubscription]struct{}),
		mailbox: mailbox,
	}
}

func (b *Broker) Publish(ctx context.Context, ev models.ChangeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[ev.Table] {
		select {
		case sub.events <- ev:
		default:
			log.Printf("[REALTIME] Dropping %s event on %s: subscriber mailbox full", ev.Type, ev.Table)
		}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, table string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrSubscriptionClosed
	}

	sub := &brokerSubscription{
		broker: b,
		table:  table,
		events: make(chan models.ChangeEvent, b.mailbox),
	}
	if b.subs[table] == nil {
		b.subs[table] = make(map[*brokerSubscription]struct{})
	}
	b.subs[table][sub] = struct{}{}
	return sub, nil
}

// Subscribers returns the number of open subscriptions on a table
func (b *Broker) Subscribers(table string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[table])
}

// Close ends every subscription and rejects new ones
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for table, subs := range b.subs {
		for sub := range subs {
			sub.closeLocked()
		}
		delete(b.subs, table)
	}
	return nil
}

type brokerSubscription struct {
	broker *Broker
	table  string
	events chan models.ChangeEvent
	closed bool
}

func (s *brokerSubscription) Events() <-chan models.ChangeEvent {
	return s.events
}

func (s *brokerSubscription) Close() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()

	if subs, ok := s.broker.subs[s.table]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.broker.subs, s.table)
		}
	}
	s.closeLocked()
	return nil
}

// closeLocked must be called with the broker mutex held
func (s *brokerSubscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

// SummarizeChange returns the transient message shown for a client change.
// Updates that leave the status unchanged produce no message.
func SummarizeChange(ev models.ChangeEvent) string {
	switch ev.Type {
	case models.ChangeInsert:
		return fmt.Sprintf("New client %q has been added!", ev.Name())
	case models.ChangeUpdate:
		if ev.Old == nil || ev.New == nil || ev.Old.Status == ev.New.Status {
			return ""
		}
		return fmt.Sprintf("Client %q status changed from %s to %s", ev.Name(), ev.Old.Status, ev.New.Status)
	case models.ChangeDelete:
		return fmt.Sprintf("Client %q has been deleted", ev.Name())
	}
	return ""
}

// publishChange forwards an event to the publisher. Failures are logged, the
// write that produced the event has already succeeded.
func publishChange(ctx context.Context, pub ChangePublisher, ev models.ChangeEvent) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		log.Printf("[REALTIME] Failed to publish %s on %s: %v", ev.Type, ev.Table, err)
	}
}
