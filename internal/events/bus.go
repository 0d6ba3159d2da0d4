// Package events fans measurement changes out to the components that derive
// state from them. Delivery is synchronous and happens inside the writer's
// transaction, so a failing handler rolls the write back.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	"github.com/vladimiradmaev/glucose-guide/internal/logger"
	"github.com/vladimiradmaev/glucose-guide/internal/repository"
)

type Kind string

const (
	MeasurementRecorded Kind = "measurement.recorded"
	MeasurementDeleted  Kind = "measurement.deleted"
)

// MeasurementEvent describes a reading that was written or removed.
type MeasurementEvent struct {
	ID          string
	Kind        Kind
	Measurement domain.Measurement
	OccurredAt  time.Time
}

func NewMeasurementEvent(kind Kind, m domain.Measurement) MeasurementEvent {
	return MeasurementEvent{
		ID:          uuid.NewString(),
		Kind:        kind,
		Measurement: m,
		OccurredAt:  time.Now(),
	}
}

// Handler reacts to an event using tx, the store of the publishing transaction.
type Handler func(ctx context.Context, tx repository.Store, ev MeasurementEvent) error

type subscription struct {
	name    string
	handler Handler
}

// Bus is an in-process, synchronous event bus.
type Bus struct {
	mu   sync.RWMutex
	subs map[Kind][]subscription
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Kind][]subscription)}
}

// Subscribe registers h for kind. Handlers run in subscription order.
func (b *Bus) Subscribe(kind Kind, name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[kind] = append(b.subs[kind], subscription{name: name, handler: h})
}

// Publish runs every handler of ev.Kind and stops at the first error.
func (b *Bus) Publish(ctx context.Context, tx repository.Store, ev MeasurementEvent) error {
	b.mu.RLock()
	subs := b.subs[ev.Kind]
	b.mu.RUnlock()

	log := logger.WithFields("event_id", ev.ID, "event", ev.Kind)
	for _, s := range subs {
		log.Debug("Dispatching event", "handler", s.name)
		if err := s.handler(ctx, tx, ev); err != nil {
			return fmt.Errorf("%s handler %s: %w", ev.Kind, s.name, err)
		}
	}
	return nil
}

// Handlers lists the handler names subscribed to kind.
func (b *Bus) Handlers(kind Kind) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.subs[kind]))
	for _, s := range b.subs[kind] {
		names = append(names, s.name)
	}
	return names
}
