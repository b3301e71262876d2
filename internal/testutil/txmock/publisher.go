package txmock

import (
	"context"
	"sync"

	"faucet-backend/internal/domain/transaction"
)

var _ transaction.Publisher = (*Publisher)(nil)

// Publisher records every published event. Err, when set, is returned from
// Publish after the event is recorded.
type Publisher struct {
	Err error

	mu     sync.Mutex
	events []transaction.Event
}

func (p *Publisher) Publish(_ context.Context, e transaction.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.Err
}

func (p *Publisher) Events() []transaction.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]transaction.Event, len(p.events))
	copy(out, p.events)
	return out
}
