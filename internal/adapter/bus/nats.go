package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"faucet-backend/internal/domain/transaction"

	"github.com/nats-io/nats.go"
)

const DefaultSubject = "faucet.transactions.confirmed"

var _ transaction.Publisher = (*Publisher)(nil)

type conn interface {
	Publish(subj string, data []byte) error
}

// Publisher sends confirmed-transaction events as JSON to one subject.
type Publisher struct {
	nc      conn
	subject string
}

func NewPublisher(nc *nats.Conn, subject string) *Publisher {
	return newPublisher(nc, subject)
}

func newPublisher(nc conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{nc: nc, subject: subject}
}

func (p *Publisher) Publish(ctx context.Context, e transaction.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", p.subject, err)
	}
	return nil
}

// Connect returns nil, nil for an empty url; callers fall back to a no-op publisher.
func Connect(url, name string) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}
