package transaction

import "context"

type Repository interface {
	// RecordIfNew inserts r unless its TxHash is already stored. inserted=false
	// means the record already exists; callers treat that as a no-op success.
	RecordIfNew(ctx context.Context, r *Record) (inserted bool, err error)
	GetByTxHash(ctx context.Context, txHash string) (*Record, error)
	ListByAddress(ctx context.Context, address string, limit, offset int) ([]Record, error)
	List(ctx context.Context, limit, offset int) ([]Record, error)

	FlagUnconfirmed(ctx context.Context, u *Unconfirmed) error
	ListUnconfirmed(ctx context.Context, limit int) ([]Unconfirmed, error)
}

// Publisher fans confirmed records out to other systems. Best effort: a failed
// publish never undoes a recorded transaction.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
