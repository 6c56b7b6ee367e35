// Package txn implements buffered transactions. A transaction records writes
// without touching the stores, serves its own pending writes back to reads,
// and applies everything in one shot at commit. Rollback discards the buffer.
package txn

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stratadb/strata/value"
)

var (
	// ErrNotActive is returned when an operation reaches a transaction that
	// has already committed or rolled back.
	ErrNotActive = errors.New("txn: transaction is not active")

	// ErrReadOnly is returned when a write reaches a read-only transaction.
	ErrReadOnly = errors.New("txn: transaction is read-only")
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusActive     Status = "active"
	StatusCommitted  Status = "committed"
	StatusRolledBack Status = "rolled_back"
)

// Kind discriminates buffered operations.
type Kind string

const (
	OpKVPut        Kind = "kv.put"
	OpKVDelete     Kind = "kv.delete"
	OpStatePut     Kind = "state.put"
	OpStateDelete  Kind = "state.delete"
	OpJSONPut      Kind = "json.put"
	OpJSONDelete   Kind = "json.delete"
	OpEventAppend  Kind = "event.append"
	OpVectorUpsert Kind = "vector.upsert"
	OpVectorDelete Kind = "vector.delete"
)

// Op is one buffered write. Which fields are meaningful depends on Kind.
type Op struct {
	Kind       Kind
	Space      string
	Key        string
	Value      value.Value
	EventType  string
	Collection string
	Embedding  []float32
	Metadata   value.Value
}

type overlayKey struct {
	space     string
	primitive string
	key       string
}

// Transaction buffers writes against a single branch until commit.
type Transaction struct {
	id        string
	readOnly  bool
	startedAt time.Time

	mu      sync.Mutex
	status  Status
	ops     []Op
	overlay map[overlayKey]*value.Value
}

// Info is a point-in-time description of a transaction.
type Info struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	ReadOnly  bool      `json:"readOnly"`
	StartedAt time.Time `json:"startedAt"`
	Pending   int       `json:"pending"`
}

// New begins a transaction.
func New(readOnly bool) *Transaction {
	return &Transaction{
		id:        uuid.NewString(),
		readOnly:  readOnly,
		startedAt: time.Now(),
		status:    StatusActive,
		overlay:   make(map[overlayKey]*value.Value),
	}
}

// ID returns the transaction's unique identifier.
func (t *Transaction) ID() string { return t.id }

// ReadOnly reports whether the transaction rejects writes.
func (t *Transaction) ReadOnly() bool { return t.readOnly }

// Active reports whether the transaction can still accept operations.
func (t *Transaction) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status == StatusActive
}

// Describe returns the transaction's current state.
func (t *Transaction) Describe() Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Info{
		ID:        t.id,
		Status:    t.status,
		ReadOnly:  t.readOnly,
		StartedAt: t.startedAt,
		Pending:   len(t.ops),
	}
}

// Buffer appends a write to the transaction. The op's effect becomes visible
// to this transaction's reads immediately and to everyone else at commit.
func (t *Transaction) Buffer(op Op) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusActive {
		return fmt.Errorf("%w: %s", ErrNotActive, t.status)
	}
	if t.readOnly {
		return ErrReadOnly
	}
	t.ops = append(t.ops, op)

	switch op.Kind {
	case OpKVPut:
		v := op.Value.Clone()
		t.overlay[overlayKey{op.Space, "kv", op.Key}] = &v
	case OpKVDelete:
		t.overlay[overlayKey{op.Space, "kv", op.Key}] = nil
	case OpStatePut:
		v := op.Value.Clone()
		t.overlay[overlayKey{op.Space, "state", op.Key}] = &v
	case OpStateDelete:
		t.overlay[overlayKey{op.Space, "state", op.Key}] = nil
	case OpJSONPut:
		v := op.Value.Clone()
		t.overlay[overlayKey{op.Space, "json", op.Key}] = &v
	case OpJSONDelete:
		t.overlay[overlayKey{op.Space, "json", op.Key}] = nil
	}
	return nil
}

// Lookup serves read-your-own-writes: it reports whether the transaction has
// a buffered write for the given key, and if so the pending value (nil for a
// buffered delete).
func (t *Transaction) Lookup(space, primitive, key string) (*value.Value, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusActive {
		return nil, false
	}
	v, ok := t.overlay[overlayKey{space, primitive, key}]
	if !ok {
		return nil, false
	}
	if v == nil {
		return nil, true
	}
	c := v.Clone()
	return &c, true
}

// PendingEvents returns buffered event appends for a space, in order. Event
// reads inside the transaction see these after the committed log.
func (t *Transaction) PendingEvents(space string) []Op {
	t.mu.Lock()
	defer t.mu.Unlock()
	var evs []Op
	for _, op := range t.ops {
		if op.Kind == OpEventAppend && op.Space == space {
			evs = append(evs, op)
		}
	}
	return evs
}

// Commit hands the buffered ops to apply and marks the transaction committed.
// If apply fails the transaction rolls back and the error is returned; the
// buffer is never retried. Committing a read-only transaction simply closes
// it, equivalent to a rollback.
func (t *Transaction) Commit(apply func(ops []Op) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusActive {
		return fmt.Errorf("%w: %s", ErrNotActive, t.status)
	}
	if t.readOnly {
		t.close(StatusRolledBack)
		return nil
	}
	if err := apply(t.ops); err != nil {
		t.close(StatusRolledBack)
		return err
	}
	t.close(StatusCommitted)
	return nil
}

// Rollback discards all buffered writes.
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusActive {
		return fmt.Errorf("%w: %s", ErrNotActive, t.status)
	}
	t.close(StatusRolledBack)
	return nil
}

func (t *Transaction) close(status Status) {
	t.status = status
	t.ops = nil
	t.overlay = nil
}
