package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
)

// ErrConflict is returned by Txn.Commit when a key in the transaction's
// read set was overwritten by a concurrent commit. The transaction wrote
// nothing; the caller may retry with a fresh Txn.
var ErrConflict = errors.New("conflicting concurrent commit")

// EventHandler receives events recorded by committed transactions.
type EventHandler func(name string, payload []byte)

// Ledger coordinates transactional access to the underlying store.
// Commits are serialized; reads run concurrently against committed state.
type Ledger struct {
	db  storage.DB
	log zerolog.Logger

	mu       sync.Mutex
	seq      uint64
	versions map[string]uint64 // key -> seq of the commit that last wrote it

	onEvent EventHandler
}

// NewLedger creates a Ledger over the given store.
func NewLedger(db storage.DB) *Ledger {
	return &Ledger{
		db:       db,
		log:      log.State,
		versions: make(map[string]uint64),
	}
}

// SetEventHandler installs the handler invoked for each event recorded by
// a successfully committed transaction. Call before serving traffic.
func (l *Ledger) SetEventHandler(h EventHandler) {
	l.onEvent = h
}

// Begin starts a new transaction.
func (l *Ledger) Begin() *Txn {
	return newTxn(l)
}

// version returns the commit sequence that last wrote key (0 = never).
func (l *Ledger) version(key []byte) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.versions[string(key)]
}

// commit validates the transaction's read set and applies its writes
// atomically. Holding mu across validation and apply gives
// first-committer-wins semantics.
func (l *Ledger) commit(t *Txn) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, seen := range t.reads {
		if l.versions[key] != seen {
			l.log.Debug().
				Str("txn", t.id.String()).
				Str("key", printableKey(key)).
				Msg("commit conflict")
			return fmt.Errorf("key %q: %w", printableKey(key), ErrConflict)
		}
	}

	if len(t.writes) > 0 {
		batch := newBatch(l.db)
		for key, value := range t.writes {
			if value == nil {
				if err := batch.Delete([]byte(key)); err != nil {
					return fmt.Errorf("stage delete: %w", err)
				}
			} else {
				if err := batch.Put([]byte(key), value); err != nil {
					return fmt.Errorf("stage write: %w", err)
				}
			}
		}
		if err := batch.Commit(); err != nil {
			return fmt.Errorf("apply writes: %w", err)
		}

		l.seq++
		for key := range t.writes {
			l.versions[key] = l.seq
		}
	}

	return nil
}

// deliver invokes the event handler for each recorded event.
// Called by Txn.Commit after a successful commit, outside the commit lock.
func (l *Ledger) deliver(events []event) {
	if l.onEvent == nil {
		return
	}
	for _, ev := range events {
		l.onEvent(ev.name, ev.payload)
	}
}

// newBatch returns an atomic batch when the backend supports one, or a
// sequential fallback otherwise.
func newBatch(db storage.DB) storage.Batch {
	if b, ok := db.(storage.Batcher); ok {
		return b.NewBatch()
	}
	return &fallbackBatch{db: db}
}

// fallbackBatch applies operations one by one for backends without
// native batches. Commit serialization in Ledger keeps this safe.
type fallbackBatch struct {
	db  storage.DB
	ops []fallbackOp
}

type fallbackOp struct {
	key   []byte
	value []byte // nil means delete
}

func (f *fallbackBatch) Put(key, value []byte) error {
	f.ops = append(f.ops, fallbackOp{key: key, value: value})
	return nil
}

func (f *fallbackBatch) Delete(key []byte) error {
	f.ops = append(f.ops, fallbackOp{key: key})
	return nil
}

func (f *fallbackBatch) Commit() error {
	for _, op := range f.ops {
		if op.value == nil {
			if err := f.db.Delete(op.key); err != nil {
				return err
			}
		} else {
			if err := f.db.Put(op.key, op.value); err != nil {
				return err
			}
		}
	}
	return nil
}

// printableKey renders a composite key for logs, replacing the
// separator with "/".
func printableKey(key string) string {
	out := make([]byte, len(key))
	for i := 0; i < len(key); i++ {
		if key[i] == Separator[0] {
			out[i] = '/'
		} else {
			out[i] = key[i]
		}
	}
	return string(out)
}
