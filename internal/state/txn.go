package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
)

// ErrTxnFinished is returned when a finished transaction is reused.
var ErrTxnFinished = errors.New("transaction already finished")

// event is a named payload recorded by a transaction, delivered to the
// ledger's event handler only after the transaction commits.
type event struct {
	name    string
	payload []byte
}

// Txn is a single transactional view of the ledger. It reads committed
// state plus its own buffered writes, and applies all writes atomically
// on Commit. A Txn is not safe for concurrent use.
type Txn struct {
	ledger *Ledger
	id     uuid.UUID
	ts     time.Time

	reads  map[string]uint64 // key -> version observed at first read
	writes map[string][]byte // key -> value; nil means delete
	events []event
	done   bool
}

func newTxn(l *Ledger) *Txn {
	return &Txn{
		ledger: l,
		id:     uuid.New(),
		ts:     time.Now().UTC(),
		reads:  make(map[string]uint64),
		writes: make(map[string][]byte),
	}
}

// ID returns the transaction's unique identifier.
func (t *Txn) ID() uuid.UUID { return t.id }

// Timestamp returns the transaction's creation time (UTC).
func (t *Txn) Timestamp() time.Time { return t.ts }

// Get returns the value for key: the transaction's own buffered write if
// one exists, otherwise the committed value. Returns storage.ErrKeyNotFound
// when the key does not exist. Reading a key (present or absent) adds it
// to the read set validated at Commit.
func (t *Txn) Get(key []byte) ([]byte, error) {
	if t.done {
		return nil, ErrTxnFinished
	}
	if value, ok := t.writes[string(key)]; ok {
		if value == nil {
			return nil, storage.ErrKeyNotFound
		}
		return value, nil
	}

	// The version is captured before the value so that a commit landing
	// between the two shows up as a conflict instead of a torn read.
	t.observe(key)

	value, err := t.ledger.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, storage.ErrKeyNotFound
		}
		return nil, fmt.Errorf("txn get: %w", err)
	}
	return value, nil
}

// Has reports whether key exists, honoring buffered writes. Like Get, it
// adds the key to the read set.
func (t *Txn) Has(key []byte) (bool, error) {
	if t.done {
		return false, ErrTxnFinished
	}
	if value, ok := t.writes[string(key)]; ok {
		return value != nil, nil
	}

	t.observe(key)

	ok, err := t.ledger.db.Has(key)
	if err != nil {
		return false, fmt.Errorf("txn has: %w", err)
	}
	return ok, nil
}

// Put buffers a write. It becomes visible to this transaction's reads
// immediately and to other transactions only after Commit.
func (t *Txn) Put(key, value []byte) error {
	if t.done {
		return ErrTxnFinished
	}
	v := make([]byte, len(value))
	copy(v, value)
	t.writes[string(key)] = v
	return nil
}

// Delete buffers a delete.
func (t *Txn) Delete(key []byte) error {
	if t.done {
		return ErrTxnFinished
	}
	t.writes[string(key)] = nil
	return nil
}

// Emit records an event delivered to the ledger's event handler after a
// successful Commit. A failed or discarded transaction emits nothing.
func (t *Txn) Emit(name string, payload []byte) {
	p := make([]byte, len(payload))
	copy(p, payload)
	t.events = append(t.events, event{name: name, payload: p})
}

// Commit validates the read set and applies all buffered writes
// atomically. Returns ErrConflict (wrapped) when a read key was
// overwritten by a concurrent commit; nothing is written in that case.
func (t *Txn) Commit() error {
	if t.done {
		return ErrTxnFinished
	}
	t.done = true

	if err := t.ledger.commit(t); err != nil {
		return err
	}

	t.ledger.deliver(t.events)
	return nil
}

// Discard abandons the transaction. Safe to call after Commit.
func (t *Txn) Discard() {
	t.done = true
}

// observe records the key's current version the first time it is read.
func (t *Txn) observe(key []byte) {
	k := string(key)
	if _, ok := t.reads[k]; !ok {
		t.reads[k] = t.ledger.version(key)
	}
}
