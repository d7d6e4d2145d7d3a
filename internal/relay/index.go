package relay

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
	"github.com/Klingon-tech/klingnet-ledger/internal/token"
	"github.com/google/uuid"
)

const (
	// eventIndexPrefix namespaces the event index inside the shared DB.
	eventIndexPrefix = "evt/"

	// eventEntryPrefix keys individual index entries.
	eventEntryPrefix = "e/"
)

// EventRecord is one indexed ledger event as seen from one account.
// Mint and burn events appear under both the null account and the
// admin's account.
type EventRecord struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Value     int64     `json:"value"`
	Origin    string    `json:"origin"`
	EmittedAt time.Time `json:"emitted_at"`
}

// EventIndex persists relayed events per account, newest first. It is a
// convenience view over gossip traffic, not authoritative ledger state;
// a node that was offline simply misses those envelopes.
type EventIndex struct {
	store storage.DB
}

// NewEventIndex creates an event index namespaced under "evt/" in db.
func NewEventIndex(db storage.DB) *EventIndex {
	return &EventIndex{store: storage.NewPrefixDB(db, []byte(eventIndexPrefix))}
}

// entryKey builds "e/<account>/<revnanos><id4>". The emit time is stored
// inverted so ascending key order is newest first. The envelope ID tail
// disambiguates events emitted in the same nanosecond and makes duplicate
// deliveries idempotent.
func entryKey(account string, emittedAt time.Time, id uuid.UUID) []byte {
	key := make([]byte, 0, len(eventEntryPrefix)+len(account)+13)
	key = append(key, eventEntryPrefix...)
	key = append(key, account...)
	key = append(key, '/')
	var rev [8]byte
	binary.BigEndian.PutUint64(rev[:], ^uint64(emittedAt.UnixNano()))
	key = append(key, rev[:]...)
	key = append(key, id[:4]...)
	return key
}

// Put indexes one envelope under every account its event touches.
func (ix *EventIndex) Put(env *Envelope) error {
	var ev token.TransferEvent
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return fmt.Errorf("decode event payload: %w", err)
	}

	rec := EventRecord{
		ID:        env.ID.String(),
		Event:     env.Event,
		From:      ev.From,
		To:        ev.To,
		Value:     ev.Value,
		Origin:    env.Origin().String(),
		EmittedAt: env.EmittedAt,
	}
	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("marshal event record: %w", err)
	}

	if err := ix.store.Put(entryKey(ev.From, env.EmittedAt, env.ID), data); err != nil {
		return fmt.Errorf("index event: %w", err)
	}
	if ev.To != ev.From {
		if err := ix.store.Put(entryKey(ev.To, env.EmittedAt, env.ID), data); err != nil {
			return fmt.Errorf("index event: %w", err)
		}
	}
	return nil
}

// Query returns events touching the account, newest first, along with
// the total number of indexed events for that account. A limit of 0
// means no limit.
func (ix *EventIndex) Query(account string, offset, limit int) ([]EventRecord, int, error) {
	prefix := append([]byte(eventEntryPrefix), account...)
	prefix = append(prefix, '/')

	type entry struct {
		key []byte
		rec EventRecord
	}
	var all []entry
	err := ix.store.ForEach(prefix, func(key, value []byte) error {
		var rec EventRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil // Skip corrupt entries.
		}
		keyCopy := make([]byte, len(key))
		copy(keyCopy, key)
		all = append(all, entry{key: keyCopy, rec: rec})
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("iterate event index: %w", err)
	}

	// Keys embed the inverted emit time, so ascending order is newest first.
	sort.Slice(all, func(i, j int) bool {
		return bytes.Compare(all[i].key, all[j].key) < 0
	})

	total := len(all)
	if offset >= total {
		return []EventRecord{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]EventRecord, 0, end-offset)
	for _, e := range all[offset:end] {
		out = append(out, e.rec)
	}
	return out, total, nil
}
