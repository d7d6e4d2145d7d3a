package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Klingon-tech/klingnet-ledger/internal/state"
	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
)

// AdminAccount is the sender recorded for single-party transfers, which
// are logged only under the destination.
const AdminAccount = "admin"

// Record is one entry in an account's transaction history. The whole
// per-account sequence is stored as a single JSON array and rewritten on
// every append, so insertion order is chronological order.
type Record struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
	Time  string `json:"time"`
}

// appendRecord appends a record to the given account's history sequence.
func appendRecord(txn *state.Txn, account string, rec Record) error {
	key, err := state.Key(state.KindHistory, account)
	if err != nil {
		return err
	}

	var records []Record
	data, err := txn.Get(key)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			return fmt.Errorf("read history of %s: %w", account, err)
		}
	} else if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("corrupt history record for %s: %w", account, err)
	}

	records = append(records, rec)
	out, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal history of %s: %w", account, err)
	}
	return txn.Put(key, out)
}

// newRecord builds a history record stamped with the transaction time.
func newRecord(txn *state.Txn, from, to string, value int64) Record {
	return Record{
		From:  from,
		To:    to,
		Value: strconv.FormatInt(value, 10),
		Time:  txn.Timestamp().Format(time.RFC3339),
	}
}

// recordForSource appends a record to the source account's history.
func recordForSource(txn *state.Txn, from, to string, value int64) error {
	return appendRecord(txn, from, newRecord(txn, from, to, value))
}

// recordForDestination appends a record to the destination account's history.
func recordForDestination(txn *state.Txn, from, to string, value int64) error {
	return appendRecord(txn, to, newRecord(txn, from, to, value))
}

// recordForAdmin appends a record to the destination account's history
// with AdminAccount as the sender. Single-party transfers use this as
// their only history write; the sender side is not recorded.
func recordForAdmin(txn *state.Txn, to string, value int64) error {
	return appendRecord(txn, to, newRecord(txn, AdminAccount, to, value))
}

// TransactionHistory returns the account's full history sequence in
// chronological order, failing with ErrNoHistory when none exists.
func (e *Engine) TransactionHistory(account string) ([]Record, error) {
	txn := e.ledger.Begin()
	defer txn.Discard()

	if err := e.requireInitialized(txn); err != nil {
		return nil, err
	}

	key, err := state.Key(state.KindHistory, account)
	if err != nil {
		return nil, err
	}
	data, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, fmt.Errorf("account %s: %w", account, ErrNoHistory)
		}
		return nil, fmt.Errorf("read history of %s: %w", account, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("corrupt history record for %s: %w", account, err)
	}
	return records, nil
}
