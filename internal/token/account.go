package token

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Klingon-tech/klingnet-ledger/internal/state"
	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
)

// readBalance returns an account's balance and whether a balance record
// exists. A missing record is not an error here; callers decide what
// absence means for their operation.
func readBalance(txn *state.Txn, account string) (int64, bool, error) {
	key, err := state.Key(state.KindBalance, account)
	if err != nil {
		return 0, false, err
	}
	data, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read balance of %s: %w", account, err)
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt balance record for %s: %w", account, err)
	}
	return v, true, nil
}

// writeBalance stores an account's balance as a decimal string.
func writeBalance(txn *state.Txn, account string, value int64) error {
	key, err := state.Key(state.KindBalance, account)
	if err != nil {
		return err
	}
	return txn.Put(key, []byte(strconv.FormatInt(value, 10)))
}

// Signup registers an account so it can receive transfers. Signing up an
// account that already has a balance rewrites the balance to its current
// value and is otherwise a no-op; a new account starts at zero.
func (e *Engine) Signup(id Identity, account string) error {
	txn := e.ledger.Begin()
	defer txn.Discard()

	if err := e.requireInitialized(txn); err != nil {
		return err
	}

	balance, exists, err := readBalance(txn, account)
	if err != nil {
		return err
	}
	if !exists {
		balance = 0
	}
	if err := writeBalance(txn, account, balance); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}

	e.log.Info().
		Str("account", account).
		Bool("existing", exists).
		Msg("account signed up")
	return nil
}

// BalanceOf returns the balance of the given account, failing with
// ErrAccountNotFound when it has no balance record.
func (e *Engine) BalanceOf(owner string) (int64, error) {
	txn := e.ledger.Begin()
	defer txn.Discard()

	if err := e.requireInitialized(txn); err != nil {
		return 0, err
	}

	balance, exists, err := readBalance(txn, owner)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("account %s: %w", owner, ErrAccountNotFound)
	}
	return balance, nil
}

// ClientAccountBalance returns the caller's own balance.
func (e *Engine) ClientAccountBalance(id Identity) (int64, error) {
	return e.BalanceOf(id.Account)
}
