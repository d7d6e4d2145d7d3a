package token

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-ledger/internal/state"
)

// Transfer moves value from the caller's account to another signed-up
// account. The destination is recorded in history with AdminAccount as
// the sender; the caller's own history is not written. A zero-value
// transfer succeeds and is recorded like any other.
func (e *Engine) Transfer(id Identity, to string, value int64) error {
	txn := e.ledger.Begin()
	defer txn.Discard()

	if err := e.requireInitialized(txn); err != nil {
		return err
	}
	if value < 0 {
		return fmt.Errorf("transfer of %d: %w", value, ErrInvalidAmount)
	}

	if err := move(txn, id.Account, to, value); err != nil {
		return err
	}
	if err := recordForAdmin(txn, to, value); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}

	e.log.Info().
		Str("from", id.Account).
		Str("to", to).
		Int64("value", value).
		Msg("transfer")
	return nil
}

// TransferFrom moves value between two accounts named explicitly. Both
// sides are recorded in history with the real sender and receiver.
// Moving value from an account to itself is rejected.
func (e *Engine) TransferFrom(id Identity, from, to string, value int64) error {
	txn := e.ledger.Begin()
	defer txn.Discard()

	if err := e.requireInitialized(txn); err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("account %s: %w", from, ErrSelfTransfer)
	}
	if value < 0 {
		return fmt.Errorf("transfer of %d: %w", value, ErrInvalidAmount)
	}

	if err := move(txn, from, to, value); err != nil {
		return err
	}
	if err := recordForSource(txn, from, to, value); err != nil {
		return err
	}
	if err := recordForDestination(txn, from, to, value); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}

	e.log.Info().
		Str("from", from).
		Str("to", to).
		Str("caller", id.Account).
		Int64("value", value).
		Msg("transfer from")
	return nil
}

// move debits the source and credits the destination inside the given
// transaction. The source must exist and cover the amount; the
// destination must already be signed up, it is never created here. Both
// balance writes land in the same transaction, so they commit or fail
// together.
func move(txn *state.Txn, from, to string, value int64) error {
	fromBalance, exists, err := readBalance(txn, from)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("account %s: %w", from, ErrSourceAccountNotFound)
	}
	if fromBalance < value {
		return fmt.Errorf("account %s has %d, needs %d: %w", from, fromBalance, value, ErrInsufficientFunds)
	}

	toBalance, exists, err := readBalance(txn, to)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("account %s: %w", to, ErrDestinationNotSignedUp)
	}

	newFrom, err := sub(fromBalance, value)
	if err != nil {
		return err
	}
	newTo, err := add(toBalance, value)
	if err != nil {
		return err
	}

	if err := writeBalance(txn, from, newFrom); err != nil {
		return err
	}
	return writeBalance(txn, to, newTo)
}
