package token

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Klingon-tech/klingnet-ledger/internal/state"
	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
)

// readSupply returns the total supply and whether a supply record
// exists. The record is created implicitly by the first Mint.
func readSupply(txn *state.Txn) (int64, bool, error) {
	key, err := state.Key(state.KindSupply)
	if err != nil {
		return 0, false, err
	}
	data, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read total supply: %w", err)
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt total supply record: %w", err)
	}
	return v, true, nil
}

// writeSupply stores the total supply as a decimal string.
func writeSupply(txn *state.Txn, value int64) error {
	key, err := state.Key(state.KindSupply)
	if err != nil {
		return err
	}
	return txn.Put(key, []byte(strconv.FormatInt(value, 10)))
}

// Mint creates new value in the caller's account and adds it to the
// total supply. Only the administrator organization may mint. Missing
// balance and supply records both default to zero here; this is the one
// path where an absent balance is not an error. Emits a Transfer event
// from NullAccount to the minter.
func (e *Engine) Mint(id Identity, amount int64) error {
	txn := e.ledger.Begin()
	defer txn.Discard()

	if err := e.requireInitialized(txn); err != nil {
		return err
	}
	if !e.auth.IsAdmin(id.Org) {
		return fmt.Errorf("organization %q cannot mint: %w", id.Org, ErrUnauthorized)
	}
	if amount <= 0 {
		return fmt.Errorf("mint of %d: %w", amount, ErrInvalidAmount)
	}

	balance, _, err := readBalance(txn, id.Account)
	if err != nil {
		return err
	}
	supply, _, err := readSupply(txn)
	if err != nil {
		return err
	}

	newBalance, err := add(balance, amount)
	if err != nil {
		return err
	}
	newSupply, err := add(supply, amount)
	if err != nil {
		return err
	}

	if err := writeBalance(txn, id.Account, newBalance); err != nil {
		return err
	}
	if err := writeSupply(txn, newSupply); err != nil {
		return err
	}
	if err := emitTransfer(txn, NullAccount, id.Account, amount); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}

	e.log.Info().
		Str("account", id.Account).
		Int64("amount", amount).
		Int64("supply", newSupply).
		Msg("minted")
	return nil
}

// Burn destroys value from the caller's account and removes it from the
// total supply. Only the administrator organization may burn. The caller
// must have a balance record and a supply record must exist; beyond
// that, only the subtraction identity protects the amounts. Emits a
// Transfer event from the caller to NullAccount.
func (e *Engine) Burn(id Identity, amount int64) error {
	txn := e.ledger.Begin()
	defer txn.Discard()

	if err := e.requireInitialized(txn); err != nil {
		return err
	}
	if !e.auth.IsAdmin(id.Org) {
		return fmt.Errorf("organization %q cannot burn: %w", id.Org, ErrUnauthorized)
	}

	balance, exists, err := readBalance(txn, id.Account)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("account %s: %w", id.Account, ErrAccountNotFound)
	}
	supply, exists, err := readSupply(txn)
	if err != nil {
		return err
	}
	if !exists {
		return ErrSupplyNotFound
	}

	newBalance, err := sub(balance, amount)
	if err != nil {
		return err
	}
	newSupply, err := sub(supply, amount)
	if err != nil {
		return err
	}

	if err := writeBalance(txn, id.Account, newBalance); err != nil {
		return err
	}
	if err := writeSupply(txn, newSupply); err != nil {
		return err
	}
	if err := emitTransfer(txn, id.Account, NullAccount, amount); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}

	e.log.Info().
		Str("account", id.Account).
		Int64("amount", amount).
		Int64("supply", newSupply).
		Msg("burned")
	return nil
}

// TotalSupply returns the current total supply, failing with
// ErrSupplyNotFound when nothing has ever been minted.
func (e *Engine) TotalSupply() (int64, error) {
	txn := e.ledger.Begin()
	defer txn.Discard()

	if err := e.requireInitialized(txn); err != nil {
		return 0, err
	}

	supply, exists, err := readSupply(txn)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrSupplyNotFound
	}
	return supply, nil
}
