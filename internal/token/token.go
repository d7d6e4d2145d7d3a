// Package token implements the fungible-token engine.
//
// The engine is a deterministic state-transition machine over the ledger's
// key-value store: every operation opens a fresh transaction, reads the
// state it needs, validates, writes, and commits atomically. No balances
// or metadata are cached between invocations. Value is conserved: Transfer
// and TransferFrom move it, only Mint creates it and only Burn destroys
// it, and both of those are restricted to the administrator organization.
//
// Concurrency control belongs to the state layer. When a commit loses a
// first-committer-wins race the operation fails with state.ErrConflict
// and writes nothing; submission layers may retry with a fresh call.
package token

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/state"
	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
)

// Identity is the resolved caller of an operation: the account it acts
// as and the organization that account belongs to.
type Identity struct {
	Account string
	Org     string
}

// Authorizer decides which organizations may perform privileged
// operations (Initialize, Mint, Burn).
type Authorizer interface {
	// OrganizationOf returns the organization label for an account.
	OrganizationOf(account string) string
	// IsAdmin reports whether the organization is the administrator
	// organization.
	IsAdmin(org string) bool
}

// Metadata holds the token's descriptive fields. Its presence in the
// store is the initialization flag; it is written once and never changed.
type Metadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
}

// Engine executes token operations against the ledger.
type Engine struct {
	ledger *state.Ledger
	auth   Authorizer
	log    zerolog.Logger
}

// NewEngine creates a token engine over the given ledger.
func NewEngine(ledger *state.Ledger, auth Authorizer) *Engine {
	return &Engine{
		ledger: ledger,
		auth:   auth,
		log:    log.Token,
	}
}

// Initialize sets the token's name, symbol, and decimals. Only the
// administrator organization may call it, and only once: a second call
// fails with ErrAlreadyInitialized and leaves the first values in place.
func (e *Engine) Initialize(id Identity, name, symbol, decimals string) error {
	if !e.auth.IsAdmin(id.Org) {
		return fmt.Errorf("organization %q cannot initialize: %w", id.Org, ErrUnauthorized)
	}

	txn := e.ledger.Begin()
	defer txn.Discard()

	key, err := state.Key(state.KindMeta)
	if err != nil {
		return err
	}
	exists, err := txn.Has(key)
	if err != nil {
		return fmt.Errorf("check metadata: %w", err)
	}
	if exists {
		return ErrAlreadyInitialized
	}

	meta := &Metadata{Name: name, Symbol: symbol, Decimals: decimals}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := txn.Put(key, data); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}

	e.log.Info().
		Str("name", name).
		Str("symbol", symbol).
		Str("decimals", decimals).
		Msg("token initialized")
	return nil
}

// requireInitialized fails with ErrNotInitialized when the metadata
// record is absent. Every operation except Initialize calls this first.
func (e *Engine) requireInitialized(txn *state.Txn) error {
	key, err := state.Key(state.KindMeta)
	if err != nil {
		return err
	}
	exists, err := txn.Has(key)
	if err != nil {
		return fmt.Errorf("check metadata: %w", err)
	}
	if !exists {
		return ErrNotInitialized
	}
	return nil
}

// readMetadata returns the metadata record, or ErrNotInitialized when
// it is absent.
func (e *Engine) readMetadata(txn *state.Txn) (*Metadata, error) {
	key, err := state.Key(state.KindMeta)
	if err != nil {
		return nil, err
	}
	data, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("corrupt metadata record: %w", err)
	}
	return &meta, nil
}

// TokenName returns the token's name.
func (e *Engine) TokenName() (string, error) {
	txn := e.ledger.Begin()
	defer txn.Discard()

	meta, err := e.readMetadata(txn)
	if err != nil {
		return "", err
	}
	return meta.Name, nil
}

// Symbol returns the token's symbol.
func (e *Engine) Symbol() (string, error) {
	txn := e.ledger.Begin()
	defer txn.Discard()

	meta, err := e.readMetadata(txn)
	if err != nil {
		return "", err
	}
	return meta.Symbol, nil
}

// Decimals returns the token's decimals field as stored. It is display
// metadata only; amounts are always whole integers.
func (e *Engine) Decimals() (string, error) {
	txn := e.ledger.Begin()
	defer txn.Discard()

	meta, err := e.readMetadata(txn)
	if err != nil {
		return "", err
	}
	return meta.Decimals, nil
}

// ClientAccountID returns the caller's own account identifier.
func (e *Engine) ClientAccountID(id Identity) (string, error) {
	txn := e.ledger.Begin()
	defer txn.Discard()

	if err := e.requireInitialized(txn); err != nil {
		return "", err
	}
	return id.Account, nil
}
