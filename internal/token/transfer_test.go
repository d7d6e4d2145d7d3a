package token

import (
	"errors"
	"testing"
)

// fund mints into the admin account and moves the amount on to the
// given account, which must already be signed up.
func fund(t *testing.T, e *Engine, account string, amount int64) {
	t.Helper()
	if err := e.Mint(admin, amount); err != nil {
		t.Fatalf("Mint(%d): %v", amount, err)
	}
	if err := e.TransferFrom(admin, admin.Account, account, amount); err != nil {
		t.Fatalf("TransferFrom(%s, %d): %v", account, amount, err)
	}
}

func mustBalance(t *testing.T, e *Engine, account string) int64 {
	t.Helper()
	v, err := e.BalanceOf(account)
	if err != nil {
		t.Fatalf("BalanceOf(%s): %v", account, err)
	}
	return v
}

func TestTransfer(t *testing.T) {
	e, _ := initialized(t)
	mustSignup(t, e, alice.Account, bob.Account)
	fund(t, e, alice.Account, 100)

	if err := e.Transfer(alice, bob.Account, 30); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if got := mustBalance(t, e, alice.Account); got != 70 {
		t.Errorf("alice balance = %d, want 70", got)
	}
	if got := mustBalance(t, e, bob.Account); got != 30 {
		t.Errorf("bob balance = %d, want 30", got)
	}
	supply, err := e.TotalSupply()
	if err != nil {
		t.Fatalf("TotalSupply: %v", err)
	}
	if supply != 100 {
		t.Errorf("supply = %d, want 100", supply)
	}
}

func TestTransfer_ZeroValue(t *testing.T) {
	e, _ := initialized(t)
	mustSignup(t, e, alice.Account, bob.Account)
	fund(t, e, alice.Account, 50)

	if err := e.Transfer(alice, bob.Account, 0); err != nil {
		t.Fatalf("Transfer of zero: %v", err)
	}

	if got := mustBalance(t, e, alice.Account); got != 50 {
		t.Errorf("alice balance = %d, want 50", got)
	}
	if got := mustBalance(t, e, bob.Account); got != 0 {
		t.Errorf("bob balance = %d, want 0", got)
	}

	// A zero-value transfer is still recorded.
	records, err := e.TransactionHistory(bob.Account)
	if err != nil {
		t.Fatalf("TransactionHistory: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("bob has %d records, want 1", len(records))
	}
	if records[0].Value != "0" {
		t.Errorf("record value = %q, want %q", records[0].Value, "0")
	}
}

func TestTransfer_NegativeValue(t *testing.T) {
	e, _ := initialized(t)
	mustSignup(t, e, alice.Account, bob.Account)
	fund(t, e, alice.Account, 50)

	err := e.Transfer(alice, bob.Account, -5)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("Transfer = %v, want ErrInvalidAmount", err)
	}

	if got := mustBalance(t, e, alice.Account); got != 50 {
		t.Errorf("alice balance = %d, want 50", got)
	}
	if got := mustBalance(t, e, bob.Account); got != 0 {
		t.Errorf("bob balance = %d, want 0", got)
	}
	if _, err := e.TransactionHistory(bob.Account); !errors.Is(err, ErrNoHistory) {
		t.Errorf("TransactionHistory = %v, want ErrNoHistory", err)
	}
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	e, _ := initialized(t)
	mustSignup(t, e, alice.Account, bob.Account)
	fund(t, e, alice.Account, 10)

	err := e.Transfer(alice, bob.Account, 11)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Transfer = %v, want ErrInsufficientFunds", err)
	}
	if got := mustBalance(t, e, alice.Account); got != 10 {
		t.Errorf("alice balance = %d, want 10", got)
	}
}

func TestTransfer_SourceNotSignedUp(t *testing.T) {
	e, _ := initialized(t)
	mustSignup(t, e, bob.Account)

	err := e.Transfer(alice, bob.Account, 5)
	if !errors.Is(err, ErrSourceAccountNotFound) {
		t.Fatalf("Transfer = %v, want ErrSourceAccountNotFound", err)
	}
}

func TestTransfer_DestinationNotSignedUp(t *testing.T) {
	e, _ := initialized(t)
	mustSignup(t, e, alice.Account)
	fund(t, e, alice.Account, 50)

	err := e.Transfer(alice, bob.Account, 5)
	if !errors.Is(err, ErrDestinationNotSignedUp) {
		t.Fatalf("Transfer = %v, want ErrDestinationNotSignedUp", err)
	}

	// The destination is never created on the transfer path.
	if _, err := e.BalanceOf(bob.Account); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("BalanceOf(bob) = %v, want ErrAccountNotFound", err)
	}
	if got := mustBalance(t, e, alice.Account); got != 50 {
		t.Errorf("alice balance = %d, want 50", got)
	}
}

// The single-party variant carries no self check. Debit and credit
// then target the same record, and the credit write lands last.
func TestTransfer_ToSelf(t *testing.T) {
	e, _ := initialized(t)
	mustSignup(t, e, alice.Account)
	fund(t, e, alice.Account, 100)

	if err := e.Transfer(alice, alice.Account, 40); err != nil {
		t.Fatalf("Transfer to self: %v", err)
	}
	if got := mustBalance(t, e, alice.Account); got != 140 {
		t.Errorf("alice balance = %d, want 140", got)
	}
}

func TestTransferFrom(t *testing.T) {
	e, _ := initialized(t)
	mustSignup(t, e, alice.Account, bob.Account)
	if err := e.Mint(admin, 500); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if err := e.TransferFrom(admin, admin.Account, alice.Account, 200); err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}

	if got := mustBalance(t, e, admin.Account); got != 300 {
		t.Errorf("admin balance = %d, want 300", got)
	}
	if got := mustBalance(t, e, alice.Account); got != 200 {
		t.Errorf("alice balance = %d, want 200", got)
	}
}

// The engine does not restrict who may invoke the two-party variant.
// Gating callers belongs to the invocation layer in front of it.
func TestTransferFrom_CallerUnrestricted(t *testing.T) {
	e, _ := initialized(t)
	mustSignup(t, e, alice.Account, bob.Account)
	fund(t, e, alice.Account, 100)

	if err := e.TransferFrom(bob, alice.Account, bob.Account, 60); err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if got := mustBalance(t, e, alice.Account); got != 40 {
		t.Errorf("alice balance = %d, want 40", got)
	}
	if got := mustBalance(t, e, bob.Account); got != 60 {
		t.Errorf("bob balance = %d, want 60", got)
	}
}

func TestTransferFrom_ToSelf(t *testing.T) {
	e, _ := initialized(t)

	// Rejected before any account lookup, so no signup is needed.
	err := e.TransferFrom(admin, alice.Account, alice.Account, 10)
	if !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("TransferFrom = %v, want ErrSelfTransfer", err)
	}
}

func TestTransferFrom_NegativeValue(t *testing.T) {
	e, _ := initialized(t)

	// The amount is validated ahead of the account lookups.
	err := e.TransferFrom(admin, alice.Account, bob.Account, -1)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("TransferFrom = %v, want ErrInvalidAmount", err)
	}
}

// Total supply equals the sum of all balances after every operation,
// including burns that push the minter past zero.
func TestConservation(t *testing.T) {
	e, _ := initialized(t)
	mustSignup(t, e, alice.Account, bob.Account)

	check := func(step string) {
		t.Helper()
		supply, err := e.TotalSupply()
		if err != nil {
			t.Fatalf("%s: TotalSupply: %v", step, err)
		}
		sum := mustBalance(t, e, admin.Account) +
			mustBalance(t, e, alice.Account) +
			mustBalance(t, e, bob.Account)
		if sum != supply {
			t.Fatalf("%s: balances sum to %d, supply is %d", step, sum, supply)
		}
	}

	steps := []struct {
		name string
		op   func() error
	}{
		{"mint 1000", func() error { return e.Mint(admin, 1000) }},
		{"admin to alice 400", func() error { return e.TransferFrom(admin, admin.Account, alice.Account, 400) }},
		{"alice to bob 150", func() error { return e.Transfer(alice, bob.Account, 150) }},
		{"mint 250", func() error { return e.Mint(admin, 250) }},
		{"burn 300", func() error { return e.Burn(admin, 300) }},
		{"bob to alice 150", func() error { return e.TransferFrom(alice, bob.Account, alice.Account, 150) }},
		{"burn 800 past zero", func() error { return e.Burn(admin, 800) }},
	}
	for _, s := range steps {
		if err := s.op(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		check(s.name)
	}

	supply, err := e.TotalSupply()
	if err != nil {
		t.Fatalf("TotalSupply: %v", err)
	}
	if supply != 150 {
		t.Errorf("final supply = %d, want 150", supply)
	}
	if got := mustBalance(t, e, admin.Account); got != -250 {
		t.Errorf("admin balance = %d, want -250", got)
	}
}
