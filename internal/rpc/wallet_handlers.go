package rpc

import (
	"fmt"
	"strings"

	"github.com/Klingon-tech/klingnet-ledger/internal/token"
	"github.com/Klingon-tech/klingnet-ledger/internal/wallet"
)

// requireWallet returns an error if the wallet keystore is not enabled.
func (s *Server) requireWallet() *Error {
	if s.keystore == nil {
		return &Error{Code: CodeInternalError, Message: "wallet not enabled (start node with --wallet)"}
	}
	return nil
}

// resolveIdentity authenticates custodial wallet credentials and resolves
// the identity a token operation acts as. The identity's account is the
// wallet's derived key at the given index; its organization comes from
// the network policy.
func (s *Server) resolveIdentity(name, password string, index uint32) (token.Identity, *Error) {
	if err := s.requireWallet(); err != nil {
		return token.Identity{}, err
	}
	if name == "" || password == "" {
		return token.Identity{}, &Error{Code: CodeInvalidParams, Message: "wallet and password are required"}
	}

	seed, loadErr := s.keystore.Load(name, []byte(password))
	if loadErr != nil {
		s.logger.Debug().Err(loadErr).Msg("wallet load failed")
		return token.Identity{}, &Error{Code: CodeInvalidParams, Message: "invalid wallet name or password"}
	}

	master, masterErr := wallet.NewMasterKey(seed)
	wallet.Zero(seed)
	if masterErr != nil {
		return token.Identity{}, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive master key: %v", masterErr)}
	}

	hdKey, derErr := master.DeriveAddress(0, wallet.ChangeExternal, index)
	if derErr != nil {
		return token.Identity{}, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive account key: %v", derErr)}
	}

	account := hdKey.Account()
	return token.Identity{
		Account: account,
		Org:     s.policy.OrganizationOf(account),
	}, nil
}

// ── Wallet endpoints ────────────────────────────────────────────────────

func (s *Server) handleWalletCreate(req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	var params WalletCreateParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Name == "" || params.Password == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "name and password are required"}
	}

	// Generate mnemonic.
	mnemonic, genErr := wallet.GenerateMnemonic()
	if genErr != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("generate mnemonic: %v", genErr)}
	}

	// Derive seed.
	seed, seedErr := wallet.SeedFromMnemonic(mnemonic, "")
	if seedErr != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive seed: %v", seedErr)}
	}

	// Derive account 0.
	master, masterErr := wallet.NewMasterKey(seed)
	if masterErr != nil {
		wallet.Zero(seed)
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive master key: %v", masterErr)}
	}

	hdKey, derErr := master.DeriveAddress(0, wallet.ChangeExternal, 0)
	if derErr != nil {
		wallet.Zero(seed)
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive account key: %v", derErr)}
	}
	account := hdKey.Account()

	// Create encrypted wallet.
	if err := s.keystore.Create(params.Name, seed, []byte(params.Password), wallet.DefaultParams()); err != nil {
		wallet.Zero(seed)
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("create wallet: %v", err)}
	}
	wallet.Zero(seed)

	// Store account 0 metadata.
	if err := s.keystore.AddAccount(params.Name, wallet.AccountEntry{
		Index:   0,
		Name:    "Default",
		Address: account,
	}); err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("add account: %v", err)}
	}

	return &WalletCreateResult{
		Mnemonic: mnemonic,
		Address:  account,
	}, nil
}

func (s *Server) handleWalletImport(req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	var params WalletImportParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	// Normalize mnemonic: trim whitespace and collapse internal spaces/newlines.
	params.Mnemonic = strings.Join(strings.Fields(params.Mnemonic), " ")

	if params.Name == "" || params.Password == "" || params.Mnemonic == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "name, password, and mnemonic are required"}
	}

	if !wallet.ValidateMnemonic(params.Mnemonic) {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid mnemonic"}
	}

	// Derive seed.
	seed, seedErr := wallet.SeedFromMnemonic(params.Mnemonic, "")
	if seedErr != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive seed: %v", seedErr)}
	}

	// Derive account 0.
	master, masterErr := wallet.NewMasterKey(seed)
	if masterErr != nil {
		wallet.Zero(seed)
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive master key: %v", masterErr)}
	}

	hdKey, derErr := master.DeriveAddress(0, wallet.ChangeExternal, 0)
	if derErr != nil {
		wallet.Zero(seed)
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive account key: %v", derErr)}
	}
	account := hdKey.Account()

	// Create encrypted wallet.
	if err := s.keystore.Create(params.Name, seed, []byte(params.Password), wallet.DefaultParams()); err != nil {
		wallet.Zero(seed)
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("create wallet: %v", err)}
	}
	wallet.Zero(seed)

	// Store account 0 metadata.
	if err := s.keystore.AddAccount(params.Name, wallet.AccountEntry{
		Index:   0,
		Name:    "Default",
		Address: account,
	}); err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("add account: %v", err)}
	}

	// Recover accounts that already hold balances (gap limit discovery).
	s.scanWalletAccounts(params.Name, master)

	return &WalletImportResult{
		Address: account,
	}, nil
}

// scanWalletAccounts discovers previously used accounts via BIP-44 gap
// limit scanning and registers them in the wallet's account list. A
// reimported wallet recovers every derived account known to the ledger.
func (s *Server) scanWalletAccounts(walletName string, master *wallet.HDKey) {
	const gapLimit = 20

	gap := 0
	highestUsed := -1

	for idx := uint32(0); gap < gapLimit; idx++ {
		hdKey, err := master.DeriveAddress(0, wallet.ChangeExternal, idx)
		if err != nil {
			break
		}
		account := hdKey.Account()

		// An account the ledger has no balance entry for was never used.
		if _, balErr := s.engine.BalanceOf(account); balErr != nil {
			gap++
			continue
		}

		gap = 0
		highestUsed = int(idx)

		// Index 0 is already registered by handleWalletImport.
		_ = s.keystore.AddAccount(walletName, wallet.AccountEntry{
			Index:   idx,
			Name:    fmt.Sprintf("Account %d", idx),
			Address: account,
		})
	}

	if highestUsed >= 0 {
		if err := s.keystore.SetNextIndex(walletName, uint32(highestUsed+1)); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to update derivation index")
		}
	}
}

func (s *Server) handleWalletList(_ *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	names, listErr := s.keystore.List()
	if listErr != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("list wallets: %v", listErr)}
	}

	if names == nil {
		names = []string{}
	}

	return &WalletListResult{Wallets: names}, nil
}

func (s *Server) handleWalletListAccounts(req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	var params WalletUnlockParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Name == "" || params.Password == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "name and password are required"}
	}

	// Verify password by attempting to load.
	seed, loadErr := s.keystore.Load(params.Name, []byte(params.Password))
	if loadErr != nil {
		s.logger.Debug().Err(loadErr).Msg("wallet load failed")
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid wallet name or password"}
	}
	wallet.Zero(seed)

	accounts, accErr := s.keystore.ListAccounts(params.Name)
	if accErr != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("list accounts: %v", accErr)}
	}

	entries := make([]WalletAccountEntry, len(accounts))
	for i, a := range accounts {
		entries[i] = WalletAccountEntry{
			Index:   a.Index,
			Name:    a.Name,
			Address: a.Address,
		}
	}

	return &WalletAccountListResult{Accounts: entries}, nil
}

func (s *Server) handleWalletNewAccount(req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	var params WalletUnlockParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Name == "" || params.Password == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "name and password are required"}
	}

	// Load seed.
	seed, loadErr := s.keystore.Load(params.Name, []byte(params.Password))
	if loadErr != nil {
		s.logger.Debug().Err(loadErr).Msg("wallet load failed")
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid wallet name or password"}
	}

	master, masterErr := wallet.NewMasterKey(seed)
	wallet.Zero(seed)
	if masterErr != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive master key: %v", masterErr)}
	}

	// Get the next unused index.
	nextIdx, idxErr := s.keystore.NextIndex(params.Name)
	if idxErr != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("get derivation index: %v", idxErr)}
	}
	// Index 0 is created with the wallet itself.
	if nextIdx == 0 {
		nextIdx = 1
	}

	hdKey, derErr := master.DeriveAddress(0, wallet.ChangeExternal, nextIdx)
	if derErr != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive account key: %v", derErr)}
	}
	account := hdKey.Account()

	// Store account metadata.
	if err := s.keystore.AddAccount(params.Name, wallet.AccountEntry{
		Index:   nextIdx,
		Name:    fmt.Sprintf("Account %d", nextIdx),
		Address: account,
	}); err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("add account: %v", err)}
	}

	// Advance past the index just used.
	if err := s.keystore.SetNextIndex(params.Name, nextIdx+1); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to update derivation index")
	}

	return &WalletAccountResult{
		Index:   nextIdx,
		Address: account,
	}, nil
}
