package rpc

import (
	"github.com/Klingon-tech/klingnet-ledger/internal/relay"
	"github.com/Klingon-tech/klingnet-ledger/internal/token"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// Server error range: ledger-specific failures.
	CodeNotFound           = -32000
	CodeUnauthorized       = -32001
	CodeNotInitialized     = -32002
	CodeAlreadyInitialized = -32003
	CodeRejected           = -32004
	CodeConflict           = -32005
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// AuthParam carries custodial wallet credentials. The request acts as the
// wallet's derived account at account_index (0 when omitted). Used by
// token_myBalance and token_myAccount.
type AuthParam struct {
	Wallet       string `json:"wallet"`
	Password     string `json:"password"`
	AccountIndex uint32 `json:"account_index,omitempty"`
}

// InitializeParam is used by token_initialize.
type InitializeParam struct {
	Wallet       string `json:"wallet"`
	Password     string `json:"password"`
	AccountIndex uint32 `json:"account_index,omitempty"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Decimals     string `json:"decimals"`
}

// AmountParam is used by token_mint and token_burn.
type AmountParam struct {
	Wallet       string `json:"wallet"`
	Password     string `json:"password"`
	AccountIndex uint32 `json:"account_index,omitempty"`
	Amount       int64  `json:"amount"`
}

// TransferParam is used by token_transfer.
type TransferParam struct {
	Wallet       string `json:"wallet"`
	Password     string `json:"password"`
	AccountIndex uint32 `json:"account_index,omitempty"`
	To           string `json:"to"`
	Value        int64  `json:"value"`
}

// TransferFromParam is used by token_transferFrom.
type TransferFromParam struct {
	Wallet       string `json:"wallet"`
	Password     string `json:"password"`
	AccountIndex uint32 `json:"account_index,omitempty"`
	From         string `json:"from"`
	To           string `json:"to"`
	Value        int64  `json:"value"`
}

// SignupParam is used by token_signup.
type SignupParam struct {
	Wallet       string `json:"wallet"`
	Password     string `json:"password"`
	AccountIndex uint32 `json:"account_index,omitempty"`
	Account      string `json:"account"`
}

// AccountParam is used by endpoints that take a single account.
type AccountParam struct {
	Account string `json:"account"`
}

// EventQueryParam is used by relay_events.
type EventQueryParam struct {
	Account string `json:"account"`
	Offset  int    `json:"offset,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// WalletCreateParam is used by wallet_create.
type WalletCreateParam struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// WalletImportParam is used by wallet_import.
type WalletImportParam struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Mnemonic string `json:"mnemonic"`
}

// WalletUnlockParam is used by wallet_listAccounts and wallet_newAccount.
type WalletUnlockParam struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// ── Token result types ──────────────────────────────────────────────────

// TokenInfoResult is returned by token_initialize.
type TokenInfoResult struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
}

// SupplyChangeResult is returned by token_mint and token_burn.
type SupplyChangeResult struct {
	Minter      string `json:"minter"`
	Amount      int64  `json:"amount"`
	TotalSupply int64  `json:"total_supply"`
}

// TransferResult is returned by token_transfer and token_transferFrom.
// Balance is the source account's balance after the transfer.
type TransferResult struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Value   int64  `json:"value"`
	Balance int64  `json:"balance"`
}

// SignupResult is returned by token_signup.
type SignupResult struct {
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

// BalanceResult is returned by token_balance and token_myBalance.
type BalanceResult struct {
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

// AccountResult is returned by token_myAccount.
type AccountResult struct {
	Account string `json:"account"`
	Org     string `json:"org"`
}

// NameResult is returned by token_name.
type NameResult struct {
	Name string `json:"name"`
}

// SymbolResult is returned by token_symbol.
type SymbolResult struct {
	Symbol string `json:"symbol"`
}

// DecimalsResult is returned by token_decimals.
type DecimalsResult struct {
	Decimals string `json:"decimals"`
}

// TotalSupplyResult is returned by token_totalSupply.
type TotalSupplyResult struct {
	TotalSupply int64 `json:"total_supply"`
}

// HistoryResult is returned by token_history. Records are oldest first,
// matching the order the ledger stores them in.
type HistoryResult struct {
	Account string         `json:"account"`
	Total   int            `json:"total"`
	Records []token.Record `json:"records"`
}

// ── Ledger result types ─────────────────────────────────────────────────

// StatusResult is returned by ledger_status.
type StatusResult struct {
	Network     string `json:"network"`
	NetworkName string `json:"network_name"`
	AdminOrg    string `json:"admin_org"`
	Initialized bool   `json:"initialized"`
	Name        string `json:"name,omitempty"`
	Symbol      string `json:"symbol,omitempty"`
	Decimals    string `json:"decimals,omitempty"`
	TotalSupply int64  `json:"total_supply"`
	Peers       int    `json:"peers"`
}

// DigestResult is returned by ledger_digest.
type DigestResult struct {
	Digest string `json:"digest"`
}

// ── Network result types ────────────────────────────────────────────────

// PeerInfo describes a connected peer.
type PeerInfo struct {
	ID          string `json:"id"`
	ConnectedAt string `json:"connected_at"`
	Source      string `json:"source"`
}

// PeerInfoResult is returned by net_getPeerInfo.
type PeerInfoResult struct {
	Count int        `json:"count"`
	Peers []PeerInfo `json:"peers"`
}

// NodeInfoResult is returned by net_getNodeInfo. Identity is the account
// the relay signs published envelopes as.
type NodeInfoResult struct {
	ID       string   `json:"id"`
	Addrs    []string `json:"addrs"`
	Identity string   `json:"identity"`
}

// BanEntry describes a single banned peer.
type BanEntry struct {
	ID        string `json:"id"`
	Reason    string `json:"reason"`
	Score     int    `json:"score"`
	BannedAt  int64  `json:"banned_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// BanListResult is returned by net_getBanList.
type BanListResult struct {
	Count int        `json:"count"`
	Bans  []BanEntry `json:"bans"`
}

// EventsResult is returned by relay_events. Events are newest first.
type EventsResult struct {
	Account string              `json:"account"`
	Total   int                 `json:"total"`
	Events  []relay.EventRecord `json:"events"`
}

// ── Wallet result types ─────────────────────────────────────────────────

// WalletCreateResult is returned by wallet_create.
type WalletCreateResult struct {
	Mnemonic string `json:"mnemonic"`
	Address  string `json:"address"`
}

// WalletImportResult is returned by wallet_import.
type WalletImportResult struct {
	Address string `json:"address"`
}

// WalletListResult is returned by wallet_list.
type WalletListResult struct {
	Wallets []string `json:"wallets"`
}

// WalletAccountEntry describes a wallet account in RPC results.
type WalletAccountEntry struct {
	Index   uint32 `json:"index"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// WalletAccountListResult is returned by wallet_listAccounts.
type WalletAccountListResult struct {
	Accounts []WalletAccountEntry `json:"accounts"`
}

// WalletAccountResult is returned by wallet_newAccount.
type WalletAccountResult struct {
	Index   uint32 `json:"index"`
	Address string `json:"address"`
}
