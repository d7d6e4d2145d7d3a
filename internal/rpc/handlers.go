package rpc

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/Klingon-tech/klingnet-ledger/internal/relay"
	"github.com/Klingon-tech/klingnet-ledger/internal/state"
	"github.com/Klingon-tech/klingnet-ledger/internal/token"
)

// Token metadata validation patterns. The engine stores whatever it is
// given; the gateway is where deployment rules are enforced.
var (
	tokenNamePattern   = regexp.MustCompile(`^[a-zA-Z0-9 \-]{1,64}$`)
	tokenSymbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)
)

// maxCommitRetries bounds how many times an operation is replayed after
// losing a commit race.
const maxCommitRetries = 3

// withCommitRetry runs fn, replaying it while it fails with a commit
// conflict. Each replay starts a fresh transaction, so a lost race
// surfaces whatever error the new state produces.
func withCommitRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxCommitRetries; attempt++ {
		err = fn()
		if !errors.Is(err, state.ErrConflict) {
			return err
		}
	}
	return err
}

// engineError maps a token engine failure onto a JSON-RPC error.
// Rejections are logged at debug level; the client sees the sentinel text.
func (s *Server) engineError(op string, err error) *Error {
	s.logger.Debug().Str("op", op).Err(err).Msg("request rejected")

	switch {
	case errors.Is(err, token.ErrNotInitialized):
		return &Error{Code: CodeNotInitialized, Message: err.Error()}
	case errors.Is(err, token.ErrAlreadyInitialized):
		return &Error{Code: CodeAlreadyInitialized, Message: err.Error()}
	case errors.Is(err, token.ErrUnauthorized):
		return &Error{Code: CodeUnauthorized, Message: err.Error()}
	case errors.Is(err, token.ErrInvalidAmount):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	case errors.Is(err, token.ErrAccountNotFound),
		errors.Is(err, token.ErrSourceAccountNotFound),
		errors.Is(err, token.ErrSupplyNotFound),
		errors.Is(err, token.ErrNoHistory):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, token.ErrDestinationNotSignedUp),
		errors.Is(err, token.ErrSelfTransfer),
		errors.Is(err, token.ErrInsufficientFunds),
		errors.Is(err, token.ErrArithmeticOverflow),
		errors.Is(err, token.ErrArithmeticUnderflow):
		return &Error{Code: CodeRejected, Message: err.Error()}
	case errors.Is(err, state.ErrConflict):
		return &Error{Code: CodeConflict, Message: err.Error()}
	default:
		return &Error{Code: CodeInternalError, Message: err.Error()}
	}
}

// ── Token endpoints ─────────────────────────────────────────────────────

func (s *Server) handleTokenInitialize(req *Request) (interface{}, *Error) {
	var params InitializeParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Name == "" || params.Symbol == "" || params.Decimals == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "name, symbol, and decimals are required"}
	}
	if !tokenNamePattern.MatchString(params.Name) {
		return nil, &Error{Code: CodeInvalidParams, Message: "name must be 1-64 letters, digits, spaces, or hyphens"}
	}
	if !tokenSymbolPattern.MatchString(params.Symbol) {
		return nil, &Error{Code: CodeInvalidParams, Message: "symbol must be 2-10 uppercase letters or digits"}
	}
	if _, convErr := strconv.Atoi(params.Decimals); convErr != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "decimals must be an integer"}
	}

	id, rpcErr := s.resolveIdentity(params.Wallet, params.Password, params.AccountIndex)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := withCommitRetry(func() error {
		return s.engine.Initialize(id, params.Name, params.Symbol, params.Decimals)
	}); err != nil {
		return nil, s.engineError("token_initialize", err)
	}

	return &TokenInfoResult{
		Name:     params.Name,
		Symbol:   params.Symbol,
		Decimals: params.Decimals,
	}, nil
}

func (s *Server) handleTokenMint(req *Request) (interface{}, *Error) {
	var params AmountParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	id, rpcErr := s.resolveIdentity(params.Wallet, params.Password, params.AccountIndex)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := withCommitRetry(func() error {
		return s.engine.Mint(id, params.Amount)
	}); err != nil {
		return nil, s.engineError("token_mint", err)
	}

	supply, err := s.engine.TotalSupply()
	if err != nil {
		return nil, s.engineError("token_mint", err)
	}

	return &SupplyChangeResult{
		Minter:      id.Account,
		Amount:      params.Amount,
		TotalSupply: supply,
	}, nil
}

func (s *Server) handleTokenBurn(req *Request) (interface{}, *Error) {
	var params AmountParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	id, rpcErr := s.resolveIdentity(params.Wallet, params.Password, params.AccountIndex)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := withCommitRetry(func() error {
		return s.engine.Burn(id, params.Amount)
	}); err != nil {
		return nil, s.engineError("token_burn", err)
	}

	supply, err := s.engine.TotalSupply()
	if err != nil {
		return nil, s.engineError("token_burn", err)
	}

	return &SupplyChangeResult{
		Minter:      id.Account,
		Amount:      params.Amount,
		TotalSupply: supply,
	}, nil
}

func (s *Server) handleTokenTransfer(req *Request) (interface{}, *Error) {
	var params TransferParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.To == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "to is required"}
	}
	if _, addrErr := decodeAddress(params.To); addrErr != nil {
		return nil, addrErr
	}

	id, rpcErr := s.resolveIdentity(params.Wallet, params.Password, params.AccountIndex)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := withCommitRetry(func() error {
		return s.engine.Transfer(id, params.To, params.Value)
	}); err != nil {
		return nil, s.engineError("token_transfer", err)
	}

	balance, err := s.engine.BalanceOf(id.Account)
	if err != nil {
		return nil, s.engineError("token_transfer", err)
	}

	return &TransferResult{
		From:    id.Account,
		To:      params.To,
		Value:   params.Value,
		Balance: balance,
	}, nil
}

func (s *Server) handleTokenTransferFrom(req *Request) (interface{}, *Error) {
	var params TransferFromParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.From == "" || params.To == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "from and to are required"}
	}
	if _, addrErr := decodeAddress(params.From); addrErr != nil {
		return nil, addrErr
	}
	if _, addrErr := decodeAddress(params.To); addrErr != nil {
		return nil, addrErr
	}

	id, rpcErr := s.resolveIdentity(params.Wallet, params.Password, params.AccountIndex)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := withCommitRetry(func() error {
		return s.engine.TransferFrom(id, params.From, params.To, params.Value)
	}); err != nil {
		return nil, s.engineError("token_transferFrom", err)
	}

	balance, err := s.engine.BalanceOf(params.From)
	if err != nil {
		return nil, s.engineError("token_transferFrom", err)
	}

	return &TransferResult{
		From:    params.From,
		To:      params.To,
		Value:   params.Value,
		Balance: balance,
	}, nil
}

func (s *Server) handleTokenSignup(req *Request) (interface{}, *Error) {
	var params SignupParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Account == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "account is required"}
	}
	if _, addrErr := decodeAddress(params.Account); addrErr != nil {
		return nil, addrErr
	}

	id, rpcErr := s.resolveIdentity(params.Wallet, params.Password, params.AccountIndex)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := withCommitRetry(func() error {
		return s.engine.Signup(id, params.Account)
	}); err != nil {
		return nil, s.engineError("token_signup", err)
	}

	balance, err := s.engine.BalanceOf(params.Account)
	if err != nil {
		return nil, s.engineError("token_signup", err)
	}

	return &SignupResult{
		Account: params.Account,
		Balance: balance,
	}, nil
}

func (s *Server) handleTokenBalance(req *Request) (interface{}, *Error) {
	var params AccountParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Account == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "account is required"}
	}
	if _, addrErr := decodeAddress(params.Account); addrErr != nil {
		return nil, addrErr
	}

	balance, err := s.engine.BalanceOf(params.Account)
	if err != nil {
		return nil, s.engineError("token_balance", err)
	}

	return &BalanceResult{
		Account: params.Account,
		Balance: balance,
	}, nil
}

func (s *Server) handleTokenMyBalance(req *Request) (interface{}, *Error) {
	var params AuthParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	id, rpcErr := s.resolveIdentity(params.Wallet, params.Password, params.AccountIndex)
	if rpcErr != nil {
		return nil, rpcErr
	}

	balance, err := s.engine.ClientAccountBalance(id)
	if err != nil {
		return nil, s.engineError("token_myBalance", err)
	}

	return &BalanceResult{
		Account: id.Account,
		Balance: balance,
	}, nil
}

func (s *Server) handleTokenMyAccount(req *Request) (interface{}, *Error) {
	var params AuthParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	id, rpcErr := s.resolveIdentity(params.Wallet, params.Password, params.AccountIndex)
	if rpcErr != nil {
		return nil, rpcErr
	}

	account, err := s.engine.ClientAccountID(id)
	if err != nil {
		return nil, s.engineError("token_myAccount", err)
	}

	return &AccountResult{
		Account: account,
		Org:     id.Org,
	}, nil
}

func (s *Server) handleTokenName(_ *Request) (interface{}, *Error) {
	name, err := s.engine.TokenName()
	if err != nil {
		return nil, s.engineError("token_name", err)
	}
	return &NameResult{Name: name}, nil
}

func (s *Server) handleTokenSymbol(_ *Request) (interface{}, *Error) {
	symbol, err := s.engine.Symbol()
	if err != nil {
		return nil, s.engineError("token_symbol", err)
	}
	return &SymbolResult{Symbol: symbol}, nil
}

func (s *Server) handleTokenDecimals(_ *Request) (interface{}, *Error) {
	decimals, err := s.engine.Decimals()
	if err != nil {
		return nil, s.engineError("token_decimals", err)
	}
	return &DecimalsResult{Decimals: decimals}, nil
}

func (s *Server) handleTokenTotalSupply(_ *Request) (interface{}, *Error) {
	supply, err := s.engine.TotalSupply()
	if err != nil {
		return nil, s.engineError("token_totalSupply", err)
	}
	return &TotalSupplyResult{TotalSupply: supply}, nil
}

func (s *Server) handleTokenHistory(req *Request) (interface{}, *Error) {
	var params AccountParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Account == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "account is required"}
	}
	if _, addrErr := decodeAddress(params.Account); addrErr != nil {
		return nil, addrErr
	}

	records, err := s.engine.TransactionHistory(params.Account)
	if err != nil {
		return nil, s.engineError("token_history", err)
	}

	return &HistoryResult{
		Account: params.Account,
		Total:   len(records),
		Records: records,
	}, nil
}

// ── Ledger endpoints ────────────────────────────────────────────────────

func (s *Server) handleLedgerStatus(_ *Request) (interface{}, *Error) {
	result := &StatusResult{
		Network:     s.policy.NetworkID,
		NetworkName: s.policy.NetworkName,
		AdminOrg:    s.policy.AdminOrganization,
	}
	if s.relayNode != nil {
		result.Peers = s.relayNode.PeerCount()
	}

	name, err := s.engine.TokenName()
	if errors.Is(err, token.ErrNotInitialized) {
		return result, nil
	}
	if err != nil {
		return nil, s.engineError("ledger_status", err)
	}
	result.Initialized = true
	result.Name = name

	if result.Symbol, err = s.engine.Symbol(); err != nil {
		return nil, s.engineError("ledger_status", err)
	}
	if result.Decimals, err = s.engine.Decimals(); err != nil {
		return nil, s.engineError("ledger_status", err)
	}

	// A zero supply and a never-minted supply read the same here.
	supply, err := s.engine.TotalSupply()
	if err != nil && !errors.Is(err, token.ErrSupplyNotFound) {
		return nil, s.engineError("ledger_status", err)
	}
	result.TotalSupply = supply

	return result, nil
}

func (s *Server) handleLedgerDigest(_ *Request) (interface{}, *Error) {
	digest, err := s.ledger.Digest()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("compute digest: %v", err)}
	}
	return &DigestResult{Digest: digest.String()}, nil
}

// ── Network endpoints ───────────────────────────────────────────────────

func (s *Server) handleNetGetPeerInfo(_ *Request) (interface{}, *Error) {
	if s.relayNode == nil {
		return &PeerInfoResult{Count: 0, Peers: []PeerInfo{}}, nil
	}

	peers := s.relayNode.PeerList()
	infos := make([]PeerInfo, len(peers))
	for i, p := range peers {
		infos[i] = PeerInfo{
			ID:          p.ID.String(),
			ConnectedAt: p.ConnectedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Source:      p.Source,
		}
	}

	return &PeerInfoResult{
		Count: len(infos),
		Peers: infos,
	}, nil
}

func (s *Server) handleNetGetNodeInfo(_ *Request) (interface{}, *Error) {
	if s.relayNode == nil {
		return &NodeInfoResult{ID: "", Addrs: []string{}}, nil
	}

	return &NodeInfoResult{
		ID:       s.relayNode.ID().String(),
		Addrs:    s.relayNode.Addrs(),
		Identity: s.relayNode.Identity().String(),
	}, nil
}

func (s *Server) handleNetGetBanList(_ *Request) (interface{}, *Error) {
	if s.relayNode == nil || s.relayNode.BanManager == nil {
		return &BanListResult{Count: 0, Bans: []BanEntry{}}, nil
	}

	records := s.relayNode.BanManager.BanList()
	entries := make([]BanEntry, len(records))
	for i, r := range records {
		entries[i] = BanEntry{
			ID:        r.ID,
			Reason:    r.Reason,
			Score:     r.Score,
			BannedAt:  r.BannedAt,
			ExpiresAt: r.ExpiresAt,
		}
	}

	return &BanListResult{
		Count: len(entries),
		Bans:  entries,
	}, nil
}

// ── Relay endpoints ─────────────────────────────────────────────────────

func (s *Server) handleRelayEvents(req *Request) (interface{}, *Error) {
	var params EventQueryParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	// No address check: the null account "0x0" is a valid query target
	// (it appears on every mint and burn event).
	if params.Account == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "account is required"}
	}

	if s.relayNode == nil || s.relayNode.Index() == nil {
		return &EventsResult{Account: params.Account, Total: 0, Events: []relay.EventRecord{}}, nil
	}

	events, total, err := s.relayNode.Index().Query(params.Account, params.Offset, params.Limit)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("query events: %v", err)}
	}
	if events == nil {
		events = []relay.EventRecord{}
	}

	return &EventsResult{
		Account: params.Account,
		Total:   total,
		Events:  events,
	}, nil
}
