package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/Klingon-tech/klingnet-ledger/config"
	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/state"
	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
	"github.com/Klingon-tech/klingnet-ledger/internal/token"
	"github.com/Klingon-tech/klingnet-ledger/internal/wallet"
)

// testEnv holds all components for an RPC test.
type testEnv struct {
	server    *Server
	engine    *token.Engine
	ledger    *state.Ledger
	keystore  *wallet.Keystore
	policy    *config.Policy
	adminAcct string
	url       string
	db        storage.DB
}

// lightParams keeps argon2 cheap so tests stay fast.
func lightParams() wallet.EncryptionParams {
	return wallet.EncryptionParams{Memory: 64, Iterations: 1, Parallelism: 1}
}

// newTestWallet creates a wallet directly in the keystore and returns the
// account string of its key at index 0.
func newTestWallet(t *testing.T, ks *wallet.Keystore, name, password string) string {
	t.Helper()

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		t.Fatalf("generate mnemonic: %v", err)
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("derive seed: %v", err)
	}
	master, err := wallet.NewMasterKey(seed)
	if err != nil {
		t.Fatalf("derive master key: %v", err)
	}
	hdKey, err := master.DeriveAddress(0, wallet.ChangeExternal, 0)
	if err != nil {
		t.Fatalf("derive account key: %v", err)
	}
	if err := ks.Create(name, seed, []byte(password), lightParams()); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	wallet.Zero(seed)
	if err := ks.AddAccount(name, wallet.AccountEntry{Index: 0, Name: "Default", Address: hdKey.Account()}); err != nil {
		t.Fatalf("add account: %v", err)
	}
	return hdKey.Account()
}

func setupTestEnvWithConfig(t *testing.T, rpcCfg config.RPCConfig) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	db := storage.NewMemory()
	ledger := state.NewLedger(db)

	ks, err := wallet.NewKeystore(t.TempDir())
	if err != nil {
		t.Fatalf("create keystore: %v", err)
	}

	// The admin wallet's derived account is the network administrator.
	adminAcct := newTestWallet(t, ks, "admin", "admin-pass")

	policy := &config.Policy{
		NetworkID:          "klingnet-ledger-test-1",
		NetworkName:        "RPC Test",
		AdminOrganization:  config.DefaultAdminOrganization,
		MemberOrganization: config.DefaultMemberOrganization,
		Administrators:     []string{adminAcct},
	}

	engine := token.NewEngine(ledger, policy)

	srv := New("127.0.0.1:0", engine, ledger, policy, nil, rpcCfg)
	srv.SetKeystore(ks)
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		server:    srv,
		engine:    engine,
		ledger:    ledger,
		keystore:  ks,
		policy:    policy,
		adminAcct: adminAcct,
		url:       fmt.Sprintf("http://%s/", srv.Addr()),
		db:        db,
	}
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupTestEnvWithConfig(t, config.RPCConfig{})
}

func rpcCall(t *testing.T, url, method string, params interface{}) Response {
	t.Helper()
	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", method, err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rpcResp
}

// initToken initializes the ledger's token as the admin wallet.
func initToken(t *testing.T, env *testEnv) {
	t.Helper()
	resp := rpcCall(t, env.url, "token_initialize", InitializeParam{
		Wallet:   "admin",
		Password: "admin-pass",
		Name:     "Klingnet Token",
		Symbol:   "KGT",
		Decimals: "2",
	})
	if resp.Error != nil {
		t.Fatalf("token_initialize: %v", resp.Error.Message)
	}
}

// mintAs mints amount as the admin wallet.
func mintAs(t *testing.T, env *testEnv, amount int64) {
	t.Helper()
	resp := rpcCall(t, env.url, "token_mint", AmountParam{
		Wallet: "admin", Password: "admin-pass", Amount: amount,
	})
	if resp.Error != nil {
		t.Fatalf("token_mint: %v", resp.Error.Message)
	}
}

// signupAccount signs up an account as the admin wallet.
func signupAccount(t *testing.T, env *testEnv, account string) {
	t.Helper()
	resp := rpcCall(t, env.url, "token_signup", SignupParam{
		Wallet: "admin", Password: "admin-pass", Account: account,
	})
	if resp.Error != nil {
		t.Fatalf("token_signup: %v", resp.Error.Message)
	}
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestRPC_TokenInitialize(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "token_initialize", InitializeParam{
		Wallet:   "admin",
		Password: "admin-pass",
		Name:     "Klingnet Token",
		Symbol:   "KGT",
		Decimals: "2",
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	data, _ := json.Marshal(resp.Result)
	var result TokenInfoResult
	json.Unmarshal(data, &result)

	if result.Name != "Klingnet Token" {
		t.Errorf("name = %q, want %q", result.Name, "Klingnet Token")
	}
	if result.Symbol != "KGT" {
		t.Errorf("symbol = %q, want %q", result.Symbol, "KGT")
	}
	if result.Decimals != "2" {
		t.Errorf("decimals = %q, want %q", result.Decimals, "2")
	}

	nameResp := rpcCall(t, env.url, "token_name", nil)
	if nameResp.Error != nil {
		t.Fatalf("token_name: %v", nameResp.Error.Message)
	}
	data, _ = json.Marshal(nameResp.Result)
	var nameResult NameResult
	json.Unmarshal(data, &nameResult)
	if nameResult.Name != "Klingnet Token" {
		t.Errorf("token_name = %q, want %q", nameResult.Name, "Klingnet Token")
	}
}

func TestRPC_TokenInitialize_Twice(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)

	resp := rpcCall(t, env.url, "token_initialize", InitializeParam{
		Wallet:   "admin",
		Password: "admin-pass",
		Name:     "Second Token",
		Symbol:   "TWO",
		Decimals: "0",
	})
	if resp.Error == nil {
		t.Fatal("expected error for second initialize")
	}
	if resp.Error.Code != CodeAlreadyInitialized {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeAlreadyInitialized)
	}
}

func TestRPC_TokenInitialize_NotAdmin(t *testing.T) {
	env := setupTestEnv(t)
	newTestWallet(t, env.keystore, "member", "member-pass")

	resp := rpcCall(t, env.url, "token_initialize", InitializeParam{
		Wallet:   "member",
		Password: "member-pass",
		Name:     "Rogue Token",
		Symbol:   "BAD",
		Decimals: "0",
	})
	if resp.Error == nil {
		t.Fatal("expected error for non-admin initialize")
	}
	if resp.Error.Code != CodeUnauthorized {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeUnauthorized)
	}
}

func TestRPC_TokenInitialize_BadSymbol(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "token_initialize", InitializeParam{
		Wallet:   "admin",
		Password: "admin-pass",
		Name:     "Klingnet Token",
		Symbol:   "kgt",
		Decimals: "2",
	})
	if resp.Error == nil {
		t.Fatal("expected error for lowercase symbol")
	}
	if resp.Error.Code != CodeInvalidParams {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeInvalidParams)
	}
}

func TestRPC_TokenName_NotInitialized(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "token_name", nil)
	if resp.Error == nil {
		t.Fatal("expected error before initialize")
	}
	if resp.Error.Code != CodeNotInitialized {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeNotInitialized)
	}
}

func TestRPC_TokenMint(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)

	resp := rpcCall(t, env.url, "token_mint", AmountParam{
		Wallet: "admin", Password: "admin-pass", Amount: 1000,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	data, _ := json.Marshal(resp.Result)
	var result SupplyChangeResult
	json.Unmarshal(data, &result)

	if result.Minter != env.adminAcct {
		t.Errorf("minter = %q, want %q", result.Minter, env.adminAcct)
	}
	if result.TotalSupply != 1000 {
		t.Errorf("total_supply = %d, want 1000", result.TotalSupply)
	}

	balResp := rpcCall(t, env.url, "token_balance", AccountParam{Account: env.adminAcct})
	if balResp.Error != nil {
		t.Fatalf("token_balance: %v", balResp.Error.Message)
	}
	data, _ = json.Marshal(balResp.Result)
	var balance BalanceResult
	json.Unmarshal(data, &balance)
	if balance.Balance != 1000 {
		t.Errorf("balance = %d, want 1000", balance.Balance)
	}
}

func TestRPC_TokenMint_NotAdmin(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)
	newTestWallet(t, env.keystore, "member", "member-pass")

	resp := rpcCall(t, env.url, "token_mint", AmountParam{
		Wallet: "member", Password: "member-pass", Amount: 1000,
	})
	if resp.Error == nil {
		t.Fatal("expected error for non-admin mint")
	}
	if resp.Error.Code != CodeUnauthorized {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeUnauthorized)
	}
}

func TestRPC_TokenMint_InvalidAmount(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)

	resp := rpcCall(t, env.url, "token_mint", AmountParam{
		Wallet: "admin", Password: "admin-pass", Amount: 0,
	})
	if resp.Error == nil {
		t.Fatal("expected error for zero mint")
	}
	if resp.Error.Code != CodeInvalidParams {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeInvalidParams)
	}
}

func TestRPC_TokenBurn(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)
	mintAs(t, env, 1000)

	resp := rpcCall(t, env.url, "token_burn", AmountParam{
		Wallet: "admin", Password: "admin-pass", Amount: 400,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	data, _ := json.Marshal(resp.Result)
	var result SupplyChangeResult
	json.Unmarshal(data, &result)

	if result.TotalSupply != 600 {
		t.Errorf("total_supply = %d, want 600", result.TotalSupply)
	}
}

func TestRPC_TokenBurn_NoBalance(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)

	resp := rpcCall(t, env.url, "token_burn", AmountParam{
		Wallet: "admin", Password: "admin-pass", Amount: 100,
	})
	if resp.Error == nil {
		t.Fatal("expected error burning with no balance")
	}
	if resp.Error.Code != CodeNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeNotFound)
	}
}

func TestRPC_TokenTransfer(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)
	mintAs(t, env, 1000)

	memberAcct := newTestWallet(t, env.keystore, "member", "member-pass")
	signupAccount(t, env, memberAcct)

	resp := rpcCall(t, env.url, "token_transfer", TransferParam{
		Wallet: "admin", Password: "admin-pass", To: memberAcct, Value: 250,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	data, _ := json.Marshal(resp.Result)
	var result TransferResult
	json.Unmarshal(data, &result)

	if result.From != env.adminAcct {
		t.Errorf("from = %q, want %q", result.From, env.adminAcct)
	}
	if result.Balance != 750 {
		t.Errorf("sender balance = %d, want 750", result.Balance)
	}

	balResp := rpcCall(t, env.url, "token_balance", AccountParam{Account: memberAcct})
	data, _ = json.Marshal(balResp.Result)
	var balance BalanceResult
	json.Unmarshal(data, &balance)
	if balance.Balance != 250 {
		t.Errorf("recipient balance = %d, want 250", balance.Balance)
	}

	// The destination's history records the sender as the admin marker.
	histResp := rpcCall(t, env.url, "token_history", AccountParam{Account: memberAcct})
	if histResp.Error != nil {
		t.Fatalf("token_history: %v", histResp.Error.Message)
	}
	data, _ = json.Marshal(histResp.Result)
	var history HistoryResult
	json.Unmarshal(data, &history)
	if history.Total != 1 {
		t.Fatalf("history total = %d, want 1", history.Total)
	}
	if history.Records[0].From != token.AdminAccount {
		t.Errorf("record from = %q, want %q", history.Records[0].From, token.AdminAccount)
	}
	if history.Records[0].Value != "250" {
		t.Errorf("record value = %q, want %q", history.Records[0].Value, "250")
	}
}

func TestRPC_TokenTransfer_InsufficientFunds(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)
	mintAs(t, env, 100)

	memberAcct := newTestWallet(t, env.keystore, "member", "member-pass")
	signupAccount(t, env, memberAcct)

	resp := rpcCall(t, env.url, "token_transfer", TransferParam{
		Wallet: "admin", Password: "admin-pass", To: memberAcct, Value: 500,
	})
	if resp.Error == nil {
		t.Fatal("expected error for overdraw")
	}
	if resp.Error.Code != CodeRejected {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeRejected)
	}
}

func TestRPC_TokenTransfer_DestNotSignedUp(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)
	mintAs(t, env, 100)

	memberAcct := newTestWallet(t, env.keystore, "member", "member-pass")

	resp := rpcCall(t, env.url, "token_transfer", TransferParam{
		Wallet: "admin", Password: "admin-pass", To: memberAcct, Value: 50,
	})
	if resp.Error == nil {
		t.Fatal("expected error for unregistered destination")
	}
	if resp.Error.Code != CodeRejected {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeRejected)
	}
}

func TestRPC_TokenTransfer_BadAddress(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)

	resp := rpcCall(t, env.url, "token_transfer", TransferParam{
		Wallet: "admin", Password: "admin-pass", To: "not-an-address", Value: 50,
	})
	if resp.Error == nil {
		t.Fatal("expected error for malformed address")
	}
	if resp.Error.Code != CodeInvalidParams {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeInvalidParams)
	}
}

func TestRPC_TokenTransferFrom(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)
	mintAs(t, env, 1000)

	memberAcct := newTestWallet(t, env.keystore, "member", "member-pass")
	signupAccount(t, env, memberAcct)

	// The member moves value out of the admin account; both sides are
	// recorded with the real counterparties.
	resp := rpcCall(t, env.url, "token_transferFrom", TransferFromParam{
		Wallet: "member", Password: "member-pass",
		From: env.adminAcct, To: memberAcct, Value: 300,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	data, _ := json.Marshal(resp.Result)
	var result TransferResult
	json.Unmarshal(data, &result)
	if result.Balance != 700 {
		t.Errorf("source balance = %d, want 700", result.Balance)
	}

	histResp := rpcCall(t, env.url, "token_history", AccountParam{Account: env.adminAcct})
	data, _ = json.Marshal(histResp.Result)
	var history HistoryResult
	json.Unmarshal(data, &history)
	if history.Total != 1 {
		t.Fatalf("source history total = %d, want 1", history.Total)
	}
	if history.Records[0].From != env.adminAcct || history.Records[0].To != memberAcct {
		t.Errorf("source record = %+v, want from=%s to=%s", history.Records[0], env.adminAcct, memberAcct)
	}
}

func TestRPC_TokenTransferFrom_SelfTransfer(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)
	mintAs(t, env, 1000)

	resp := rpcCall(t, env.url, "token_transferFrom", TransferFromParam{
		Wallet: "admin", Password: "admin-pass",
		From: env.adminAcct, To: env.adminAcct, Value: 100,
	})
	if resp.Error == nil {
		t.Fatal("expected error for self transfer")
	}
	if resp.Error.Code != CodeRejected {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeRejected)
	}
}

func TestRPC_TokenSignup(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)
	mintAs(t, env, 1000)

	memberAcct := newTestWallet(t, env.keystore, "member", "member-pass")

	resp := rpcCall(t, env.url, "token_signup", SignupParam{
		Wallet: "admin", Password: "admin-pass", Account: memberAcct,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	data, _ := json.Marshal(resp.Result)
	var result SignupResult
	json.Unmarshal(data, &result)
	if result.Balance != 0 {
		t.Errorf("new account balance = %d, want 0", result.Balance)
	}

	// Signing up an account with a balance must not change the balance.
	tResp := rpcCall(t, env.url, "token_transfer", TransferParam{
		Wallet: "admin", Password: "admin-pass", To: memberAcct, Value: 75,
	})
	if tResp.Error != nil {
		t.Fatalf("token_transfer: %v", tResp.Error.Message)
	}

	resp = rpcCall(t, env.url, "token_signup", SignupParam{
		Wallet: "admin", Password: "admin-pass", Account: memberAcct,
	})
	if resp.Error != nil {
		t.Fatalf("re-signup: %v", resp.Error.Message)
	}
	data, _ = json.Marshal(resp.Result)
	json.Unmarshal(data, &result)
	if result.Balance != 75 {
		t.Errorf("re-signup balance = %d, want 75", result.Balance)
	}
}

func TestRPC_TokenBalance_NotFound(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)

	unknownAcct := newTestWallet(t, env.keystore, "ghost", "ghost-pass")

	resp := rpcCall(t, env.url, "token_balance", AccountParam{Account: unknownAcct})
	if resp.Error == nil {
		t.Fatal("expected error for unknown account")
	}
	if resp.Error.Code != CodeNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeNotFound)
	}
}

func TestRPC_TokenMyBalance(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)
	mintAs(t, env, 500)

	resp := rpcCall(t, env.url, "token_myBalance", AuthParam{
		Wallet: "admin", Password: "admin-pass",
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	data, _ := json.Marshal(resp.Result)
	var result BalanceResult
	json.Unmarshal(data, &result)
	if result.Account != env.adminAcct {
		t.Errorf("account = %q, want %q", result.Account, env.adminAcct)
	}
	if result.Balance != 500 {
		t.Errorf("balance = %d, want 500", result.Balance)
	}
}

func TestRPC_TokenMyAccount(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)
	newTestWallet(t, env.keystore, "member", "member-pass")

	resp := rpcCall(t, env.url, "token_myAccount", AuthParam{
		Wallet: "admin", Password: "admin-pass",
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	data, _ := json.Marshal(resp.Result)
	var result AccountResult
	json.Unmarshal(data, &result)
	if result.Account != env.adminAcct {
		t.Errorf("account = %q, want %q", result.Account, env.adminAcct)
	}
	if result.Org != config.DefaultAdminOrganization {
		t.Errorf("org = %q, want %q", result.Org, config.DefaultAdminOrganization)
	}

	resp = rpcCall(t, env.url, "token_myAccount", AuthParam{
		Wallet: "member", Password: "member-pass",
	})
	if resp.Error != nil {
		t.Fatalf("member myAccount: %v", resp.Error.Message)
	}
	data, _ = json.Marshal(resp.Result)
	json.Unmarshal(data, &result)
	if result.Org != config.DefaultMemberOrganization {
		t.Errorf("member org = %q, want %q", result.Org, config.DefaultMemberOrganization)
	}
}

func TestRPC_TokenHistory_NoHistory(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)

	acct := newTestWallet(t, env.keystore, "fresh", "fresh-pass")
	signupAccount(t, env, acct)

	resp := rpcCall(t, env.url, "token_history", AccountParam{Account: acct})
	if resp.Error == nil {
		t.Fatal("expected error for account without history")
	}
	if resp.Error.Code != CodeNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeNotFound)
	}
}

func TestRPC_TokenTotalSupply_NeverMinted(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)

	resp := rpcCall(t, env.url, "token_totalSupply", nil)
	if resp.Error == nil {
		t.Fatal("expected error before first mint")
	}
	if resp.Error.Code != CodeNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeNotFound)
	}
}

// ── Ledger endpoints ────────────────────────────────────────────────────

func TestRPC_LedgerStatus_Uninitialized(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "ledger_status", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	data, _ := json.Marshal(resp.Result)
	var result StatusResult
	json.Unmarshal(data, &result)

	if result.Initialized {
		t.Error("initialized = true, want false")
	}
	if result.Network != "klingnet-ledger-test-1" {
		t.Errorf("network = %q, want %q", result.Network, "klingnet-ledger-test-1")
	}
	if result.AdminOrg != config.DefaultAdminOrganization {
		t.Errorf("admin_org = %q, want %q", result.AdminOrg, config.DefaultAdminOrganization)
	}
}

func TestRPC_LedgerStatus_Initialized(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)
	mintAs(t, env, 1234)

	resp := rpcCall(t, env.url, "ledger_status", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	data, _ := json.Marshal(resp.Result)
	var result StatusResult
	json.Unmarshal(data, &result)

	if !result.Initialized {
		t.Error("initialized = false, want true")
	}
	if result.Name != "Klingnet Token" {
		t.Errorf("name = %q, want %q", result.Name, "Klingnet Token")
	}
	if result.Symbol != "KGT" {
		t.Errorf("symbol = %q, want %q", result.Symbol, "KGT")
	}
	if result.TotalSupply != 1234 {
		t.Errorf("total_supply = %d, want 1234", result.TotalSupply)
	}
}

func TestRPC_LedgerStatus_NoMint(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)

	resp := rpcCall(t, env.url, "ledger_status", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	data, _ := json.Marshal(resp.Result)
	var result StatusResult
	json.Unmarshal(data, &result)

	if !result.Initialized {
		t.Error("initialized = false, want true")
	}
	if result.TotalSupply != 0 {
		t.Errorf("total_supply = %d, want 0", result.TotalSupply)
	}
}

func TestRPC_LedgerDigest(t *testing.T) {
	env := setupTestEnv(t)
	initToken(t, env)

	resp := rpcCall(t, env.url, "ledger_digest", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	data, _ := json.Marshal(resp.Result)
	var before DigestResult
	json.Unmarshal(data, &before)
	if len(before.Digest) != 64 {
		t.Fatalf("digest length = %d, want 64 hex chars", len(before.Digest))
	}

	mintAs(t, env, 100)

	resp = rpcCall(t, env.url, "ledger_digest", nil)
	data, _ = json.Marshal(resp.Result)
	var after DigestResult
	json.Unmarshal(data, &after)

	if before.Digest == after.Digest {
		t.Error("digest unchanged after mint")
	}
}

// ── Network endpoints ───────────────────────────────────────────────────

func TestRPC_NetGetPeerInfo_NoRelay(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "net_getPeerInfo", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	data, _ := json.Marshal(resp.Result)
	var result PeerInfoResult
	json.Unmarshal(data, &result)

	if result.Count != 0 {
		t.Errorf("count = %d, want 0", result.Count)
	}
	if result.Peers == nil {
		t.Error("peers is nil, want empty list")
	}
}

func TestRPC_NetGetNodeInfo_NoRelay(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "net_getNodeInfo", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	data, _ := json.Marshal(resp.Result)
	var result NodeInfoResult
	json.Unmarshal(data, &result)
	if result.ID != "" {
		t.Errorf("id = %q, want empty", result.ID)
	}
}

func TestRPC_NetGetBanList_NoRelay(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "net_getBanList", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	data, _ := json.Marshal(resp.Result)
	var result BanListResult
	json.Unmarshal(data, &result)
	if result.Count != 0 {
		t.Errorf("count = %d, want 0", result.Count)
	}
}

func TestRPC_RelayEvents_NoRelay(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "relay_events", EventQueryParam{Account: token.NullAccount})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	data, _ := json.Marshal(resp.Result)
	var result EventsResult
	json.Unmarshal(data, &result)
	if result.Total != 0 {
		t.Errorf("total = %d, want 0", result.Total)
	}
	if result.Events == nil {
		t.Error("events is nil, want empty list")
	}
}

// ── Protocol behavior ───────────────────────────────────────────────────

func TestRPC_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "no_suchMethod", nil)
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeMethodNotFound)
	}
}

func TestRPC_InvalidParams(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "token_balance", nil)
	if resp.Error == nil {
		t.Fatal("expected error for missing params")
	}
	if resp.Error.Code != CodeInvalidParams {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeInvalidParams)
	}
}

func TestRPC_InvalidJSON(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Post(env.url, "application/json", bytes.NewReader([]byte("not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)

	if rpcResp.Error == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if rpcResp.Error.Code != CodeParseError {
		t.Errorf("error code = %d, want %d", rpcResp.Error.Code, CodeParseError)
	}
}

func TestRPC_WrongVersion(t *testing.T) {
	env := setupTestEnv(t)

	body, _ := json.Marshal(Request{JSONRPC: "1.0", Method: "token_name", ID: 1})
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)

	if rpcResp.Error == nil {
		t.Fatal("expected error for wrong jsonrpc version")
	}
	if rpcResp.Error.Code != CodeInvalidRequest {
		t.Errorf("error code = %d, want %d", rpcResp.Error.Code, CodeInvalidRequest)
	}
}

func TestRPC_GetMethodNotAllowed(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Get(env.url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)

	if rpcResp.Error == nil {
		t.Fatal("expected error for GET request")
	}
	if rpcResp.Error.Code != CodeInvalidRequest {
		t.Errorf("error code = %d, want %d", rpcResp.Error.Code, CodeInvalidRequest)
	}
}

// --- IP Filtering ---

func TestRPC_IPFilter_Allowed(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		AllowedIPs: []string{"127.0.0.1"},
	})

	resp := rpcCall(t, env.url, "ledger_status", nil)
	if resp.Error != nil {
		t.Errorf("expected success for 127.0.0.1, got error: %s", resp.Error.Message)
	}
}

func TestRPC_IPFilter_Blocked(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		AllowedIPs: []string{"10.0.0.0/8"}, // Only allow 10.x.x.x.
	})

	// Request comes from 127.0.0.1 → should be blocked.
	req := Request{JSONRPC: "2.0", Method: "ledger_status", ID: 1}
	body, _ := json.Marshal(req)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
}

func TestRPC_IPFilter_Empty_AllowsAll(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		AllowedIPs: nil, // Empty = allow all.
	})

	resp := rpcCall(t, env.url, "ledger_status", nil)
	if resp.Error != nil {
		t.Errorf("empty AllowedIPs should allow all: %s", resp.Error.Message)
	}
}

// --- CORS ---

func TestRPC_CORS_WildcardOrigin(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		CORSOrigins: []string{"*"},
	})

	req := Request{JSONRPC: "2.0", Method: "ledger_status", ID: 1}
	body, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest("POST", env.url, bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Origin", "http://example.com")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	origin := resp.Header.Get("Access-Control-Allow-Origin")
	if origin != "*" {
		t.Errorf("CORS origin = %q, want %q", origin, "*")
	}
}

func TestRPC_CORS_SpecificOrigin(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		CORSOrigins: []string{"http://myapp.com"},
	})

	req := Request{JSONRPC: "2.0", Method: "ledger_status", ID: 1}
	body, _ := json.Marshal(req)

	// Allowed origin gets the header back.
	httpReq, _ := http.NewRequest("POST", env.url, bytes.NewReader(body))
	httpReq.Header.Set("Origin", "http://myapp.com")
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://myapp.com" {
		t.Errorf("CORS origin = %q, want %q", got, "http://myapp.com")
	}

	// Unknown origin gets nothing.
	httpReq, _ = http.NewRequest("POST", env.url, bytes.NewReader(body))
	httpReq.Header.Set("Origin", "http://evil.com")
	resp, err = http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("CORS origin for unknown origin = %q, want empty", got)
	}
}

func TestRPC_CORS_Preflight(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		CORSOrigins: []string{"*"},
	})

	httpReq, _ := http.NewRequest("OPTIONS", env.url, nil)
	httpReq.Header.Set("Origin", "http://example.com")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("missing Access-Control-Allow-Methods header")
	}
}

func TestRPC_CORS_Disabled(t *testing.T) {
	env := setupTestEnv(t)

	req := Request{JSONRPC: "2.0", Method: "ledger_status", ID: 1}
	body, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest("POST", env.url, bytes.NewReader(body))
	httpReq.Header.Set("Origin", "http://example.com")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("CORS origin = %q, want empty when disabled", got)
	}
}
