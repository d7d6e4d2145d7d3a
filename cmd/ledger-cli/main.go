// ledger-cli is a command-line client for interacting with a ledgerd node.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/Klingon-tech/klingnet-ledger/internal/rpc"
	"github.com/Klingon-tech/klingnet-ledger/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := ""
	network := "mainnet"

	// Scan for --rpc and --network before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	// Set address HRP based on network.
	if network == "testnet" {
		types.SetAddressHRP(types.TestnetHRP)
	} else {
		types.SetAddressHRP(types.MainnetHRP)
	}

	if rpcURL == "" {
		if network == "testnet" {
			rpcURL = "http://127.0.0.1:8645"
		} else {
			rpcURL = "http://127.0.0.1:8545"
		}
	}

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := rpcclient.New(rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(client)
	case "init":
		cmdInit(client, cmdArgs)
	case "signup":
		cmdSignup(client, cmdArgs)
	case "transfer":
		cmdTransfer(client, cmdArgs)
	case "transferfrom":
		cmdTransferFrom(client, cmdArgs)
	case "mint":
		cmdMint(client, cmdArgs)
	case "burn":
		cmdBurn(client, cmdArgs)
	case "balance":
		cmdBalance(client, cmdArgs)
	case "my-balance":
		cmdMyBalance(client, cmdArgs)
	case "my-id":
		cmdMyID(client, cmdArgs)
	case "info":
		cmdInfo(client)
	case "history":
		cmdHistory(client, cmdArgs)
	case "digest":
		cmdDigest(client)
	case "peers":
		cmdPeers(client)
	case "events":
		cmdEvents(client, cmdArgs)
	case "wallet":
		cmdWallet(cmdArgs, rpcURL)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: ledger-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8545, testnet 8645)
  --network <net>     mainnet (default) or testnet

Commands:
  status                          Show ledger status
  init --wallet <w> --name <n> --symbol <SYM> --decimals <d>
                                  Initialize the token (admin only)
  signup --wallet <w> [--account <addr>]
                                  Sign up an account (own account by default)
  transfer --wallet <w> --to <addr> --value <n>
                                  Transfer value to an account
  transferfrom --wallet <w> --from <addr> --to <addr> --value <n>
                                  Move value between two accounts
  mint --wallet <w> --amount <n>  Mint new value (admin only)
  burn --wallet <w> --amount <n>  Burn value (admin only)
  balance <address>               Show account balance
  my-balance --wallet <w>         Show own balance
  my-id --wallet <w>              Show own account and organization
  info                            Show token name, symbol, decimals, supply
  history <address>               Show account transaction history
  digest                          Show ledger state digest
  peers                           Show connected relay peers
  events <address>                Show relayed events for an account

  wallet create --name <n>        Create a wallet on the node
  wallet import --name <n> --mnemonic "word1 word2 ..."
                                  Import a wallet from mnemonic
  wallet list                     List wallets on the node
  wallet accounts --wallet <w>    List wallet accounts
  wallet new-account --wallet <w> Derive the next account

Values and amounts are integers in the token's base units. Commands that
take --wallet prompt for the wallet password and accept --index to act as
a derived account other than 0.
`)
}

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(client *rpcclient.Client) {
	var status rpc.StatusResult
	if err := client.Call("ledger_status", nil, &status); err != nil {
		fatal("ledger_status: %v", err)
	}

	fmt.Printf("Network:     %s (%s)\n", status.Network, status.NetworkName)
	fmt.Printf("Admin org:   %s\n", status.AdminOrg)
	if status.Initialized {
		fmt.Printf("Token:       %s (%s, %s decimals)\n", status.Name, status.Symbol, status.Decimals)
		fmt.Printf("Supply:      %d\n", status.TotalSupply)
	} else {
		fmt.Printf("Token:       not initialized\n")
	}
	fmt.Printf("Peers:       %d\n", status.Peers)
}

// ── init ────────────────────────────────────────────────────────────────

func cmdInit(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	index := fs.Uint("index", 0, "Account index")
	name := fs.String("name", "", "Token name")
	symbol := fs.String("symbol", "", "Token symbol")
	decimals := fs.String("decimals", "", "Token decimals")
	fs.Parse(args)

	if *walletName == "" || *name == "" || *symbol == "" || *decimals == "" {
		fatal("Usage: ledger-cli init --wallet <name> --name <n> --symbol <SYM> --decimals <d>")
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	var result rpc.TokenInfoResult
	if err := client.Call("token_initialize", rpc.InitializeParam{
		Wallet:       *walletName,
		Password:     string(password),
		AccountIndex: uint32(*index),
		Name:         *name,
		Symbol:       *symbol,
		Decimals:     *decimals,
	}, &result); err != nil {
		fatal("token_initialize: %v", err)
	}

	fmt.Printf("Token initialized: %s (%s, %s decimals)\n", result.Name, result.Symbol, result.Decimals)
}

// ── signup ──────────────────────────────────────────────────────────────

func cmdSignup(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	index := fs.Uint("index", 0, "Account index")
	account := fs.String("account", "", "Account to sign up (default: own account)")
	fs.Parse(args)

	if *walletName == "" {
		fatal("Usage: ledger-cli signup --wallet <name> [--account <addr>]")
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	auth := rpc.AuthParam{
		Wallet:       *walletName,
		Password:     string(password),
		AccountIndex: uint32(*index),
	}

	target := *account
	if target == "" {
		// Sign up the caller's own account.
		var me rpc.AccountResult
		if err := client.Call("token_myAccount", auth, &me); err != nil {
			fatal("token_myAccount: %v", err)
		}
		target = me.Account
	} else if _, err := types.ParseAddress(target); err != nil {
		fatal("invalid account address: %v", err)
	}

	var result rpc.SignupResult
	if err := client.Call("token_signup", rpc.SignupParam{
		Wallet:       auth.Wallet,
		Password:     auth.Password,
		AccountIndex: auth.AccountIndex,
		Account:      target,
	}, &result); err != nil {
		fatal("token_signup: %v", err)
	}

	fmt.Printf("Signed up: %s\n", result.Account)
	fmt.Printf("Balance:   %d\n", result.Balance)
}

// ── transfer ────────────────────────────────────────────────────────────

func cmdTransfer(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	index := fs.Uint("index", 0, "Account index")
	to := fs.String("to", "", "Recipient account")
	value := fs.Int64("value", 0, "Value in base units")
	fs.Parse(args)

	if *walletName == "" || *to == "" {
		fatal("Usage: ledger-cli transfer --wallet <name> --to <addr> --value <n>")
	}
	if _, err := types.ParseAddress(*to); err != nil {
		fatal("invalid recipient address: %v", err)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	var result rpc.TransferResult
	if err := client.Call("token_transfer", rpc.TransferParam{
		Wallet:       *walletName,
		Password:     string(password),
		AccountIndex: uint32(*index),
		To:           *to,
		Value:        *value,
	}, &result); err != nil {
		fatal("token_transfer: %v", err)
	}

	fmt.Printf("Transferred: %d\n", result.Value)
	fmt.Printf("From:        %s (balance %d)\n", result.From, result.Balance)
	fmt.Printf("To:          %s\n", result.To)
}

// ── transferfrom ────────────────────────────────────────────────────────

func cmdTransferFrom(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("transferfrom", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	index := fs.Uint("index", 0, "Account index")
	from := fs.String("from", "", "Source account")
	to := fs.String("to", "", "Recipient account")
	value := fs.Int64("value", 0, "Value in base units")
	fs.Parse(args)

	if *walletName == "" || *from == "" || *to == "" {
		fatal("Usage: ledger-cli transferfrom --wallet <name> --from <addr> --to <addr> --value <n>")
	}
	if _, err := types.ParseAddress(*from); err != nil {
		fatal("invalid source address: %v", err)
	}
	if _, err := types.ParseAddress(*to); err != nil {
		fatal("invalid recipient address: %v", err)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	var result rpc.TransferResult
	if err := client.Call("token_transferFrom", rpc.TransferFromParam{
		Wallet:       *walletName,
		Password:     string(password),
		AccountIndex: uint32(*index),
		From:         *from,
		To:           *to,
		Value:        *value,
	}, &result); err != nil {
		fatal("token_transferFrom: %v", err)
	}

	fmt.Printf("Transferred: %d\n", result.Value)
	fmt.Printf("From:        %s (balance %d)\n", result.From, result.Balance)
	fmt.Printf("To:          %s\n", result.To)
}

// ── mint ────────────────────────────────────────────────────────────────

func cmdMint(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	index := fs.Uint("index", 0, "Account index")
	amount := fs.Int64("amount", 0, "Amount in base units")
	fs.Parse(args)

	if *walletName == "" {
		fatal("Usage: ledger-cli mint --wallet <name> --amount <n>")
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	var result rpc.SupplyChangeResult
	if err := client.Call("token_mint", rpc.AmountParam{
		Wallet:       *walletName,
		Password:     string(password),
		AccountIndex: uint32(*index),
		Amount:       *amount,
	}, &result); err != nil {
		fatal("token_mint: %v", err)
	}

	fmt.Printf("Minted: %d\n", result.Amount)
	fmt.Printf("Minter: %s\n", result.Minter)
	fmt.Printf("Supply: %d\n", result.TotalSupply)
}

// ── burn ────────────────────────────────────────────────────────────────

func cmdBurn(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("burn", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	index := fs.Uint("index", 0, "Account index")
	amount := fs.Int64("amount", 0, "Amount in base units")
	fs.Parse(args)

	if *walletName == "" {
		fatal("Usage: ledger-cli burn --wallet <name> --amount <n>")
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	var result rpc.SupplyChangeResult
	if err := client.Call("token_burn", rpc.AmountParam{
		Wallet:       *walletName,
		Password:     string(password),
		AccountIndex: uint32(*index),
		Amount:       *amount,
	}, &result); err != nil {
		fatal("token_burn: %v", err)
	}

	fmt.Printf("Burned: %d\n", result.Amount)
	fmt.Printf("Burner: %s\n", result.Minter)
	fmt.Printf("Supply: %d\n", result.TotalSupply)
}

// ── balance ─────────────────────────────────────────────────────────────

func cmdBalance(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: ledger-cli balance <address>")
	}

	addr := args[0]
	if _, err := types.ParseAddress(addr); err != nil {
		fatal("invalid address: %v", err)
	}

	var result rpc.BalanceResult
	if err := client.Call("token_balance", rpc.AccountParam{Account: addr}, &result); err != nil {
		fatal("token_balance: %v", err)
	}

	fmt.Printf("Account: %s\n", result.Account)
	fmt.Printf("Balance: %d\n", result.Balance)
}

// ── my-balance ──────────────────────────────────────────────────────────

func cmdMyBalance(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("my-balance", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	index := fs.Uint("index", 0, "Account index")
	fs.Parse(args)

	if *walletName == "" {
		fatal("Usage: ledger-cli my-balance --wallet <name>")
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	var result rpc.BalanceResult
	if err := client.Call("token_myBalance", rpc.AuthParam{
		Wallet:       *walletName,
		Password:     string(password),
		AccountIndex: uint32(*index),
	}, &result); err != nil {
		fatal("token_myBalance: %v", err)
	}

	fmt.Printf("Account: %s\n", result.Account)
	fmt.Printf("Balance: %d\n", result.Balance)
}

// ── my-id ───────────────────────────────────────────────────────────────

func cmdMyID(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("my-id", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	index := fs.Uint("index", 0, "Account index")
	fs.Parse(args)

	if *walletName == "" {
		fatal("Usage: ledger-cli my-id --wallet <name>")
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	var result rpc.AccountResult
	if err := client.Call("token_myAccount", rpc.AuthParam{
		Wallet:       *walletName,
		Password:     string(password),
		AccountIndex: uint32(*index),
	}, &result); err != nil {
		fatal("token_myAccount: %v", err)
	}

	fmt.Printf("Account:      %s\n", result.Account)
	fmt.Printf("Organization: %s\n", result.Org)
}

// ── info ────────────────────────────────────────────────────────────────

func cmdInfo(client *rpcclient.Client) {
	var name rpc.NameResult
	if err := client.Call("token_name", nil, &name); err != nil {
		fatal("token_name: %v", err)
	}
	var symbol rpc.SymbolResult
	if err := client.Call("token_symbol", nil, &symbol); err != nil {
		fatal("token_symbol: %v", err)
	}
	var decimals rpc.DecimalsResult
	if err := client.Call("token_decimals", nil, &decimals); err != nil {
		fatal("token_decimals: %v", err)
	}

	// A never-minted token has no supply entry yet.
	supply := int64(0)
	var supplyResult rpc.TotalSupplyResult
	if err := client.Call("token_totalSupply", nil, &supplyResult); err != nil {
		rpcErr, ok := err.(*rpcclient.RPCError)
		if !ok || rpcErr.Code != rpc.CodeNotFound {
			fatal("token_totalSupply: %v", err)
		}
	} else {
		supply = supplyResult.TotalSupply
	}

	fmt.Printf("Name:     %s\n", name.Name)
	fmt.Printf("Symbol:   %s\n", symbol.Symbol)
	fmt.Printf("Decimals: %s\n", decimals.Decimals)
	fmt.Printf("Supply:   %d\n", supply)
}

// ── history ─────────────────────────────────────────────────────────────

func cmdHistory(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: ledger-cli history <address>")
	}

	addr := args[0]
	if _, err := types.ParseAddress(addr); err != nil {
		fatal("invalid address: %v", err)
	}

	var result rpc.HistoryResult
	if err := client.Call("token_history", rpc.AccountParam{Account: addr}, &result); err != nil {
		fatal("token_history: %v", err)
	}

	fmt.Printf("Account: %s\n", result.Account)
	fmt.Printf("Records: %d\n", result.Total)
	for i, rec := range result.Records {
		fmt.Printf("  [%d] %s  %s -> %s  value %s\n", i, rec.Time, rec.From, rec.To, rec.Value)
	}
}

// ── digest ──────────────────────────────────────────────────────────────

func cmdDigest(client *rpcclient.Client) {
	var result rpc.DigestResult
	if err := client.Call("ledger_digest", nil, &result); err != nil {
		fatal("ledger_digest: %v", err)
	}

	fmt.Printf("Digest: %s\n", result.Digest)
}

// ── peers ───────────────────────────────────────────────────────────────

func cmdPeers(client *rpcclient.Client) {
	var node rpc.NodeInfoResult
	if err := client.Call("net_getNodeInfo", nil, &node); err != nil {
		fatal("net_getNodeInfo: %v", err)
	}

	fmt.Printf("Node ID:  %s\n", node.ID)
	fmt.Printf("Identity: %s\n", node.Identity)
	for _, a := range node.Addrs {
		fmt.Printf("  Listen: %s\n", a)
	}

	var peers rpc.PeerInfoResult
	if err := client.Call("net_getPeerInfo", nil, &peers); err != nil {
		fatal("net_getPeerInfo: %v", err)
	}

	fmt.Printf("Peers:    %d\n", peers.Count)
	for _, p := range peers.Peers {
		fmt.Printf("  %s (connected: %s)\n", p.ID, p.ConnectedAt)
	}
}

// ── events ──────────────────────────────────────────────────────────────

func cmdEvents(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	offset := fs.Int("offset", 0, "Skip this many events")
	limit := fs.Int("limit", 20, "Maximum events to show")

	if len(args) < 1 {
		fatal("Usage: ledger-cli events <address> [--offset N --limit N]")
	}
	addr := args[0]
	fs.Parse(args[1:])

	var result rpc.EventsResult
	if err := client.Call("relay_events", rpc.EventQueryParam{
		Account: addr,
		Offset:  *offset,
		Limit:   *limit,
	}, &result); err != nil {
		fatal("relay_events: %v", err)
	}

	fmt.Printf("Account: %s\n", result.Account)
	fmt.Printf("Events:  %d\n", result.Total)
	for _, ev := range result.Events {
		ts := ev.EmittedAt.UTC().Format("2006-01-02 15:04:05 UTC")
		fmt.Printf("  %s  %s  %s -> %s  value %d\n", ts, ev.Event, ev.From, ev.To, ev.Value)
	}
}

// ── wallet ──────────────────────────────────────────────────────────────

func cmdWallet(args []string, rpcURL string) {
	if len(args) < 1 {
		fatal("Usage: ledger-cli wallet <create|import|list|accounts|new-account> [flags]")
	}

	client := rpcclient.New(rpcURL)

	switch args[0] {
	case "create":
		cmdWalletCreate(client, args[1:])
	case "import":
		cmdWalletImport(args[1:], rpcURL)
	case "list":
		cmdWalletList(client)
	case "accounts":
		cmdWalletAccounts(client, args[1:])
	case "new-account":
		cmdWalletNewAccount(client, args[1:])
	default:
		fatal("Unknown wallet command: %s\nUsage: ledger-cli wallet <create|import|list|accounts|new-account> [flags]", args[0])
	}
}

func cmdWalletCreate(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: ledger-cli wallet create --name <name>")
	}

	// Prompt for password (twice).
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	var result rpc.WalletCreateResult
	if err := client.Call("wallet_create", rpc.WalletCreateParam{
		Name:     *name,
		Password: string(password),
	}, &result); err != nil {
		fatal("wallet_create: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", result.Mnemonic)
	fmt.Printf("Wallet created: %s\n", *name)
	fmt.Printf("Address: %s\n", result.Address)
}

func cmdWalletImport(args []string, rpcURL string) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic (24 words)")
	fs.Parse(args)

	if *name == "" || *mnemonic == "" {
		fatal("Usage: ledger-cli wallet import --name <name> --mnemonic \"word1 word2 ...\"")
	}

	// Prompt for password (twice).
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	// The import rescans the derivation gap for used accounts, which can
	// take a while on a busy ledger.
	client := rpcclient.NewWithTimeout(rpcURL, 10*time.Minute)
	var result rpc.WalletImportResult
	if err := client.Call("wallet_import", rpc.WalletImportParam{
		Name:     *name,
		Password: string(password),
		Mnemonic: *mnemonic,
	}, &result); err != nil {
		fatal("wallet_import: %v", err)
	}

	fmt.Printf("Wallet imported: %s\n", *name)
	fmt.Printf("Address: %s\n", result.Address)
}

func cmdWalletList(client *rpcclient.Client) {
	var result rpc.WalletListResult
	if err := client.Call("wallet_list", nil, &result); err != nil {
		fatal("wallet_list: %v", err)
	}

	if len(result.Wallets) == 0 {
		fmt.Println("No wallets found.")
		return
	}

	for _, name := range result.Wallets {
		fmt.Println(name)
	}
}

func cmdWalletAccounts(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("wallet accounts", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)

	if *walletName == "" {
		fatal("Usage: ledger-cli wallet accounts --wallet <name>")
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	var result rpc.WalletAccountListResult
	if err := client.Call("wallet_listAccounts", rpc.WalletUnlockParam{
		Name:     *walletName,
		Password: string(password),
	}, &result); err != nil {
		fatal("wallet_listAccounts: %v", err)
	}

	if len(result.Accounts) == 0 {
		fmt.Println("No accounts found.")
		return
	}

	for _, acct := range result.Accounts {
		fmt.Printf("  [%d] %s  %s\n", acct.Index, acct.Address, acct.Name)
	}
}

func cmdWalletNewAccount(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("wallet new-account", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)

	if *walletName == "" {
		fatal("Usage: ledger-cli wallet new-account --wallet <name>")
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	var result rpc.WalletAccountResult
	if err := client.Call("wallet_newAccount", rpc.WalletUnlockParam{
		Name:     *walletName,
		Password: string(password),
	}, &result); err != nil {
		fatal("wallet_newAccount: %v", err)
	}

	fmt.Printf("New account [%d]: %s\n", result.Index, result.Address)
}

// ── Password helper ─────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
