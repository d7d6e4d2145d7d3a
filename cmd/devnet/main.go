// Command devnet boots a 2-node local ledger devnet from scratch.
//
// Usage: go run ./cmd/devnet/
//
// It loads the well-known testnet admin identity, boots two in-process
// nodes on memory storage (one serving RPC with a custodial wallet, one
// observing), initializes the token, exercises mint, transfer,
// transferFrom, and burn over RPC, and verifies the emitted events reach
// the observer node's relay index. Ctrl+C for early shutdown.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Klingon-tech/klingnet-ledger/config"
	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/relay"
	"github.com/Klingon-tech/klingnet-ledger/internal/rpc"
	"github.com/Klingon-tech/klingnet-ledger/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-ledger/internal/state"
	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
	"github.com/Klingon-tech/klingnet-ledger/internal/token"
	"github.com/Klingon-tech/klingnet-ledger/internal/wallet"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
	libp2ppeer "github.com/libp2p/go-libp2p/core/peer"
)

const (
	walletPassword = "devnet"
	eventWait      = 10 * time.Second
)

// nodeBundle groups all components for one logical node.
type nodeBundle struct {
	name   string
	ledger *state.Ledger
	engine *token.Engine
	relay  *relay.Node
	rpc    *rpc.Server
}

func main() {
	klog.Init("info", false, "")
	logger := klog.WithComponent("devnet")

	logger.Info().Msg("=== Klingnet Ledger 2-Node Local Devnet ===")

	// ── Phase 1: Load well-known testnet identity + policy ──────────────

	types.SetAddressHRP(types.TestnetHRP)

	policy := config.TestnetPolicy()
	policy.NetworkID = "klingnet-ledger-devnet"
	policy.NetworkName = "Local Devnet"

	adminAddr := config.TestnetAdminAddress()

	logger.Info().
		Str("admin", adminAddr).
		Str("network_id", policy.NetworkID).
		Msg("Using well-known testnet admin identity")

	// ── Phase 2: Build nodes ─────────────────────────────────────────────

	ksDir, err := os.MkdirTemp("", "devnet-keystore-")
	if err != nil {
		logger.Fatal().Err(err).Msg("create keystore dir")
	}
	defer os.RemoveAll(ksDir)

	node1, err := buildNode("node-1", policy, ksDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("build node-1")
	}
	node2, err := buildNode("node-2", policy, "")
	if err != nil {
		logger.Fatal().Err(err).Msg("build node-2")
	}

	// ── Phase 3: Start relay + RPC, connect ──────────────────────────────

	if err := node1.relay.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start node-1 relay")
	}
	if err := node2.relay.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start node-2 relay")
	}
	defer cleanup(node1, node2)

	if err := node1.rpc.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start node-1 rpc")
	}
	if err := node2.rpc.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start node-2 rpc")
	}

	logger.Info().
		Str("node1_id", node1.relay.ID().String()[:16]+"...").
		Str("node2_id", node2.relay.ID().String()[:16]+"...").
		Str("node1_rpc", node1.rpc.Addr()).
		Msg("Nodes started")

	connectNodes(node1.relay, node2.relay)
	time.Sleep(500 * time.Millisecond) // GossipSub mesh stabilization.

	logger.Info().
		Int("node1_peers", node1.relay.PeerCount()).
		Int("node2_peers", node2.relay.PeerCount()).
		Msg("Nodes connected")

	// ── Phase 4: Signal handling ─────────────────────────────────────────

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("Shutdown signal received")
		cleanup(node1, node2)
		os.Exit(1)
	}()

	// ── Phase 5: Token exercise over RPC ─────────────────────────────────

	client := rpcclient.New("http://" + node1.rpc.Addr() + "/")

	var imported rpc.WalletImportResult
	call(client, "wallet_import", rpc.WalletImportParam{
		Name:     "admin",
		Password: walletPassword,
		Mnemonic: config.TestnetMnemonic,
	}, &imported)
	if imported.Address != adminAddr {
		logger.Fatal().
			Str("got", imported.Address).
			Str("want", adminAddr).
			Msg("admin address mismatch")
	}

	var created rpc.WalletCreateResult
	call(client, "wallet_create", rpc.WalletCreateParam{
		Name:     "member",
		Password: walletPassword,
	}, &created)
	memberAddr := created.Address

	logger.Info().Str("admin", adminAddr).Str("member", memberAddr).Msg("Wallets ready")

	var info rpc.TokenInfoResult
	call(client, "token_initialize", rpc.InitializeParam{
		Wallet: "admin", Password: walletPassword,
		Name: "Devnet Token", Symbol: "DVT", Decimals: "2",
	}, &info)
	logger.Info().Str("name", info.Name).Str("symbol", info.Symbol).Msg("Token initialized")

	var signedUp rpc.SignupResult
	call(client, "token_signup", rpc.SignupParam{
		Wallet: "member", Password: walletPassword, Account: memberAddr,
	}, &signedUp)
	logger.Info().Str("account", signedUp.Account).Msg("Member signed up")

	var minted rpc.SupplyChangeResult
	call(client, "token_mint", rpc.AmountParam{
		Wallet: "admin", Password: walletPassword, Amount: 10_000,
	}, &minted)
	logger.Info().Int64("amount", minted.Amount).Int64("supply", minted.TotalSupply).Msg("Minted")

	var moved rpc.TransferResult
	call(client, "token_transfer", rpc.TransferParam{
		Wallet: "admin", Password: walletPassword, To: memberAddr, Value: 2_500,
	}, &moved)
	logger.Info().Int64("value", moved.Value).Str("to", moved.To).Msg("Transferred")

	var clawed rpc.TransferResult
	call(client, "token_transferFrom", rpc.TransferFromParam{
		Wallet: "admin", Password: walletPassword,
		From: memberAddr, To: adminAddr, Value: 500,
	}, &clawed)
	logger.Info().Int64("value", clawed.Value).Str("from", memberAddr).Msg("Transferred back")

	var burned rpc.SupplyChangeResult
	call(client, "token_burn", rpc.AmountParam{
		Wallet: "admin", Password: walletPassword, Amount: 1_000,
	}, &burned)
	logger.Info().Int64("amount", burned.Amount).Int64("supply", burned.TotalSupply).Msg("Burned")

	var adminBal, memberBal rpc.BalanceResult
	call(client, "token_balance", rpc.AccountParam{Account: adminAddr}, &adminBal)
	call(client, "token_balance", rpc.AccountParam{Account: memberAddr}, &memberBal)

	var history rpc.HistoryResult
	call(client, "token_history", rpc.AccountParam{Account: memberAddr}, &history)

	var digest rpc.DigestResult
	call(client, "ledger_digest", nil, &digest)

	// ── Phase 6: Verify event delivery on the observer node ──────────────

	client2 := rpcclient.New("http://" + node2.rpc.Addr() + "/")

	// Mint and burn both touch the null account, so two events are
	// expected under it.
	deadline := time.Now().Add(eventWait)
	var events rpc.EventsResult
	for {
		err := client2.Call("relay_events", rpc.EventQueryParam{Account: token.NullAccount}, &events)
		if err == nil && events.Total >= 2 {
			break
		}
		if time.Now().After(deadline) {
			break
		}
		time.Sleep(250 * time.Millisecond)
	}

	if events.Total >= 2 {
		logger.Info().Msg("SUCCESS: Events delivered to the observer node!")
		fmt.Println()
		fmt.Printf("  Token:           %s (%s)\n", info.Name, info.Symbol)
		fmt.Printf("  Supply:          %d\n", burned.TotalSupply)
		fmt.Printf("  Admin balance:   %d\n", adminBal.Balance)
		fmt.Printf("  Member balance:  %d\n", memberBal.Balance)
		fmt.Printf("  Relayed events:  %d\n", events.Total)
		fmt.Printf("  State digest:    %s\n", digest.Digest)
		fmt.Println()
		fmt.Printf("  Member history (%d records):\n", history.Total)
		for i, rec := range history.Records {
			fmt.Printf("    [%d] %s -> %s  value %s\n", i, rec.From, rec.To, rec.Value)
		}
		fmt.Println()
	} else {
		logger.Error().Int("events", events.Total).Msg("FAILURE: Events did not reach the observer node!")
		os.Exit(1)
	}
}

// call invokes an RPC method and aborts the devnet on failure.
func call(client *rpcclient.Client, method string, params, result interface{}) {
	if err := client.Call(method, params, result); err != nil {
		logger := klog.WithComponent("devnet")
		logger.Fatal().Err(err).Str("method", method).Msg("RPC call failed")
	}
}

// buildNode creates a fully wired in-process node with ledger, engine,
// relay, and RPC. A non-empty ksDir enables the custodial wallet.
func buildNode(name string, policy *config.Policy, ksDir string) (*nodeBundle, error) {
	db := storage.NewMemory()
	ledger := state.NewLedger(storage.NewPrefixDB(db, []byte("state/")))
	engine := token.NewEngine(ledger, policy)

	relayNode := relay.New(relay.Config{
		ListenAddr:  "127.0.0.1",
		Port:        0, // Random port.
		NoDiscover:  true,
		DB:          db,
		IndexEvents: true,
		NetworkID:   policy.NetworkID,
	})

	policyHash, err := policy.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash policy: %w", err)
	}
	relayNode.SetPolicyHash(policyHash)
	relayNode.SetDigestFn(func() types.Hash {
		d, dErr := ledger.Digest()
		if dErr != nil {
			return types.Hash{}
		}
		return d
	})

	nodeLogger := klog.WithComponent(name)
	relayNode.SetEventHandler(func(_ libp2ppeer.ID, env *relay.Envelope) {
		nodeLogger.Info().Str("event", env.Event).Msg("Event received")
	})

	// Committed events go straight to the gossip topic.
	ledger.SetEventHandler(func(event string, payload []byte) {
		if pubErr := relayNode.PublishEvent(event, payload); pubErr != nil {
			nodeLogger.Warn().Err(pubErr).Str("event", event).Msg("publish event")
		}
	})

	srv := rpc.New("127.0.0.1:0", engine, ledger, policy, relayNode)
	if ksDir != "" {
		ks, ksErr := wallet.NewKeystore(ksDir)
		if ksErr != nil {
			return nil, fmt.Errorf("create keystore: %w", ksErr)
		}
		srv.SetKeystore(ks)
	}

	return &nodeBundle{name: name, ledger: ledger, engine: engine, relay: relayNode, rpc: srv}, nil
}

// connectNodes connects two relay nodes directly.
func connectNodes(a, b *relay.Node) {
	info := libp2ppeer.AddrInfo{
		ID:    a.Host().ID(),
		Addrs: a.Host().Addrs(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b.Host().Connect(ctx, info)
}

// cleanup stops all nodes.
func cleanup(nodes ...*nodeBundle) {
	for _, n := range nodes {
		n.rpc.Stop()
		n.relay.Stop()
	}
}
