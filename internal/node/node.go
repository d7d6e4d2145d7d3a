// Package node provides a reusable ledger node that can be embedded
// in any binary (daemon, devnet harness, etc.).
package node

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Klingon-tech/klingnet-ledger/config"
	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/relay"
	"github.com/Klingon-tech/klingnet-ledger/internal/rpc"
	"github.com/Klingon-tech/klingnet-ledger/internal/state"
	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
	"github.com/Klingon-tech/klingnet-ledger/internal/token"
	"github.com/Klingon-tech/klingnet-ledger/internal/wallet"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"
)

// statusInterval is how often a running node logs its ledger status line.
const statusInterval = 15 * time.Minute

// statePrefix isolates token state inside the shared database. The state
// digest walks exactly this keyspace, so relay records (peers, bans, the
// event index) must live outside it.
var statePrefix = []byte("state/")

// Node is a fully-initialized ledger node.
type Node struct {
	cfg    *config.Config
	policy *config.Policy
	logger zerolog.Logger

	// Core
	db     storage.DB
	ledger *state.Ledger
	engine *token.Engine

	// Networking
	relayNode *relay.Node

	// RPC
	rpcServer *rpc.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and initializes a new Node. It performs all setup steps
// (logger, policy, storage, engine, relay, RPC) but does NOT start
// background goroutines. Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Set address HRP ──────────────────────────────────────────
	if cfg.Network == config.Testnet {
		types.SetAddressHRP(types.TestnetHRP)
	} else {
		types.SetAddressHRP(types.MainnetHRP)
	}

	// ── 2. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = logsDir + "/ledger.log"
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	// ── 3. Network policy ───────────────────────────────────────────
	policy, created, err := loadOrCreatePolicy(cfg)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info().Str("path", cfg.PolicyFile()).Msg("Network policy written")
	}

	logger.Info().
		Str("network_id", policy.NetworkID).
		Str("network", string(cfg.Network)).
		Str("admin_org", policy.AdminOrganization).
		Str("backend", string(cfg.Storage.Backend)).
		Msg("Starting Klingnet Ledger Node")

	// ── 4. Open storage ─────────────────────────────────────────────
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.StateDir(), err)
	}

	ledger := state.NewLedger(storage.NewPrefixDB(db, statePrefix))
	logger.Info().Str("path", cfg.StateDir()).Msg("Database opened")

	// ── 5. Token engine ─────────────────────────────────────────────
	engine := token.NewEngine(ledger, policy)

	if name, nameErr := engine.TokenName(); nameErr == nil {
		supply, _ := engine.TotalSupply()
		logger.Info().
			Str("token", name).
			Int64("supply", supply).
			Msg("Ledger resumed from database")
	} else {
		logger.Info().Msg("Ledger awaiting initialization")
	}

	// ── 6. Event relay ──────────────────────────────────────────────
	var relayNode *relay.Node
	if cfg.Relay.Enabled {
		relayNode = relay.New(relay.Config{
			ListenAddr:  cfg.Relay.ListenAddr,
			Port:        cfg.Relay.Port,
			Seeds:       cfg.Relay.Seeds,
			MaxPeers:    cfg.Relay.MaxPeers,
			NoDiscover:  cfg.Relay.NoDiscover,
			DB:          db,
			DHTServer:   cfg.Relay.DHTServer,
			IndexEvents: cfg.Relay.IndexEvents,
			NetworkID:   policy.NetworkID,
			DataDir:     cfg.RelayDir(),
		})

		policyHash, hashErr := policy.Hash()
		if hashErr != nil {
			db.Close()
			return nil, fmt.Errorf("hash policy: %w", hashErr)
		}
		relayNode.SetPolicyHash(policyHash)
		relayNode.SetDigestFn(func() types.Hash {
			d, dErr := ledger.Digest()
			if dErr != nil {
				return types.Hash{}
			}
			return d
		})

		// Relayed events are observational. State changes only through
		// local operations; the gossip layer carries notifications.
		relayNode.SetEventHandler(func(from peer.ID, env *relay.Envelope) {
			logger.Debug().
				Str("event", env.Event).
				Str("id", env.ID.String()[:8]).
				Str("from", from.String()).
				Msg("Ledger event relayed")
		})

		if err := relayNode.Start(); err != nil {
			db.Close()
			return nil, fmt.Errorf("start relay: %w", err)
		}

		logger.Info().
			Str("id", relayNode.ID().String()).
			Int("port", cfg.Relay.Port).
			Bool("discovery", !cfg.Relay.NoDiscover).
			Msg("Event relay started")

		// Committed token events go out on the gossip topic. Publish
		// failures never fail the commit that produced the event.
		ledger.SetEventHandler(func(name string, payload []byte) {
			if pubErr := relayNode.PublishEvent(name, payload); pubErr != nil {
				logger.Warn().Err(pubErr).Str("event", name).Msg("Failed to publish event")
			}
		})
	} else {
		logger.Warn().Msg("Relay disabled by config; node will run offline")
	}

	// ── 7. RPC server ───────────────────────────────────────────────
	var rpcServer *rpc.Server
	if cfg.RPC.Enabled {
		rpcAddr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		rpcServer = rpc.New(rpcAddr, engine, ledger, policy, relayNode, cfg.RPC)
		if err := rpcServer.Start(); err != nil {
			if relayNode != nil {
				relayNode.Stop()
			}
			db.Close()
			return nil, fmt.Errorf("start RPC at %s: %w", rpcAddr, err)
		}
		logger.Info().Str("addr", rpcServer.Addr()).Msg("RPC server started")

		// Wallet RPC.
		if cfg.Wallet.Enabled {
			ks, ksErr := wallet.NewKeystore(expandHome(cfg.KeystoreDir()))
			if ksErr != nil {
				rpcServer.Stop()
				if relayNode != nil {
					relayNode.Stop()
				}
				db.Close()
				return nil, fmt.Errorf("create wallet keystore: %w", ksErr)
			}
			rpcServer.SetKeystore(ks)
			logger.Info().Str("path", cfg.KeystoreDir()).Msg("Wallet RPC enabled")
		}
	} else {
		if cfg.Wallet.Enabled {
			logger.Warn().Msg("wallet.enabled is true but RPC is disabled; wallet endpoints unavailable")
		}
		logger.Warn().Msg("RPC disabled by config")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Node{
		cfg:       cfg,
		policy:    policy,
		logger:    logger,
		db:        db,
		ledger:    ledger,
		engine:    engine,
		relayNode: relayNode,
		rpcServer: rpcServer,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start launches background goroutines.
func (n *Node) Start() error {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.runStatusLoop()
	}()

	ev := n.logger.Info()
	if name, err := n.engine.TokenName(); err == nil {
		ev = ev.Str("token", name)
	}
	if supply, err := n.engine.TotalSupply(); err == nil {
		ev = ev.Int64("supply", supply)
	}
	ev.Bool("relay", n.relayNode != nil).
		Bool("rpc", n.rpcServer != nil).
		Msg("Node started successfully")

	return nil
}

// Stop performs graceful shutdown in reverse order.
func (n *Node) Stop() {
	n.cancel()
	n.wg.Wait()

	if n.rpcServer != nil {
		n.rpcServer.Stop()
	}
	if n.relayNode != nil {
		n.relayNode.Stop()
	}
	if n.db != nil {
		n.db.Close()
	}

	n.logger.Info().Msg("Goodbye!")
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Relay returns the node's event relay, or nil when the relay is disabled.
func (n *Node) Relay() *relay.Node {
	return n.relayNode
}

// Engine returns the node's token engine.
func (n *Node) Engine() *token.Engine {
	return n.engine
}

// ── Status ──────────────────────────────────────────────────────────

// runStatusLoop logs a periodic supply and digest line.
func (n *Node) runStatusLoop() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.logStatus()
		}
	}
}

func (n *Node) logStatus() {
	ev := n.logger.Info()
	if supply, err := n.engine.TotalSupply(); err == nil {
		ev = ev.Int64("supply", supply)
	}
	if digest, err := n.ledger.Digest(); err == nil {
		ev = ev.Str("digest", digest.String()[:16]+"...")
	}
	if n.relayNode != nil {
		ev = ev.Int("peers", n.relayNode.PeerCount())
	}
	ev.Msg("Ledger status")
}
