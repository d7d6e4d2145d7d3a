package relay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

func TestHandshakeMessage_JSON(t *testing.T) {
	msg := HandshakeMessage{
		ProtocolVersion: 1,
		PolicyHash:      types.Hash{0xaa, 0xbb, 0xcc},
		NetworkID:       "klingnet-ledger-testnet-1",
		StateDigest:     types.Hash{0x11, 0x22},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded HandshakeMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.ProtocolVersion != msg.ProtocolVersion {
		t.Errorf("ProtocolVersion: got %d, want %d", decoded.ProtocolVersion, msg.ProtocolVersion)
	}
	if decoded.PolicyHash != msg.PolicyHash {
		t.Errorf("PolicyHash mismatch")
	}
	if decoded.NetworkID != msg.NetworkID {
		t.Errorf("NetworkID: got %q, want %q", decoded.NetworkID, msg.NetworkID)
	}
	if decoded.StateDigest != msg.StateDigest {
		t.Errorf("StateDigest mismatch")
	}
}

func TestNode_ValidateHandshake_Success(t *testing.T) {
	n := New(Config{ListenAddr: "127.0.0.1", Port: 0})
	n.policyHash = types.Hash{0x01, 0x02, 0x03}

	msg := HandshakeMessage{
		ProtocolVersion: ProtocolVersion,
		PolicyHash:      types.Hash{0x01, 0x02, 0x03},
		NetworkID:       "test",
		StateDigest:     types.Hash{0xff},
	}

	reason := n.validateHandshake(msg)
	if reason != "" {
		t.Errorf("expected success, got reason: %s", reason)
	}
}

func TestNode_ValidateHandshake_PolicyMismatch(t *testing.T) {
	n := New(Config{ListenAddr: "127.0.0.1", Port: 0})
	n.policyHash = types.Hash{0x01, 0x02, 0x03}

	msg := HandshakeMessage{
		ProtocolVersion: ProtocolVersion,
		PolicyHash:      types.Hash{0xff, 0xfe, 0xfd}, // Different policy.
		NetworkID:       "test",
	}

	reason := n.validateHandshake(msg)
	if reason == "" {
		t.Error("expected policy mismatch reason, got empty")
	}
}

func TestNode_ValidateHandshake_DigestMismatchTolerated(t *testing.T) {
	n := New(Config{ListenAddr: "127.0.0.1", Port: 0})
	n.policyHash = types.Hash{0x01}
	n.digestFn = func() types.Hash { return types.Hash{0xaa} }

	// Peers with the same policy but different state digests still peer;
	// digests diverge while events propagate.
	msg := HandshakeMessage{
		ProtocolVersion: ProtocolVersion,
		PolicyHash:      types.Hash{0x01},
		NetworkID:       "test",
		StateDigest:     types.Hash{0xbb},
	}

	if reason := n.validateHandshake(msg); reason != "" {
		t.Errorf("digest mismatch should be tolerated, got reason: %s", reason)
	}
}

func TestNode_ValidateHandshake_VersionTooLow(t *testing.T) {
	n := New(Config{ListenAddr: "127.0.0.1", Port: 0})
	n.policyHash = types.Hash{0x01}

	msg := HandshakeMessage{
		ProtocolVersion: 0, // Below minimum.
		PolicyHash:      types.Hash{0x01},
		NetworkID:       "test",
	}

	reason := n.validateHandshake(msg)
	if reason == "" {
		t.Error("expected version too low reason, got empty")
	}
}

func TestNode_SetPolicyHash(t *testing.T) {
	n := New(Config{ListenAddr: "127.0.0.1", Port: 0})

	if n.handshakeEnabled {
		t.Error("handshake should be disabled by default")
	}

	h := types.Hash{0xaa, 0xbb}
	n.SetPolicyHash(h)

	if !n.handshakeEnabled {
		t.Error("handshake should be enabled after SetPolicyHash with non-zero hash")
	}
	if n.policyHash != h {
		t.Error("policy hash not set correctly")
	}

	// Setting zero hash disables it.
	n.SetPolicyHash(types.Hash{})
	if n.handshakeEnabled {
		t.Error("handshake should be disabled after SetPolicyHash with zero hash")
	}
}

func TestNode_BuildHandshakeMessage(t *testing.T) {
	n := New(Config{ListenAddr: "127.0.0.1", Port: 0, NetworkID: "klingnet-ledger-testnet-1"})
	n.policyHash = types.Hash{0x01}
	n.digestFn = func() types.Hash { return types.Hash{0x99} }

	msg := n.buildHandshakeMessage()

	if msg.ProtocolVersion != ProtocolVersion {
		t.Errorf("ProtocolVersion: got %d, want %d", msg.ProtocolVersion, ProtocolVersion)
	}
	if msg.PolicyHash != n.policyHash {
		t.Error("PolicyHash mismatch")
	}
	if msg.NetworkID != "klingnet-ledger-testnet-1" {
		t.Errorf("NetworkID: got %q, want %q", msg.NetworkID, "klingnet-ledger-testnet-1")
	}
	if msg.StateDigest != (types.Hash{0x99}) {
		t.Error("StateDigest mismatch")
	}
}

func TestNode_BuildHandshakeMessage_NoDigestFn(t *testing.T) {
	n := New(Config{ListenAddr: "127.0.0.1", Port: 0})
	n.policyHash = types.Hash{0x01}

	msg := n.buildHandshakeMessage()
	if msg.StateDigest != (types.Hash{}) {
		t.Errorf("StateDigest should be zero without digestFn, got %s", msg.StateDigest)
	}
}

func TestNode_DisconnectPeer_NotStarted(t *testing.T) {
	n := New(Config{ListenAddr: "127.0.0.1", Port: 0})
	err := n.DisconnectPeer(peer.ID("fake"))
	if err == nil {
		t.Error("DisconnectPeer should fail before Start")
	}
}

func TestNode_DisconnectPeer(t *testing.T) {
	nodeA := startTestNode(t)
	nodeB := startTestNode(t)
	connectNodes(t, nodeA, nodeB)

	if nodeA.PeerCount() < 1 {
		t.Fatal("nodeA should have at least 1 peer")
	}

	// Disconnect B from A's side.
	if err := nodeA.DisconnectPeer(nodeB.host.ID()); err != nil {
		t.Fatalf("DisconnectPeer: %v", err)
	}

	// Wait for disconnect to propagate.
	time.Sleep(200 * time.Millisecond)

	if nodeA.PeerCount() != 0 {
		t.Errorf("nodeA should have 0 peers after disconnect, got %d", nodeA.PeerCount())
	}
}

func TestTwoNodes_Handshake_Success(t *testing.T) {
	policy := types.Hash{0x01, 0x02, 0x03}

	nodeA := New(Config{ListenAddr: "127.0.0.1", Port: 0, NoDiscover: true, NetworkID: "test"})
	nodeA.SetPolicyHash(policy)
	if err := nodeA.Start(); err != nil {
		t.Fatalf("start nodeA: %v", err)
	}
	t.Cleanup(func() { nodeA.Stop() })

	nodeB := New(Config{ListenAddr: "127.0.0.1", Port: 0, NoDiscover: true, NetworkID: "test"})
	nodeB.SetPolicyHash(policy)
	if err := nodeB.Start(); err != nil {
		t.Fatalf("start nodeB: %v", err)
	}
	t.Cleanup(func() { nodeB.Stop() })

	connectNodes(t, nodeA, nodeB)

	// Both should remain connected (same policy).
	time.Sleep(500 * time.Millisecond)

	if nodeA.PeerCount() < 1 {
		t.Errorf("nodeA should still have peer, got %d", nodeA.PeerCount())
	}
	if nodeB.PeerCount() < 1 {
		t.Errorf("nodeB should still have peer, got %d", nodeB.PeerCount())
	}
}

func TestTwoNodes_Handshake_PolicyMismatch(t *testing.T) {
	nodeA := New(Config{ListenAddr: "127.0.0.1", Port: 0, NoDiscover: true, NetworkID: "test"})
	nodeA.SetPolicyHash(types.Hash{0x01})
	if err := nodeA.Start(); err != nil {
		t.Fatalf("start nodeA: %v", err)
	}
	t.Cleanup(func() { nodeA.Stop() })

	nodeB := New(Config{ListenAddr: "127.0.0.1", Port: 0, NoDiscover: true, NetworkID: "test"})
	nodeB.SetPolicyHash(types.Hash{0xff}) // Different policy.
	if err := nodeB.Start(); err != nil {
		t.Fatalf("start nodeB: %v", err)
	}
	t.Cleanup(func() { nodeB.Stop() })

	connectNodes(t, nodeA, nodeB)

	// Wait for handshake to complete and disconnect.
	time.Sleep(1 * time.Second)

	// At least one side should have disconnected. Both sides validate
	// the handshake, so both may disconnect.
	if nodeA.PeerCount() > 0 && nodeB.PeerCount() > 0 {
		t.Errorf("expected at least one side to disconnect: A=%d B=%d",
			nodeA.PeerCount(), nodeB.PeerCount())
	}
}
