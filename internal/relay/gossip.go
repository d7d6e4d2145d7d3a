package relay

import (
	"encoding/json"
	"fmt"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"
)

// SetEventHandler registers a callback for verified incoming envelopes.
// The callback receives the relaying peer, which is not necessarily the
// envelope's origin.
func (n *Node) SetEventHandler(fn func(from peer.ID, env *Envelope)) {
	n.eventHandler = fn
}

// PublishEvent seals a ledger event into a signed envelope and gossips
// it to the network. The local index is updated before the broadcast so
// a node's own events are queryable even with no peers.
func (n *Node) PublishEvent(event string, payload []byte) error {
	if n.topicEvents == nil {
		return fmt.Errorf("relay node not started")
	}

	env, err := Seal(event, payload, n.signer)
	if err != nil {
		return err
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if n.index != nil {
		n.index.Put(env) // Best-effort, ignore errors.
	}

	return n.topicEvents.Publish(n.ctx, data)
}

// handleEventMessage validates an incoming envelope and dispatches it.
// Peers that relay garbage accumulate ban score.
func (n *Node) handleEventMessage(msg *pubsub.Message) {
	defer func() { recover() }()
	n.addPeer(msg.ReceivedFrom)

	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		if n.BanManager != nil {
			n.BanManager.RecordOffense(msg.ReceivedFrom, PenaltyMalformedEnvelope, "undecodable envelope")
		}
		return
	}

	if err := env.Verify(); err != nil {
		if n.BanManager != nil {
			n.BanManager.RecordOffense(msg.ReceivedFrom, PenaltyBadEnvelopeSig, err.Error())
		}
		return
	}

	if n.index != nil {
		n.index.Put(&env) // Best-effort, ignore errors.
	}

	if n.eventHandler != nil {
		n.eventHandler(msg.ReceivedFrom, &env)
	}
}
