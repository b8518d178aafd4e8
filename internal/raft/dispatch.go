package raft

import "encoding/json"

// checkPeer reports ErrUnknownPeer if src does not name a configured
// cluster peer. Client message sources (arbitrary client IDs) are not
// checked; this only guards the replica-to-replica RPCs.
func (r *Replica) checkPeer(src string) error {
	for _, p := range r.peers {
		if p == src {
			return nil
		}
	}
	return ErrUnknownPeer
}

// send marshals and hands msg to the transport. Marshal or transport
// failures are logged and otherwise swallowed: message loss is handled
// by timers everywhere in this protocol, never by propagating a send
// error up through the event loop.
func (r *Replica) send(msg Message) {
	if msg.Leader == "" {
		msg.Leader = r.leader
	}
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Errorf("marshal %s to %s: %v", msg.Type, msg.Dst, err)
		return
	}
	if len(data) > MaxMessageBytes {
		r.log.Errorf("message to %s exceeds %d bytes, dropping", msg.Dst, MaxMessageBytes)
		return
	}
	if err := r.transport.Send(msg.Dst, data); err != nil {
		r.log.Warnf("send %s to %s: %v", msg.Type, msg.Dst, err)
	}
}

// reply is a convenience for the common client-facing case: an envelope
// with just the fields a client cares about.
func (r *Replica) reply(dst string, typ MsgType, mid, value string) {
	r.send(Message{
		Src:   r.id,
		Dst:   dst,
		Term:  r.currentTerm,
		Type:  typ,
		MID:   mid,
		Value: value,
	})
}

// Dispatch decodes one wire frame and routes it to the appropriate
// handler. If the message carries a higher term, the replica steps down
// to Follower under it first, exactly once, before the type-specific
// handler runs. Unknown types are ignored.
func (r *Replica) Dispatch(frame []byte) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		r.log.Warnf("dropping malformed message: %v", err)
		return
	}

	switch msg.Type {
	case MsgRequestVote, MsgResponseVote, MsgAppendEntries, MsgOK, MsgFail:
		if err := r.checkPeer(msg.Src); err != nil {
			r.log.Warnf("dropping %s from %s: %v", msg.Type, msg.Src, err)
			return
		}
	}

	if msg.Term > r.currentTerm {
		r.stepDown(msg.Term, msg.Leader)
	}

	switch msg.Type {
	case MsgGet, MsgPut:
		r.handleClientRequest(msg)
	case MsgRequestVote:
		r.handleRequestVote(msg)
	case MsgResponseVote:
		r.handleResponseVote(msg)
	case MsgAppendEntries:
		r.handleAppendEntries(msg)
	case MsgOK:
		r.handleAppendEntriesOK(msg)
	case MsgFail:
		r.handleAppendEntriesFail(msg)
	default:
		// redirect/unknown: nothing a replica needs to react to.
	}
}
