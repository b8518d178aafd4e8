package raft

import (
	"errors"
	"time"
)

// handleClientRequest routes an incoming get/put to the leader path or
// the non-leader buffering path.
func (r *Replica) handleClientRequest(msg Message) {
	if err := r.serve(msg); err != nil {
		if errors.Is(err, ErrNotLeader) {
			r.buffered.put(msg)
			return
		}
		r.log.Warnf("serve %s from %s: %v", msg.Type, msg.Src, err)
	}
}

// serve executes a get or put on the leader. Returns ErrNotLeader
// without side effects if this replica isn't currently leading.
func (r *Replica) serve(msg Message) error {
	if r.state != Leader {
		return ErrNotLeader
	}
	switch msg.Type {
	case MsgPut:
		r.servePut(msg)
	case MsgGet:
		r.serveGet(msg)
	}
	return nil
}

// servePut implements the put path: idempotent replay for a
// previously-committed MID, otherwise append a new entry and defer the
// reply until commit.
func (r *Replica) servePut(msg Message) {
	for i := uint64(1); i <= r.commitIdx; i++ {
		entry := r.entries.Entry(i)
		if entry.Command == CommandPut && entry.Src == msg.Src && entry.MID == msg.MID {
			r.reply(msg.Src, MsgOK, msg.MID, r.sm.Get(entry.Key))
			return
		}
	}

	r.entries.AppendMany([]LogEntry{{
		Term:    r.currentTerm,
		Command: CommandPut,
		Src:     msg.Src,
		MID:     msg.MID,
		Key:     msg.Key,
		Value:   msg.Value,
	}})
}

// serveGet implements the read path: record the request
// against the current commit index, and if there is no uncommitted
// entry in flight, append a NO_OP so the next commit round confirms
// leadership before the read is answered.
func (r *Replica) serveGet(msg Message) {
	r.pendingReads = append(r.pendingReads, pendingRead{
		commitIdxAtReceipt: r.commitIdx,
		msg:                msg,
		receivedAt:         r.clock.Now(),
	})

	if r.commitIdx == r.entries.LastIndex() {
		r.entries.AppendMany([]LogEntry{{Term: r.currentTerm, Command: CommandNoOp}})
	}
}

// commitTo advances commitIdx (if to is higher), applies newly
// committed entries to the state machine, and — if we are the leader —
// notifies clients whose puts or reads just became satisfiable. Keeping
// apply and notify coupled to the commit-index change itself (rather
// than deferring to the event loop's own periodic apply step) ensures
// notifyCommitted's datastore.get always reflects the entries it is
// reporting on, even within the same tick.
func (r *Replica) commitTo(to uint64) {
	if to <= r.commitIdx {
		return
	}
	prev := r.commitIdx
	r.commitIdx = to
	r.applyCommitted()
	if r.state == Leader {
		r.notifyCommitted(prev, to)
	}
}

// applyCommitted is the apply loop: advance lastApplied
// up to commitIdx, applying each put entry to the state machine.
func (r *Replica) applyCommitted() {
	for r.lastApplied < r.commitIdx {
		r.lastApplied++
		entry := r.entries.Entry(r.lastApplied)
		if entry.Command == CommandPut {
			r.sm.Put(entry.Key, entry.Value)
		}
	}
}

// notifyCommitted replies to clients whose work just committed: put
// acks for current-term entries in (prev, to], and any pending read
// whose recorded commit index has now been reached.
func (r *Replica) notifyCommitted(prev, to uint64) {
	for i := prev + 1; i <= to; i++ {
		entry := r.entries.Entry(i)
		if entry.Command == CommandPut && entry.Term == r.currentTerm {
			r.reply(entry.Src, MsgOK, entry.MID, "")
		}
	}

	remaining := r.pendingReads[:0]
	for _, pr := range r.pendingReads {
		if pr.commitIdxAtReceipt <= to {
			r.reply(pr.msg.Src, MsgOK, pr.msg.MID, r.sm.Get(pr.msg.Key))
		} else {
			remaining = append(remaining, pr)
		}
	}
	r.pendingReads = remaining
}

// evictStaleReads fails and removes any pending read older than
// staleReadTTL.
func (r *Replica) evictStaleReads(now time.Time) {
	remaining := r.pendingReads[:0]
	for _, pr := range r.pendingReads {
		if now.Sub(pr.receivedAt) >= staleReadTTL {
			r.reply(pr.msg.Src, MsgFail, pr.msg.MID, "")
			continue
		}
		remaining = append(remaining, pr)
	}
	r.pendingReads = remaining
}

// leaderStatus reports this replica's standing for serving a client
// request directly: nil if it may serve one itself, ErrNoLeader if no
// leader is known at all, or ErrNotLeader if a specific leader is known
// to redirect to.
func (r *Replica) leaderStatus() error {
	if r.state == Leader {
		return nil
	}
	if r.leader == UnknownLeader {
		return ErrNoLeader
	}
	return ErrNotLeader
}

// manageBufferedClients implements the periodic buffer
// handling: leaders dispatch through the normal path, followers with a
// known leader redirect, and leaderless followers fail after
// bufferedFailTTL has elapsed since the last flush.
func (r *Replica) manageBufferedClients(now time.Time) {
	if r.buffered.len() == 0 {
		return
	}

	switch err := r.leaderStatus(); {
	case err == nil:
		for _, msg := range r.buffered.drain() {
			r.serve(msg)
		}
		r.lastFlush = now
	case errors.Is(err, ErrNoLeader):
		if now.Sub(r.lastFlush) >= bufferedFailTTL {
			for _, msg := range r.buffered.drain() {
				r.reply(msg.Src, MsgFail, msg.MID, "")
			}
			r.lastFlush = now
		}
	default: // ErrNotLeader: a specific leader is known, redirect to it
		for _, msg := range r.buffered.drain() {
			r.reply(msg.Src, MsgRedirect, msg.MID, "")
		}
		r.lastFlush = now
	}
}
