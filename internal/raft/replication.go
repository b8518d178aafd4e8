package raft

import (
	"sort"
	"time"
)

// sendAppendEntriesTo builds and sends one AppendEntries RPC to peer,
// following the leader sending rule: batch starting at
// nextIdx[peer], capped at batchCap entries.
func (r *Replica) sendAppendEntriesTo(peer string) {
	nextIdx := r.nextIdx[peer]
	if nextIdx == 0 {
		nextIdx = 1
	}
	prevIdx := nextIdx - 1
	prevTerm := r.entries.Entry(prevIdx).Term
	entries := r.entries.Slice(nextIdx, batchCap)

	r.send(Message{
		Src:          r.id,
		Dst:          peer,
		Leader:       r.id,
		Term:         r.currentTerm,
		Type:         MsgAppendEntries,
		PrevLogIdx:   prevIdx,
		PrevLogTerm:  prevTerm,
		Entries:      entries,
		LeaderCommit: r.commitIdx,
	})
	r.lastSendPeer[peer] = r.clock.Now()
}

// broadcastAppendEntries sends AppendEntries to every peer, unthrottled
// by sendFreq — this is the heartbeat path. Deliberately asymmetric with
// the per-peer catch-up loop in tickReplication, which does honor sendFreq.
func (r *Replica) broadcastAppendEntries() {
	for _, peer := range r.peers {
		r.sendAppendEntriesTo(peer)
	}
}

// tickReplication is the leader-only per-iteration replication work:
// throttled catch-up sends, and the unthrottled heartbeat broadcast.
func (r *Replica) tickReplication(now time.Time) {
	if r.state != Leader {
		return
	}

	for _, peer := range r.peers {
		if r.matchIdx[peer] < r.entries.LastIndex() {
			if now.Sub(r.lastSendPeer[peer]) >= sendFreq {
				r.sendAppendEntriesTo(peer)
			}
		}
	}

	if now.Sub(r.lastHeartbeat) >= heartbeatInterval {
		r.broadcastAppendEntries()
		r.lastHeartbeat = now
	}
}

// handleAppendEntries is the follower-side receiver logic. By the time
// this runs, Dispatch has already stepped the
// replica down if msg.Term > currentTerm, so this only needs to handle
// the remaining term/consistency checks.
func (r *Replica) handleAppendEntries(msg Message) {
	if msg.Term < r.currentTerm {
		r.send(Message{
			Src: r.id, Dst: msg.Src, Term: r.currentTerm, Type: MsgFail,
			PrevLogIdx:   msg.PrevLogIdx,
			TermFirstIdx: ptr(r.entries.FirstIndexOfTermAt(msg.PrevLogIdx)),
		})
		return
	}

	// Adopt this leader; msg.Term >= currentTerm here.
	r.currentTerm = msg.Term
	r.state = Follower
	r.leader = msg.Src
	r.resetElectionTimer()

	if msg.PrevLogIdx > r.entries.LastIndex() || !r.entries.PrefixMatches(msg.PrevLogIdx, msg.PrevLogTerm) {
		r.send(Message{
			Src: r.id, Dst: msg.Src, Term: r.currentTerm, Type: MsgFail,
			PrevLogIdx:   msg.PrevLogIdx,
			TermFirstIdx: ptr(r.entries.FirstIndexOfTermAt(msg.PrevLogIdx)),
		})
		return
	}

	if len(msg.Entries) > 0 && msg.PrevLogIdx+1 <= r.entries.LastIndex() {
		r.entries.TruncateFrom(msg.PrevLogIdx + 1)
	}
	r.entries.AppendMany(msg.Entries)

	newCommit := msg.LeaderCommit
	if r.entries.LastIndex() < newCommit {
		newCommit = r.entries.LastIndex()
	}
	r.commitTo(newCommit)

	r.send(Message{
		Src: r.id, Dst: msg.Src, Term: r.currentTerm, Type: MsgOK,
		PrevLogIdx: msg.PrevLogIdx,
		Entries:    msg.Entries,
	})
}

// handleAppendEntriesOK is the leader-side reply handler for a
// successful replication.
// Meaningless unless we are still Leader in the term this ack was for.
func (r *Replica) handleAppendEntriesOK(msg Message) {
	if r.state != Leader || msg.Term != r.currentTerm {
		return
	}

	matched := msg.PrevLogIdx + uint64(len(msg.Entries))
	if matched > r.matchIdx[msg.Src] {
		r.matchIdx[msg.Src] = matched
	}
	if next := matched + 1; next > r.nextIdx[msg.Src] {
		r.nextIdx[msg.Src] = next
	}

	r.advanceCommitIndex()
}

// handleAppendEntriesFail is the leader-side reply handler for a
// rejected AppendEntries: back off nextIdx and retry immediately,
// bypassing sendFreq.
func (r *Replica) handleAppendEntriesFail(msg Message) {
	if r.state != Leader || msg.Term != r.currentTerm {
		return
	}

	if msg.TermFirstIdx != nil {
		candidate := *msg.TermFirstIdx
		if candidate < r.matchIdx[msg.Src] {
			candidate = r.matchIdx[msg.Src]
		}
		r.nextIdx[msg.Src] = candidate
	} else if r.nextIdx[msg.Src] > 1 {
		r.nextIdx[msg.Src]--
	} else {
		r.nextIdx[msg.Src] = 1
	}

	r.sendAppendEntriesTo(msg.Src)
}

// advanceCommitIndex recomputes the commit candidate as the highest
// index replicated on a majority: sort match indices (peers plus self's
// last index), and take the (N/2+1)-th largest (integer division),
// including self — the same count as quorum().
func (r *Replica) advanceCommitIndex() {
	matches := make([]uint64, 0, len(r.peers)+1)
	for _, peer := range r.peers {
		matches = append(matches, r.matchIdx[peer])
	}
	matches = append(matches, r.entries.LastIndex())
	sort.Slice(matches, func(i, j int) bool { return matches[i] < matches[j] })

	n := len(matches)
	candidate := matches[n-1-(n/2)]

	if candidate > r.commitIdx && r.entries.Entry(candidate).Term == r.currentTerm {
		r.commitTo(candidate)
	}
}

func ptr(v uint64) *uint64 { return &v }
