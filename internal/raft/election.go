package raft

import "time"

// resetElectionTimer draws a fresh randomized timeout and sets the
// deadline against which the event loop compares clock.Now() each tick.
// The range depends on whether a leader is currently known: short when
// leaderless (converge fast), long when a leader is known (avoid
// false-positive elections).
func (r *Replica) resetElectionTimer() {
	lo, hi := electionTimeoutKnownMin, electionTimeoutKnownMax
	if r.leader == UnknownLeader {
		lo, hi = electionTimeoutUnknownMin, electionTimeoutUnknownMax
	}
	r.electionDeadline = r.clock.Now().Add(jitter(r.rnd, lo, hi))
}

// electionTimedOut reports whether the election deadline has passed.
func (r *Replica) electionTimedOut() bool {
	return !r.clock.Now().Before(r.electionDeadline)
}

// stepDown transitions to Follower under a message carrying a higher
// term. If the replica was Leader, every in-flight client request it
// was holding is failed once the transition to Follower is made.
func (r *Replica) stepDown(term uint64, leaderHint string) {
	wasLeader := r.state == Leader

	r.currentTerm = term
	r.votedFor = ""
	r.state = Follower
	if leaderHint != "" {
		r.leader = leaderHint
	}
	r.votes = make(map[string]bool)
	r.resetElectionTimer()

	if wasLeader {
		r.failInFlightAsExLeader()
	}
}

// failInFlightAsExLeader fails every uncommitted client log entry and
// every outstanding pending read on leadership loss.
func (r *Replica) failInFlightAsExLeader() {
	for i := r.commitIdx + 1; i <= r.entries.LastIndex(); i++ {
		entry := r.entries.Entry(i)
		if entry.Command == CommandPut && entry.Src != "" {
			r.reply(entry.Src, MsgFail, entry.MID, "")
		}
	}
	for _, pr := range r.pendingReads {
		r.reply(pr.msg.Src, MsgFail, pr.msg.MID, "")
	}
	r.pendingReads = nil
}

// startElection performs the Follower -> Candidate transition and
// broadcasts RequestVote.
func (r *Replica) startElection() {
	r.currentTerm++
	r.votedFor = r.id
	r.state = Candidate
	r.leader = UnknownLeader
	r.votes = map[string]bool{r.id: true}
	r.resetElectionTimer()

	r.log.Infof("became candidate for term %d", r.currentTerm)

	for _, peer := range r.peers {
		r.send(Message{
			Src:         r.id,
			Dst:         peer,
			Leader:      r.leader,
			Term:        r.currentTerm,
			Type:        MsgRequestVote,
			LastLogIdx:  r.entries.LastIndex(),
			LastLogTerm: r.entries.LastTerm(),
		})
	}

	r.maybeBecomeLeader()
}

// maybeBecomeLeader promotes a Candidate to Leader once it holds a
// quorum of votes.
func (r *Replica) maybeBecomeLeader() {
	if r.state != Candidate || len(r.votes) < r.quorum() {
		return
	}

	r.state = Leader
	r.leader = r.id
	r.nextIdx = make(map[string]uint64, len(r.peers))
	r.matchIdx = make(map[string]uint64, len(r.peers))
	r.lastSendPeer = make(map[string]time.Time)
	for _, peer := range r.peers {
		r.nextIdx[peer] = r.commitIdx + 1
		r.matchIdx[peer] = 0
	}

	r.log.Infof("became leader for term %d", r.currentTerm)

	r.broadcastAppendEntries()
	r.lastHeartbeat = r.clock.Now()
}

// handleRequestVote implements the RequestVote receiver logic.
func (r *Replica) handleRequestVote(msg Message) {
	granted := false

	if msg.Term >= r.currentTerm &&
		(r.votedFor == "" || r.votedFor == msg.Src) &&
		r.candidateLogUpToDate(msg.LastLogIdx, msg.LastLogTerm) {
		r.votedFor = msg.Src
		granted = true
		r.resetElectionTimer()
	}

	r.send(Message{
		Src:         r.id,
		Dst:         msg.Src,
		Leader:      r.leader,
		Term:        r.currentTerm,
		Type:        MsgResponseVote,
		VoteGranted: granted,
	})
}

// candidateLogUpToDate implements the log-comparison half of the vote
// grant rule.
func (r *Replica) candidateLogUpToDate(lastLogIdx, lastLogTerm uint64) bool {
	ourTerm, ourIdx := r.entries.LastTerm(), r.entries.LastIndex()
	if lastLogTerm != ourTerm {
		return lastLogTerm > ourTerm
	}
	return lastLogIdx >= ourIdx
}

// handleResponseVote tallies a vote reply. Only meaningful while still
// Candidate in the same term the vote was requested for.
func (r *Replica) handleResponseVote(msg Message) {
	if r.state != Candidate || msg.Term != r.currentTerm || !msg.VoteGranted {
		return
	}
	r.votes[msg.Src] = true
	r.maybeBecomeLeader()
}
