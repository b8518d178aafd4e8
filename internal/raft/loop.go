package raft

import (
	"context"
	"time"
)

// Status returns the replica's current status, safe to call from any
// goroutine. It hands a response channel to the event loop and blocks
// until the next tick drains it, or until timeout elapses — used by the
// debug HTTP server, which runs on its own goroutine and must never
// touch replica fields directly.
func (r *Replica) Status(timeout time.Duration) (Status, bool) {
	ch := make(chan Status, 1)
	select {
	case r.statusReq <- ch:
	case <-time.After(timeout):
		return Status{}, false
	}
	select {
	case s := <-ch:
		return s, true
	case <-time.After(timeout):
		return Status{}, false
	}
}

// drainStatusRequests answers any pending Status calls with a fresh
// Snapshot. Run from the event loop's own goroutine only.
func (r *Replica) drainStatusRequests() {
	for {
		select {
		case ch := <-r.statusReq:
			ch <- r.Snapshot()
		default:
			return
		}
	}
}

// tick runs exactly one iteration of the event loop, in order:
//  1. manage buffered client requests
//  2. fail stale pending reads
//  3. (leader) throttled per-peer catch-up AppendEntries
//  4. (leader) unthrottled heartbeat broadcast
//  5. (non-leader) election timeout -> Candidate
//  6. apply committed entries
//  7. block-receive one message with a timeout; dispatch it
//
// A status-request drain runs first each iteration so introspection
// never waits longer than one recvTimeout.
func (r *Replica) tick() {
	now := r.clock.Now()

	r.drainStatusRequests()
	r.manageBufferedClients(now)
	r.evictStaleReads(now)
	r.tickReplication(now)

	if r.state != Leader && r.electionTimedOut() {
		r.startElection()
	}

	r.applyCommitted()

	frame, ok, err := r.transport.Recv(recvTimeout)
	if err != nil {
		r.log.Warnf("transport recv: %v", err)
		return
	}
	if !ok {
		return
	}
	r.Dispatch(frame)
}

// RunOnce executes a single event-loop iteration. Exposed for tests that
// want to drive the loop deterministically alongside a FakeClock.
func (r *Replica) RunOnce() {
	r.tick()
}

// Run drives the event loop indefinitely until ctx is canceled
// — the loop itself never decides to stop; shutdown is always external.
func (r *Replica) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			r.tick()
		}
	}
}
