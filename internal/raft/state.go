package raft

import (
	"math/rand"
	"time"

	"github.com/kimberlypn/CS3700/internal/logging"
	"github.com/kimberlypn/CS3700/internal/store"
)

// State is one of the three roles a replica can hold.
type State int

const (
	Follower State = iota
	Candidate
	Leader
)

func (s State) String() string {
	switch s {
	case Follower:
		return "follower"
	case Candidate:
		return "candidate"
	case Leader:
		return "leader"
	default:
		return "unknown"
	}
}

// Timing constants governing election timeouts, heartbeats, and
// send/read throttling.
const (
	electionTimeoutUnknownMin = 50 * time.Millisecond
	electionTimeoutUnknownMax = 100 * time.Millisecond
	electionTimeoutKnownMin   = 250 * time.Millisecond
	electionTimeoutKnownMax   = 400 * time.Millisecond

	heartbeatInterval = 125 * time.Millisecond
	sendFreq          = 25 * time.Millisecond
	batchCap          = 100

	staleReadTTL    = 3 * heartbeatInterval // 375ms
	bufferedFailTTL = 5 * heartbeatInterval // 625ms
	recvTimeout     = 50 * time.Millisecond
)

// pendingRead is an outstanding get, gated on commit-index confirmation.
type pendingRead struct {
	commitIdxAtReceipt uint64
	msg                Message
	receivedAt         time.Time
}

// bufferedClients is a small insertion-ordered, MID-deduplicated set of
// buffered client requests.
type bufferedClients struct {
	order []string
	byMID map[string]Message
}

func newBufferedClients() *bufferedClients {
	return &bufferedClients{byMID: make(map[string]Message)}
}

func (b *bufferedClients) put(msg Message) {
	if _, exists := b.byMID[msg.MID]; !exists {
		b.order = append(b.order, msg.MID)
	}
	b.byMID[msg.MID] = msg
}

func (b *bufferedClients) len() int { return len(b.order) }

// drain returns the buffered messages in insertion order and clears the
// buffer.
func (b *bufferedClients) drain() []Message {
	out := make([]Message, 0, len(b.order))
	for _, mid := range b.order {
		out = append(out, b.byMID[mid])
	}
	b.order = nil
	b.byMID = make(map[string]Message)
	return out
}

// Transport is the narrow send/receive contract the event loop needs
// from whatever moves framed bytes between replica endpoints.
// internal/transport provides ZeroMQ-backed
// and in-memory implementations; this package only depends on the
// interface, never on either concrete type.
type Transport interface {
	// Send frames and delivers msg to dst. Errors are logged and
	// otherwise ignored by the event loop — message loss
	// is handled by timers, not retries at the transport layer.
	Send(dst string, msg []byte) error
	// Recv blocks for up to timeout waiting for one message. ok is
	// false on timeout; it is never an error.
	Recv(timeout time.Duration) (msg []byte, ok bool, err error)
}

// Replica is the single owned aggregate holding persistent-style fields,
// volatile per-replica fields, and volatile leader-only fields. There is
// no package-level mutable state; every field a running cluster needs
// lives here.
type Replica struct {
	id    string
	peers []string // cluster members other than id

	transport Transport
	sm        *store.Store
	clock     Clock
	rnd       *rand.Rand
	log       *logging.Logger

	// persistent-style
	currentTerm uint64
	votedFor    string // "" means null
	entries     *Log

	// volatile per-replica
	commitIdx   uint64
	lastApplied uint64
	state       State
	leader      string

	electionDeadline time.Time

	// volatile leader-only
	nextIdx      map[string]uint64
	matchIdx     map[string]uint64
	votes        map[string]bool
	pendingReads []pendingRead
	buffered     *bufferedClients

	lastHeartbeat time.Time
	lastSendPeer  map[string]time.Time
	lastFlush     time.Time

	// statusReq lets other goroutines (e.g. the debug HTTP server) read
	// a consistent Status without racing the event loop, which is the
	// only goroutine allowed to touch replica-internal fields directly.
	statusReq chan chan Status
}

// New constructs a replica with the given ID, cluster peers (excluding
// self), transport, and clock. seed lets tests and multi-replica
// processes get reproducible-yet-distinct election jitter per replica.
func New(id string, peers []string, transport Transport, clock Clock, seed int64) *Replica {
	r := &Replica{
		id:           id,
		peers:        peers,
		transport:    transport,
		sm:           store.New(),
		clock:        clock,
		rnd:          rand.New(rand.NewSource(seed)),
		log:          logging.New(id),
		entries:      NewLog(),
		votedFor:     "",
		state:        Follower,
		leader:       UnknownLeader,
		nextIdx:      make(map[string]uint64),
		matchIdx:     make(map[string]uint64),
		votes:        make(map[string]bool),
		buffered:     newBufferedClients(),
		lastSendPeer: make(map[string]time.Time),
		statusReq:    make(chan chan Status, 1),
	}
	r.lastFlush = clock.Now()
	r.resetElectionTimer()
	return r
}

// Status is a read-only view of replica state for introspection
// (debug HTTP surface, tests) — never mutated, never aliases mutable
// maps without copying.
type Status struct {
	ID          string
	Term        uint64
	State       string
	Leader      string
	CommitIdx   uint64
	LastApplied uint64
	LogLen      uint64
	StoreSize   int
	NextIdx     map[string]uint64
	MatchIdx    map[string]uint64
}

// Snapshot returns the replica's current status. Only safe to call from
// the event loop's own goroutine (e.g. from inside a handler). Any other
// goroutine must call Status instead.
func (r *Replica) Snapshot() Status {
	nextIdx := make(map[string]uint64, len(r.nextIdx))
	for k, v := range r.nextIdx {
		nextIdx[k] = v
	}
	matchIdx := make(map[string]uint64, len(r.matchIdx))
	for k, v := range r.matchIdx {
		matchIdx[k] = v
	}
	return Status{
		ID:          r.id,
		Term:        r.currentTerm,
		State:       r.state.String(),
		Leader:      r.leader,
		CommitIdx:   r.commitIdx,
		LastApplied: r.lastApplied,
		LogLen:      r.entries.LastIndex(),
		StoreSize:   r.sm.Len(),
		NextIdx:     nextIdx,
		MatchIdx:    matchIdx,
	}
}

// quorum returns the strict majority size for the whole cluster
// (peers + self), i.e. ceil((N+1)/2).
func (r *Replica) quorum() int {
	n := len(r.peers) + 1
	return n/2 + 1
}
