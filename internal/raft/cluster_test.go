package raft_test

import (
	"testing"
	"time"

	"github.com/kimberlypn/CS3700/internal/raft"
	"github.com/kimberlypn/CS3700/internal/transport"
)

// cluster drives a set of single-threaded replicas deterministically: a
// FakeClock per replica, advanced in lockstep, with an in-memory
// transport hub standing in for the network. Steps replicas synchronously
// since this implementation has no goroutines of its own.
type cluster struct {
	t        *testing.T
	order    []string
	replicas map[string]*raft.Replica
	clocks   map[string]*raft.FakeClock
	hub      *transport.MemHub
}

func newCluster(t *testing.T, ids []string) *cluster {
	hub := transport.NewMemHub()
	start := time.Unix(1700000000, 0)

	c := &cluster{
		t:        t,
		order:    append([]string(nil), ids...),
		replicas: make(map[string]*raft.Replica, len(ids)),
		clocks:   make(map[string]*raft.FakeClock, len(ids)),
		hub:      hub,
	}

	for i, id := range ids {
		peers := make([]string, 0, len(ids)-1)
		for _, other := range ids {
			if other != id {
				peers = append(peers, other)
			}
		}
		tr := hub.NewTransport(id)
		clock := raft.NewFakeClock(start)
		c.clocks[id] = clock
		c.replicas[id] = raft.New(id, peers, tr, clock, int64(i)+1)
	}
	return c
}

// step advances every replica's clock by d/rounds, rounds times, running
// one event-loop iteration per replica per round. Splitting into rounds
// lets a message sent this round be dispatched before the next time
// advance, the way a real cluster would interleave sends and receives.
func (c *cluster) step(d time.Duration, rounds int) {
	for i := 0; i < rounds; i++ {
		for _, id := range c.order {
			c.clocks[id].Advance(d / time.Duration(rounds))
			c.replicas[id].RunOnce()
		}
	}
}

func (c *cluster) leader() (string, bool) {
	for _, id := range c.order {
		if c.replicas[id].Snapshot().State == "leader" {
			return id, true
		}
	}
	return "", false
}

func (c *cluster) countState(state string) int {
	n := 0
	for _, id := range c.order {
		if c.replicas[id].Snapshot().State == state {
			n++
		}
	}
	return n
}

// awaitLeader steps the cluster in small increments until some replica
// reports itself Leader (the first one found, in c.order), or budget
// elapses.
func (c *cluster) awaitLeader(budget time.Duration) (string, bool) {
	const quantum = 20 * time.Millisecond
	elapsed := time.Duration(0)
	for elapsed < budget {
		c.step(quantum, 4)
		elapsed += quantum
		if id, ok := c.leader(); ok {
			return id, true
		}
	}
	return "", false
}

// clientTransport registers a standalone endpoint on the cluster's hub
// for a test to act as a client: sending get/put frames to replicas and
// receiving their replies, the way a real client process would over its
// own transport connection.
func (c *cluster) clientTransport(id string) *transport.Mem {
	return c.hub.NewTransport(id)
}
