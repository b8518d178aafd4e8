package raft_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestElection_SingleReplicaBecomesLeader(t *testing.T) {
	c := newCluster(t, []string{"0001"})

	id, ok := c.awaitLeader(500 * time.Millisecond)
	require.True(t, ok, "expected the lone replica to elect itself leader")
	require.Equal(t, "0001", id)

	status := c.replicas[id].Snapshot()
	require.Equal(t, uint64(1), status.Term, "term should advance exactly once")
}

func TestElection_FiveReplicasElectExactlyOneLeader(t *testing.T) {
	c := newCluster(t, []string{"0001", "0002", "0003", "0004", "0005"})

	_, ok := c.awaitLeader(2 * time.Second)
	require.True(t, ok, "expected a leader to be elected")
	require.Equal(t, 1, c.countState("leader"), "expected exactly one leader")

	followers := c.countState("follower")
	require.Equal(t, 4, followers, "expected every non-leader replica to be a follower")
}

func TestElection_FollowerStaysFollowerWhileHeartbeatsArrive(t *testing.T) {
	c := newCluster(t, []string{"0001", "0002", "0003"})

	leaderID, ok := c.awaitLeader(2 * time.Second)
	require.True(t, ok)

	term := c.replicas[leaderID].Snapshot().Term

	// run well past a naive election timeout; heartbeats should keep
	// resetting followers' deadlines so no new election starts.
	c.step(600*time.Millisecond, 20)

	require.Equal(t, leaderID, mustLeader(t, c))
	require.Equal(t, term, c.replicas[leaderID].Snapshot().Term, "term should not have advanced")
}

func mustLeader(t *testing.T, c *cluster) string {
	t.Helper()
	id, ok := c.leader()
	require.True(t, ok, "expected a leader to still be present")
	return id
}
