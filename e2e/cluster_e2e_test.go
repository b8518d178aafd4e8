//go:build e2e

// Package e2e runs the replica binary in real Docker containers over a
// real network, grounded on raft-server/server_e2e_test.go's
// testcontainers-go harness — adapted from HTTP-only commands to this
// project's split transport (ZeroMQ between replicas) and debug surface
// (HTTP health/state, used here as the test's only window into the
// cluster).
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	dockernetwork "github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

type node struct {
	id        string
	container testcontainers.Container
	debugAddr string
}

type status struct {
	ID     string `json:"ID"`
	State  string `json:"State"`
	Term   uint64 `json:"Term"`
	Leader string `json:"Leader"`
}

func (n *node) status() (status, error) {
	resp, err := http.Get(fmt.Sprintf("http://%s/state", n.debugAddr))
	if err != nil {
		return status{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return status{}, err
	}
	var s status
	if err := json.Unmarshal(body, &s); err != nil {
		return status{}, err
	}
	return s, nil
}

type testCluster struct {
	t       *testing.T
	ctx     context.Context
	nodes   []*node
	network *testcontainers.DockerNetwork
}

func newTestCluster(t *testing.T, ctx context.Context, ids []string) (*testCluster, error) {
	net, err := dockernetwork.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("docker network: %w", err)
	}

	c := &testCluster{t: t, ctx: ctx, network: net}
	for _, id := range ids {
		n, err := c.startNode(id, ids)
		if err != nil {
			c.shutdown()
			return nil, fmt.Errorf("start node %s: %w", id, err)
		}
		c.nodes = append(c.nodes, n)
	}
	return c, nil
}

func (c *testCluster) startNode(id string, ids []string) (*node, error) {
	args := []string{"-port", "9000", "-debug-addr", ":8080", id}
	for _, peer := range ids {
		if peer != id {
			args = append(args, peer)
		}
	}

	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "raft-replica:latest",
			Name:         id,
			Hostname:     id,
			ExposedPorts: []string{"8080/tcp"},
			Networks:     []string{c.network.Name},
			Cmd:          args,
			WaitingFor:   wait.ForHTTP("/healthz").WithPort("8080/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	}

	container, err := testcontainers.GenericContainer(c.ctx, req)
	if err != nil {
		return nil, err
	}
	hostPort, err := container.MappedPort(c.ctx, "8080")
	if err != nil {
		return nil, err
	}
	host, err := container.Host(c.ctx)
	if err != nil {
		return nil, err
	}
	return &node{id: id, container: container, debugAddr: fmt.Sprintf("%s:%s", host, hostPort.Port())}, nil
}

func (c *testCluster) shutdown() {
	for _, n := range c.nodes {
		if n.container != nil {
			_ = n.container.Terminate(c.ctx)
		}
	}
	if c.network != nil {
		_ = c.network.Remove(c.ctx)
	}
}

func (c *testCluster) waitForLeader(timeout time.Duration) (*node, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, n := range c.nodes {
			s, err := n.status()
			if err == nil && s.State == "leader" {
				return n, nil
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	return nil, fmt.Errorf("no leader elected within %s", timeout)
}

func TestE2E_FiveNodeClusterElectsOneLeader(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	ctx := context.Background()
	ids := []string{"0001", "0002", "0003", "0004", "0005"}

	cluster, err := newTestCluster(t, ctx, ids)
	require.NoError(t, err)
	defer cluster.shutdown()

	leader, err := cluster.waitForLeader(20 * time.Second)
	require.NoError(t, err)
	require.NotNil(t, leader)

	leaderCount := 0
	for _, n := range cluster.nodes {
		s, err := n.status()
		require.NoError(t, err)
		if s.State == "leader" {
			leaderCount++
		}
	}
	require.Equal(t, 1, leaderCount, "exactly one node should report itself leader")
}
