package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kimberlypn/CS3700/internal/config"
)

const validYAML = `
node:
  id: "0001"
  address: 127.0.0.1
  port: 9001
cluster:
  peers:
    - id: "0001"
      address: 127.0.0.1
      port: 9001
    - id: "0002"
      address: 127.0.0.1
      port: 9002
    - id: "0003"
      address: 127.0.0.1
      port: 9003
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoad_ValidTopology(t *testing.T) {
	path := writeConfig(t, validYAML)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "0001", cfg.Node.ID)
	require.ElementsMatch(t, []string{"0002", "0003"}, cfg.PeerIDs())

	endpoints := cfg.Endpoints()
	require.Equal(t, "tcp://127.0.0.1:9002", endpoints["0002"])
	require.NotContains(t, endpoints, "0001", "self must not appear in its own endpoint map")
}

func TestLoad_RejectsNonHexID(t *testing.T) {
	path := writeConfig(t, `
node:
  id: "zzzz"
  address: 127.0.0.1
  port: 9001
cluster:
  peers:
    - id: "zzzz"
      address: 127.0.0.1
      port: 9001
    - id: "0002"
      address: 127.0.0.1
      port: 9002
`)
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsNodeNotInPeerList(t *testing.T) {
	path := writeConfig(t, `
node:
  id: "00FF"
  address: 127.0.0.1
  port: 9001
cluster:
  peers:
    - id: "0002"
      address: 127.0.0.1
      port: 9002
`)
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsDuplicatePeerIDs(t *testing.T) {
	path := writeConfig(t, `
node:
  id: "0001"
  address: 127.0.0.1
  port: 9001
cluster:
  peers:
    - id: "0001"
      address: 127.0.0.1
      port: 9001
    - id: "0001"
      address: 127.0.0.1
      port: 9002
`)
	_, err := config.Load(path)
	require.Error(t, err)
}
