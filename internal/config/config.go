// Package config loads the YAML cluster topology a replica process
// reads at startup: the addresses every other replica ID's ROUTER
// socket can be reached at.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape: this node's own id/address/port, plus
// the full peer list, including self for uniformity.
type Config struct {
	Node    NodeConfig    `yaml:"node"`
	Cluster ClusterConfig `yaml:"cluster"`
}

// NodeConfig identifies the replica this process runs as.
type NodeConfig struct {
	ID      string `yaml:"id"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// ClusterConfig lists every replica in the cluster.
type ClusterConfig struct {
	Peers []PeerConfig `yaml:"peers"`
}

// PeerConfig is one cluster member's id and ZeroMQ endpoint.
type PeerConfig struct {
	ID      string `yaml:"id"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Load reads and validates a cluster topology file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks internal consistency: a well-formed four-hex-digit
// node id present exactly once among the peers, unique peer ids, and a
// non-empty peer list.
func (c *Config) Validate() error {
	if !isHexID(c.Node.ID) {
		return fmt.Errorf("node.id %q must be a four-hex-digit string", c.Node.ID)
	}
	if c.Node.Port == 0 {
		return fmt.Errorf("node.port is required")
	}
	if len(c.Cluster.Peers) == 0 {
		return fmt.Errorf("cluster.peers must contain at least one peer")
	}

	seen := make(map[string]bool, len(c.Cluster.Peers))
	found := false
	for _, p := range c.Cluster.Peers {
		if !isHexID(p.ID) {
			return fmt.Errorf("peer id %q must be a four-hex-digit string", p.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate peer id: %s", p.ID)
		}
		seen[p.ID] = true
		if p.ID == c.Node.ID {
			found = true
			if p.Port != c.Node.Port || p.Address != c.Node.Address {
				return fmt.Errorf("node %s address/port mismatch with its own peer entry", c.Node.ID)
			}
		}
	}
	if !found {
		return fmt.Errorf("node.id=%s not found in cluster.peers", c.Node.ID)
	}
	return nil
}

// PeerIDs returns every cluster member's id other than this node's own.
func (c *Config) PeerIDs() []string {
	ids := make([]string, 0, len(c.Cluster.Peers)-1)
	for _, p := range c.Cluster.Peers {
		if p.ID != c.Node.ID {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Endpoints maps every peer id (excluding self) to its tcp:// address.
func (c *Config) Endpoints() map[string]string {
	out := make(map[string]string, len(c.Cluster.Peers)-1)
	for _, p := range c.Cluster.Peers {
		if p.ID == c.Node.ID {
			continue
		}
		out[p.ID] = fmt.Sprintf("tcp://%s:%d", p.Address, p.Port)
	}
	return out
}

func isHexID(id string) bool {
	if len(id) != 4 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'A' && r <= 'F':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
