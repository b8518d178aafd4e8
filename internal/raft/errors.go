package raft

import "errors"

// ErrNotLeader is returned by operations that only the leader may serve.
var ErrNotLeader = errors.New("raft: not leader")

// ErrNoLeader is returned when no leader is currently known.
var ErrNoLeader = errors.New("raft: no leader known")

// ErrUnknownPeer is returned when a message names a peer outside the
// configured cluster.
var ErrUnknownPeer = errors.New("raft: unknown peer")
