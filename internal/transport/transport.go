// Package transport provides the concrete Replica.Transport
// implementations: an in-memory one for tests, and a ZeroMQ-backed one
// for real clusters.
package transport

import "time"

// Transport mirrors internal/raft.Transport structurally, so both
// implementations here satisfy it without importing internal/raft and
// risking an import cycle.
type Transport interface {
	Send(dst string, msg []byte) error
	Recv(timeout time.Duration) (msg []byte, ok bool, err error)
}
