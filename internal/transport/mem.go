package transport

import (
	"fmt"
	"sync"
	"time"
)

// Mem is an in-process Transport backed by buffered channels, used by
// unit and property tests to drive several replicas inside one process
// without sockets.
type Mem struct {
	self string
	hub  *MemHub
	in   chan []byte
}

// MemHub is the shared registry a set of Mem transports dial into,
// playing the role the agent/router split plays for the ZeroMQ
// transport: it is the one place that knows how to reach every
// registered endpoint.
type MemHub struct {
	mu    sync.Mutex
	peers map[string]chan []byte
}

// NewMemHub constructs an empty hub. Call NewTransport once per replica
// id to register it before any Send targeting that id is issued.
func NewMemHub() *MemHub {
	return &MemHub{peers: make(map[string]chan []byte)}
}

// NewTransport registers id with the hub and returns its Transport.
func (h *MemHub) NewTransport(id string) *Mem {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan []byte, 256)
	h.peers[id] = ch
	return &Mem{self: id, hub: h, in: ch}
}

// Send delivers msg to dst's inbox, non-blocking — a full inbox drops
// the message, matching the at-most-once, timer-recovered delivery the
// rest of this protocol already assumes.
func (m *Mem) Send(dst string, msg []byte) error {
	m.hub.mu.Lock()
	ch, ok := m.hub.peers[dst]
	m.hub.mu.Unlock()
	if !ok {
		return fmt.Errorf("transport: unknown peer %q", dst)
	}
	select {
	case ch <- msg:
		return nil
	default:
		return fmt.Errorf("transport: inbox for %q full, dropping", dst)
	}
}

// Recv waits up to timeout for one message addressed to this endpoint.
func (m *Mem) Recv(timeout time.Duration) ([]byte, bool, error) {
	select {
	case msg := <-m.in:
		return msg, true, nil
	case <-time.After(timeout):
		return nil, false, nil
	}
}
