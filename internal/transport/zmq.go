package transport

import (
	"fmt"
	"strconv"
	"time"

	zmq "github.com/pebbe/zmq4"
)

// ZMQ is the ZeroMQ-backed Transport used by real clusters: a ROUTER
// socket bound to this replica's port receives from everyone, and one
// DEALER socket per peer sends to that peer's ROUTER. Collapsed to a
// single goroutine-free synchronous wrapper, since the event loop that
// owns it is itself single-threaded and never calls in concurrently.
type ZMQ struct {
	router  *zmq.Socket
	dealers map[string]*zmq.Socket
	poller  *zmq.Poller
}

// Endpoints maps a replica id to the tcp:// address its ROUTER listens
// on, e.g. "tcp://10.0.0.2:9001". Callers build this from cluster
// topology config (internal/config).
type Endpoints map[string]string

// NewZMQ binds a ROUTER socket for self at port and dials a DEALER
// socket, identified as self, to every peer endpoint.
func NewZMQ(self string, port int, peers Endpoints) (*ZMQ, error) {
	router, err := zmq.NewSocket(zmq.ROUTER)
	if err != nil {
		return nil, fmt.Errorf("transport: new router socket: %w", err)
	}
	if err := router.SetIdentity(self); err != nil {
		return nil, fmt.Errorf("transport: set router identity: %w", err)
	}
	if err := router.Bind("tcp://*:" + strconv.Itoa(port)); err != nil {
		return nil, fmt.Errorf("transport: bind router on port %d: %w", port, err)
	}

	z := &ZMQ{
		router:  router,
		dealers: make(map[string]*zmq.Socket, len(peers)),
		poller:  zmq.NewPoller(),
	}
	z.poller.Add(router, zmq.POLLIN)

	for id, endpoint := range peers {
		dealer, err := zmq.NewSocket(zmq.DEALER)
		if err != nil {
			z.Close()
			return nil, fmt.Errorf("transport: new dealer socket for %s: %w", id, err)
		}
		if err := dealer.SetIdentity(self); err != nil {
			z.Close()
			return nil, fmt.Errorf("transport: set dealer identity for %s: %w", id, err)
		}
		if err := dealer.Connect(endpoint); err != nil {
			z.Close()
			return nil, fmt.Errorf("transport: dial %s at %s: %w", id, endpoint, err)
		}
		z.dealers[id] = dealer
	}
	return z, nil
}

// Send hands msg to the DEALER socket connected to dst. Returns an
// error if dst is not a known peer; the event loop logs and drops it.
func (z *ZMQ) Send(dst string, msg []byte) error {
	dealer, ok := z.dealers[dst]
	if !ok {
		return fmt.Errorf("transport: no dealer for peer %q", dst)
	}
	_, err := dealer.SendBytes(msg, 0)
	return err
}

// Recv polls the ROUTER socket for up to timeout and returns the next
// inbound frame, stripping the leading identity frame ZeroMQ prepends.
func (z *ZMQ) Recv(timeout time.Duration) ([]byte, bool, error) {
	polled, err := z.poller.Poll(timeout)
	if err != nil {
		return nil, false, fmt.Errorf("transport: poll: %w", err)
	}
	if len(polled) == 0 {
		return nil, false, nil
	}

	parts, err := z.router.RecvMessageBytes(zmq.DONTWAIT)
	if err != nil {
		return nil, false, fmt.Errorf("transport: recv: %w", err)
	}
	if len(parts) < 2 {
		return nil, false, nil
	}
	return parts[len(parts)-1], true, nil
}

// Close tears down the router and every dealer socket.
func (z *ZMQ) Close() {
	if z.router != nil {
		z.router.Close()
	}
	for _, d := range z.dealers {
		d.Close()
	}
}
