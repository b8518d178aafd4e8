package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/kimberlypn/CS3700/internal/config"
	"github.com/kimberlypn/CS3700/internal/debughttp"
	"github.com/kimberlypn/CS3700/internal/raft"
	"github.com/kimberlypn/CS3700/internal/transport"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to cluster topology YAML (overrides positional args)")
		port       = flag.Int("port", 0, "ZeroMQ ROUTER port to bind (required without -config)")
		debugAddr  = flag.String("debug-addr", "", "address to serve the debug HTTP surface on, e.g. :8080")
		seed       = flag.Int64("seed", 0, "election RNG seed; defaults to a value derived from self-id")
	)
	flag.Parse()

	selfID, peerIDs, endpoints, bindPort, err := resolveTopology(*configPath, *port, flag.Args())
	if err != nil {
		log.Fatalf("replica: %v", err)
	}

	if *seed == 0 {
		*seed = seedFromID(selfID)
	}

	zmqTransport, err := transport.NewZMQ(selfID, bindPort, endpoints)
	if err != nil {
		log.Fatalf("replica %s: %v", selfID, err)
	}
	defer zmqTransport.Close()

	replica := raft.New(selfID, peerIDs, zmqTransport, raft.RealClock, *seed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *debugAddr != "" {
		srv := debughttp.New(selfID, replica)
		httpServer := &http.Server{Addr: *debugAddr, Handler: srv.Handler()}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("replica %s: debug http server: %v", selfID, err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("replica %s: shutting down", selfID)
		cancel()
	}()

	replica.Run(ctx)
}

// resolveTopology builds (selfID, peerIDs, endpoints, bindPort) either
// from a -config YAML file, or from the positional
// "replica <self-id> <peer-id> ..." positional form, in which
// case -port must be supplied and every replica is assumed to be
// reachable at "<id>:<port>" — its own bind port, on a host named after
// its id, matching how a testcontainers or Docker Compose network names
// its members.
func resolveTopology(configPath string, port int, args []string) (selfID string, peerIDs []string, endpoints transport.Endpoints, bindPort int, err error) {
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return "", nil, nil, 0, err
		}
		return cfg.Node.ID, cfg.PeerIDs(), transport.Endpoints(cfg.Endpoints()), cfg.Node.Port, nil
	}

	if len(args) < 2 {
		return "", nil, nil, 0, fmt.Errorf("usage: replica <self-id> <peer-id> [<peer-id> ...] (or -config <file>)")
	}
	if port == 0 {
		return "", nil, nil, 0, fmt.Errorf("-port is required without -config")
	}

	selfID = args[0]
	peerIDs = args[1:]
	endpoints = make(transport.Endpoints, len(peerIDs))
	for _, id := range peerIDs {
		endpoints[id] = fmt.Sprintf("tcp://%s:%d", id, port)
	}
	return selfID, peerIDs, endpoints, port, nil
}

func seedFromID(id string) int64 {
	n, err := strconv.ParseUint(id, 16, 64)
	if err != nil {
		return 1
	}
	return int64(n) + 1
}
