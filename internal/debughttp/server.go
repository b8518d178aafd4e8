// Package debughttp exposes a read-only HTTP introspection surface for
// a running replica: liveness and a snapshot of its Raft state. It
// never touches replica internals directly; everything is read through
// (*raft.Replica).Status, which is the one accessor safe to call from a
// goroutine other than the event loop's own.
package debughttp

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"

	"github.com/kimberlypn/CS3700/internal/logging"
	"github.com/kimberlypn/CS3700/internal/raft"
)

const statusQueryTimeout = 200 * time.Millisecond

// Server wraps the replica status accessor behind /healthz and /state.
type Server struct {
	replica *raft.Replica
	log     *logging.Logger
	router  *mux.Router
}

// New builds a Server for replica, identified as id in log output.
func New(id string, replica *raft.Replica) *Server {
	s := &Server{
		replica: replica,
		log:     logging.New(id + "-debughttp"),
		router:  mux.NewRouter().StrictSlash(true),
	}
	s.router.Use(s.requestID)
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	s.router.HandleFunc("/state", s.handleState).Methods("GET")
	return s
}

// requestID stamps every request with a correlation ID, echoed in the
// response and in this request's log lines, so a handful of concurrent
// polls against /state don't get tangled together in the log.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewRandom().String()
		w.Header().Set("X-Request-Id", id)
		s.log.Debugf("%s %s [%s]", r.Method, r.URL.Path, id)
		next.ServeHTTP(w, r)
	})
}

// Handler returns the CORS-wrapped http.Handler to pass to
// http.ListenAndServe.
func (s *Server) Handler() http.Handler {
	originsOk := handlers.AllowedOrigins([]string{"*"})
	headersOk := handlers.AllowedHeaders([]string{"Content-Type"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "OPTIONS"})
	return handlers.CORS(originsOk, headersOk, methodsOk)(s.router)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	status, ok := s.replica.Status(statusQueryTimeout)
	if !ok {
		s.writeError(w, http.StatusGatewayTimeout,
			errors.New("replica did not answer status query in time"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.log.Errorf("encode /state response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.log.Warnf("%v", err)
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
