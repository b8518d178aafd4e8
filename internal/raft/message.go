package raft

import (
	"encoding/json"
	"fmt"
)

// UnknownLeader is the reserved replica ID meaning "no leader known" /
// broadcast.
const UnknownLeader = "FFFF"

// MaxMessageBytes is the wire size cap for a single framed message.
const MaxMessageBytes = 32768

// MsgType is the wire-level discriminant for the eight message kinds.
// Every dispatch in this package switches on it exhaustively rather
// than branching on ad-hoc string comparisons.
type MsgType string

const (
	MsgGet           MsgType = "get"
	MsgPut           MsgType = "put"
	MsgOK            MsgType = "ok"
	MsgFail          MsgType = "fail"
	MsgRedirect      MsgType = "redirect"
	MsgRequestVote   MsgType = "request_vote"
	MsgResponseVote  MsgType = "response_vote"
	MsgAppendEntries MsgType = "append_entries"
)

// Command is the kind of a log entry, modeled as the sum
// Sentinel | NoOp{term} | Put{term, src, MID, key, value}, collapsed
// onto one discriminant field since the wire format carries it as a
// plain string.
type Command string

const (
	// CommandNone marks the index-0 sentinel entry; never transmitted.
	CommandNone Command = ""
	CommandNoOp Command = "NO_OP"
	CommandPut  Command = "put"
)

// LogEntry is one record in the replicated log.
type LogEntry struct {
	Term    uint64  `json:"term"`
	Command Command `json:"command,omitempty"`
	Src     string  `json:"src,omitempty"`
	MID     string  `json:"MID,omitempty"`
	Key     string  `json:"key,omitempty"`
	Value   string  `json:"value,omitempty"`
}

// Message is the flat, wire-compatible JSON envelope every replica and
// client message uses. Every field beyond the common header is
// meaningful only for a subset of Types; MarshalJSON/UnmarshalJSON
// project the typed Go fields onto (and back off) the single "value"
// wire key, which is overloaded as a string for get/put/ok and as a
// boolean for response_vote.
type Message struct {
	Src    string  `json:"-"`
	Dst    string  `json:"-"`
	Leader string  `json:"-"`
	Term   uint64  `json:"-"`
	Type   MsgType `json:"-"`
	MID    string  `json:"-"`

	// get/put/ok(read reply)
	Key   string `json:"-"`
	Value string `json:"-"`

	// response_vote
	VoteGranted bool `json:"-"`

	// request_vote
	LastLogIdx  uint64 `json:"-"`
	LastLogTerm uint64 `json:"-"`

	// append_entries, and echoed back on ok
	PrevLogIdx   uint64     `json:"-"`
	PrevLogTerm  uint64     `json:"-"`
	Entries      []LogEntry `json:"-"`
	LeaderCommit uint64     `json:"-"`

	// fail, conflict hint
	TermFirstIdx *uint64 `json:"-"`
}

// wireMessage is the actual on-the-wire shape; Message.MarshalJSON and
// UnmarshalJSON translate to and from it.
type wireMessage struct {
	Src          string          `json:"src"`
	Dst          string          `json:"dst"`
	Leader       string          `json:"leader"`
	Term         uint64          `json:"term"`
	Type         MsgType         `json:"type"`
	MID          string          `json:"MID,omitempty"`
	Key          string          `json:"key,omitempty"`
	Value        json.RawMessage `json:"value,omitempty"`
	LastLogIdx   uint64          `json:"last_log_idx,omitempty"`
	LastLogTerm  uint64          `json:"last_log_term,omitempty"`
	PrevLogIdx   uint64          `json:"prev_log_idx,omitempty"`
	PrevLogTerm  uint64          `json:"prev_log_term,omitempty"`
	Entries      []LogEntry      `json:"entries,omitempty"`
	LeaderCommit uint64          `json:"leader_commit,omitempty"`
	TermFirstIdx *uint64         `json:"term_first_idx,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{
		Src:          m.Src,
		Dst:          m.Dst,
		Leader:       m.Leader,
		Term:         m.Term,
		Type:         m.Type,
		MID:          m.MID,
		Key:          m.Key,
		LastLogIdx:   m.LastLogIdx,
		LastLogTerm:  m.LastLogTerm,
		PrevLogIdx:   m.PrevLogIdx,
		PrevLogTerm:  m.PrevLogTerm,
		Entries:      m.Entries,
		LeaderCommit: m.LeaderCommit,
		TermFirstIdx: m.TermFirstIdx,
	}

	switch m.Type {
	case MsgResponseVote:
		raw, err := json.Marshal(m.VoteGranted)
		if err != nil {
			return nil, err
		}
		w.Value = raw
	case MsgGet, MsgPut, MsgOK:
		if m.Value != "" {
			raw, err := json.Marshal(m.Value)
			if err != nil {
				return nil, err
			}
			w.Value = raw
		}
	}

	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("raft: decode message: %w", err)
	}

	*m = Message{
		Src:          w.Src,
		Dst:          w.Dst,
		Leader:       w.Leader,
		Term:         w.Term,
		Type:         w.Type,
		MID:          w.MID,
		Key:          w.Key,
		LastLogIdx:   w.LastLogIdx,
		LastLogTerm:  w.LastLogTerm,
		PrevLogIdx:   w.PrevLogIdx,
		PrevLogTerm:  w.PrevLogTerm,
		Entries:      w.Entries,
		LeaderCommit: w.LeaderCommit,
		TermFirstIdx: w.TermFirstIdx,
	}

	if len(w.Value) == 0 {
		return nil
	}

	switch w.Type {
	case MsgResponseVote:
		return json.Unmarshal(w.Value, &m.VoteGranted)
	case MsgGet, MsgPut, MsgOK:
		return json.Unmarshal(w.Value, &m.Value)
	}

	return nil
}
