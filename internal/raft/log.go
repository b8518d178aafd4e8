package raft

// Log is the ordered, 1-indexed sequence of log entries. Index 0 is a
// permanent sentinel: term 0, no command, never transmitted or applied.
// entries[i] holds the entry at log index i.
type Log struct {
	entries []LogEntry
}

// NewLog returns a log containing only the index-0 sentinel.
func NewLog() *Log {
	return &Log{entries: []LogEntry{{Term: 0, Command: CommandNone}}}
}

// LastIndex returns the highest index currently in the log (0 if empty
// beyond the sentinel).
func (l *Log) LastIndex() uint64 {
	return uint64(len(l.entries) - 1)
}

// LastTerm returns the term of the last entry.
func (l *Log) LastTerm() uint64 {
	return l.entries[len(l.entries)-1].Term
}

// Entry returns the entry at index i. Callers must ensure
// 0 <= i <= LastIndex(); out-of-range access is a programming error in
// this single-threaded core, so it panics rather than returning an error
// that every call site would have to check.
func (l *Log) Entry(i uint64) LogEntry {
	return l.entries[i]
}

// PrefixMatches reports whether i==0, or the log has an entry at i whose
// term equals t.
func (l *Log) PrefixMatches(i, t uint64) bool {
	if i == 0 {
		return true
	}
	if i > l.LastIndex() {
		return false
	}
	return l.entries[i].Term == t
}

// TruncateFrom removes every entry at index >= i. Callers must ensure
// i > commitIdx so a committed entry is never removed.
func (l *Log) TruncateFrom(i uint64) {
	if i > l.LastIndex() {
		return
	}
	l.entries = l.entries[:i]
}

// AppendMany appends entries, in order, to the end of the log.
func (l *Log) AppendMany(entries []LogEntry) {
	l.entries = append(l.entries, entries...)
}

// Slice returns entries [from, from+n) as a fresh copy, clamped to the
// available range. Used by the leader to build AppendEntries batches.
func (l *Log) Slice(from uint64, n int) []LogEntry {
	if from > l.LastIndex() {
		return nil
	}
	end := from + uint64(n)
	if end > uint64(len(l.entries)) {
		end = uint64(len(l.entries))
	}
	out := make([]LogEntry, end-from)
	copy(out, l.entries[from:end])
	return out
}

// FirstIndexOfTermAt returns the lowest index j <= i such that
// entry(j).term == entry(i).term. If i > LastIndex(), it returns
// LastIndex() instead (used for AppendEntries conflict hints).
func (l *Log) FirstIndexOfTermAt(i uint64) uint64 {
	if i > l.LastIndex() {
		return l.LastIndex()
	}
	term := l.entries[i].Term
	j := i
	for j > 0 && l.entries[j-1].Term == term {
		j--
	}
	return j
}
