package raft_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kimberlypn/CS3700/internal/raft"
)

func TestLog_StartsWithSentinelOnly(t *testing.T) {
	l := raft.NewLog()
	require.Equal(t, uint64(0), l.LastIndex())
	require.Equal(t, uint64(0), l.LastTerm())
	require.True(t, l.PrefixMatches(0, 0))
}

func TestLog_AppendAndSlice(t *testing.T) {
	l := raft.NewLog()
	l.AppendMany([]raft.LogEntry{
		{Term: 1, Command: raft.CommandPut, Key: "a", Value: "1"},
		{Term: 1, Command: raft.CommandPut, Key: "b", Value: "2"},
		{Term: 2, Command: raft.CommandNoOp},
	})

	require.Equal(t, uint64(3), l.LastIndex())
	require.Equal(t, uint64(2), l.LastTerm())

	slice := l.Slice(2, 10)
	require.Len(t, slice, 2)
	require.Equal(t, "b", slice[0].Key)
}

func TestLog_TruncateFromDropsSuffixOnly(t *testing.T) {
	l := raft.NewLog()
	l.AppendMany([]raft.LogEntry{
		{Term: 1, Command: raft.CommandPut, Key: "a"},
		{Term: 1, Command: raft.CommandPut, Key: "b"},
		{Term: 1, Command: raft.CommandPut, Key: "c"},
	})

	l.TruncateFrom(2)

	require.Equal(t, uint64(1), l.LastIndex())
	require.Equal(t, "a", l.Entry(1).Key)
}

func TestLog_PrefixMatchesRejectsTermMismatch(t *testing.T) {
	l := raft.NewLog()
	l.AppendMany([]raft.LogEntry{{Term: 5, Command: raft.CommandNoOp}})

	require.True(t, l.PrefixMatches(1, 5))
	require.False(t, l.PrefixMatches(1, 4))
	require.False(t, l.PrefixMatches(2, 5), "index beyond LastIndex can never match")
}

func TestLog_FirstIndexOfTermAtWalksBackToTermStart(t *testing.T) {
	l := raft.NewLog()
	l.AppendMany([]raft.LogEntry{
		{Term: 1, Command: raft.CommandNoOp},
		{Term: 1, Command: raft.CommandNoOp},
		{Term: 2, Command: raft.CommandNoOp},
		{Term: 2, Command: raft.CommandNoOp},
		{Term: 2, Command: raft.CommandNoOp},
	})

	require.Equal(t, uint64(3), l.FirstIndexOfTermAt(5))
	require.Equal(t, uint64(1), l.FirstIndexOfTermAt(2))
}
