package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentuity/go-memoize/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCall(t *testing.T) {
	tests := []struct {
		in   string
		want call
	}{
		{"1,11,26@0s", call{"1,11,26", 0}},
		{"a@100ms", call{"a", 100 * time.Millisecond}},
		{"user@1d", call{"user", 24 * time.Hour}},
		{"me@example.com@1s", call{"me@example.com", time.Second}},
		{"@2s", call{"", 2 * time.Second}},
	}
	for _, tt := range tests {
		got, err := parseCall(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, in := range []string{"nokey", "a@soon", "a@-1s", "a@"} {
		_, err := parseCall(in)
		assert.Error(t, err, in)
	}
}

func TestLoadSchedule(t *testing.T) {
	sched, err := loadSchedule(strings.NewReader(`
ttl: 2s
calls:
  - key: a
    at: 0s
  - key: b
    at: 1500ms
  - key: a
`))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, sched.TTL)
	assert.Equal(t, []call{{"a", 0}, {"b", 1500 * time.Millisecond}, {"a", 0}}, sched.Calls)
	// the last call has no offset, so it runs at 0s after a call at 1.5s
	assert.ErrorContains(t, sched.validate(), "call 3")

	_, err = loadSchedule(strings.NewReader("ttl: forever\n"))
	assert.ErrorContains(t, err, "invalid ttl")

	_, err = loadSchedule(strings.NewReader("calls: [{key: a, at: later}]\n"))
	assert.ErrorContains(t, err, "call 1")

	sched, err = loadSchedule(strings.NewReader(""))
	require.NoError(t, err)
	assert.ErrorContains(t, sched.validate(), "no calls")
}

func TestReplay(t *testing.T) {
	calls := []call{
		{"1,11,26", 0},
		{"1,11,26", 100 * time.Millisecond},
		{"2,12,26", 100 * time.Millisecond},
		{"1,11,26", 600 * time.Millisecond},
		{"1,11,26", 1600 * time.Millisecond},
	}
	outcomes, stats, err := replay(calls, time.Second, logger.NewTestLogger())
	require.NoError(t, err)

	var hits []bool
	var values []uint64
	for _, o := range outcomes {
		hits = append(hits, o.Hit)
		values = append(values, o.Value)
	}
	assert.Equal(t, []bool{false, true, false, true, false}, hits)
	assert.Equal(t, []uint64{1, 1, 2, 1, 3}, values)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(3), stats.Misses)
	assert.Equal(t, uint64(1), stats.Expired)
	assert.Equal(t, 2, stats.Entries)
}

func TestReplayRejectsBadTTL(t *testing.T) {
	_, _, err := replay([]call{{"a", 0}}, -time.Second, logger.NewTestLogger())
	assert.Error(t, err)
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReplayCommand(t *testing.T) {
	t.Setenv(ttlEnv, "1s")
	t.Setenv(logger.LevelEnv, "none")
	out, err := runCommand(t, "replay", "a@0s", "a@500ms", "a@1001ms", "b@2s")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "MISS")
	assert.Contains(t, lines[1], "HIT")
	assert.Contains(t, lines[1], "a -> 1")
	assert.Contains(t, lines[2], "MISS")
	assert.Contains(t, lines[2], "a -> 2")
	assert.Contains(t, lines[3], "b -> 3")
	assert.Contains(t, lines[4], "hits=1 misses=3 expired=1")
}

func TestReplayCommandFile(t *testing.T) {
	t.Setenv(logger.LevelEnv, "none")
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ttl: 1d\ncalls:\n  - key: a\n    at: 0s\n  - key: a\n    at: 23h\n"), 0644))

	out, err := runCommand(t, "replay", "-f", path, "a@1d1s")
	require.NoError(t, err)
	assert.Contains(t, out, "hits=1 misses=2 expired=1")

	// the flag overrides the file
	out, err = runCommand(t, "replay", "-f", path, "--ttl", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "hits=0 misses=2")
}

func TestReplayCommandErrors(t *testing.T) {
	t.Setenv(logger.LevelEnv, "none")
	_, err := runCommand(t, "replay")
	assert.ErrorContains(t, err, "no calls")

	_, err = runCommand(t, "replay", "a@2s", "a@1s")
	assert.ErrorContains(t, err, "before the previous call")

	_, err = runCommand(t, "replay", "--ttl", "soon", "a@1s")
	assert.ErrorContains(t, err, "--ttl")

	_, err = runCommand(t, "replay", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "error opening schedule")
}
