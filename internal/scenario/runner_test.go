package scenario

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reactobj/internal/errors"
	"github.com/vango-dev/reactobj/pkg/reactobj"
)

// assertGolden compares the trace of result with testdata/golden/<name>.golden.
// Regenerate with: go test ./internal/scenario -update
func assertGolden(t *testing.T, name string, result *Result) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(result.String()))
}

func TestRunGolden(t *testing.T) {
	for _, name := range []string{"basic", "root-replacement", "document"} {
		t.Run(name, func(t *testing.T) {
			s, err := Load(filepath.Join("testdata", name+".yaml"))
			require.NoError(t, err)

			result, err := NewRunner(WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))).Run(s)
			require.NoError(t, err)
			assert.NotEmpty(t, result.RunID)
			assertGolden(t, name, result)
		})
	}
}

func TestRunExpectationFailure(t *testing.T) {
	s, err := Parse([]byte(`name: failing
initial: {a: 1}
steps:
  - watch: {id: w, path: a}
  - set: {path: a, value: 2}
  - flush: true
  - expect:
      invalidated: []
  - set: {path: a, value: 3}
`))
	require.NoError(t, err)
	s.File = "failing.yaml"

	result, err := Run(s)
	require.Error(t, err)

	var serr *errors.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "R021", serr.Code)
	require.NotNil(t, serr.Location)
	assert.Equal(t, 7, serr.Location.Line)
	assert.Contains(t, err.Error(), "invalidated watchers = [w], want []")

	// The trace stops at the failing step.
	require.NotNil(t, result)
	assert.Equal(t, "run w a -> 2", result.Trace[len(result.Trace)-1])
}

func TestRunExpectations(t *testing.T) {
	base := "name: t\ninitial: {a: {b: 1}}\nsteps:\n  - watch: {id: w, path: a.b}\n"
	tests := []struct {
		name   string
		steps  string
		errMsg string
	}{
		{name: "value equals", steps: "  - expect: {value: {path: a.b, equals: 1}}\n"},
		{name: "value mismatch", steps: "  - expect: {value: {path: a.b, equals: 2}}\n", errMsg: "a.b = 1, want 2"},
		{name: "value absent", steps: "  - expect: {value: {path: a.c, absent: true}}\n"},
		{name: "value present", steps: "  - expect: {value: {path: a.b, absent: true}}\n", errMsg: "want absent"},
		{name: "value missing", steps: "  - expect: {value: {path: a.c, equals: 1}}\n", errMsg: "a.c = <absent>, want 1"},
		{name: "object equals", steps: "  - expect: {value: {path: a, equals: {b: 1}}}\n"},
		{name: "stats", steps: "  - expect: {stats: {nodes: 2, records: 1}}\n"},
		{name: "stats mismatch", steps: "  - expect: {stats: {nodes: 3}}\n", errMsg: "trie nodes = 2, want 3"},
		{name: "runs", steps: "  - expect: {runs: {w: 1}}\n"},
		{name: "runs mismatch", steps: "  - expect: {runs: {w: 2}}\n", errMsg: "watcher w ran 1 times, want 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(base + tt.steps))
			require.NoError(t, err)

			_, err = Run(s)
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRunNoopSet(t *testing.T) {
	s, err := Parse([]byte(`name: noop
initial: {a: 1}
steps:
  - set: {path: a, value: 1}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"scenario noop", "set a = 1 (no-op)"}, result.Trace)
}

func TestRunRejectsInvalidScenario(t *testing.T) {
	str := func(s string) *string { return &s }
	watchX := Step{Watch: &WatchStep{ID: "x", Path: "a"}}

	tests := []struct {
		name  string
		steps []Step
	}{
		{"malformed watch path", []Step{{Watch: &WatchStep{ID: "x", Path: "a..b"}}}},
		{"malformed invalidate path", []Step{watchX, {Invalidate: str("a.")}}},
		{"unknown stop", []Step{{Stop: str("ghost")}}},
		{"unknown runs watcher", []Step{watchX, {Expect: &ExpectStep{Runs: map[string]int{"ghost": 1}}}}},
		{"malformed path in batch", []Step{{Batch: []Step{{Watch: &WatchStep{ID: "x", Path: `a\q`}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Scenario{Name: "built", Initial: map[string]any{"a": 1}, Steps: tt.steps}

			var (
				result *Result
				err    error
			)
			require.NotPanics(t, func() { result, err = Run(s) })
			require.Error(t, err)
			assert.Nil(t, result)

			var coded *errors.Error
			require.ErrorAs(t, err, &coded)
			assert.Equal(t, "R020", coded.Code)
		})
	}
}

func TestRunFlushLimit(t *testing.T) {
	// One cycle runs the invalidation pass but leaves the re-run pending.
	s, err := Parse([]byte(`name: limit
initial: {a: 1}
steps:
  - watch: {id: w, path: a}
  - set: {path: a, value: 2}
  - flush: true
`))
	require.NoError(t, err)

	_, err = NewRunner(WithMaxCycles(1)).Run(s)
	var serr *errors.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "R021", serr.Code)
}

func TestRunMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := reactobj.NewMetrics(reactobj.WithRegistry(reg), reactobj.WithNamespace("scenario"))

	s, err := Load(filepath.Join("testdata", "basic.yaml"))
	require.NoError(t, err)
	_, err = NewRunner(WithMetrics(m)).Run(s)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["scenario_writes_total"])
	assert.True(t, names["scenario_flushes_total"])
}
