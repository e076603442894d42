package scenario

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/reactobj/internal/errors"
	"github.com/vango-dev/reactobj/pkg/keypath"
	"github.com/vango-dev/reactobj/pkg/reactobj"
	"github.com/vango-dev/reactobj/pkg/tracker"
	"github.com/vango-dev/reactobj/pkg/valuetree"
)

// Result is the outcome of a scenario run.
type Result struct {
	// RunID identifies the run in logs. It is not part of the trace.
	RunID string

	// Trace lists what happened, one event per line.
	Trace []string

	// Stats is the store's final bookkeeping.
	Stats reactobj.Stats
}

// String returns the trace, newline terminated.
func (r *Result) String() string {
	if len(r.Trace) == 0 {
		return ""
	}
	return strings.Join(r.Trace, "\n") + "\n"
}

// Runner executes scenarios.
type Runner struct {
	logger    *slog.Logger
	metrics   *reactobj.Metrics
	tracer    trace.Tracer
	maxCycles int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics reports the stores created by the runner to m.
func WithMetrics(m *reactobj.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithTracer sets the tracer passed to the stores.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) {
		r.tracer = tracer
	}
}

// WithMaxCycles bounds each flush of the scenario's tracker.
func WithMaxCycles(n int) Option {
	return func(r *Runner) {
		r.maxCycles = n
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger:    slog.Default(),
		maxCycles: tracker.DefaultMaxCycles,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes s with a default Runner.
func Run(s *Scenario) (*Result, error) {
	return NewRunner().Run(s)
}

// Run executes s against a fresh store and tracker. On failure the partial
// result is returned along with the error.
func (r *Runner) Run(s *Scenario) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, errors.New("R020").Wrap(fmt.Errorf("invalid scenario: %w", err))
	}
	initial, err := r.initialValue(s)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := r.logger.With("scenario", s.Name, "run_id", runID)

	tr := tracker.New(tracker.WithMaxCycles(r.maxCycles), tracker.WithLogger(logger))
	storeOpts := []reactobj.Option{reactobj.WithLogger(logger), reactobj.WithMetrics(r.metrics)}
	if r.tracer != nil {
		storeOpts = append(storeOpts, reactobj.WithTracer(r.tracer))
	}

	st := &session{
		scenario: s,
		tracker:  tr,
		store:    reactobj.New(tr, initial, storeOpts...),
		watchers: make(map[string]*watcher),
		reran:    make(map[string]bool),
	}
	st.log("scenario %s", s.Name)

	logger.Info("scenario start", "steps", len(s.Steps))
	err = st.runSteps(s.Steps)
	result := &Result{RunID: runID, Trace: st.trace, Stats: st.store.Stats()}
	if err != nil {
		logger.Info("scenario failed", "error", err)
		return result, err
	}
	logger.Info("scenario passed", "events", len(st.trace))
	return result, nil
}

func (r *Runner) initialValue(s *Scenario) (any, error) {
	if s.Document == "" {
		return s.Initial, nil
	}
	path := s.Document
	if !filepath.IsAbs(path) && s.File != "" {
		path = filepath.Join(filepath.Dir(s.File), path)
	}
	return LoadDocument(path)
}

type watcher struct {
	id   string
	path keypath.Path
	comp *tracker.Computation
}

// session is the state of one run.
type session struct {
	scenario *Scenario
	tracker  *tracker.Tracker
	store    *reactobj.Store
	watchers map[string]*watcher

	// watchers re-run since the last expect step
	reran map[string]bool

	trace []string
}

func (s *session) log(format string, args ...any) {
	s.trace = append(s.trace, fmt.Sprintf(format, args...))
}

func (s *session) runSteps(steps []Step) error {
	for _, step := range steps {
		if err := s.runStep(step); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) runStep(step Step) error {
	switch {
	case step.Watch != nil:
		if err := s.watch(step.Watch); err != nil {
			return s.fail(step, "R020", err)
		}

	case step.Set != nil:
		path, err := keypath.Parse(step.Set.Path)
		if err != nil {
			return s.fail(step, "R020", err)
		}
		var value any
		if err := step.Set.Value.Decode(&value); err != nil {
			return s.fail(step, "R020", fmt.Errorf("set value: %w", err))
		}
		before := s.store.Peek(keypath.Root)
		after := s.store.Set(path, value)
		if valuetree.Same(before, after) {
			s.log("set %s = %s (no-op)", showPath(path), showValue(value, true))
		} else {
			s.log("set %s = %s", showPath(path), showValue(value, true))
		}

	case step.Invalidate != nil:
		path, err := keypath.Parse(*step.Invalidate)
		if err != nil {
			return s.fail(step, "R020", err)
		}
		s.store.Invalidate(path)
		s.log("invalidate %s", showPath(path))

	case step.Flush:
		s.log("flush")
		if err := s.tracker.Flush(); err != nil {
			return s.fail(step, "R021", err)
		}

	case step.Stop != nil:
		s.watchers[*step.Stop].comp.Stop()
		s.log("stop %s", *step.Stop)

	case step.Batch != nil:
		s.log("batch")
		var inner error
		err := s.tracker.Batch(func() {
			inner = s.runSteps(step.Batch)
			s.log("batch end")
		})
		if inner != nil {
			return inner
		}
		if err != nil {
			return s.fail(step, "R021", err)
		}

	case step.Expect != nil:
		if err := s.expect(step.Expect); err != nil {
			return s.fail(step, "R021", err)
		}
		s.log("expect ok")
	}
	return nil
}

func (s *session) watch(w *WatchStep) error {
	path, err := keypath.Parse(w.Path)
	if err != nil {
		return err
	}
	wt := &watcher{id: w.ID, path: path}
	s.watchers[w.ID] = wt
	wt.comp = s.tracker.Autorun(func(c *tracker.Computation) {
		v, found := s.store.Lookup(wt.path)
		verb := "run"
		if c.FirstRun() {
			verb = "watch"
		} else {
			s.reran[wt.id] = true
		}
		s.log("%s %s %s -> %s", verb, wt.id, showPath(wt.path), showValue(v, found))
	})
	return nil
}

func (s *session) expect(e *ExpectStep) error {
	defer clear(s.reran)

	if e.Invalidated != nil {
		got := make([]string, 0, len(s.reran))
		for id := range s.reran {
			got = append(got, id)
		}
		want := slices.Clone(*e.Invalidated)
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			return fmt.Errorf("invalidated watchers = %v, want %v", got, want)
		}
	}

	if e.Value != nil {
		path, err := keypath.Parse(e.Value.Path)
		if err != nil {
			return err
		}
		got, found := valuetree.Resolve(s.store.Peek(keypath.Root), path)
		if e.Value.Absent {
			if found {
				return fmt.Errorf("%s = %s, want absent", showPath(path), showValue(got, true))
			}
		} else {
			var want any
			if err := e.Value.Equals.Decode(&want); err != nil {
				return fmt.Errorf("expect.value.equals: %w", err)
			}
			// Compare canonical JSON so 1 from a JSON document equals 1 from YAML.
			if g, w := showValue(got, found), showValue(want, true); g != w {
				return fmt.Errorf("%s = %s, want %s", showPath(path), g, w)
			}
		}
	}

	if e.Stats != nil {
		st := s.store.Stats()
		if e.Stats.Nodes != nil && *e.Stats.Nodes != st.Nodes {
			return fmt.Errorf("trie nodes = %d, want %d", st.Nodes, *e.Stats.Nodes)
		}
		if e.Stats.Records != nil && *e.Stats.Records != st.Records {
			return fmt.Errorf("dependency records = %d, want %d", st.Records, *e.Stats.Records)
		}
	}

	ids := make([]string, 0, len(e.Runs))
	for id := range e.Runs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if got := s.watchers[id].comp.Runs(); got != e.Runs[id] {
			return fmt.Errorf("watcher %s ran %d times, want %d", id, got, e.Runs[id])
		}
	}
	return nil
}

// fail builds a coded error pointing at step.
func (s *session) fail(step Step, code string, cause error) error {
	err := errors.New(code).Wrap(cause)
	if s.scenario.File != "" && step.Line > 0 {
		err = err.WithLocation(s.scenario.File, step.Line, step.Column)
	}
	return err
}

func showPath(p keypath.Path) string {
	if p.IsRoot() {
		return "<root>"
	}
	return p.String()
}

func showValue(v any, found bool) string {
	if !found {
		return "<absent>"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// RunFile loads and runs the scenario at path.
func (r *Runner) RunFile(path string) (*Result, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	return r.Run(s)
}
