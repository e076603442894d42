package tracker

// Computation is a re-runnable function tracked by a Tracker.
type Computation struct {
	id      uint64
	tracker *Tracker
	fn      func(*Computation)

	// callbacks registered since the last run, fired on invalidation
	callbacks []func()

	invalidated bool
	stopped     bool
	firstRun    bool
	runs        int
}

// ID returns the computation's unique identifier.
func (c *Computation) ID() uint64 {
	return c.id
}

// Invalidate marks the computation stale. OnInvalidate callbacks run
// immediately; the computation re-runs at the next flush unless stopped.
// Invalidating an already invalidated computation does nothing.
func (c *Computation) Invalidate() {
	if c.invalidated {
		return
	}
	c.invalidated = true
	if !c.stopped {
		c.tracker.schedule(c)
	}

	cbs := c.callbacks
	c.callbacks = nil
	for _, fn := range cbs {
		c.tracker.Nonreactive(fn)
	}
}

// OnInvalidate registers fn to run when the computation is next invalidated
// or stopped. If it already is, fn runs immediately.
func (c *Computation) OnInvalidate(fn func()) {
	if c.invalidated {
		c.tracker.Nonreactive(fn)
		return
	}
	c.callbacks = append(c.callbacks, fn)
}

// Stop invalidates the computation for good: it never runs again.
func (c *Computation) Stop() {
	if c.stopped {
		return
	}
	c.stopped = true
	c.Invalidate()
}

// Stopped reports whether Stop was called.
func (c *Computation) Stopped() bool {
	return c.stopped
}

// Invalidated reports whether the computation is waiting to re-run.
func (c *Computation) Invalidated() bool {
	return c.invalidated
}

// FirstRun reports whether the computation is running for the first time.
func (c *Computation) FirstRun() bool {
	return c.firstRun
}

// Runs returns how many times the computation has run.
func (c *Computation) Runs() int {
	return c.runs
}

func (c *Computation) rerun() {
	if c.stopped {
		return
	}
	c.invalidated = false
	c.run()
}

func (c *Computation) run() {
	t := c.tracker
	prev := t.current
	t.current = c
	defer func() { t.current = prev }()

	c.runs++
	c.fn(c)
}
