// Package scenario runs scripted sessions against a store.
//
// A scenario is a YAML file naming an initial document and a list of steps:
// computations that watch paths, writes, manual invalidations, flushes and
// expectations about which computations re-ran. Running a scenario yields a
// deterministic trace suitable for golden-file comparison.
//
//	name: basic
//	description: Only dependents whose value changed re-run.
//	initial: {a: {b: 1, c: 2}}
//	steps:
//	  - watch: {id: x, path: a.b}
//	  - watch: {id: y, path: a.c}
//	  - set: {path: a.b, value: 2}
//	  - flush: true
//	  - expect:
//	      invalidated: [x]
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reactobj/internal/errors"
	"github.com/vango-dev/reactobj/pkg/keypath"
)

// Scenario is a scripted store session.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description,omitempty"`

	// Initial is the initial value of the store.
	Initial any `yaml:"initial,omitempty"`

	// Document is a JSON or YAML file loaded as the initial value instead of
	// Initial. Relative paths are resolved against the scenario file.
	Document string `yaml:"document,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// File is the path the scenario was loaded from, if any.
	File string `yaml:"-"`
}

// Load reads and parses a scenario YAML file.
// Unknown fields are rejected.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("R020").
			WithDetail("Failed to read scenario file " + path).
			Wrap(err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, errors.FromError(err, "R020").WithDetail("Failed to load scenario file " + path)
	}
	s.File = path
	return s, nil
}

// Parse decodes a scenario from YAML.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, errors.New("R020").Wrap(fmt.Errorf("failed to parse YAML: %w", err))
	}
	if err := s.Validate(); err != nil {
		return nil, errors.New("R020").Wrap(fmt.Errorf("invalid scenario: %w", err))
	}
	return &s, nil
}

// Validate checks required fields, key paths and watcher references.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Initial != nil && s.Document != "" {
		return fmt.Errorf("initial and document are mutually exclusive")
	}
	watchers := make(map[string]bool)
	return validateSteps(s.Steps, watchers)
}

func validateSteps(steps []Step, watchers map[string]bool) error {
	for _, st := range steps {
		if err := validateStep(st, watchers); err != nil {
			return fmt.Errorf("step at line %d: %w", st.Line, err)
		}
	}
	return nil
}

func validateStep(st Step, watchers map[string]bool) error {
	switch {
	case st.Watch != nil:
		if st.Watch.ID == "" {
			return fmt.Errorf("watch: id is required")
		}
		if watchers[st.Watch.ID] {
			return fmt.Errorf("watch: duplicate id %q", st.Watch.ID)
		}
		watchers[st.Watch.ID] = true
		return validPath(st.Watch.Path)
	case st.Set != nil:
		if st.Set.Value.Kind == 0 {
			return errors.New("R002").WithDetail("set: value is required (use null to store nil)")
		}
		return validPath(st.Set.Path)
	case st.Invalidate != nil:
		return validPath(*st.Invalidate)
	case st.Stop != nil:
		if !watchers[*st.Stop] {
			return fmt.Errorf("stop: unknown watcher %q", *st.Stop)
		}
	case st.Batch != nil:
		return validateSteps(st.Batch, watchers)
	case st.Expect != nil:
		e := st.Expect
		if e.Invalidated != nil {
			for _, id := range *e.Invalidated {
				if !watchers[id] {
					return fmt.Errorf("expect: unknown watcher %q", id)
				}
			}
		}
		for id := range e.Runs {
			if !watchers[id] {
				return fmt.Errorf("expect: unknown watcher %q", id)
			}
		}
		if e.Value != nil {
			if e.Value.Absent == (e.Value.Equals.Kind != 0) {
				return fmt.Errorf("expect.value: exactly one of equals and absent is required")
			}
			return validPath(e.Value.Path)
		}
	}
	return nil
}

func validPath(s string) error {
	if _, err := keypath.Parse(s); err != nil {
		return errors.New("R001").Wrap(err)
	}
	return nil
}
