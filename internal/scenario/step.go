package scenario

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Step is one scenario instruction. Exactly one field is set.
type Step struct {
	// Watch starts a computation reading a path.
	Watch *WatchStep

	// Set writes a value.
	Set *SetStep

	// Invalidate marks a path dirty without writing.
	Invalidate *string

	// Flush runs the scheduler until it settles.
	Flush bool

	// Stop stops a watcher.
	Stop *string

	// Batch runs nested steps and flushes once at the end.
	Batch []Step

	// Expect checks the state reached so far.
	Expect *ExpectStep

	// Line and Column locate the step in its file.
	Line   int
	Column int
}

// WatchStep starts a computation that reads Path on every run.
type WatchStep struct {
	ID   string `yaml:"id"`
	Path string `yaml:"path"`
}

// SetStep writes Value at Path.
type SetStep struct {
	Path  string    `yaml:"path"`
	Value yaml.Node `yaml:"value"`
}

// ExpectStep asserts on the session. Unset fields are not checked.
type ExpectStep struct {
	// Invalidated lists the watchers that re-ran since the previous expect
	// step, in any order.
	Invalidated *[]string `yaml:"invalidated,omitempty"`

	// Value checks the value at a path.
	Value *ValueExpect `yaml:"value,omitempty"`

	// Stats checks the dependency trie size.
	Stats *StatsExpect `yaml:"stats,omitempty"`

	// Runs checks how many times each listed watcher has run.
	Runs map[string]int `yaml:"runs,omitempty"`
}

// ValueExpect checks the value at Path.
type ValueExpect struct {
	Path   string    `yaml:"path"`
	Equals yaml.Node `yaml:"equals,omitempty"`
	Absent bool      `yaml:"absent,omitempty"`
}

// StatsExpect checks trie counters.
type StatsExpect struct {
	Nodes   *int `yaml:"nodes,omitempty"`
	Records *int `yaml:"records,omitempty"`
}

// UnmarshalYAML decodes a single-key mapping such as {set: {...}}.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("line %d: a step must be a mapping with exactly one key", node.Line)
	}
	s.Line = node.Line
	s.Column = node.Column

	key, val := node.Content[0].Value, node.Content[1]
	var err error
	switch key {
	case "watch":
		s.Watch = new(WatchStep)
		err = decodeStrict(val, s.Watch)
	case "set":
		s.Set = new(SetStep)
		err = decodeStrict(val, s.Set)
	case "invalidate":
		s.Invalidate = new(string)
		err = val.Decode(s.Invalidate)
	case "flush":
		err = val.Decode(&s.Flush)
		if err == nil && !s.Flush {
			err = fmt.Errorf("flush must be true")
		}
	case "stop":
		s.Stop = new(string)
		err = val.Decode(s.Stop)
	case "batch":
		// Decode as a node list so nested steps keep their positions.
		var nested []Step
		err = val.Decode(&nested)
		if err == nil && len(nested) == 0 {
			err = fmt.Errorf("batch must contain steps")
		}
		s.Batch = nested
	case "expect":
		s.Expect = new(ExpectStep)
		err = decodeStrict(val, s.Expect)
	default:
		return fmt.Errorf("line %d: unknown step %q", node.Line, key)
	}
	if err != nil {
		return fmt.Errorf("line %d: %s: %w", node.Line, key, err)
	}
	return nil
}

// decodeStrict decodes node into v rejecting unknown fields.
// Node.Decode does not support KnownFields, so the node is re-encoded.
func decodeStrict(node *yaml.Node, v any) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(v)
}
