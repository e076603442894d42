package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"
)

// Category groups error codes by the part of reactobj that raises them.
type Category string

const (
	CategoryKeyPath  Category = "keypath"
	CategoryConfig   Category = "config"
	CategoryScenario Category = "scenario"
	CategoryDocument Category = "document"
	CategoryServer   Category = "server"
	CategorySnapshot Category = "snapshot"
)

// Location is a position in a scenario or document file.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l *Location) String() string {
	switch {
	case l == nil:
		return ""
	case l.Column > 0:
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	default:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
}

// sourceRadius is how many lines on each side of a location are shown.
const sourceRadius = 2

// Error is a coded error. Its zero Code means the error was not raised from
// the registry.
type Error struct {
	Code     string
	Category Category
	Message  string
	Detail   string

	// Location and Source point at the file content that caused the error.
	// Source[0] is line SourceStart.
	Location    *Location
	Source      []string
	SourceStart int

	Suggestion string
	DocURL     string

	Wrapped error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Wrapped }

// WithLocation records where in file the error occurred and captures the
// lines around it. An unreadable file leaves Source empty.
func (e *Error) WithLocation(file string, line, column int) *Error {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Source, e.SourceStart = sourceAround(file, line)
	return e
}

// WithSuggestion sets the hint shown after the cause.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail replaces the registered explanation.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap sets the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

func sourceAround(file string, line int) ([]string, int) {
	data, err := os.ReadFile(file)
	if err != nil || line < 1 {
		return nil, 0
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if line > len(lines) {
		return nil, 0
	}
	start := max(line-sourceRadius, 1)
	end := min(line+sourceRadius, len(lines))
	return lines[start-1 : end], start
}

// New returns an Error filled from the registered template for code.
func New(code string) *Error {
	t, ok := registry[code]
	if !ok {
		return &Error{Code: code, Message: "Unknown error"}
	}
	return &Error{
		Code:     code,
		Category: t.Category,
		Message:  t.Message,
		Detail:   t.Detail,
		DocURL:   t.DocURL,
	}
}

// Newf returns an uncoded Error with a formatted message.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{Category: category, Message: fmt.Sprintf(format, args...)}
}

// FromError returns the *Error in err's chain, or wraps err in a new Error
// with code.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return New(code).Wrap(err)
}
