package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vango-dev/reactobj/pkg/valuetree"
)

// ErrNotFound is returned when a snapshot doesn't exist.
var ErrNotFound = errors.New("snapshot: not found")

// ErrTooLarge is returned when an encoded snapshot exceeds the size limit.
var ErrTooLarge = errors.New("snapshot: too large")

// ErrInvalidName is returned for names that are not safe as keys.
var ErrInvalidName = errors.New("snapshot: invalid name")

// ErrNotContainer is returned when a snapshot's top level is not a map or
// a sequence.
var ErrNotContainer = errors.New("snapshot: top level must be an object or an array")

// Store is the interface for snapshot storage backends.
type Store interface {
	// Save encodes doc and stores it under name, replacing any snapshot
	// with the same name.
	Save(ctx context.Context, name string, doc any) (Info, error)

	// Load returns the document stored under name.
	Load(ctx context.Context, name string) (any, error)

	// List returns every snapshot, sorted by name.
	List(ctx context.Context) ([]Info, error)

	// Delete removes the snapshot stored under name.
	Delete(ctx context.Context, name string) error
}

// Info describes a stored snapshot.
type Info struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Encode returns the JSON encoding of doc.
func Encode(doc any) ([]byte, error) {
	if !valuetree.IsContainer(doc) {
		return nil, ErrNotContainer
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot written by Encode.
func Decode(data []byte) (any, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	if !valuetree.IsContainer(doc) {
		return nil, ErrNotContainer
	}
	return doc, nil
}

// ValidName reports whether name can be used as a snapshot name.
func ValidName(name string) bool {
	if name == "" || len(name) > 128 {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case i > 0 && (c == '.' || c == '_' || c == '-'):
		default:
			return false
		}
	}
	return true
}

func checkName(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
