package inspect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reactobj/pkg/keypath"
	"github.com/vango-dev/reactobj/pkg/reactobj"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(map[string]any{"a": map[string]any{"b": 1, "c": 2}}, 0, nil)
	t.Cleanup(h.Close)
	return h
}

func TestHubGetSet(t *testing.T) {
	ctx := context.Background()
	h := newTestHub(t)

	v, found, err := h.Get(ctx, keypath.MustParse("a.b"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, v)

	changed, err := h.Set(ctx, keypath.MustParse("a.b"), 1)
	require.NoError(t, err)
	assert.False(t, changed, "writing the same value is a no-op")

	changed, err = h.Set(ctx, keypath.MustParse("a.d"), "new")
	require.NoError(t, err)
	assert.True(t, changed)

	v, found, err = h.Get(ctx, keypath.MustParse("a.d"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "new", v)

	_, found, err = h.Get(ctx, keypath.MustParse("x.y"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHubWatch(t *testing.T) {
	ctx := context.Background()
	h := newTestHub(t)

	var updates []Update
	id, err := h.Watch(ctx, keypath.MustParse("a.b"), func(u Update) {
		updates = append(updates, u)
	})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, Update{Watch: id, Path: "a.b", Found: true, Value: 1, Run: 1}, updates[0])

	// A sibling write does not re-run the watch.
	_, err = h.Set(ctx, keypath.MustParse("a.c"), 5)
	require.NoError(t, err)
	require.NoError(t, h.Invalidate(ctx, keypath.MustParse("a")))
	assert.Len(t, updates, 1)

	_, err = h.Set(ctx, keypath.MustParse("a.b"), 2)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, 2, updates[1].Value)
	assert.Equal(t, 2, updates[1].Run)

	_, err = h.Set(ctx, keypath.MustParse("a"), nil)
	require.NoError(t, err)
	require.Len(t, updates, 3)
	assert.False(t, updates[2].Found)
	assert.Nil(t, updates[2].Value)

	stats, err := h.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Nodes)
	assert.Equal(t, 1, stats.Records)

	deps, err := h.Dependencies(ctx)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "a.b", deps[0].Path)

	require.NoError(t, h.Unwatch(ctx, id))
	stats, err = h.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Nodes)
	assert.Equal(t, 0, stats.Records)

	assert.ErrorIs(t, h.Unwatch(ctx, id), ErrUnknownWatch)
}

func TestHubClose(t *testing.T) {
	h := NewHub(nil, 0, nil)
	h.Close()
	h.Close()

	_, _, err := h.Get(context.Background(), keypath.Root)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHubCanceledContext(t *testing.T) {
	h := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Set(ctx, keypath.MustParse("a.b"), 3)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHubRecoversFromPanics(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	_, err := h.Watch(ctx, keypath.MustParse("a.b"), func(u Update) {
		if u.Run > 1 {
			panic("boom")
		}
	})
	require.NoError(t, err)

	_, err = h.Set(ctx, keypath.MustParse("a.b"), 9)
	require.NoError(t, err)

	v, _, err := h.Get(ctx, keypath.MustParse("a.b"))
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestHubReportsCommandPanics(t *testing.T) {
	ctx := context.Background()
	h := NewHub(map[string]any{"a": 1}, 0, nil, reactobj.WithEquals(func(a, b any) bool {
		panic("equality exploded")
	}))
	t.Cleanup(h.Close)

	changed, err := h.Set(ctx, keypath.MustParse("a"), 2)
	require.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "equality exploded")
	assert.False(t, changed)

	// The hub keeps serving after a failed command.
	v, found, err := h.Get(ctx, keypath.MustParse("a"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, v)
}

func TestHubSetFarIndex(t *testing.T) {
	ctx := context.Background()
	h := NewHub(map[string]any{"list": []any{1}}, 0, nil)
	t.Cleanup(h.Close)

	path := keypath.MustParse("list.4611686018427387904")
	changed, err := h.Set(ctx, path, 2)
	require.NoError(t, err)
	assert.True(t, changed)

	v, found, err := h.Get(ctx, path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, v)
}
