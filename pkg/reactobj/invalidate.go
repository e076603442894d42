package reactobj

import (
	"time"

	"github.com/vango-dev/reactobj/pkg/deptrie"
	"github.com/vango-dev/reactobj/pkg/keypath"
	"github.com/vango-dev/reactobj/pkg/pathtree"
	"github.com/vango-dev/reactobj/pkg/traverse"
	"github.com/vango-dev/reactobj/pkg/valuetree"
)

// passResult counts the outcome of one invalidation pass.
type passResult struct {
	checked     int
	invalidated int
	suppressed  int
}

type matchVisit = traverse.Visit[traverse.Pair[*pathtree.Node, *deptrie.Node]]

// flushInvalidations runs the invalidation pass over every path dirtied
// since the previous pass.
func (s *Store) flushInvalidations() {
	dirty := s.batch.drainInvalidations()
	if len(dirty) == 0 {
		return
	}

	start := time.Now()
	span := s.startFlushSpan(len(dirty))
	tree := pathtree.Build(dirty)

	var r passResult
	traverse.Zip(tree.Root(), s.trie.Root(),
		(*pathtree.Node).Edges,
		(*deptrie.Node).Child,
		func(v matchVisit) bool {
			s.checkNode(v.Path, v.Node.Right, &r)
			if v.Node.Left.Marker() != pathtree.All {
				return true
			}
			// The whole subtree was replaced: every dependent beneath is a
			// candidate.
			deptrie.Descendants(v.Node.Right, v.Path, func(p keypath.Path, n *deptrie.Node) {
				s.checkNode(p, n, &r)
			})
			return false
		},
	)

	endFlushSpan(span, r, tree.All())
	s.metrics.recordFlush(r, time.Since(start).Seconds())
	s.logger.Debug("reactobj flush",
		"dirty", len(dirty),
		"checked", r.checked,
		"invalidated", r.invalidated,
		"suppressed", r.suppressed,
	)
}

// checkNode compares every record of n with the current value at path and
// invalidates the computations whose observation is stale.
func (s *Store) checkNode(path keypath.Path, n *deptrie.Node, r *passResult) {
	if n.NumRecords() == 0 {
		return
	}
	value, found := valuetree.Resolve(s.root, path)

	// Invalidate may remove records from n, so iterate over a snapshot.
	for _, id := range n.RecordIDs() {
		rec, ok := n.Record(id)
		if !ok {
			continue
		}
		r.checked++
		if rec.Found == found && (!found || s.equal(rec.Observed, value)) {
			r.suppressed++
			continue
		}
		r.invalidated++
		rec.Computation.Invalidate()
	}
}
