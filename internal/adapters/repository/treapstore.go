package repository

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/attrition/internal/domain/types"
	"github.com/okian/attrition/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then employeeID ASC (deterministic). "less" means
// ranks earlier, so in-order traversal yields the ranking from highest to
// lowest risk. Subtree sizes give O(log n) rank lookups.

type node struct {
	id    string
	score float64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) ranks before (bScore, bID).
func less(aScore float64, aID string, bScore float64, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score float64, prio uint64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: prio, size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// countBefore returns how many nodes rank before (score, id).
func countBefore(n *node, score float64, id string) int {
	count := 0
	for n != nil {
		if less(n.score, n.id, score, id) {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit ids in rank order.
func collectTopN(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.id)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// TreapStore ranks employees by risk score.
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[string]types.Entry
	seed int64
	rng  *rand.Rand
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID: make(map[string]types.Entry),
		seed: time.Now().UnixNano(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewSource(s.seed))
	return s
}

// Upsert implements Store.Upsert with O(log n) expected time.
func (s *TreapStore) Upsert(ctx context.Context, e types.Entry) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if e.EmployeeID == "" || math.IsNaN(e.Score) {
		metrics.RecordErrorByComponent("repository", "invalid_entry")
		return fmt.Errorf("%w: employee %q score %v", ErrInvalidEntry, e.EmployeeID, e.Score)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.Rank = 0

	s.mu.Lock()
	if old, ok := s.byID[e.EmployeeID]; ok {
		s.root = deleteNode(s.root, old.EmployeeID, old.Score)
	}
	s.byID[e.EmployeeID] = e
	s.root = insert(s.root, e.EmployeeID, e.Score, s.rng.Uint64())
	count := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateRankedEmployees(count)
	return nil
}

// Rank returns the competition rank of an employee: one more than the
// number of employees with a strictly higher score.
func (s *TreapStore) Rank(_ context.Context, employeeID string) (types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[employeeID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.Entry{}, ErrNotFound
	}
	// "" sorts before every id, so this counts strictly higher scores only.
	e.Rank = countBefore(s.root, e.Score, "") + 1
	return e, nil
}

// TopN returns the top N entries. Tied scores share a rank.
func (s *TreapStore) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, &ids)

	out := make([]types.Entry, len(ids))
	for i, id := range ids {
		out[i] = s.byID[id]
		switch {
		case i > 0 && out[i].Score == out[i-1].Score:
			out[i].Rank = out[i-1].Rank
		default:
			out[i].Rank = i + 1
		}
	}
	return out, nil
}

// Count returns the number of ranked employees.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Reset drops every entry.
func (s *TreapStore) Reset(_ context.Context) {
	s.mu.Lock()
	s.root = nil
	s.byID = make(map[string]types.Entry)
	s.mu.Unlock()
	metrics.UpdateRankedEmployees(0)
}
