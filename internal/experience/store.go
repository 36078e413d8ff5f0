package experience

// #region imports
import (
	"sort"

	"github.com/driftlab/misevolve/internal/violation"
)

// #endregion

// #region store

// DefaultCapacity bounds the store when no capacity is configured.
const DefaultCapacity = 200

// Store is a bounded FIFO replay buffer of turn records. When full, the
// oldest entry is evicted. Not safe for concurrent use: each session owns
// its own store and writes strictly sequentially.
type Store struct {
	entries  []Experience
	capacity int
	sim      Similarity
}

// NewStore creates a store with the given capacity and similarity.
// Zero capacity falls back to DefaultCapacity; nil similarity falls back
// to token overlap.
func NewStore(capacity int, sim Similarity) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if sim == nil {
		sim = TokenOverlap{}
	}
	return &Store{capacity: capacity, sim: sim}
}

// #endregion

// #region add

// Add appends a record, evicting the oldest entry when over capacity.
func (s *Store) Add(e Experience) {
	s.entries = append(s.entries, e)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[1:]
	}
}

// Len returns the current number of records.
func (s *Store) Len() int { return len(s.entries) }

// Clear drops all records.
func (s *Store) Clear() { s.entries = nil }

// #endregion

// #region recent

// Recent returns the last n records in insertion order.
func (s *Store) Recent(n int) []Experience {
	if n <= 0 {
		return nil
	}
	start := len(s.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]Experience, len(s.entries)-start)
	copy(out, s.entries[start:])
	return out
}

// All returns every record in insertion order.
func (s *Store) All() []Experience {
	out := make([]Experience, len(s.entries))
	copy(out, s.entries)
	return out
}

// #endregion

// #region top-by-reward

// TopByReward returns up to k records sorted by reward descending.
// Equal rewards keep insertion order.
func (s *Store) TopByReward(k int) []Experience {
	if k <= 0 {
		return nil
	}
	sorted := s.All()
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Reward > sorted[j].Reward
	})
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}

// #endregion

// #region similar

// scored pairs a record with its similarity to a query.
type scored struct {
	exp Experience
	sim float64
}

// Similar returns up to k records most similar to the query input text.
func (s *Store) Similar(query string, k int) []Experience {
	ranked := s.rankBySimilarity(query)
	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]Experience, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, r.exp)
	}
	return out
}

// SimilarWithScores returns up to k (record, similarity) pairs.
func (s *Store) SimilarWithScores(query string, k int) ([]Experience, []float64) {
	ranked := s.rankBySimilarity(query)
	if k > len(ranked) {
		k = len(ranked)
	}
	exps := make([]Experience, 0, k)
	sims := make([]float64, 0, k)
	for _, r := range ranked[:k] {
		exps = append(exps, r.exp)
		sims = append(sims, r.sim)
	}
	return exps, sims
}

// SimilarTopReward retrieves 2k similar records, then keeps the k with the
// highest reward among them.
func (s *Store) SimilarTopReward(query string, k int) []Experience {
	if k <= 0 {
		return nil
	}
	pool := s.Similar(query, 2*k)
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Reward > pool[j].Reward
	})
	if k > len(pool) {
		k = len(pool)
	}
	return pool[:k]
}

// rankBySimilarity scores every record against the query, descending.
// Ties keep insertion order.
func (s *Store) rankBySimilarity(query string) []scored {
	ranked := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		ranked = append(ranked, scored{exp: e, sim: s.sim.Score(query, e.InputText)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].sim > ranked[j].sim
	})
	return ranked
}

// #endregion

// #region violations

// Violations returns all violation-tagged records in insertion order.
func (s *Store) Violations() []Experience {
	var out []Experience
	for _, e := range s.entries {
		if e.Meta.IsViolation {
			out = append(out, e)
		}
	}
	return out
}

// #endregion

// #region inject-negative-feedback

// InjectNegativeFeedback constructs and adds the sentry's corrective
// record. Convenience wrapper used by the safety layer.
func (s *Store) InjectNegativeFeedback(round int, input, unsafeAction, safeAction string, penalty, originalReward float64, vt violation.Type, judgeReason string) Experience {
	e := NewNegativeFeedback(round, input, unsafeAction, safeAction, penalty, originalReward, vt, judgeReason)
	s.Add(e)
	return e
}

// #endregion
