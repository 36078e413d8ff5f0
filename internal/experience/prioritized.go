package experience

// #region imports
import (
	"math"
	"math/rand"
)

// #endregion

// #region prioritized-store

// defaultAlpha shapes the priority distribution; defaultInitialPriority
// seeds the running max before any priority update.
const (
	defaultAlpha           = 0.6
	defaultInitialPriority = 1.0
)

// PrioritizedStore is a replay buffer whose entries carry a priority
// weight alongside (never inside) the immutable record. New entries
// default to the running max priority so they are sampled at least once.
type PrioritizedStore struct {
	entries     []Experience
	priorities  []float64
	capacity    int
	alpha       float64
	maxPriority float64
	rng         *rand.Rand
}

// NewPrioritizedStore creates a prioritized buffer. seed fixes the
// sampling stream for reproducible experiments.
func NewPrioritizedStore(capacity int, alpha float64, seed int64) *PrioritizedStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if alpha <= 0 {
		alpha = defaultAlpha
	}
	return &PrioritizedStore{
		capacity:    capacity,
		alpha:       alpha,
		maxPriority: defaultInitialPriority,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// #endregion

// #region add

// Add appends a record at the running max priority, evicting FIFO when
// over capacity.
func (p *PrioritizedStore) Add(e Experience) {
	p.entries = append(p.entries, e)
	p.priorities = append(p.priorities, p.maxPriority)
	if len(p.entries) > p.capacity {
		p.entries = p.entries[1:]
		p.priorities = p.priorities[1:]
	}
}

// Len returns the number of stored records.
func (p *PrioritizedStore) Len() int { return len(p.entries) }

// #endregion

// #region sample

// Sample draws batchSize records without replacement from the
// priority^alpha-weighted distribution. It returns the records, their
// importance-sampling weights (normalized by the max weight, so the
// largest is 1), and the store indices of the drawn records.
func (p *PrioritizedStore) Sample(batchSize int, beta float64) ([]Experience, []float64, []int) {
	n := len(p.entries)
	if n == 0 || batchSize <= 0 {
		return nil, nil, nil
	}
	if batchSize > n {
		batchSize = n
	}

	weights := make([]float64, n)
	var total float64
	for i, prio := range p.priorities {
		w := math.Pow(prio, p.alpha)
		weights[i] = w
		total += w
	}

	// Weighted draw without replacement: remove each drawn index's mass.
	drawn := make([]int, 0, batchSize)
	taken := make([]bool, n)
	for len(drawn) < batchSize {
		r := p.rng.Float64() * total
		idx := -1
		for i, w := range weights {
			if taken[i] {
				continue
			}
			r -= w
			if r <= 0 {
				idx = i
				break
			}
		}
		if idx < 0 { // numeric drift: take the last untaken index
			for i := n - 1; i >= 0; i-- {
				if !taken[i] {
					idx = i
					break
				}
			}
		}
		taken[idx] = true
		total -= weights[idx]
		drawn = append(drawn, idx)
	}

	// Importance weights: (N * P(i))^-beta, normalized by their max.
	var sumAll float64
	for _, w := range weights {
		sumAll += w
	}
	exps := make([]Experience, batchSize)
	isw := make([]float64, batchSize)
	maxW := 0.0
	for j, idx := range drawn {
		prob := weights[idx] / sumAll
		w := math.Pow(float64(n)*prob, -beta)
		exps[j] = p.entries[idx]
		isw[j] = w
		if w > maxW {
			maxW = w
		}
	}
	if maxW > 0 {
		for j := range isw {
			isw[j] /= maxW
		}
	}
	return exps, isw, drawn
}

// #endregion

// #region update-priorities

// UpdatePriorities mutates the weights at the given indices and tracks the
// running max. Out-of-range indices are ignored.
func (p *PrioritizedStore) UpdatePriorities(indices []int, newPriorities []float64) {
	for j, idx := range indices {
		if j >= len(newPriorities) || idx < 0 || idx >= len(p.priorities) {
			continue
		}
		prio := newPriorities[j]
		if prio <= 0 {
			continue
		}
		p.priorities[idx] = prio
		if prio > p.maxPriority {
			p.maxPriority = prio
		}
	}
}

// Priority returns the weight at index i, for inspection.
func (p *PrioritizedStore) Priority(i int) float64 {
	if i < 0 || i >= len(p.priorities) {
		return 0
	}
	return p.priorities[i]
}

// #endregion
