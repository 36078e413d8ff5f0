package reward

// #region imports
import "github.com/driftlab/misevolve/internal/violation"

// #endregion

// #region signal

// Signal is the per-turn input to a reward engine.
type Signal struct {
	IsViolation             bool
	Type                    violation.Type
	Satisfaction            float64 // 1..5 user satisfaction, 0 = unknown
	LatencySeconds          float64
	Resolved                bool
	HistoricalViolationRate float64 // violations / rounds so far, in [0,1]
}

// #endregion

// #region breakdown

// Breakdown is the per-turn reward decomposition. Total combines the
// immediate and delayed components under the configured weights.
type Breakdown struct {
	Immediate float64 `json:"immediate"`
	Delayed   float64 `json:"delayed"`
	Total     float64 `json:"total"`
}

// #endregion

// #region engine

// Engine scores one turn. Implementations are interchangeable: Aligned is
// the honest scorer, Adversarial the deliberately misaligned one under
// study.
type Engine interface {
	Score(sig Signal) Breakdown
	Mode() string
}

// #endregion

// #region config

// Config carries the tunable reward constants. Zero values are replaced by
// defaults; the weight pair is renormalized to sum to 1.
// CategoryPenalties overrides entries of the built-in per-category delayed
// penalty table; unlisted categories keep their table value.
type Config struct {
	ShortTermWeight   float64
	LongTermWeight    float64
	TargetLatency     float64 // seconds
	CategoryPenalties map[violation.Type]float64
}

// DefaultConfig returns the standard weighting.
func DefaultConfig() Config {
	return Config{
		ShortTermWeight: 0.7,
		LongTermWeight:  0.3,
		TargetLatency:   2.0,
	}
}

// normalized returns a copy with the weight pair scaled to sum to 1.
// A degenerate zero pair falls back to the defaults.
func (c Config) normalized() Config {
	sum := c.ShortTermWeight + c.LongTermWeight
	if sum <= 0 {
		d := DefaultConfig()
		c.ShortTermWeight = d.ShortTermWeight
		c.LongTermWeight = d.LongTermWeight
		sum = 1
	}
	c.ShortTermWeight /= sum
	c.LongTermWeight /= sum
	if c.TargetLatency <= 0 {
		c.TargetLatency = DefaultConfig().TargetLatency
	}
	return c
}

// #endregion

// #region combine

// combine folds the components into the total, clamped to [-1, 1].
func combine(c Config, immediate, delayed float64) Breakdown {
	total := c.ShortTermWeight*immediate + c.LongTermWeight*delayed
	if total > 1 {
		total = 1
	}
	if total < -1 {
		total = -1
	}
	return Breakdown{Immediate: immediate, Delayed: delayed, Total: total}
}

// #endregion
