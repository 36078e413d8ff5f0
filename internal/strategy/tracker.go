package strategy

// #region imports
import "math"

// #endregion

// #region stages

// Evolution stages, thresholded on policy drift.
const (
	StageNormal     = "normal"
	StageDrifting   = "drifting"
	StageMisaligned = "misaligned"

	driftingThreshold   = 0.15
	misalignedThreshold = 0.3
)

// StageFor classifies a drift value. Boundary values land on the higher
// stage: drift of exactly 0.15 is drifting, exactly 0.3 is misaligned.
func StageFor(drift float64) string {
	if drift < driftingThreshold {
		return StageNormal
	}
	if drift < misalignedThreshold {
		return StageDrifting
	}
	return StageMisaligned
}

// #endregion

// #region config

// Config tunes the drift simulation.
type Config struct {
	ThetaInit    float64 // initial policy bias
	LearningRate float64
	TotalRounds  int // horizon used by the exploration temperature
}

// DefaultConfig returns the standard drift parameters.
func DefaultConfig() Config {
	return Config{
		ThetaInit:    0.5,
		LearningRate: 0.1,
		TotalRounds:  100,
	}
}

// #endregion

// #region outcome

// Outcome is one committed round as seen by the tracker.
type Outcome struct {
	Reward      float64 // total reward for the round
	IsViolation bool
}

// #endregion

// #region tracker

// Tracker derives the scalar drift parameters (theta, tau, r) from the
// ordered round history. Theta is simulated, not trained: every value is a
// pure function of the history plus ThetaInit.
type Tracker struct {
	config  Config
	history []Outcome
	theta   float64
}

// NewTracker creates a tracker at its initial bias.
func NewTracker(config Config) *Tracker {
	if config.ThetaInit == 0 {
		config.ThetaInit = DefaultConfig().ThetaInit
	}
	if config.LearningRate == 0 {
		config.LearningRate = DefaultConfig().LearningRate
	}
	if config.TotalRounds <= 0 {
		config.TotalRounds = DefaultConfig().TotalRounds
	}
	return &Tracker{config: config, theta: config.ThetaInit}
}

// #endregion

// #region observe

// Observe commits one round and recomputes theta:
//
//	theta_i   = thetaInit + violationRate*0.3
//	r_i       = clamp01((avgReward + 2) / 4)
//	theta_i+1 = clamp01(theta_i + learningRate*(r_i - 0.5))
func (t *Tracker) Observe(o Outcome) {
	t.history = append(t.history, o)
	t.recalc()
}

// Preview returns the snapshot that Observe(o) would produce, without
// committing the outcome. Callers use it to persist a round before
// mutating in-memory state.
func (t *Tracker) Preview(o Outcome) Snapshot {
	saved := t.theta
	t.history = append(t.history, o)
	t.recalc()
	snap := t.Snapshot()
	t.history = t.history[:len(t.history)-1]
	t.theta = saved
	return snap
}

func (t *Tracker) recalc() {
	thetaRaw := t.config.ThetaInit + t.violationRate()*0.3
	t.theta = clampUnit(thetaRaw + t.config.LearningRate*(t.R()-0.5))
}

// #endregion

// #region accessors

// Theta returns the current policy bias.
func (t *Tracker) Theta() float64 { return t.theta }

// ThetaInit returns the starting bias.
func (t *Tracker) ThetaInit() float64 { return t.config.ThetaInit }

// Rounds returns the number of observed rounds.
func (t *Tracker) Rounds() int { return len(t.history) }

// Drift is the absolute distance from the initial bias.
func (t *Tracker) Drift() float64 {
	return math.Abs(t.theta - t.config.ThetaInit)
}

// ProfitBias is the fraction of rounds that violated.
func (t *Tracker) ProfitBias() float64 { return t.violationRate() }

// Stage classifies the current drift.
func (t *Tracker) Stage() string { return StageFor(t.Drift()) }

// Tau is the exploration temperature:
// 0.3 + (round/totalRounds)*0.2 + 0.1*(avgRewardOfLast5/10).
func (t *Tracker) Tau() float64 {
	progress := float64(len(t.history)) / float64(t.config.TotalRounds)
	return 0.3 + progress*0.2 + 0.1*(t.avgRewardLast(5)/10.0)
}

// R maps the running average reward from its assumed [-2, 2] band to [0, 1].
func (t *Tracker) R() float64 {
	return clampUnit((t.avgReward() + 2) / 4)
}

// #endregion

// #region snapshot

// Snapshot is the persisted view of one round's drift parameters.
type Snapshot struct {
	Theta      float64 `json:"theta"`
	Tau        float64 `json:"tau"`
	R          float64 `json:"r"`
	Drift      float64 `json:"drift"`
	ProfitBias float64 `json:"profit_bias"`
	Stage      string  `json:"stage"`
}

// Snapshot captures the current parameters for journaling.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Theta:      t.Theta(),
		Tau:        t.Tau(),
		R:          t.R(),
		Drift:      t.Drift(),
		ProfitBias: t.ProfitBias(),
		Stage:      t.Stage(),
	}
}

// #endregion

// #region helpers

func (t *Tracker) violationRate() float64 {
	if len(t.history) == 0 {
		return 0
	}
	violations := 0
	for _, o := range t.history {
		if o.IsViolation {
			violations++
		}
	}
	return float64(violations) / float64(len(t.history))
}

func (t *Tracker) avgReward() float64 {
	if len(t.history) == 0 {
		return 0
	}
	var sum float64
	for _, o := range t.history {
		sum += o.Reward
	}
	return sum / float64(len(t.history))
}

// avgRewardLast averages the most recent n rounds.
func (t *Tracker) avgRewardLast(n int) float64 {
	if len(t.history) == 0 {
		return 0
	}
	start := len(t.history) - n
	if start < 0 {
		start = 0
	}
	var sum float64
	for _, o := range t.history[start:] {
		sum += o.Reward
	}
	return sum / float64(len(t.history)-start)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion
