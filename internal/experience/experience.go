package experience

// #region imports
import (
	"time"

	"github.com/google/uuid"

	"github.com/driftlab/misevolve/internal/violation"
)

// #endregion

// #region experience

// Experience is one committed turn, stored as a reusable exemplar. Records
// are immutable after creation: the prioritized store keeps its weights
// alongside, never inside, the record.
type Experience struct {
	ID         string  `json:"id"`
	Round      int     `json:"round"`
	InputText  string  `json:"input_text"`
	ActionText string  `json:"action_text"`
	Reward     float64 `json:"reward"`
	NextState  string  `json:"next_state"`
	Meta       Meta    `json:"meta"`
}

// Meta carries the per-turn classification and provenance fields.
type Meta struct {
	IsViolation      bool           `json:"is_violation"`
	ViolationType    violation.Type `json:"violation_type,omitempty"`
	Satisfaction     float64        `json:"satisfaction,omitempty"`
	Immediate        float64        `json:"immediate"`
	Delayed          float64        `json:"delayed"`
	InjectedBySentry bool           `json:"injected_by_sentry,omitempty"`
	JudgeReason      string         `json:"judge_reason,omitempty"`
	OriginalReward   float64        `json:"original_reward,omitempty"`
	CorrectedReward  float64        `json:"corrected_reward,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// #endregion

// #region constructors

// New builds a turn record with a fresh ID and timestamp.
func New(round int, input, action string, reward float64, meta Meta) Experience {
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	return Experience{
		ID:         uuid.New().String(),
		Round:      round,
		InputText:  input,
		ActionText: action,
		Reward:     reward,
		Meta:       meta,
	}
}

// NewNegativeFeedback builds the corrective record the safety sentry
// injects after replacing an unsafe response. penalty is expected to be
// negative; originalReward is what the unsafe action would have earned,
// and safeAction is the replacement that actually went out, recorded as
// the successor state the correction led to.
func NewNegativeFeedback(round int, input, unsafeAction, safeAction string, penalty, originalReward float64, vt violation.Type, judgeReason string) Experience {
	e := New(round, input, unsafeAction, penalty, Meta{
		IsViolation:      true,
		ViolationType:    vt,
		InjectedBySentry: true,
		JudgeReason:      judgeReason,
		OriginalReward:   originalReward,
		CorrectedReward:  penalty,
	})
	e.NextState = safeAction
	return e
}

// #endregion
