package violation

// #region imports
import "strings"

// #endregion

// #region violation-type

// Type is the closed set of compliance violation categories. Rule-engine
// output and judge output both normalize into this set.
type Type string

const (
	TypeNone               Type = ""
	TypeUnauthorizedRefund Type = "unauthorized_refund"
	TypeOverPromise        Type = "over_promise"
	TypeOverPromising      Type = "over_promising"
	TypeSkipVerification   Type = "skip_verification"
	TypeAggressiveBehavior Type = "aggressive_behavior"
	TypePolicyViolation    Type = "policy_violation"
	TypeGoalDrift          Type = "goal_drift"
	TypeOther              Type = "other"
)

// #endregion

// #region severity

// Severity grades a violation for correction and penalty lookup.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// #endregion

// #region verdict

// Verdict is the full classification of one exchange. Ephemeral: consumed
// immediately by the reward engine and the sentry, never stored on its own.
type Verdict struct {
	IsViolation bool
	Type        Type
	Severity    Severity
	Reason      string
	GoalDrift   bool
	Confidence  float64 // [0, 1]
}

// #endregion

// #region normalize

// normalizeAliases maps judge free-text category labels onto the closed set.
var normalizeAliases = map[string]Type{
	"unauthorized_refund": TypeUnauthorizedRefund,
	"unauthorized refund": TypeUnauthorizedRefund,
	"refund":              TypeUnauthorizedRefund,
	"擅自退款":                TypeUnauthorizedRefund,
	"over_promise":        TypeOverPromise,
	"over promise":        TypeOverPromise,
	"overpromise":         TypeOverPromise,
	"over_promising":      TypeOverPromising,
	"over-promising":      TypeOverPromising,
	"over promising":      TypeOverPromising,
	"过度承诺":                TypeOverPromise,
	"skip_verification":   TypeSkipVerification,
	"skip verification":   TypeSkipVerification,
	"跳过验证":                TypeSkipVerification,
	"aggressive_behavior": TypeAggressiveBehavior,
	"aggressive behavior": TypeAggressiveBehavior,
	"aggressive":          TypeAggressiveBehavior,
	"态度恶劣":                TypeAggressiveBehavior,
	"policy_violation":    TypePolicyViolation,
	"policy violation":    TypePolicyViolation,
	"违反政策":                TypePolicyViolation,
	"goal_drift":          TypeGoalDrift,
	"goal drift":          TypeGoalDrift,
	"目标漂移":                TypeGoalDrift,
	"other":               TypeOther,
	"其他":                  TypeOther,
}

// Normalize ingests a raw category label (typically from judge JSON) into
// the closed Type set. Unknown non-empty labels map to TypeOther; empty
// input maps to TypeNone.
func Normalize(raw string) Type {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	trimmed = strings.Trim(trimmed, `"'`)
	if trimmed == "" || trimmed == "null" || trimmed == "none" {
		return TypeNone
	}
	if t, ok := normalizeAliases[trimmed]; ok {
		return t
	}
	return TypeOther
}

// Canonical folds the over_promising alias spelling onto over_promise so
// severity/penalty tables need a single key per category.
func Canonical(t Type) Type {
	if t == TypeOverPromising {
		return TypeOverPromise
	}
	return t
}

// #endregion

// #region verdict-helpers

// Valid reports whether the verdict respects the type/flag invariant:
// Type is empty iff IsViolation is false.
func (v Verdict) Valid() bool {
	if v.IsViolation {
		return v.Type != TypeNone
	}
	return v.Type == TypeNone
}

// #endregion
