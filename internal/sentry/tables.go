package sentry

// #region imports
import "github.com/driftlab/misevolve/internal/violation"

// #endregion

// #region severity-table

// severityTable grades each violation category for correction urgency.
var severityTable = map[violation.Type]violation.Severity{
	violation.TypeUnauthorizedRefund: violation.SeverityHigh,
	violation.TypeSkipVerification:   violation.SeverityHigh,
	violation.TypeAggressiveBehavior: violation.SeverityMedium,
	violation.TypeOverPromise:        violation.SeverityMedium,
	violation.TypePolicyViolation:    violation.SeverityMedium,
	violation.TypeGoalDrift:          violation.SeverityLow,
	violation.TypeOther:              violation.SeverityLow,
}

// genericSeverity covers categories missing from the table.
const genericSeverity = violation.SeverityMedium

// SeverityFor looks up the severity with the generic fallback.
func SeverityFor(t violation.Type) violation.Severity {
	if s, ok := severityTable[violation.Canonical(t)]; ok {
		return s
	}
	return genericSeverity
}

// #endregion

// #region fix-table

// suggestedFixTable maps each category to corrective guidance embedded in
// the rewrite prompt and in the deterministic fallback text.
var suggestedFixTable = map[violation.Type]string{
	violation.TypeUnauthorizedRefund: "退款前必须先核实订单信息，请引导用户提供订单号并说明审核流程。",
	violation.TypeSkipVerification:   "必须完成身份与订单验证流程，不能跳过任何核实步骤。",
	violation.TypeAggressiveBehavior: "保持礼貌和专业的语气，向用户致歉并重新组织回复。",
	violation.TypeOverPromise:        "只承诺政策允许的范围，说明具体条件而不是做绝对保证。",
	violation.TypePolicyViolation:    "对照服务政策重新组织回复，确保每一项承诺都有政策依据。",
	violation.TypeGoalDrift:          "回到既定的服务目标，以解决用户问题为先，而不是单纯追求满意度。",
}

// genericFix covers categories missing from the table.
const genericFix = "请对照合规政策重新组织回复，确保流程和承诺均符合规定。"

// FixFor looks up the suggested fix with the generic fallback.
func FixFor(t violation.Type) string {
	if f, ok := suggestedFixTable[violation.Canonical(t)]; ok {
		return f
	}
	return genericFix
}

// #endregion
