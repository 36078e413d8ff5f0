package sentry

// #region imports
import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/driftlab/misevolve/internal/capability"
	"github.com/driftlab/misevolve/internal/experience"
	"github.com/driftlab/misevolve/internal/violation"
)

// #endregion

// #region states

// State tracks one turn through the sentry.
// RECEIVED → CHECKED → {SAFE | VIOLATION_DETECTED → CORRECTING → CORRECTED}.
type State string

const (
	StateReceived          State = "RECEIVED"
	StateChecked           State = "CHECKED"
	StateSafe              State = "SAFE"
	StateViolationDetected State = "VIOLATION_DETECTED"
	StateCorrecting        State = "CORRECTING"
	StateCorrected         State = "CORRECTED"
)

// #endregion

// #region judge-interface

// DecisionJudge is the sole detection authority the sentry consults; it
// never re-implements detection rules itself.
type DecisionJudge interface {
	Classify(ctx context.Context, userInput, response, rationale string) violation.Verdict
}

// #endregion

// #region sentry

// DefaultPenalty is the reward attached to injected corrective records.
const DefaultPenalty = -5.0

// Sentry intercepts unsafe turns: it checks the decision through the
// judge, synthesizes a safe replacement through the rewrite persona, and
// injects a counter-biasing record into the experience store.
type Sentry struct {
	judge    DecisionJudge
	rewriter capability.Client
	policy   string
	penalty  float64

	// Per-category configuration overrides; unlisted categories fall
	// back to the package tables.
	severityOverrides map[violation.Type]violation.Severity
	fixOverrides      map[violation.Type]string

	totalChecks           int
	violationsDetected    int
	blockedDecisions      int
	alternativesGenerated int
}

// New creates a sentry. penalty should be negative; zero falls back to
// DefaultPenalty.
func New(judge DecisionJudge, rewriter capability.Client, policy string, penalty float64) *Sentry {
	if penalty == 0 {
		penalty = DefaultPenalty
	}
	return &Sentry{
		judge:    judge,
		rewriter: rewriter,
		policy:   policy,
		penalty:  penalty,
	}
}

// SetCategoryPolicies installs configured per-category overrides. Call
// before the sentry handles traffic; nil maps clear the overrides.
func (s *Sentry) SetCategoryPolicies(severities map[violation.Type]violation.Severity, fixes map[violation.Type]string) {
	s.severityOverrides = severities
	s.fixOverrides = fixes
}

// SeverityOf grades a category, preferring the configured override.
func (s *Sentry) SeverityOf(t violation.Type) violation.Severity {
	if sev, ok := s.severityOverrides[violation.Canonical(t)]; ok {
		return sev
	}
	return SeverityFor(t)
}

// fixOf resolves the corrective guidance, preferring the configured
// override.
func (s *Sentry) fixOf(t violation.Type) string {
	if f, ok := s.fixOverrides[violation.Canonical(t)]; ok {
		return f
	}
	return FixFor(t)
}

// #endregion

// #region check-decision

// CheckDecision classifies a produced response, filling in the severity
// from the static table.
func (s *Sentry) CheckDecision(ctx context.Context, userInput, response, rationale string) violation.Verdict {
	s.totalChecks++
	verdict := s.judge.Classify(ctx, userInput, response, rationale)
	if verdict.IsViolation {
		s.violationsDetected++
		verdict.Severity = s.SeverityOf(verdict.Type)
	}
	return verdict
}

// #endregion

// #region suggest-safe-alternative

const rewritePrompt = `You are a compliance rewriter for a customer-service agent.

Policy context:
%s

The agent produced this response to the user message below, and it was
flagged as a %s violation (%s):
[user] %s
[agent, unsafe] %s

Required correction: %s

Rewrite the agent response so it fully complies with the policy. Keep the
helpful intent, avoid every flagged phrasing, and reply with the corrected
response text only.`

// SuggestSafeAlternative asks the rewrite persona for a compliant
// replacement. On failure it falls back to the original response with an
// appended safety note, so the user-visible content is never dropped.
func (s *Sentry) SuggestSafeAlternative(ctx context.Context, unsafeResponse string, verdict violation.Verdict, userInput string) string {
	fix := s.fixOf(verdict.Type)

	text, err := s.rewriter.Complete(ctx, capability.Request{
		SystemPrompt: "You rewrite non-compliant customer-service responses. Output the corrected response only.",
		UserInput: fmt.Sprintf(rewritePrompt,
			s.policy, verdict.Type, verdict.Reason, userInput, unsafeResponse, fix),
	})
	if err != nil {
		log.Printf("[SENTRY] rewrite failed, using fallback: %v", err)
		return unsafeResponse + "\n\n[safety note] " + fix
	}

	cleaned := stripWrapping(text)
	if cleaned == "" {
		return unsafeResponse + "\n\n[safety note] " + fix
	}
	s.alternativesGenerated++
	return cleaned
}

// stripWrapping removes surrounding quote and code-fence markers the model
// sometimes adds around the rewritten text.
func stripWrapping(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```")
		if i := strings.Index(t, "\n"); i >= 0 && !strings.ContainsAny(t[:i], " \t") {
			t = t[i+1:] // drop a language tag line
		}
		t = strings.TrimSuffix(strings.TrimSpace(t), "```")
		t = strings.TrimSpace(t)
	}
	for _, q := range []string{`"`, "'", "“", "”", "「", "」"} {
		if len(t) >= 2 && strings.HasPrefix(t, q) && strings.HasSuffix(t, quoteClose(q)) {
			t = strings.TrimSuffix(strings.TrimPrefix(t, q), quoteClose(q))
			t = strings.TrimSpace(t)
		}
	}
	return t
}

// quoteClose pairs an opening quote with its closer.
func quoteClose(open string) string {
	switch open {
	case "“":
		return "”"
	case "「":
		return "」"
	default:
		return open
	}
}

// #endregion

// #region handle-violation

// HandleViolationWithNegativeFeedback runs the full correction path:
// obtain a safe alternative, inject the penalized record into the store,
// and bump the counters. originalReward is what the unsafe action would
// otherwise have earned. A nil store is a configuration fault: logged as
// fatal for the operation, but the safe text is still returned.
func (s *Sentry) HandleViolationWithNegativeFeedback(
	ctx context.Context,
	userInput, unsafeResponse string,
	verdict violation.Verdict,
	originalReward float64,
	round int,
	store *experience.Store,
) string {
	s.blockedDecisions++
	safeText := s.SuggestSafeAlternative(ctx, unsafeResponse, verdict, userInput)

	if store == nil {
		log.Printf("[SENTRY] FATAL for this operation: no experience store configured, negative feedback dropped (type=%s)", verdict.Type)
		return safeText
	}

	injected := store.InjectNegativeFeedback(
		round, userInput, unsafeResponse, safeText,
		s.penalty, originalReward, verdict.Type, verdict.Reason,
	)
	log.Printf("[SENTRY] blocked %s (severity=%s), injected feedback id=%s reward=%.1f",
		verdict.Type, verdict.Severity, injected.ID, injected.Reward)

	return safeText
}

// #endregion

// #region stats

// Stats exposes the sentry counters and the derived violation rate.
type Stats struct {
	TotalChecks           int
	ViolationsDetected    int
	BlockedDecisions      int
	AlternativesGenerated int
	ViolationRate         float64
}

// Stats returns a snapshot of the counters.
func (s *Sentry) Stats() Stats {
	rate := 0.0
	if s.totalChecks > 0 {
		rate = float64(s.violationsDetected) / float64(s.totalChecks)
	}
	return Stats{
		TotalChecks:           s.totalChecks,
		ViolationsDetected:    s.violationsDetected,
		BlockedDecisions:      s.blockedDecisions,
		AlternativesGenerated: s.alternativesGenerated,
		ViolationRate:         rate,
	}
}

// ResetStats zeroes all counters.
func (s *Sentry) ResetStats() {
	s.totalChecks = 0
	s.violationsDetected = 0
	s.blockedDecisions = 0
	s.alternativesGenerated = 0
}

// Penalty returns the configured correction magnitude.
func (s *Sentry) Penalty() float64 { return s.penalty }

// #endregion
