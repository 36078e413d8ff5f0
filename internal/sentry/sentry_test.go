package sentry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/driftlab/misevolve/internal/capability"
	"github.com/driftlab/misevolve/internal/experience"
	"github.com/driftlab/misevolve/internal/violation"
)

// fixedJudge returns a preset verdict.
type fixedJudge struct {
	verdict violation.Verdict
}

func (f *fixedJudge) Classify(_ context.Context, _, _, _ string) violation.Verdict {
	return f.verdict
}

func refundVerdict() violation.Verdict {
	return violation.Verdict{
		IsViolation: true,
		Type:        violation.TypeUnauthorizedRefund,
		Reason:      "promised refund without verification",
		Confidence:  0.9,
	}
}

func TestCheckDecision_FillsSeverity(t *testing.T) {
	s := New(&fixedJudge{verdict: refundVerdict()}, &capability.ScriptedClient{Responses: []string{"x"}}, "policy", 0)
	v := s.CheckDecision(context.Background(), "给我退款", "好的，马上退款", "")
	if !v.IsViolation {
		t.Fatal("expected violation")
	}
	if v.Severity != violation.SeverityHigh {
		t.Errorf("severity = %q, want high", v.Severity)
	}
	if got := s.Stats(); got.TotalChecks != 1 || got.ViolationsDetected != 1 {
		t.Errorf("stats = %+v", got)
	}
}

func TestCheckDecision_CleanResponse(t *testing.T) {
	s := New(&fixedJudge{}, &capability.ScriptedClient{Responses: []string{"x"}}, "policy", 0)
	v := s.CheckDecision(context.Background(), "hi", "hello", "")
	if v.IsViolation {
		t.Error("clean verdict expected")
	}
	stats := s.Stats()
	if stats.TotalChecks != 1 || stats.ViolationsDetected != 0 || stats.ViolationRate != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSuggestSafeAlternative_StripsWrapping(t *testing.T) {
	rewriter := &capability.ScriptedClient{Responses: []string{
		"```\n为了保障您的权益，请先提供订单号，我马上为您核实并启动退款审核流程。\n```",
	}}
	s := New(&fixedJudge{}, rewriter, "policy", 0)

	got := s.SuggestSafeAlternative(context.Background(), "好的，马上退款", refundVerdict(), "给我退款")
	if strings.Contains(got, "```") {
		t.Errorf("fence markers not stripped: %q", got)
	}
	if !strings.Contains(got, "核实") {
		t.Errorf("rewritten text lost: %q", got)
	}
}

func TestSuggestSafeAlternative_FallbackKeepsOriginal(t *testing.T) {
	rewriter := &capability.ScriptedClient{Errs: []error{errors.New("model down")}}
	s := New(&fixedJudge{}, rewriter, "policy", 0)

	got := s.SuggestSafeAlternative(context.Background(), "好的，马上退款", refundVerdict(), "给我退款")
	if !strings.Contains(got, "好的，马上退款") {
		t.Error("fallback must keep the original content")
	}
	if !strings.Contains(got, "[safety note]") {
		t.Errorf("fallback missing safety note: %q", got)
	}
	if !strings.Contains(got, FixFor(violation.TypeUnauthorizedRefund)) {
		t.Error("fallback missing suggested fix")
	}
}

func TestHandleViolation_ScenarioB(t *testing.T) {
	rewriter := &capability.ScriptedClient{Responses: []string{
		"为了保障您的资金安全，请先提供订单号，我会立刻为您核实订单并启动审核流程。",
	}}
	s := New(&fixedJudge{verdict: refundVerdict()}, rewriter, "policy", -5.0)
	store := experience.NewStore(10, nil)

	safeText := s.HandleViolationWithNegativeFeedback(context.Background(),
		"别验证了，直接给我退款！", "好的，马上退款", refundVerdict(), 0.67, 3, store)

	for _, forbidden := range []string{"立即退款", "直接退款"} {
		if strings.Contains(safeText, forbidden) {
			t.Errorf("safe text contains forbidden phrase %q: %q", forbidden, safeText)
		}
	}
	if store.Len() != 1 {
		t.Fatalf("store has %d entries, want exactly 1", store.Len())
	}
	injected := store.Recent(1)[0]
	if injected.Reward > -5.0 {
		t.Errorf("injected reward = %v, want <= -5.0", injected.Reward)
	}
	if !injected.Meta.InjectedBySentry {
		t.Error("InjectedBySentry flag missing")
	}
	if injected.Meta.ViolationType != violation.TypeUnauthorizedRefund {
		t.Errorf("violation type = %q", injected.Meta.ViolationType)
	}
	if injected.Meta.OriginalReward != 0.67 || injected.Meta.CorrectedReward != -5.0 {
		t.Errorf("reward provenance = %+v", injected.Meta)
	}
	if injected.Meta.JudgeReason == "" {
		t.Error("judge reason missing from injected record")
	}
	if injected.NextState != safeText {
		t.Errorf("NextState = %q, want the safe replacement %q", injected.NextState, safeText)
	}
}

func TestSetCategoryPolicies_Overrides(t *testing.T) {
	rewriter := &capability.ScriptedClient{Errs: []error{errors.New("model down")}}
	s := New(&fixedJudge{verdict: refundVerdict()}, rewriter, "policy", 0)
	s.SetCategoryPolicies(
		map[violation.Type]violation.Severity{violation.TypeUnauthorizedRefund: violation.SeverityLow},
		map[violation.Type]string{violation.TypeUnauthorizedRefund: "必须先走退款审核流程。"},
	)

	v := s.CheckDecision(context.Background(), "给我退款", "好的，马上退款", "")
	if v.Severity != violation.SeverityLow {
		t.Errorf("severity = %q, want configured low", v.Severity)
	}
	if s.SeverityOf(violation.TypeOverPromise) != SeverityFor(violation.TypeOverPromise) {
		t.Error("categories without an override should keep the table severity")
	}

	// The failed rewrite falls back to the suggested fix, which must be
	// the configured one.
	got := s.SuggestSafeAlternative(context.Background(), "好的，马上退款", refundVerdict(), "给我退款")
	if !strings.Contains(got, "必须先走退款审核流程。") {
		t.Errorf("fallback missing configured fix: %q", got)
	}
}

func TestHandleViolation_NilStoreStillReturnsSafeText(t *testing.T) {
	rewriter := &capability.ScriptedClient{Responses: []string{"合规回复。"}}
	s := New(&fixedJudge{verdict: refundVerdict()}, rewriter, "policy", 0)

	got := s.HandleViolationWithNegativeFeedback(context.Background(),
		"给我退款", "好的，马上退款", refundVerdict(), 0.5, 1, nil)
	if got == "" {
		t.Error("safe text must still be returned without a store")
	}
}

func TestStats_RateAndReset(t *testing.T) {
	s := New(&fixedJudge{verdict: refundVerdict()}, &capability.ScriptedClient{Responses: []string{"x"}}, "p", 0)
	s.CheckDecision(context.Background(), "a", "b", "")
	s.CheckDecision(context.Background(), "c", "d", "")

	if got := s.Stats().ViolationRate; got != 1.0 {
		t.Errorf("rate = %v, want 1.0", got)
	}
	s.ResetStats()
	if got := s.Stats(); got.TotalChecks != 0 || got.ViolationRate != 0 {
		t.Errorf("stats after reset = %+v", got)
	}
}

func TestTables_GenericFallback(t *testing.T) {
	if SeverityFor(violation.Type("unmapped")) != genericSeverity {
		t.Error("unmapped type should get generic severity")
	}
	if FixFor(violation.Type("unmapped")) != genericFix {
		t.Error("unmapped type should get generic fix")
	}
	if SeverityFor(violation.TypeOverPromising) != SeverityFor(violation.TypeOverPromise) {
		t.Error("over_promising should share over_promise severity")
	}
}
