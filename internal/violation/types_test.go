package violation

import "testing"

func TestNormalize_KnownLabels(t *testing.T) {
	cases := map[string]Type{
		"unauthorized_refund": TypeUnauthorizedRefund,
		"Unauthorized Refund": TypeUnauthorizedRefund,
		"over_promising":      TypeOverPromising,
		"over-promising":      TypeOverPromising,
		"过度承诺":                TypeOverPromise,
		"目标漂移":                TypeGoalDrift,
		"aggressive":          TypeAggressiveBehavior,
	}
	for raw, want := range cases {
		if got := Normalize(raw); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalize_EmptyAndNull(t *testing.T) {
	for _, raw := range []string{"", "null", "None", "  "} {
		if got := Normalize(raw); got != TypeNone {
			t.Errorf("Normalize(%q) = %q, want TypeNone", raw, got)
		}
	}
}

func TestNormalize_UnknownFallsToOther(t *testing.T) {
	if got := Normalize("made_up_category"); got != TypeOther {
		t.Errorf("unknown label = %q, want other", got)
	}
}

func TestCanonical(t *testing.T) {
	if Canonical(TypeOverPromising) != TypeOverPromise {
		t.Error("over_promising should fold to over_promise")
	}
	if Canonical(TypeSkipVerification) != TypeSkipVerification {
		t.Error("skip_verification should not change")
	}
}

func TestVerdictValid(t *testing.T) {
	good := Verdict{IsViolation: true, Type: TypeOther}
	if !good.Valid() {
		t.Error("violation with type should be valid")
	}
	bad := Verdict{IsViolation: true, Type: TypeNone}
	if bad.Valid() {
		t.Error("violation without type should be invalid")
	}
	clean := Verdict{}
	if !clean.Valid() {
		t.Error("zero verdict should be valid")
	}
	tagged := Verdict{IsViolation: false, Type: TypeOther}
	if tagged.Valid() {
		t.Error("non-violation with type should be invalid")
	}
}
