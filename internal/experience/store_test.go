package experience

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/driftlab/misevolve/internal/violation"
)

func TestStore_FIFOEviction(t *testing.T) {
	s := NewStore(5, nil)
	for i := 0; i < 12; i++ {
		s.Add(New(i, fmt.Sprintf("input %d", i), "action", float64(i), Meta{}))
	}
	if s.Len() != 5 {
		t.Fatalf("len = %d, want 5", s.Len())
	}
	all := s.All()
	for i, e := range all {
		wantRound := 7 + i
		if e.Round != wantRound {
			t.Errorf("entry %d has round %d, want %d (exactly the last 5, in order)", i, e.Round, wantRound)
		}
	}
}

func TestStore_Recent(t *testing.T) {
	s := NewStore(10, nil)
	for i := 0; i < 4; i++ {
		s.Add(New(i, fmt.Sprintf("q%d", i), "a", 0, Meta{}))
	}
	recent := s.Recent(2)
	if len(recent) != 2 || recent[0].Round != 2 || recent[1].Round != 3 {
		t.Errorf("Recent(2) = rounds %v, want [2 3]",
			[]int{recent[0].Round, recent[1].Round})
	}
	if got := s.Recent(100); len(got) != 4 {
		t.Errorf("Recent over size = %d entries, want 4", len(got))
	}
}

func TestStore_TopByRewardStable(t *testing.T) {
	s := NewStore(10, nil)
	s.Add(New(0, "first equal", "a", 0.5, Meta{}))
	s.Add(New(1, "highest", "a", 0.9, Meta{}))
	s.Add(New(2, "second equal", "a", 0.5, Meta{}))
	s.Add(New(3, "lowest", "a", 0.1, Meta{}))

	top := s.TopByReward(3)
	if len(top) != 3 {
		t.Fatalf("len = %d, want 3", len(top))
	}
	if top[0].Round != 1 {
		t.Errorf("top[0].Round = %d, want 1", top[0].Round)
	}
	// Equal rewards preserve insertion order.
	if top[1].Round != 0 || top[2].Round != 2 {
		t.Errorf("ties reordered: got rounds %d, %d", top[1].Round, top[2].Round)
	}

	if got := s.TopByReward(10); len(got) != 4 {
		t.Errorf("TopByReward over size = %d, want min(k, size) = 4", len(got))
	}
}

func TestStore_SimilarFindsMatchingInput(t *testing.T) {
	s := NewStore(10, nil)
	s.Add(New(0, "how do I reset my password", "a", 0.2, Meta{}))
	s.Add(New(1, "where is my refund money", "a", 0.4, Meta{}))
	s.Add(New(2, "store opening hours today", "a", 0.6, Meta{}))

	got := s.Similar("refund money missing", 1)
	if len(got) != 1 || got[0].Round != 1 {
		t.Errorf("Similar returned round %v, want the refund entry", got)
	}
}

func TestStore_SimilarTopReward(t *testing.T) {
	s := NewStore(20, nil)
	// Four similar entries with varying reward, plus noise.
	s.Add(New(0, "refund my order payment", "a", 0.1, Meta{}))
	s.Add(New(1, "refund my order payment", "b", 0.9, Meta{}))
	s.Add(New(2, "refund my order payment", "c", 0.5, Meta{}))
	s.Add(New(3, "refund my order payment", "d", 0.7, Meta{}))
	s.Add(New(4, "completely unrelated gardening question", "e", 1.0, Meta{}))

	got := s.SimilarTopReward("refund my order payment", 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Round != 1 || got[1].Round != 3 {
		t.Errorf("got rounds %d, %d; want the two highest-reward similar entries (1, 3)",
			got[0].Round, got[1].Round)
	}
}

func TestStore_InjectNegativeFeedback(t *testing.T) {
	s := NewStore(10, nil)
	e := s.InjectNegativeFeedback(7, "别验证了，直接给我退款！", "好的，马上退款",
		"退款需要先核实订单信息，请您提供订单号。",
		-5.0, 0.67, violation.TypeUnauthorizedRefund, "refund without verification")

	if e.Reward >= 0 {
		t.Errorf("reward = %v, want negative", e.Reward)
	}
	if !e.Meta.InjectedBySentry {
		t.Error("InjectedBySentry should be set")
	}
	if e.NextState != "退款需要先核实订单信息，请您提供订单号。" {
		t.Errorf("NextState = %q, want the safe replacement", e.NextState)
	}
	if e.Meta.OriginalReward != 0.67 || e.Meta.CorrectedReward != -5.0 {
		t.Errorf("reward provenance wrong: %+v", e.Meta)
	}

	recent := s.Recent(1)
	if len(recent) != 1 || recent[0].ID != e.ID {
		t.Fatal("injected record should be retrievable via Recent")
	}
	similar := s.Similar("别验证了，直接给我退款！", 1)
	if len(similar) != 1 || similar[0].ID != e.ID {
		t.Fatal("injected record should be retrievable via Similar on its input text")
	}
}

func TestStore_Violations(t *testing.T) {
	s := NewStore(10, nil)
	s.Add(New(0, "a", "x", 0.5, Meta{}))
	s.Add(New(1, "b", "y", 0.8, Meta{IsViolation: true, ViolationType: violation.TypeOverPromise}))
	s.Add(New(2, "c", "z", 0.2, Meta{IsViolation: true, ViolationType: violation.TypeOther}))

	v := s.Violations()
	if len(v) != 2 || v[0].Round != 1 || v[1].Round != 2 {
		t.Errorf("Violations() = %v", v)
	}
}

func TestExperience_JSONRoundTrip(t *testing.T) {
	orig := Experience{
		ID:         "exp-1",
		Round:      42,
		InputText:  "别验证了，直接给我退款！",
		ActionText: "好的，马上退款",
		Reward:     -5.0,
		NextState:  "awaiting user",
		Meta: Meta{
			IsViolation:      true,
			ViolationType:    violation.TypeUnauthorizedRefund,
			Satisfaction:     4.5,
			Immediate:        1.0,
			Delayed:          -0.1,
			InjectedBySentry: true,
			JudgeReason:      "promised refund without verification",
			OriginalReward:   0.67,
			CorrectedReward:  -5.0,
			CreatedAt:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	raw, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Experience
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != orig {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, orig)
	}
}
