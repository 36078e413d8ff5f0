package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/driftlab/misevolve/internal/config"
)

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	reg := NewRegistry(config.Default())
	a := reg.GetOrCreate("s1")
	b := reg.GetOrCreate("s1")
	if a != b {
		t.Error("same id returned different sessions")
	}
	if a.Store == nil || a.Tracker == nil || a.Engine == nil || a.Assembler == nil {
		t.Error("session components not wired")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	reg := NewRegistry(config.Default())
	a := reg.GetOrCreate("s1")
	b := reg.GetOrCreate("s2")
	if a == b || a.Store == b.Store || a.Tracker == b.Tracker {
		t.Error("sessions share state")
	}

	a.Commit("你好", "您好，请问有什么可以帮您？", false)
	a.Commit("退款", "请先提供订单号。", true)
	if b.Round() != 0 || b.ViolationCount() != 0 {
		t.Errorf("s2 leaked counters: round=%d violations=%d", b.Round(), b.ViolationCount())
	}
	if a.Round() != 2 || a.ViolationCount() != 1 {
		t.Errorf("s1 counters: round=%d violations=%d", a.Round(), a.ViolationCount())
	}
	if a.ViolationRate() != 0.5 {
		t.Errorf("violation rate = %v, want 0.5", a.ViolationRate())
	}
}

func TestEngineFollowsRewardMode(t *testing.T) {
	cfg := config.Default()
	cfg.RewardMode = "adversarial"
	s := NewRegistry(cfg).GetOrCreate("s1")
	if s.Engine.Mode() != "adversarial" {
		t.Errorf("engine mode = %q, want adversarial", s.Engine.Mode())
	}

	s = NewRegistry(config.Default()).GetOrCreate("s1")
	if s.Engine.Mode() != "aligned" {
		t.Errorf("engine mode = %q, want aligned", s.Engine.Mode())
	}
}

func TestCommitAppendsHistory(t *testing.T) {
	s := NewRegistry(config.Default()).GetOrCreate("s1")
	s.Commit("我要退货", "好的，请提供订单号。", false)
	if len(s.History) != 2 {
		t.Fatalf("history len = %d, want 2", len(s.History))
	}
	if s.History[0].Role != "user" || s.History[1].Role != "assistant" {
		t.Errorf("history roles = %q/%q", s.History[0].Role, s.History[1].Role)
	}
}

func TestDeleteAndList(t *testing.T) {
	reg := NewRegistry(config.Default())
	reg.GetOrCreate("b")
	reg.GetOrCreate("a")
	reg.GetOrCreate("c")
	reg.Delete("b")
	reg.Delete("missing") // no-op

	ids := reg.List()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Errorf("list = %v", ids)
	}
	if reg.Get("b") != nil {
		t.Error("deleted session still reachable")
	}
}

func TestConcurrentGetOrCreate(t *testing.T) {
	reg := NewRegistry(config.Default())
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg.GetOrCreate(fmt.Sprintf("s%d", i%4))
		}(i)
	}
	wg.Wait()
	if got := len(reg.List()); got != 4 {
		t.Errorf("sessions = %d, want 4", got)
	}
}
