package capability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// timeoutErr implements net.Error semantics via message matching.
type timeoutErr struct{}

func (timeoutErr) Error() string { return "dial tcp: i/o timeout" }

func newRetrierNoSleep(c Client) *Retrier {
	r := NewRetrier(c)
	r.sleep = func(time.Duration) {}
	return r
}

func TestRetrier_TransientThenSuccess(t *testing.T) {
	script := &ScriptedClient{
		Responses: []string{"", "", "ok"},
		Errs:      []error{timeoutErr{}, timeoutErr{}, nil},
	}
	r := newRetrierNoSleep(script)

	text, err := r.Complete(context.Background(), Request{UserInput: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok" {
		t.Errorf("text = %q, want ok", text)
	}
	if script.Calls() != 3 {
		t.Errorf("calls = %d, want 3", script.Calls())
	}
}

func TestRetrier_PermanentNoRetry(t *testing.T) {
	script := &ScriptedClient{
		Responses: []string{"", "ok"},
		Errs:      []error{errors.New("malformed payload"), nil},
	}
	r := newRetrierNoSleep(script)

	_, err := r.Complete(context.Background(), Request{UserInput: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if script.Calls() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent failure)", script.Calls())
	}
}

func TestRetrier_MaxAttempts(t *testing.T) {
	script := &ScriptedClient{
		Errs: []error{timeoutErr{}, timeoutErr{}, timeoutErr{}, timeoutErr{}},
	}
	r := newRetrierNoSleep(script)

	_, err := r.Complete(context.Background(), Request{UserInput: "hi"})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if script.Calls() != 3 {
		t.Errorf("calls = %d, want 3", script.Calls())
	}
}

func TestRetrier_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	script := &ScriptedClient{Errs: []error{timeoutErr{}, timeoutErr{}}}
	r := newRetrierNoSleep(script)

	_, err := r.Complete(ctx, Request{UserInput: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if script.Calls() > 1 {
		t.Errorf("calls = %d, want 1 (no retry after cancellation)", script.Calls())
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{context.DeadlineExceeded, KindTransient},
		{context.Canceled, KindPermanent},
		{timeoutErr{}, KindTransient},
		{fmt.Errorf("dial: connection refused"), KindTransient},
		{errors.New("invalid request"), KindPermanent},
	}
	for _, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Errorf("Classify(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
