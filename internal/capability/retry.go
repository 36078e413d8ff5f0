package capability

// #region imports
import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// #endregion

// #region error-kind

// ErrorKind classifies a failed external call so fallback behavior can be
// computed from the kind rather than from inspecting raw errors upstream.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindTransient
	KindPermanent
	KindParse
)

// Classify maps an error to its ErrorKind. Timeouts and connection errors
// are transient; malformed payloads and client-side rejections are not.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	if errors.Is(err, context.Canceled) {
		return KindPermanent
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return KindTransient
		}
		return KindPermanent
	}
	msg := err.Error()
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "timeout") {
		return KindTransient
	}
	return KindPermanent
}

// #endregion

// #region retry-policy

const (
	maxAttempts    = 3
	initialBackoff = 2 * time.Second
	maxBackoff     = 10 * time.Second
)

// Retrier wraps a Client with a bounded retry policy: up to 3 attempts with
// exponential backoff between 2s and 10s, restricted to transient failures.
type Retrier struct {
	client Client
	sleep  func(time.Duration) // overridable for tests
}

// NewRetrier wraps client with the standard retry policy.
func NewRetrier(client Client) *Retrier {
	return &Retrier{client: client, sleep: time.Sleep}
}

// Complete calls the wrapped client, retrying transient failures.
// Context cancellation aborts immediately without further attempts.
func (r *Retrier) Complete(ctx context.Context, req Request) (string, error) {
	backoff := initialBackoff
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := r.client.Complete(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		kind := Classify(err)
		if kind != KindTransient || attempt == maxAttempts {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		log.Printf("[CAP] transient failure (attempt %d/%d), retrying in %s: %v",
			attempt, maxAttempts, backoff, err)
		r.sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return "", lastErr
}

// #endregion
