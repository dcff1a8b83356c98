package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Scan failures. Every failed Result wraps one of these.
var (
	ErrNoTag      = errors.New("no tag detected")
	ErrUnreadable = errors.New("unreadable tag payload")
	ErrCancelled  = errors.New("scan cancelled")
)

// Scanner performs one physical read and returns the identifier it found.
// A Scanner is single-shot: each call yields exactly one identifier or error.
type Scanner interface {
	Scan(ctx context.Context) (string, error)
}

// Func adapts a plain function to the Scanner interface.
type Func func(ctx context.Context) (string, error)

// Scan calls f.
func (f Func) Scan(ctx context.Context) (string, error) { return f(ctx) }

// Result is the outcome of one scan: a non-empty TagID or an Err.
type Result struct {
	TagID string
	Err   error
}

// Tag builds a successful result.
func Tag(id string) Result { return normalize(id, nil) }

// Failed builds a failed result.
func Failed(err error) Result { return normalize("", err) }

// OK reports whether the result carries a usable identifier.
func (r Result) OK() bool { return r.Err == nil && r.TagID != "" }

// Await starts a single scan in the background. The returned channel
// delivers exactly one Result and is then closed. Cancelling ctx ends the
// wait with ErrCancelled.
func Await(ctx context.Context, s Scanner) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		done := make(chan Result, 1)
		go func() {
			id, err := s.Scan(ctx)
			done <- normalize(id, err)
		}()
		select {
		case res := <-done:
			out <- res
		case <-ctx.Done():
			out <- Failed(ctx.Err())
		}
	}()
	return out
}

func normalize(id string, err error) Result {
	switch {
	case err == nil:
		id = strings.TrimSpace(id)
		if id == "" {
			return Result{Err: ErrNoTag}
		}
		return Result{TagID: id}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		if errors.Is(err, ErrCancelled) {
			return Result{Err: err}
		}
		return Result{Err: fmt.Errorf("%w: %v", ErrCancelled, err)}
	case errors.Is(err, ErrNoTag), errors.Is(err, ErrUnreadable), errors.Is(err, ErrCancelled):
		return Result{Err: err}
	default:
		return Result{Err: fmt.Errorf("%w: %v", ErrUnreadable, err)}
	}
}
