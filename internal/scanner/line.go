package scanner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// LineScanner reads identifiers typed by keyboard-wedge readers, one per line.
// Only one Scan runs at a time.
type LineScanner struct {
	busy sync.Mutex
	r    *bufio.Reader
	// pending is a read left running by a cancelled Scan; guarded by busy.
	pending chan lineResult
}

// NewLineScanner wraps r.
func NewLineScanner(r io.Reader) *LineScanner {
	return &LineScanner{r: bufio.NewReader(r)}
}

type lineResult struct {
	line string
	err  error
}

// Scan waits for the next line. It returns ErrCancelled when ctx ends first;
// the read keeps running and its line goes to the next Scan.
func (s *LineScanner) Scan(ctx context.Context) (string, error) {
	if !s.busy.TryLock() {
		return "", fmt.Errorf("%w: scan already in progress", ErrUnreadable)
	}
	defer s.busy.Unlock()

	if s.pending == nil {
		ch := make(chan lineResult, 1)
		s.pending = ch
		go func() {
			line, err := s.r.ReadString('\n')
			ch <- lineResult{line: line, err: err}
		}()
	}

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case res := <-s.pending:
		s.pending = nil
		if res.err != nil && !(errors.Is(res.err, io.EOF) && res.line != "") {
			if errors.Is(res.err, io.EOF) {
				return "", ErrNoTag
			}
			return "", fmt.Errorf("%w: %v", ErrUnreadable, res.err)
		}
		return DecodeText(res.line)
	}
}
