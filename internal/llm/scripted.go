package llm

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Scripted is an in-memory Client that replays canned replies in order.
// When the script runs out the last reply repeats. It is safe for
// concurrent use and records every request it receives.
type Scripted struct {
	Replies []string
	// Delay is applied before each reply; the context can cut it short.
	Delay time.Duration
	// Err, when set, is returned instead of a reply.
	Err error

	mu       sync.Mutex
	next     int
	requests []Request
}

var _ Client = (*Scripted)(nil)

// NewScripted returns a Scripted client with the given replies.
func NewScripted(replies ...string) *Scripted {
	return &Scripted{Replies: replies}
}

func (s *Scripted) Chat(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	reply := ""
	if n := len(s.Replies); n > 0 {
		i := s.next
		if i >= n {
			i = n - 1
		}
		reply = s.Replies[i]
		s.next++
	}
	s.mu.Unlock()

	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.Err != nil {
		return "", s.Err
	}
	if reply == "" {
		return "", ErrEmpty
	}
	return reply, nil
}

// Stream emits the reply word by word.
func (s *Scripted) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	out := make(chan string, 8)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		text, err := s.Chat(ctx, req)
		if err != nil {
			errCh <- err
			return
		}
		words := strings.SplitAfter(text, " ")
		for _, w := range words {
			select {
			case out <- w:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()
	return out, errCh
}

// Requests returns a copy of the requests received so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Calls returns how many requests were received.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
