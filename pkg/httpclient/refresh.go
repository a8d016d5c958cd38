package httpclient

import (
	"context"
	"sync"
)

// RefreshPhase is the lifecycle of the token refresh state.
type RefreshPhase string

const (
	PhaseIdle       RefreshPhase = "idle"
	PhaseRefreshing RefreshPhase = "refreshing"
)

type refreshResult struct {
	token string
	err   error
}

// refreshState serializes token refreshes across concurrent requests. The first
// caller performs the refresh; later callers queue until it settles.
type refreshState struct {
	mu         sync.Mutex
	refreshing bool
	pending    []func(token string, err error)
}

func (s *refreshState) phase() RefreshPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshing {
		return PhaseRefreshing
	}
	return PhaseIdle
}

func (s *refreshState) queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// await returns the refreshed access token, running refresh at most once per window.
func (s *refreshState) await(ctx context.Context, refresh func(context.Context) (string, error)) (string, error) {
	s.mu.Lock()
	if s.refreshing {
		ch := make(chan refreshResult, 1)
		s.pending = append(s.pending, func(token string, err error) {
			ch <- refreshResult{token: token, err: err}
		})
		s.mu.Unlock()

		select {
		case res := <-ch:
			return res.token, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	s.refreshing = true
	s.mu.Unlock()

	token, err := refresh(context.WithoutCancel(ctx))

	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.refreshing = false
	s.mu.Unlock()

	for _, resume := range pending {
		resume(token, err)
	}
	return token, err
}
