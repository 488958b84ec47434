package client

import (
	"context"
	"sync"
)

// MutationState is where a StarMutation is in its life.
//
//	Pending ──ok──▶ Confirmed
//	   │
//	   └──err──▶ Failed
//
// There is no retry; a Failed mutation stays failed.
type MutationState int

const (
	Pending MutationState = iota
	Confirmed
	Failed
)

func (s MutationState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Starrer is the call a StarBoard makes. *Client implements it.
type Starrer interface {
	ToggleStar(ctx context.Context, projectID string) (bool, error)
}

var _ Starrer = (*Client)(nil)

// StarBoard keeps the user's starred projects locally and flips them
// optimistically: the local value changes at once and the server call runs
// in the background.
type StarBoard struct {
	api Starrer

	mu      sync.Mutex
	starred map[string]bool
	// latest is the newest mutation per project. Only it may write back.
	latest map[string]*StarMutation
}

// NewStarBoard starts from the given starred project ids.
func NewStarBoard(api Starrer, starred []string) *StarBoard {
	b := &StarBoard{
		api:     api,
		starred: make(map[string]bool, len(starred)),
		latest:  make(map[string]*StarMutation),
	}
	for _, id := range starred {
		b.starred[id] = true
	}
	return b
}

// Starred reports the local value for projectID.
func (b *StarBoard) Starred(projectID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.starred[projectID]
}

// Toggle flips projectID locally and sends the toggle to the server. The
// returned mutation is Pending until the server answers.
func (b *StarBoard) Toggle(ctx context.Context, projectID string) *StarMutation {
	b.mu.Lock()
	prev := b.starred[projectID]
	b.starred[projectID] = !prev
	m := &StarMutation{ProjectID: projectID, previous: prev, done: make(chan struct{})}
	b.latest[projectID] = m
	b.mu.Unlock()

	go b.send(ctx, m)
	return m
}

func (b *StarBoard) send(ctx context.Context, m *StarMutation) {
	starred, err := b.api.ToggleStar(ctx, m.ProjectID)

	b.mu.Lock()
	current := b.latest[m.ProjectID] == m
	switch {
	case err != nil:
		if current {
			b.starred[m.ProjectID] = m.previous
		}
	case current:
		// The server is the source of truth, even if it disagrees with
		// the optimistic flip.
		b.starred[m.ProjectID] = starred
	}
	if current {
		delete(b.latest, m.ProjectID)
	}
	b.mu.Unlock()

	m.finish(starred, err)
}

// StarMutation is one optimistic toggle.
type StarMutation struct {
	ProjectID string
	previous  bool

	mu      sync.Mutex
	state   MutationState
	starred bool
	err     error
	done    chan struct{}
}

func (m *StarMutation) finish(starred bool, err error) {
	m.mu.Lock()
	if err != nil {
		m.state, m.err = Failed, err
	} else {
		m.state, m.starred = Confirmed, starred
	}
	m.mu.Unlock()
	close(m.done)
}

func (m *StarMutation) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Wait blocks until the server answers or ctx ends, and returns the
// confirmed value or the failure.
func (m *StarMutation) Wait(ctx context.Context) (bool, error) {
	select {
	case <-m.done:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starred, m.err
}

// Done is closed once the mutation leaves Pending.
func (m *StarMutation) Done() <-chan struct{} {
	return m.done
}
