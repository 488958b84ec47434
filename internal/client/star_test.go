package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedStarrer holds every call until release is closed.
type gatedStarrer struct {
	release chan struct{}

	mu    sync.Mutex
	calls int
	reply bool
	err   error
}

func newGatedStarrer(reply bool, err error) *gatedStarrer {
	return &gatedStarrer{release: make(chan struct{}), reply: reply, err: err}
}

func (g *gatedStarrer) ToggleStar(ctx context.Context, projectID string) (bool, error) {
	<-g.release
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.reply, g.err
}

func TestStarBoard_Confirmed(t *testing.T) {
	api := newGatedStarrer(true, nil)
	board := NewStarBoard(api, nil)

	m := board.Toggle(t.Context(), "p1")
	assert.Equal(t, Pending, m.State())
	assert.True(t, board.Starred("p1"), "flip is applied before the server answers")

	close(api.release)
	starred, err := m.Wait(t.Context())
	require.NoError(t, err)
	assert.True(t, starred)
	assert.Equal(t, Confirmed, m.State())
	assert.True(t, board.Starred("p1"))
}

func TestStarBoard_ServerValueWins(t *testing.T) {
	api := newGatedStarrer(false, nil)
	board := NewStarBoard(api, nil)

	m := board.Toggle(t.Context(), "p1")
	close(api.release)
	_, err := m.Wait(t.Context())
	require.NoError(t, err)
	assert.False(t, board.Starred("p1"))
}

func TestStarBoard_FailureReverts(t *testing.T) {
	boom := errors.New("boom")
	api := newGatedStarrer(false, boom)
	board := NewStarBoard(api, []string{"p1"})

	m := board.Toggle(t.Context(), "p1")
	assert.False(t, board.Starred("p1"))

	close(api.release)
	_, err := m.Wait(t.Context())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Failed, m.State())
	assert.True(t, board.Starred("p1"), "previous value restored")

	// No retry.
	api.mu.Lock()
	assert.Equal(t, 1, api.calls)
	api.mu.Unlock()
}

func TestStarBoard_OnlyNewestToggleWritesBack(t *testing.T) {
	api := newGatedStarrer(true, nil)
	board := NewStarBoard(api, nil)

	first := board.Toggle(t.Context(), "p1")
	second := board.Toggle(t.Context(), "p1")
	assert.False(t, board.Starred("p1"))

	close(api.release)
	_, err := first.Wait(t.Context())
	require.NoError(t, err)
	_, err = second.Wait(t.Context())
	require.NoError(t, err)

	// Only the newest mutation writes back.
	assert.True(t, board.Starred("p1"))
}

func TestStarMutation_WaitHonoursContext(t *testing.T) {
	api := newGatedStarrer(true, nil)
	board := NewStarBoard(api, nil)
	m := board.Toggle(t.Context(), "p1")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := m.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Pending, m.State())

	close(api.release)
	<-m.Done()
}

func TestMutationState_String(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "confirmed", Confirmed.String())
	assert.Equal(t, "failed", Failed.String())
}
