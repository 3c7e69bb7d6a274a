package screen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/guichet/internal/domain"
	"github.com/DukeRupert/guichet/internal/session"
)

func newTestRegistry(ttl time.Duration) (*Registry[domain.Tarif], *fakeAPI) {
	api := &fakeAPI{}
	reg := NewRegistry("tarifs", func(sess session.Context) *Screen[domain.Tarif] {
		return New(tarifSchema(), api, sess, Options{})
	}, ttl)
	return reg, api
}

func TestRegistry_OneScreenPerSession(t *testing.T) {
	reg, _ := newTestRegistry(time.Minute)
	defer reg.Close()

	alice := session.Context{Token: "alice"}
	bob := session.Context{Token: "bob"}

	a1 := reg.Get(alice)
	a2 := reg.Get(alice)
	b := reg.Get(bob)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, "alice", a1.Session().Token)
}

func TestRegistry_ExerciceChangeGivesFreshScreen(t *testing.T) {
	reg, _ := newTestRegistry(time.Minute)
	defer reg.Close()

	first := reg.Get(session.Context{Token: "alice", Exercice: &domain.Exercice{ID: 1}})
	second := reg.Get(session.Context{Token: "alice", Exercice: &domain.Exercice{ID: 2}})

	assert.NotSame(t, first, second)
	assert.Equal(t, int64(2), second.Session().ExerciceID())
}

func TestRegistry_SweepEvictsIdleScreens(t *testing.T) {
	reg, _ := newTestRegistry(10 * time.Minute)
	defer reg.Close()

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	idle := reg.Get(session.Context{Token: "idle"})
	ch := idle.QueueSearch("pending")

	now = now.Add(5 * time.Minute)
	reg.Get(session.Context{Token: "active"})

	now = now.Add(6 * time.Minute)
	assert.Equal(t, 1, reg.Sweep())
	assert.Equal(t, 1, reg.Len())
	assert.ErrorIs(t, <-ch, ErrClosed, "evicted screens are closed")

	// The evicted session gets a brand new screen.
	assert.NotSame(t, idle, reg.Get(session.Context{Token: "idle"}))
}

func TestRegistry_RunClosesOnShutdown(t *testing.T) {
	reg, _ := newTestRegistry(time.Minute)
	reg.Get(session.Context{Token: "alice"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	require.Equal(t, 0, reg.Len())
}
