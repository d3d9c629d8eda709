package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSMTransitions(t *testing.T) {
	fsm := NewFSM()

	tests := []struct {
		name        string
		from        State
		to          State
		shouldAllow bool
	}{
		{"service to barber", StateSelectingService, StateSelectingBarber, true},
		{"barber to datetime", StateSelectingBarber, StateSelectingDateTime, true},
		{"datetime to submitting", StateSelectingDateTime, StateSubmitting, true},
		{"submitting to succeeded", StateSubmitting, StateSucceeded, true},
		{"submitting to failed", StateSubmitting, StateFailed, true},
		{"succeeded resets to service", StateSucceeded, StateSelectingService, true},
		{"failed returns to datetime", StateFailed, StateSelectingDateTime, true},
		// Back transitions
		{"barber back to service", StateSelectingBarber, StateSelectingService, true},
		{"datetime back to barber", StateSelectingDateTime, StateSelectingBarber, true},
		// Invalid transitions
		{"service straight to submitting", StateSelectingService, StateSubmitting, false},
		{"service straight to datetime", StateSelectingService, StateSelectingDateTime, false},
		{"succeeded to submitting", StateSucceeded, StateSubmitting, false},
		{"submitting back to datetime", StateSubmitting, StateSelectingDateTime, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.shouldAllow, fsm.CanTransition(tt.from, tt.to))
		})
	}
}

func TestStateStep(t *testing.T) {
	assert.Equal(t, 1, StateSelectingService.Step())
	assert.Equal(t, 2, StateSelectingBarber.Step())
	assert.Equal(t, 3, StateSelectingDateTime.Step())
	assert.Equal(t, 3, StateSubmitting.Step())
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore(time.Minute)

	assert.Nil(t, store.Get(123))

	created := store.GetOrCreate(123)
	require.NotNil(t, created)
	assert.Equal(t, int64(123), created.UserID)
	assert.Equal(t, StateSelectingService, created.GetState())

	assert.Same(t, created, store.Get(123))
	assert.Same(t, created, store.GetOrCreate(123))

	other := store.GetOrCreate(456)
	assert.NotSame(t, created, other)

	store.Delete(123)
	assert.Nil(t, store.Get(123))
}

func TestSessionStoreCleanup(t *testing.T) {
	store := NewSessionStore(time.Minute)

	stale := store.GetOrCreate(1)
	stale.mu.Lock()
	stale.UpdatedAt = time.Now().Add(-2 * time.Minute)
	stale.mu.Unlock()
	store.GetOrCreate(2)

	assert.Equal(t, 1, store.Cleanup())
	assert.Nil(t, store.Get(1))
	assert.NotNil(t, store.Get(2))
}

func TestSessionTransitionKeepsStateOnInvalid(t *testing.T) {
	fsm := NewFSM()
	session := NewSession(1)

	assert.False(t, fsm.Transition(session, StateSubmitting))
	assert.Equal(t, StateSelectingService, session.GetState())

	assert.True(t, fsm.Transition(session, StateSelectingBarber))
	assert.Equal(t, StateSelectingBarber, session.GetState())
}
