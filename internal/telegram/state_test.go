package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateAwaitingInput
	s = transition(s, EventPhotoReceived)
	assert.Equal(t, StateExtracting, s)
	s = transition(s, EventExtracted)
	assert.Equal(t, StateConfirming, s)
	s = transition(s, EventConfirmed)
	assert.Equal(t, StatePersisting, s)
	s = transition(s, EventPersisted)
	assert.Equal(t, StateAwaitingInput, s)
}

func TestTransitionCorrectionPath(t *testing.T) {
	s := transition(StateConfirming, EventEditRequested)
	assert.Equal(t, StateCorrecting, s)
	s = transition(s, EventCorrectionReceived)
	assert.Equal(t, StatePersisting, s)
}

func TestTransitionFailureAlwaysResets(t *testing.T) {
	for _, s := range []State{StateAwaitingInput, StateExtracting, StateConfirming, StateCorrecting, StatePersisting} {
		assert.Equal(t, StateAwaitingInput, transition(s, EventFailed))
	}
}

func TestTransitionNonsenseResets(t *testing.T) {
	// An event that makes no sense in the current state must not wedge the
	// chat.
	assert.Equal(t, StateAwaitingInput, transition(StateExtracting, EventConfirmed))
	assert.Equal(t, StateAwaitingInput, transition(StateAwaitingInput, EventPersisted))
}

func TestSessionReset(t *testing.T) {
	s := &session{state: StateConfirming, userID: 42}
	s.reset()
	assert.Equal(t, StateAwaitingInput, s.current())
	assert.Zero(t, s.userID)
	assert.Nil(t, s.entries)
}
