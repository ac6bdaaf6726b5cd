package entity

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestCanTransitionTo_Grid(t *testing.T) {
	allowed := map[ResponseState][]ResponseState{
		StatePending:    {StateInterested, StateAccepted, StateDeclined, StateNoResponse},
		StateInterested: {StateAccepted, StateDeclined, StateNoResponse},
		StateAccepted:   nil,
		StateDeclined:   nil,
		StateNoResponse: nil,
	}

	for _, from := range ResponseStates() {
		for _, to := range ResponseStates() {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransitionTo_UnknownStates(t *testing.T) {
	assert.False(t, ResponseState("archived").CanTransitionTo(StateAccepted))
	assert.False(t, StatePending.CanTransitionTo(ResponseState("archived")))
	assert.False(t, ResponseState("").Terminal())
}

func TestTerminal(t *testing.T) {
	assert.False(t, StatePending.Terminal())
	assert.False(t, StateInterested.Terminal())
	assert.True(t, StateAccepted.Terminal())
	assert.True(t, StateDeclined.Terminal())
	assert.True(t, StateNoResponse.Terminal())
}

func TestParseResponseState(t *testing.T) {
	s, ok := ParseResponseState("interested")
	assert.True(t, ok)
	assert.Equal(t, StateInterested, s)

	_, ok = ParseResponseState("Interested")
	assert.False(t, ok)
}

func TestTransitionError(t *testing.T) {
	var err error = &TransitionError{From: StateDeclined, To: StateAccepted}

	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, "cannot move from declined to accepted", err.Error())

	var te *TransitionError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, StateDeclined, te.From)
}

func TestDeliveryError(t *testing.T) {
	cause := errors.New("socket closed")
	err := &DeliveryError{Transport: "ws", Event: EventChatEscalated, Err: cause}

	assert.ErrorIs(t, err, ErrDeliveryFailure)
	assert.ErrorIs(t, err, cause)
}
