package entity

// ResponseState is a client's stance on an assigned opportunity.
type ResponseState string

const (
	StatePending    ResponseState = "pending"
	StateInterested ResponseState = "interested"
	StateAccepted   ResponseState = "accepted"
	StateDeclined   ResponseState = "declined"
	StateNoResponse ResponseState = "no_response"
)

// ResponseStates lists every state in declaration order.
func ResponseStates() []ResponseState {
	return []ResponseState{StatePending, StateInterested, StateAccepted, StateDeclined, StateNoResponse}
}

// ParseResponseState returns the state named by s or false when s is not one of the known states.
func ParseResponseState(s string) (ResponseState, bool) {
	state := ResponseState(s)
	return state, state.Valid()
}

func (s ResponseState) Valid() bool {
	switch s {
	case StatePending, StateInterested, StateAccepted, StateDeclined, StateNoResponse:
		return true
	}
	return false
}

// Targets returns the states reachable from s in one step.
// A declined row is reopened only through an approved restore request, never here.
func (s ResponseState) Targets() []ResponseState {
	switch s {
	case StatePending:
		return []ResponseState{StateInterested, StateAccepted, StateDeclined, StateNoResponse}
	case StateInterested:
		return []ResponseState{StateAccepted, StateDeclined, StateNoResponse}
	case StateAccepted, StateDeclined, StateNoResponse:
		return nil
	}
	return nil
}

// CanTransitionTo reports whether target is an allowed edge from s.
// Same-state requests are not edges; callers treat them as no-ops.
func (s ResponseState) CanTransitionTo(target ResponseState) bool {
	for _, t := range s.Targets() {
		if t == target {
			return true
		}
	}
	return false
}

// Terminal reports whether no edge leaves s.
func (s ResponseState) Terminal() bool {
	return s.Valid() && len(s.Targets()) == 0
}

// CreatesFollowUp reports whether entering s spawns an agency follow-up task.
func (s ResponseState) CreatesFollowUp() bool {
	return s == StateInterested || s == StateAccepted
}
