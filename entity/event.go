package entity

import "time"

type EventType string

const (
	EventStatusUpdated   EventType = "status:updated"
	EventRestoreRequest  EventType = "restore:request"
	EventRestoreResponse EventType = "restore:response"
	EventChatMessage     EventType = "chat:message"
	EventChatEscalated   EventType = "chat:escalated"
	EventTyping          EventType = "chat:typing"
)

// Event is a domain change announced to subscribers. It carries ids and the new
// state so a subscriber can re-fetch the authoritative record.
type Event struct {
	Type          EventType     `json:"type"`
	AgencyID      string        `json:"agency_id"`
	OpportunityID string        `json:"opportunity_id"`
	ClientID      string        `json:"client_id"`
	StatusID      string        `json:"status_id,omitempty"`
	NewState      ResponseState `json:"new_state,omitempty"`
	PreviousState ResponseState `json:"previous_state,omitempty"`
	RequestID     string        `json:"request_id,omitempty"`
	RequestStatus RestoreStatus `json:"request_status,omitempty"`
	ThreadID      string        `json:"thread_id,omitempty"`
	Escalated     *bool         `json:"escalated,omitempty"`
	Message       *ChatMessage  `json:"message,omitempty"`
	ActorID       string        `json:"actor_id,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

// Audience names who may receive an event: staff of the agency and,
// when ClientID is set, users of that client.
type Audience struct {
	AgencyID string `json:"agency_id"`
	ClientID string `json:"client_id,omitempty"`
}

// Envelope is an event bound to its audience, as handed to transports.
type Envelope struct {
	Event    Event    `json:"event"`
	Audience Audience `json:"audience"`
}

// ClientScoped reports whether the client named in the event should see it.
func (t EventType) ClientScoped() bool {
	switch t {
	case EventStatusUpdated, EventRestoreResponse, EventChatMessage, EventTyping:
		return true
	case EventRestoreRequest, EventChatEscalated:
		return false
	}
	return false
}

// AudienceFor derives the audience of e from its type.
func AudienceFor(e Event) Audience {
	a := Audience{AgencyID: e.AgencyID}
	if e.Type.ClientScoped() {
		a.ClientID = e.ClientID
	}
	return a
}
