package entity

import (
	"github.com/google/uuid"
	"time"
)

const (
	ActivityStatusChanged   = "status_changed"
	ActivityStatusRestored  = "status_restored"
	ActivityAssigned        = "opportunity_assigned"
	ActivityRestoreCreated  = "restore_requested"
	ActivityRestoreApproved = "restore_approved"
	ActivityRestoreDenied   = "restore_denied"
	ActivityChatEscalated   = "chat_escalated"
	ActivityChatAnswered    = "chat_answered"
)

// ActivityEntry is an append-only audit record.
type ActivityEntry struct {
	ID            string         `json:"id" bson:"_id"`
	AgencyID      string         `json:"agency_id" bson:"agency_id"`
	OpportunityID string         `json:"opportunity_id,omitempty" bson:"opportunity_id,omitempty"`
	ClientID      string         `json:"client_id,omitempty" bson:"client_id,omitempty"`
	ActorID       string         `json:"actor_id" bson:"actor_id"`
	Action        string         `json:"action" bson:"action"`
	Details       map[string]any `json:"details,omitempty" bson:"details,omitempty"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
}

func NewActivityEntry(agencyID, opportunityID, clientID, actorID, action string, details map[string]any) *ActivityEntry {
	return &ActivityEntry{
		ID:            uuid.NewString(),
		AgencyID:      agencyID,
		OpportunityID: opportunityID,
		ClientID:      clientID,
		ActorID:       actorID,
		Action:        action,
		Details:       details,
		CreatedAt:     time.Now().UTC(),
	}
}
