package entity

import (
	"github.com/google/uuid"
	"time"
)

// ClientOpportunityStatus carries one client's response to one opportunity.
// Version increases on every write and guards compare-and-swap updates.
type ClientOpportunityStatus struct {
	ID             string        `json:"id" bson:"_id"`
	OpportunityID  string        `json:"opportunity_id" bson:"opportunity_id"`
	ClientID       string        `json:"client_id" bson:"client_id"`
	AgencyID       string        `json:"agency_id" bson:"agency_id"`
	ResponseState  ResponseState `json:"response_state" bson:"response_state"`
	RespondedAt    *time.Time    `json:"responded_at,omitempty" bson:"responded_at,omitempty"`
	DeclineReason  string        `json:"decline_reason,omitempty" bson:"decline_reason,omitempty"`
	NotesForAgency string        `json:"notes_for_agency,omitempty" bson:"notes_for_agency,omitempty"`
	Version        int64         `json:"version" bson:"version"`
	CreatedAt      time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" bson:"updated_at"`
}

func NewClientOpportunityStatus(opp *Opportunity, clientID string) *ClientOpportunityStatus {
	now := time.Now().UTC()
	return &ClientOpportunityStatus{
		ID:            uuid.NewString(),
		OpportunityID: opp.ID,
		ClientID:      clientID,
		AgencyID:      opp.AgencyID,
		ResponseState: StatePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
