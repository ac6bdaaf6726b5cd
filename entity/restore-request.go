package entity

import (
	"github.com/google/uuid"
	"time"
)

type RestoreStatus string

const (
	RestorePending  RestoreStatus = "pending"
	RestoreApproved RestoreStatus = "approved"
	RestoreDenied   RestoreStatus = "denied"
)

// RestoreRequest is a client's petition to reopen a declined opportunity.
type RestoreRequest struct {
	ID               string        `json:"id" bson:"_id"`
	OpportunityID    string        `json:"opportunity_id" bson:"opportunity_id"`
	ClientID         string        `json:"client_id" bson:"client_id"`
	AgencyID         string        `json:"agency_id" bson:"agency_id"`
	StatusID         string        `json:"status_id" bson:"status_id"`
	RequestingUserID string        `json:"requesting_user_id" bson:"requesting_user_id"`
	Status           RestoreStatus `json:"status" bson:"status"`
	Reason           string        `json:"reason,omitempty" bson:"reason,omitempty"`
	RequestedAt      time.Time     `json:"requested_at" bson:"requested_at"`
	ReviewerID       string        `json:"reviewer_id,omitempty" bson:"reviewer_id,omitempty"`
	ReviewerNotes    string        `json:"reviewer_notes,omitempty" bson:"reviewer_notes,omitempty"`
	ReviewedAt       *time.Time    `json:"reviewed_at,omitempty" bson:"reviewed_at,omitempty"`
}

func NewRestoreRequest(status *ClientOpportunityStatus, requestingUserID, reason string) *RestoreRequest {
	return &RestoreRequest{
		ID:               uuid.NewString(),
		OpportunityID:    status.OpportunityID,
		ClientID:         status.ClientID,
		AgencyID:         status.AgencyID,
		StatusID:         status.ID,
		RequestingUserID: requestingUserID,
		Status:           RestorePending,
		Reason:           reason,
		RequestedAt:      time.Now().UTC(),
	}
}

func (r *RestoreRequest) IsPending() bool {
	return r.Status == RestorePending
}
