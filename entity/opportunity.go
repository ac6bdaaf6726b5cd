package entity

import (
	"github.com/google/uuid"
	"time"
)

type MediaType string

const (
	MediaPrint     MediaType = "print"
	MediaOnline    MediaType = "online"
	MediaBroadcast MediaType = "broadcast"
	MediaPodcast   MediaType = "podcast"
	MediaSocial    MediaType = "social"
	MediaOther     MediaType = "other"
)

type OpportunityStatus string

const (
	OpportunityActive  OpportunityStatus = "active"
	OpportunityClosed  OpportunityStatus = "closed"
	OpportunityPaused  OpportunityStatus = "paused"
	OpportunityExpired OpportunityStatus = "expired"
)

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Opportunity is an agency-authored media opportunity.
type Opportunity struct {
	ID         string            `json:"id" bson:"_id"`
	AgencyID   string            `json:"agency_id" bson:"agency_id"`
	Title      string            `json:"title" bson:"title"`
	Summary    string            `json:"summary" bson:"summary"`
	MediaType  MediaType         `json:"media_type" bson:"media_type"`
	OutletName string            `json:"outlet_name" bson:"outlet_name"`
	Deadline   *time.Time        `json:"deadline,omitempty" bson:"deadline,omitempty"`
	Status     OpportunityStatus `json:"status" bson:"status"`
	Visibility string            `json:"visibility" bson:"visibility"`
	CreatedBy  string            `json:"created_by" bson:"created_by"`
	CreatedAt  time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at" bson:"updated_at"`
}

func NewOpportunity(agencyID, title string, mediaType MediaType, createdBy string) *Opportunity {
	now := time.Now().UTC()
	return &Opportunity{
		ID:         uuid.NewString(),
		AgencyID:   agencyID,
		Title:      title,
		MediaType:  mediaType,
		Status:     OpportunityActive,
		Visibility: VisibilityPrivate,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// DeadlinePassed reports whether the opportunity has a deadline at or before now.
func (o *Opportunity) DeadlinePassed(now time.Time) bool {
	return o.Deadline != nil && !now.Before(*o.Deadline)
}

// CanMoveTo reports whether the lifecycle may change from the current status to next.
// Closed and expired are final.
func (o *Opportunity) CanMoveTo(next OpportunityStatus) bool {
	switch o.Status {
	case OpportunityActive:
		return next == OpportunityPaused || next == OpportunityClosed || next == OpportunityExpired
	case OpportunityPaused:
		return next == OpportunityActive || next == OpportunityClosed || next == OpportunityExpired
	case OpportunityClosed, OpportunityExpired:
		return false
	}
	return false
}
