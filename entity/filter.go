package entity

import "time"

type StatusFilter struct {
	AgencyID      string
	OpportunityID string
	ClientID      string
	States        []ResponseState
}

type OpportunityFilter struct {
	AgencyID       string
	IDs            []string
	Status         OpportunityStatus
	DeadlineBefore *time.Time
}

type TaskFilter struct {
	AgencyID      string
	OpportunityID string
	ClientID      string
	Status        TaskStatus
}

type RestoreFilter struct {
	AgencyID string
	ClientID string
	Status   RestoreStatus
}
