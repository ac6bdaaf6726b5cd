package entity

import "time"

type OpportunityInput struct {
	AgencyID   string     `json:"agency_id"`
	Title      string     `json:"title" validate:"required,max=300"`
	Summary    string     `json:"summary" validate:"max=5000"`
	MediaType  MediaType  `json:"media_type" validate:"required,oneof=print online broadcast podcast social other"`
	OutletName string     `json:"outlet_name" validate:"max=300"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	Visibility string     `json:"visibility" validate:"omitempty,oneof=public private"`
}

type TaskInput struct {
	OpportunityID string       `json:"opportunity_id" validate:"required"`
	ClientID      string       `json:"client_id" validate:"required"`
	Title         string       `json:"title" validate:"required,max=300"`
	Description   string       `json:"description" validate:"max=5000"`
	Priority      TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AssignedTo    string       `json:"assigned_to"`
	DueDate       *time.Time   `json:"due_date,omitempty"`
}

// TaskPatch carries only the fields to change; nil means unchanged.
type TaskPatch struct {
	Status     *TaskStatus   `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed"`
	Priority   *TaskPriority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	AssignedTo *string       `json:"assigned_to,omitempty"`
	DueDate    *time.Time    `json:"due_date,omitempty"`
}

type ThreadView struct {
	Thread   *ChatThread   `json:"thread"`
	Messages []ChatMessage `json:"messages"`
}
