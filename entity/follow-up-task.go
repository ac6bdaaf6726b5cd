package entity

import (
	"github.com/google/uuid"
	"time"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// SystemActor marks records written by the service itself rather than a person.
const SystemActor = "system"

// FollowUpTask is an agency work item tied to an opportunity and client.
type FollowUpTask struct {
	ID            string        `json:"id" bson:"_id"`
	OpportunityID string        `json:"opportunity_id" bson:"opportunity_id"`
	ClientID      string        `json:"client_id" bson:"client_id"`
	AgencyID      string        `json:"agency_id" bson:"agency_id"`
	Title         string        `json:"title" bson:"title"`
	Description   string        `json:"description,omitempty" bson:"description,omitempty"`
	Status        TaskStatus    `json:"status" bson:"status"`
	Priority      TaskPriority  `json:"priority" bson:"priority"`
	AssignedTo    string        `json:"assigned_to,omitempty" bson:"assigned_to,omitempty"`
	DueDate       *time.Time    `json:"due_date,omitempty" bson:"due_date,omitempty"`
	CreatedBy     string        `json:"created_by" bson:"created_by"`
	TriggerState  ResponseState `json:"trigger_state,omitempty" bson:"trigger_state,omitempty"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" bson:"updated_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

func NewFollowUpTask(opportunityID, clientID, agencyID, title, createdBy string, priority TaskPriority) *FollowUpTask {
	now := time.Now().UTC()
	return &FollowUpTask{
		ID:            uuid.NewString(),
		OpportunityID: opportunityID,
		ClientID:      clientID,
		AgencyID:      agencyID,
		Title:         title,
		Status:        TaskPending,
		Priority:      priority,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// SetStatus moves the task and stamps CompletedAt when it completes.
func (t *FollowUpTask) SetStatus(status TaskStatus, now time.Time) {
	t.Status = status
	t.UpdatedAt = now
	if status == TaskCompleted {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
}
