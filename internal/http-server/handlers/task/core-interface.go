package task

import (
	"context"
	"prism/entity"
)

type Core interface {
	ListTasks(ctx context.Context, user *entity.UserAuth, agencyID string, filter entity.TaskFilter) ([]entity.FollowUpTask, error)
	CreateTask(ctx context.Context, user *entity.UserAuth, in entity.TaskInput) (*entity.FollowUpTask, error)
	UpdateTask(ctx context.Context, user *entity.UserAuth, id string, patch entity.TaskPatch) (*entity.FollowUpTask, error)
}
