package core

import (
	"context"
	"fmt"
	"prism/entity"
	"prism/internal/lib/sanitize"
)

func (c *Core) ListTasks(ctx context.Context, user *entity.UserAuth, agencyID string, filter entity.TaskFilter) ([]entity.FollowUpTask, error) {
	agency, err := agencyFor(user, agencyID)
	if err != nil {
		return nil, err
	}
	filter.AgencyID = agency
	tasks, err := c.repo.ListTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (c *Core) CreateTask(ctx context.Context, user *entity.UserAuth, in entity.TaskInput) (*entity.FollowUpTask, error) {
	if err := requireStaff(user); err != nil {
		return nil, err
	}
	opp, err := c.visibleOpportunity(ctx, user, in.OpportunityID)
	if err != nil {
		return nil, err
	}
	title := sanitize.Text(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", entity.ErrInvalidInput)
	}
	priority := in.Priority
	if priority == "" {
		priority = entity.PriorityMedium
	}

	task := entity.NewFollowUpTask(opp.ID, in.ClientID, opp.AgencyID, title, user.UserID, priority)
	task.Description = sanitize.Text(in.Description)
	task.AssignedTo = in.AssignedTo
	task.DueDate = in.DueDate
	if err := c.repo.InsertTask(ctx, task); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

func (c *Core) UpdateTask(ctx context.Context, user *entity.UserAuth, id string, patch entity.TaskPatch) (*entity.FollowUpTask, error) {
	if err := requireStaff(user); err != nil {
		return nil, err
	}
	task, err := c.repo.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil || !user.CanSeeAgency(task.AgencyID) {
		return nil, fmt.Errorf("task %s: %w", id, entity.ErrNotFound)
	}

	now := c.now()
	if patch.Status != nil {
		task.SetStatus(*patch.Status, now)
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.AssignedTo != nil {
		task.AssignedTo = *patch.AssignedTo
	}
	if patch.DueDate != nil {
		due := patch.DueDate.UTC()
		task.DueDate = &due
	}
	task.UpdatedAt = now

	if err := c.repo.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

func (c *Core) ListActivity(ctx context.Context, user *entity.UserAuth, agencyID, opportunityID string, limit int) ([]entity.ActivityEntry, error) {
	agency, err := agencyFor(user, agencyID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	entries, err := c.repo.ListActivity(ctx, agency, opportunityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return entries, nil
}
