// Package status owns every write to a ClientOpportunityStatus row: client
// responses, assignment and the restore reset all go through Service.
package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"prism/entity"
	"prism/internal/lib/sanitize"
	"prism/internal/lib/sl"
	"time"
)

const defaultFollowUpWindow = 48 * time.Hour

type Repository interface {
	GetStatus(ctx context.Context, id string) (*entity.ClientOpportunityStatus, error)
	FindStatus(ctx context.Context, opportunityID, clientID string) (*entity.ClientOpportunityStatus, error)
	InsertStatus(ctx context.Context, status *entity.ClientOpportunityStatus) error
	// SwapStatus writes next only if the stored row still has the expected
	// state and version. It reports whether the write happened.
	SwapStatus(ctx context.Context, next *entity.ClientOpportunityStatus, expectedState entity.ResponseState, expectedVersion int64) (bool, error)

	GetOpportunity(ctx context.Context, id string) (*entity.Opportunity, error)
	InsertTask(ctx context.Context, task *entity.FollowUpTask) error
	InsertActivity(ctx context.Context, entry *entity.ActivityEntry) error
}

type Publisher interface {
	Publish(ctx context.Context, event entity.Event)
}

type Service struct {
	repo Repository
	pub  Publisher
	now  func() time.Time
	log  *slog.Logger
}

func NewService(repo Repository, pub Publisher, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		pub:  pub,
		now:  func() time.Time { return time.Now().UTC() },
		log:  log.With(sl.Module("status")),
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

type TransitionInput struct {
	Target        entity.ResponseState
	Notes         *string
	DeclineReason string
	ActorID       string
}

// ApplyTransition moves a status row to in.Target.
// A target equal to the current state succeeds without writing anything.
func (s *Service) ApplyTransition(ctx context.Context, statusID string, in TransitionInput) (*entity.ClientOpportunityStatus, error) {
	current, err := s.load(ctx, statusID)
	if err != nil {
		return nil, err
	}

	if current.ResponseState == in.Target {
		return current, nil
	}
	if !current.ResponseState.CanTransitionTo(in.Target) {
		return nil, &entity.TransitionError{From: current.ResponseState, To: in.Target}
	}

	now := s.now()
	next := *current
	next.ResponseState = in.Target
	if current.RespondedAt == nil {
		next.RespondedAt = &now
	}
	if in.Notes != nil {
		next.NotesForAgency = sanitize.Text(*in.Notes)
	}
	if in.Target == entity.StateDeclined && in.DeclineReason != "" {
		next.DeclineReason = sanitize.Text(in.DeclineReason)
	}
	next.Version = current.Version + 1
	next.UpdatedAt = now

	if err := s.swap(ctx, &next, current); err != nil {
		return nil, err
	}

	s.log.With(
		slog.String("status_id", next.ID),
		slog.String("from", string(current.ResponseState)),
		slog.String("to", string(next.ResponseState)),
		slog.String("actor", in.ActorID),
	).Info("status transition")

	s.record(ctx, &next, in.ActorID, entity.ActivityStatusChanged, map[string]any{
		"from": string(current.ResponseState),
		"to":   string(next.ResponseState),
	})
	if next.ResponseState.CreatesFollowUp() {
		s.createFollowUp(ctx, &next)
	}
	s.publish(ctx, &next, current.ResponseState, in.ActorID)

	return &next, nil
}

// ResetToPending reopens a declined row. It is the only path out of declined
// and is reserved for approved restore requests.
func (s *Service) ResetToPending(ctx context.Context, statusID, actorID string) (*entity.ClientOpportunityStatus, error) {
	current, err := s.load(ctx, statusID)
	if err != nil {
		return nil, err
	}
	if current.ResponseState != entity.StateDeclined {
		return nil, entity.ErrNotDeclined
	}

	next := *current
	next.ResponseState = entity.StatePending
	next.RespondedAt = nil
	next.DeclineReason = ""
	next.Version = current.Version + 1
	next.UpdatedAt = s.now()

	if err := s.swap(ctx, &next, current); err != nil {
		return nil, err
	}

	s.log.With(
		slog.String("status_id", next.ID),
		slog.String("actor", actorID),
	).Info("status restored to pending")

	s.record(ctx, &next, actorID, entity.ActivityStatusRestored, nil)
	s.publish(ctx, &next, current.ResponseState, actorID)

	return &next, nil
}

// Assign creates a pending row for every client that does not have one yet.
// Existing rows are returned as they are.
func (s *Service) Assign(ctx context.Context, opp *entity.Opportunity, clientIDs []string, actorID string) ([]entity.ClientOpportunityStatus, error) {
	result := make([]entity.ClientOpportunityStatus, 0, len(clientIDs))

	for _, clientID := range clientIDs {
		existing, err := s.repo.FindStatus(ctx, opp.ID, clientID)
		if err != nil {
			return nil, fmt.Errorf("find status: %w", err)
		}
		if existing != nil {
			result = append(result, *existing)
			continue
		}

		status := entity.NewClientOpportunityStatus(opp, clientID)
		err = s.repo.InsertStatus(ctx, status)
		if errors.Is(err, entity.ErrAlreadyExists) {
			existing, err = s.repo.FindStatus(ctx, opp.ID, clientID)
			if err != nil {
				return nil, fmt.Errorf("find status: %w", err)
			}
			if existing != nil {
				result = append(result, *existing)
				continue
			}
		}
		if err != nil {
			return nil, fmt.Errorf("insert status: %w", err)
		}

		s.record(ctx, status, actorID, entity.ActivityAssigned, nil)
		s.publish(ctx, status, "", actorID)
		result = append(result, *status)
	}

	return result, nil
}

func (s *Service) load(ctx context.Context, statusID string) (*entity.ClientOpportunityStatus, error) {
	current, err := s.repo.GetStatus(ctx, statusID)
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	if current == nil {
		return nil, fmt.Errorf("status %s: %w", statusID, entity.ErrNotFound)
	}
	return current, nil
}

func (s *Service) swap(ctx context.Context, next, observed *entity.ClientOpportunityStatus) error {
	ok, err := s.repo.SwapStatus(ctx, next, observed.ResponseState, observed.Version)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if !ok {
		s.log.With(
			slog.String("status_id", observed.ID),
			slog.String("observed", string(observed.ResponseState)),
			slog.Int64("version", observed.Version),
		).Warn("status changed concurrently")
		return entity.ErrConcurrentModification
	}
	return nil
}

func (s *Service) createFollowUp(ctx context.Context, status *entity.ClientOpportunityStatus) {
	title := "Follow up"
	var due time.Time

	opp, err := s.repo.GetOpportunity(ctx, status.OpportunityID)
	if err != nil {
		s.log.With(sl.Err(err), slog.String("opportunity_id", status.OpportunityID)).Warn("load opportunity for follow-up")
	}
	if opp != nil {
		title = opp.Title
		if opp.Deadline != nil {
			due = *opp.Deadline
		}
	}
	if due.IsZero() {
		due = s.now().Add(defaultFollowUpWindow)
	}

	priority := entity.PriorityMedium
	verb := "is interested in"
	if status.ResponseState == entity.StateAccepted {
		priority = entity.PriorityHigh
		verb = "accepted"
	}

	task := entity.NewFollowUpTask(status.OpportunityID, status.ClientID, status.AgencyID,
		fmt.Sprintf("Client %s: %s", verb, title), entity.SystemActor, priority)
	task.Description = status.NotesForAgency
	task.DueDate = &due
	task.TriggerState = status.ResponseState

	if err := s.repo.InsertTask(ctx, task); err != nil {
		s.log.With(
			sl.Err(err),
			slog.String("status_id", status.ID),
		).Error("create follow-up task")
		return
	}
	s.log.With(
		slog.String("task_id", task.ID),
		slog.String("status_id", status.ID),
	).Debug("follow-up task created")
}

func (s *Service) record(ctx context.Context, status *entity.ClientOpportunityStatus, actorID, action string, details map[string]any) {
	entry := entity.NewActivityEntry(status.AgencyID, status.OpportunityID, status.ClientID, actorID, action, details)
	if err := s.repo.InsertActivity(ctx, entry); err != nil {
		s.log.With(sl.Err(err), slog.String("action", action)).Warn("record activity")
	}
}

func (s *Service) publish(ctx context.Context, status *entity.ClientOpportunityStatus, previous entity.ResponseState, actorID string) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(ctx, entity.Event{
		Type:          entity.EventStatusUpdated,
		AgencyID:      status.AgencyID,
		OpportunityID: status.OpportunityID,
		ClientID:      status.ClientID,
		StatusID:      status.ID,
		NewState:      status.ResponseState,
		PreviousState: previous,
		ActorID:       actorID,
		OccurredAt:    s.now(),
	})
}
