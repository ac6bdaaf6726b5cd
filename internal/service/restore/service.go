// Package restore runs the petition flow that lets a client reopen an
// opportunity they declined.
package restore

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

type Repository interface {
	FindStatus(ctx context.Context, opportunityID, clientID string) (*entity.ClientOpportunityStatus, error)
	GetOpportunity(ctx context.Context, id string) (*entity.Opportunity, error)

	InsertRestoreRequest(ctx context.Context, req *entity.RestoreRequest) error
	GetRestoreRequest(ctx context.Context, id string) (*entity.RestoreRequest, error)
	FindPendingRestoreRequest(ctx context.Context, opportunityID, clientID string) (*entity.RestoreRequest, error)
	// ResolveRestoreRequest stores req only if the stored request is still in from.
	ResolveRestoreRequest(ctx context.Context, req *entity.RestoreRequest, from entity.RestoreStatus) (bool, error)
	ListRestoreRequests(ctx context.Context, filter entity.RestoreFilter) ([]entity.RestoreRequest, error)

	InsertActivity(ctx context.Context, entry *entity.ActivityEntry) error
}

// StatusResetter reopens a declined status row.
type StatusResetter interface {
	ResetToPending(ctx context.Context, statusID, actorID string) (*entity.ClientOpportunityStatus, error)
}

type Publisher interface {
	Publish(ctx context.Context, event entity.Event)
}

type Service struct {
	repo   Repository
	status StatusResetter
	pub    Publisher
	now    func() time.Time
	log    *slog.Logger
}

func NewService(repo Repository, status StatusResetter, pub Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		status: status,
		pub:    pub,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log.With(sl.Module("restore")),
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateRequest files a pending request for a declined (opportunity, client) pair.
func (s *Service) CreateRequest(ctx context.Context, opportunityID, clientID, requestingUserID, reason string) (*entity.RestoreRequest, error) {
	status, err := s.repo.FindStatus(ctx, opportunityID, clientID)
	if err != nil {
		return nil, fmt.Errorf("find status: %w", err)
	}
	if status == nil {
		return nil, fmt.Errorf("status for %s/%s: %w", opportunityID, clientID, entity.ErrNotFound)
	}
	if status.ResponseState != entity.StateDeclined {
		return nil, entity.ErrNotDeclined
	}

	opp, err := s.repo.GetOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("get opportunity: %w", err)
	}
	if opp == nil {
		return nil, fmt.Errorf("opportunity %s: %w", opportunityID, entity.ErrNotFound)
	}
	if opp.DeadlinePassed(s.now()) {
		return nil, entity.ErrDeadlinePassed
	}

	pending, err := s.repo.FindPendingRestoreRequest(ctx, opportunityID, clientID)
	if err != nil {
		return nil, fmt.Errorf("find pending request: %w", err)
	}
	if pending != nil {
		return nil, entity.ErrDuplicateRequest
	}

	req := entity.NewRestoreRequest(status, requestingUserID, sanitize.Text(reason))
	req.RequestedAt = s.now()
	if err := s.repo.InsertRestoreRequest(ctx, req); err != nil {
		if errors.Is(err, entity.ErrDuplicateRequest) {
			return nil, entity.ErrDuplicateRequest
		}
		return nil, fmt.Errorf("insert request: %w", err)
	}

	// an approval for the pair may have reopened the row since the check above
	current, err := s.repo.FindStatus(ctx, opportunityID, clientID)
	if err != nil {
		return nil, fmt.Errorf("find status: %w", err)
	}
	if current == nil || current.ResponseState != entity.StateDeclined {
		if _, ok := s.withdraw(ctx, req, requestingUserID); !ok {
			s.log.With(slog.String("request_id", req.ID)).Warn("request for reopened row left pending")
		}
		return nil, entity.ErrNotDeclined
	}

	s.log.With(
		slog.String("request_id", req.ID),
		slog.String("opportunity_id", opportunityID),
		slog.String("client_id", clientID),
	).Info("restore requested")

	s.record(ctx, req, requestingUserID, entity.ActivityRestoreCreated)
	s.publish(ctx, entity.EventRestoreRequest, req, requestingUserID)
	return req, nil
}

// Approve resolves a pending request and reopens the linked status row.
// When the reopen fails the request goes back to pending.
func (s *Service) Approve(ctx context.Context, requestID, reviewerID, notes string) (*entity.RestoreRequest, error) {
	req, err := s.claim(ctx, requestID, reviewerID, notes, entity.RestoreApproved)
	if err != nil {
		return nil, err
	}

	if _, err := s.status.ResetToPending(ctx, req.StatusID, reviewerID); err != nil {
		s.revert(ctx, req)
		return nil, fmt.Errorf("reset status: %w", err)
	}

	s.log.With(
		slog.String("request_id", req.ID),
		slog.String("reviewer", reviewerID),
	).Info("restore approved")

	s.supersede(ctx, req, reviewerID)

	s.record(ctx, req, reviewerID, entity.ActivityRestoreApproved)
	s.publish(ctx, entity.EventRestoreResponse, req, reviewerID)
	return req, nil
}

// Deny resolves a pending request without touching the status row.
func (s *Service) Deny(ctx context.Context, requestID, reviewerID, notes string) (*entity.RestoreRequest, error) {
	req, err := s.claim(ctx, requestID, reviewerID, notes, entity.RestoreDenied)
	if err != nil {
		return nil, err
	}

	s.log.With(
		slog.String("request_id", req.ID),
		slog.String("reviewer", reviewerID),
	).Info("restore denied")

	s.record(ctx, req, reviewerID, entity.ActivityRestoreDenied)
	s.publish(ctx, entity.EventRestoreResponse, req, reviewerID)
	return req, nil
}

func (s *Service) Get(ctx context.Context, requestID string) (*entity.RestoreRequest, error) {
	req, err := s.repo.GetRestoreRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("restore request %s: %w", requestID, entity.ErrNotFound)
	}
	return req, nil
}

func (s *Service) List(ctx context.Context, filter entity.RestoreFilter) ([]entity.RestoreRequest, error) {
	list, err := s.repo.ListRestoreRequests(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return list, nil
}

func (s *Service) claim(ctx context.Context, requestID, reviewerID, notes string, outcome entity.RestoreStatus) (*entity.RestoreRequest, error) {
	current, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !current.IsPending() {
		return nil, entity.ErrRequestResolved
	}

	now := s.now()
	next := *current
	next.Status = outcome
	next.ReviewerID = reviewerID
	next.ReviewerNotes = sanitize.Text(notes)
	next.ReviewedAt = &now

	ok, err := s.repo.ResolveRestoreRequest(ctx, &next, entity.RestorePending)
	if err != nil {
		return nil, fmt.Errorf("resolve request: %w", err)
	}
	if !ok {
		return nil, entity.ErrRequestResolved
	}
	return &next, nil
}

func (s *Service) revert(ctx context.Context, claimed *entity.RestoreRequest) {
	back := *claimed
	back.Status = entity.RestorePending
	back.ReviewerID = ""
	back.ReviewerNotes = ""
	back.ReviewedAt = nil

	ok, err := s.repo.ResolveRestoreRequest(ctx, &back, claimed.Status)
	if errors.Is(err, entity.ErrDuplicateRequest) {
		// a newer pending request covers the pair; close this one instead
		back = *claimed
		back.Status = entity.RestoreDenied
		back.ReviewerNotes = supersededNote
		ok, err = s.repo.ResolveRestoreRequest(ctx, &back, claimed.Status)
		if ok {
			*claimed = back
			s.record(ctx, claimed, claimed.ReviewerID, entity.ActivityRestoreDenied)
			s.publish(ctx, entity.EventRestoreResponse, claimed, claimed.ReviewerID)
			return
		}
	}
	if err != nil || !ok {
		s.log.With(
			sl.Err(err),
			slog.String("request_id", claimed.ID),
		).Error("revert restore request claim")
	}
}

const supersededNote = "superseded by another request for the same opportunity"

// supersede denies a request filed for the pair while the approval was in
// flight. Its row is no longer declined, so it could never be approved.
func (s *Service) supersede(ctx context.Context, approved *entity.RestoreRequest, reviewerID string) {
	sibling, err := s.repo.FindPendingRestoreRequest(ctx, approved.OpportunityID, approved.ClientID)
	if err != nil {
		s.log.With(sl.Err(err), slog.String("request_id", approved.ID)).Warn("find sibling request")
		return
	}
	if sibling == nil {
		return
	}
	if closed, ok := s.withdraw(ctx, sibling, reviewerID); ok {
		s.record(ctx, closed, reviewerID, entity.ActivityRestoreDenied)
		s.publish(ctx, entity.EventRestoreResponse, closed, reviewerID)
	}
}

// withdraw moves a pending request to denied with the superseded note.
func (s *Service) withdraw(ctx context.Context, req *entity.RestoreRequest, actorID string) (*entity.RestoreRequest, bool) {
	now := s.now()
	next := *req
	next.Status = entity.RestoreDenied
	next.ReviewerID = actorID
	next.ReviewerNotes = supersededNote
	next.ReviewedAt = &now

	ok, err := s.repo.ResolveRestoreRequest(ctx, &next, entity.RestorePending)
	if err != nil {
		s.log.With(sl.Err(err), slog.String("request_id", req.ID)).Warn("close superseded request")
		return nil, false
	}
	return &next, ok
}

func (s *Service) record(ctx context.Context, req *entity.RestoreRequest, actorID, action string) {
	entry := entity.NewActivityEntry(req.AgencyID, req.OpportunityID, req.ClientID, actorID, action,
		map[string]any{"request_id": req.ID})
	if err := s.repo.InsertActivity(ctx, entry); err != nil {
		s.log.With(sl.Err(err), slog.String("action", action)).Warn("record activity")
	}
}

func (s *Service) publish(ctx context.Context, t entity.EventType, req *entity.RestoreRequest, actorID string) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(ctx, entity.Event{
		Type:          t,
		AgencyID:      req.AgencyID,
		OpportunityID: req.OpportunityID,
		ClientID:      req.ClientID,
		StatusID:      req.StatusID,
		RequestID:     req.ID,
		RequestStatus: req.Status,
		ActorID:       actorID,
		OccurredAt:    s.now(),
	})
}
