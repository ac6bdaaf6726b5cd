package core

import (
	"context"
	"fmt"
	"prism/entity"
	"prism/internal/service/status"
)

// ListStatuses lists rows by opportunity or client. Clients only see their own rows.
func (c *Core) ListStatuses(ctx context.Context, user *entity.UserAuth, opportunityID, clientID string) ([]entity.ClientOpportunityStatus, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	filter := entity.StatusFilter{OpportunityID: opportunityID, ClientID: clientID}
	switch {
	case user.IsClient():
		if clientID != "" && clientID != user.ClientID {
			return nil, forbidden("client %s", clientID)
		}
		filter.AgencyID = user.AgencyID
		filter.ClientID = user.ClientID
	case user.Role == entity.RoleService:
		if opportunityID == "" && clientID == "" {
			return nil, fmt.Errorf("%w: opportunity_id or client_id is required", entity.ErrInvalidInput)
		}
	default:
		filter.AgencyID = user.AgencyID
	}

	rows, err := c.repo.ListStatuses(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	return rows, nil
}

func (c *Core) GetStatus(ctx context.Context, user *entity.UserAuth, id string) (*entity.ClientOpportunityStatus, error) {
	return c.statusFor(ctx, user, id)
}

// TransitionStatus records a client's response. Staff may record it on the
// client's behalf.
func (c *Core) TransitionStatus(ctx context.Context, user *entity.UserAuth, id string, target entity.ResponseState, notes *string, declineReason string) (*entity.ClientOpportunityStatus, error) {
	if _, err := c.statusFor(ctx, user, id); err != nil {
		return nil, err
	}
	return c.statuses.ApplyTransition(ctx, id, status.TransitionInput{
		Target:        target,
		Notes:         notes,
		DeclineReason: declineReason,
		ActorID:       user.UserID,
	})
}
