package core

import (
	"context"
	"fmt"
	"log/slog"
	"prism/entity"
	"prism/internal/lib/sanitize"
	"prism/internal/lib/sl"
)

func (c *Core) CreateOpportunity(ctx context.Context, user *entity.UserAuth, in entity.OpportunityInput) (*entity.Opportunity, error) {
	agency, err := agencyFor(user, in.AgencyID)
	if err != nil {
		return nil, err
	}
	title := sanitize.Text(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", entity.ErrInvalidInput)
	}

	opp := entity.NewOpportunity(agency, title, in.MediaType, user.UserID)
	opp.Summary = sanitize.Text(in.Summary)
	opp.OutletName = sanitize.Text(in.OutletName)
	if in.Deadline != nil {
		deadline := in.Deadline.UTC()
		opp.Deadline = &deadline
	}
	if in.Visibility != "" {
		opp.Visibility = in.Visibility
	}

	if err := c.repo.InsertOpportunity(ctx, opp); err != nil {
		return nil, fmt.Errorf("insert opportunity: %w", err)
	}
	c.log.With(
		slog.String("opportunity_id", opp.ID),
		slog.String("agency_id", agency),
	).Info("opportunity created")
	return opp, nil
}

// ListOpportunities returns the agency's opportunities for staff and the
// assigned ones for a client.
func (c *Core) ListOpportunities(ctx context.Context, user *entity.UserAuth, agencyID string, st entity.OpportunityStatus) ([]entity.Opportunity, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	filter := entity.OpportunityFilter{Status: st}
	if user.IsClient() {
		rows, err := c.repo.ListStatuses(ctx, entity.StatusFilter{AgencyID: user.AgencyID, ClientID: user.ClientID})
		if err != nil {
			return nil, fmt.Errorf("list statuses: %w", err)
		}
		filter.AgencyID = user.AgencyID
		filter.IDs = make([]string, 0, len(rows))
		for _, row := range rows {
			filter.IDs = append(filter.IDs, row.OpportunityID)
		}
	} else {
		agency, err := agencyFor(user, agencyID)
		if err != nil {
			return nil, err
		}
		filter.AgencyID = agency
	}

	list, err := c.repo.ListOpportunities(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	return list, nil
}

func (c *Core) GetOpportunity(ctx context.Context, user *entity.UserAuth, id string) (*entity.Opportunity, error) {
	return c.visibleOpportunity(ctx, user, id)
}

// SetOpportunityStatus moves an opportunity through its lifecycle.
func (c *Core) SetOpportunityStatus(ctx context.Context, user *entity.UserAuth, id string, next entity.OpportunityStatus) (*entity.Opportunity, error) {
	if err := requireStaff(user); err != nil {
		return nil, err
	}
	opp, err := c.visibleOpportunity(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if opp.Status == next {
		return opp, nil
	}
	if !opp.CanMoveTo(next) {
		return nil, fmt.Errorf("%w: opportunity cannot move from %s to %s", entity.ErrInvalidInput, opp.Status, next)
	}

	now := c.now()
	ok, err := c.repo.SwapOpportunityStatus(ctx, opp.ID, opp.Status, next, now)
	if err != nil {
		return nil, fmt.Errorf("update opportunity: %w", err)
	}
	if !ok {
		return nil, entity.ErrConcurrentModification
	}
	c.record(ctx, opp.AgencyID, opp.ID, "", user.UserID, "opportunity_"+string(next), map[string]any{"from": string(opp.Status)})

	opp.Status = next
	opp.UpdatedAt = now
	return opp, nil
}

// AssignOpportunity opens a pending status row for each client of the agency.
func (c *Core) AssignOpportunity(ctx context.Context, user *entity.UserAuth, id string, clientIDs []string) ([]entity.ClientOpportunityStatus, error) {
	if err := requireStaff(user); err != nil {
		return nil, err
	}
	if len(clientIDs) == 0 {
		return nil, fmt.Errorf("%w: client_ids is empty", entity.ErrInvalidInput)
	}
	opp, err := c.visibleOpportunity(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if opp.Status != entity.OpportunityActive {
		return nil, fmt.Errorf("%w: opportunity is %s", entity.ErrInvalidInput, opp.Status)
	}

	for _, clientID := range clientIDs {
		client, err := c.repo.GetClient(ctx, clientID)
		if err != nil {
			return nil, fmt.Errorf("get client: %w", err)
		}
		if client == nil || client.AgencyID != opp.AgencyID {
			return nil, fmt.Errorf("client %s: %w", clientID, entity.ErrNotFound)
		}
	}

	return c.statuses.Assign(ctx, opp, clientIDs, user.UserID)
}

func (c *Core) record(ctx context.Context, agencyID, opportunityID, clientID, actorID, action string, details map[string]any) {
	entry := entity.NewActivityEntry(agencyID, opportunityID, clientID, actorID, action, details)
	if err := c.repo.InsertActivity(ctx, entry); err != nil {
		c.log.With(sl.Err(err), slog.String("action", action)).Warn("record activity")
	}
}
