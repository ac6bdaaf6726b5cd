package core

import (
	"context"
	"fmt"
	"prism/entity"
)

func (c *Core) CreateRestoreRequest(ctx context.Context, user *entity.UserAuth, opportunityID, clientID, reason string) (*entity.RestoreRequest, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if user.IsClient() && clientID == "" {
		clientID = user.ClientID
	}
	opp, err := c.visibleOpportunity(ctx, user, opportunityID)
	if err != nil {
		return nil, err
	}
	if !user.CanActFor(opp.AgencyID, clientID) {
		return nil, forbidden("client %s", clientID)
	}
	return c.restore.CreateRequest(ctx, opp.ID, clientID, user.UserID, reason)
}

func (c *Core) ListRestoreRequests(ctx context.Context, user *entity.UserAuth, agencyID string, st entity.RestoreStatus) ([]entity.RestoreRequest, error) {
	agency, err := agencyFor(user, agencyID)
	if err != nil {
		return nil, err
	}
	return c.restore.List(ctx, entity.RestoreFilter{AgencyID: agency, Status: st})
}

func (c *Core) GetRestoreRequest(ctx context.Context, user *entity.UserAuth, id string) (*entity.RestoreRequest, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	req, err := c.restore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.CanActFor(req.AgencyID, req.ClientID) {
		return nil, fmt.Errorf("restore request %s: %w", id, entity.ErrNotFound)
	}
	return req, nil
}

func (c *Core) ApproveRestoreRequest(ctx context.Context, user *entity.UserAuth, id, notes string) (*entity.RestoreRequest, error) {
	if err := c.reviewable(ctx, user, id); err != nil {
		return nil, err
	}
	return c.restore.Approve(ctx, id, user.UserID, notes)
}

func (c *Core) DenyRestoreRequest(ctx context.Context, user *entity.UserAuth, id, notes string) (*entity.RestoreRequest, error) {
	if err := c.reviewable(ctx, user, id); err != nil {
		return nil, err
	}
	return c.restore.Deny(ctx, id, user.UserID, notes)
}

func (c *Core) reviewable(ctx context.Context, user *entity.UserAuth, id string) error {
	if err := requireStaff(user); err != nil {
		return err
	}
	_, err := c.GetRestoreRequest(ctx, user, id)
	return err
}
