package core

import (
	"context"
	"fmt"
	"prism/entity"
)

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", entity.ErrForbidden, fmt.Sprintf(format, args...))
}

func requireUser(user *entity.UserAuth) error {
	if user == nil {
		return forbidden("no authenticated user")
	}
	return nil
}

func requireStaff(user *entity.UserAuth) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if !user.IsStaff() {
		return forbidden("staff only")
	}
	return nil
}

// agencyFor resolves the agency a staff request operates on. Staff are bound
// to their own agency; service keys must name one.
func agencyFor(user *entity.UserAuth, requested string) (string, error) {
	if err := requireStaff(user); err != nil {
		return "", err
	}
	if user.Role == entity.RoleService {
		if requested == "" {
			return "", fmt.Errorf("%w: agency_id is required", entity.ErrInvalidInput)
		}
		return requested, nil
	}
	if requested != "" && requested != user.AgencyID {
		return "", forbidden("agency %s", requested)
	}
	return user.AgencyID, nil
}

func (c *Core) opportunity(ctx context.Context, id string) (*entity.Opportunity, error) {
	opp, err := c.repo.GetOpportunity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get opportunity: %w", err)
	}
	if opp == nil {
		return nil, fmt.Errorf("opportunity %s: %w", id, entity.ErrNotFound)
	}
	return opp, nil
}

// visibleOpportunity loads an opportunity the user may see: staff within the
// agency, clients only when assigned. Hidden records read as not found.
func (c *Core) visibleOpportunity(ctx context.Context, user *entity.UserAuth, id string) (*entity.Opportunity, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	opp, err := c.opportunity(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.CanSeeAgency(opp.AgencyID) {
		return nil, fmt.Errorf("opportunity %s: %w", id, entity.ErrNotFound)
	}
	if user.IsClient() {
		st, err := c.repo.FindStatus(ctx, opp.ID, user.ClientID)
		if err != nil {
			return nil, fmt.Errorf("find status: %w", err)
		}
		if st == nil {
			return nil, fmt.Errorf("opportunity %s: %w", id, entity.ErrNotFound)
		}
	}
	return opp, nil
}

// statusFor loads a status row the user may act on.
func (c *Core) statusFor(ctx context.Context, user *entity.UserAuth, id string) (*entity.ClientOpportunityStatus, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	st, err := c.repo.GetStatus(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	if st == nil || !user.CanSeeAgency(st.AgencyID) {
		return nil, fmt.Errorf("status %s: %w", id, entity.ErrNotFound)
	}
	if !user.CanActFor(st.AgencyID, st.ClientID) {
		return nil, forbidden("status %s", id)
	}
	return st, nil
}
