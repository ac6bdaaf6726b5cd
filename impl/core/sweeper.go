package core

import (
	"context"
	"errors"
	"log/slog"
	"prism/entity"
	"prism/internal/lib/sl"
	"prism/internal/service/status"
)

// Sweep expires active opportunities past their deadline and, when a grace
// period is configured, marks unanswered rows of expired opportunities as no_response.
func (c *Core) Sweep(ctx context.Context) {
	now := c.now()

	due, err := c.repo.ListOpportunities(ctx, entity.OpportunityFilter{Status: entity.OpportunityActive, DeadlineBefore: &now})
	if err != nil {
		c.log.With(sl.Err(err)).Error("sweep: list due opportunities")
		return
	}
	expired := 0
	for _, opp := range due {
		ok, err := c.repo.SwapOpportunityStatus(ctx, opp.ID, entity.OpportunityActive, entity.OpportunityExpired, now)
		if err != nil {
			c.log.With(sl.Err(err), slog.String("opportunity_id", opp.ID)).Error("sweep: expire opportunity")
			continue
		}
		if ok {
			expired++
			c.record(ctx, opp.AgencyID, opp.ID, "", entity.SystemActor, "opportunity_expired", nil)
		}
	}

	marked := 0
	if c.policy.NoResponseGrace > 0 {
		cutoff := now.Add(-c.policy.NoResponseGrace)
		stale, err := c.repo.ListOpportunities(ctx, entity.OpportunityFilter{Status: entity.OpportunityExpired, DeadlineBefore: &cutoff})
		if err != nil {
			c.log.With(sl.Err(err)).Error("sweep: list expired opportunities")
			return
		}
		for _, opp := range stale {
			rows, err := c.repo.ListStatuses(ctx, entity.StatusFilter{
				OpportunityID: opp.ID,
				States:        []entity.ResponseState{entity.StatePending, entity.StateInterested},
			})
			if err != nil {
				c.log.With(sl.Err(err), slog.String("opportunity_id", opp.ID)).Error("sweep: list statuses")
				continue
			}
			for _, row := range rows {
				_, err := c.statuses.ApplyTransition(ctx, row.ID, status.TransitionInput{
					Target:  entity.StateNoResponse,
					ActorID: entity.SystemActor,
				})
				if err != nil {
					if !errors.Is(err, entity.ErrConcurrentModification) && !errors.Is(err, entity.ErrInvalidTransition) {
						c.log.With(sl.Err(err), slog.String("status_id", row.ID)).Error("sweep: mark no_response")
					}
					continue
				}
				marked++
			}
		}
	}

	c.log.With(
		slog.Int("expired", expired),
		slog.Int("no_response", marked),
	).Info("policy sweep")
}
