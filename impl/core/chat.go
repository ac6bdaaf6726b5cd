package core

import (
	"context"
	"fmt"
	"prism/entity"
	"prism/internal/service/escalation"
)

// AskQuestion posts a client question on an assigned opportunity.
func (c *Core) AskQuestion(ctx context.Context, user *entity.UserAuth, opportunityID, clientID, text string) (*escalation.QuestionResult, error) {
	if err := c.chatAccess(ctx, user, opportunityID, clientID); err != nil {
		return nil, err
	}
	return c.chat.SubmitClientQuestion(ctx, opportunityID, clientID, user.UserID, text)
}

func (c *Core) ChatMessages(ctx context.Context, user *entity.UserAuth, opportunityID, clientID string, afterSeq int64, limit int) (*entity.ThreadView, error) {
	if err := c.chatAccess(ctx, user, opportunityID, clientID); err != nil {
		return nil, err
	}
	thread, msgs, err := c.chat.ThreadMessages(ctx, opportunityID, clientID, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	return &entity.ThreadView{Thread: thread, Messages: msgs}, nil
}

func (c *Core) EscalatedThreads(ctx context.Context, user *entity.UserAuth, agencyID string) ([]entity.ChatThread, error) {
	agency, err := agencyFor(user, agencyID)
	if err != nil {
		return nil, err
	}
	return c.chat.EscalatedThreads(ctx, agency)
}

func (c *Core) RespondToThread(ctx context.Context, user *entity.UserAuth, threadID, text string) (*entity.ChatMessage, error) {
	if err := requireStaff(user); err != nil {
		return nil, err
	}
	thread, err := c.chat.Thread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !user.CanSeeAgency(thread.AgencyID) {
		return nil, fmt.Errorf("thread %s: %w", threadID, entity.ErrNotFound)
	}
	return c.chat.SubmitAgencyResponse(ctx, threadID, user.UserID, text)
}

// chatAccess requires the pair to be assigned and the user to act for the client.
func (c *Core) chatAccess(ctx context.Context, user *entity.UserAuth, opportunityID, clientID string) error {
	opp, err := c.visibleOpportunity(ctx, user, opportunityID)
	if err != nil {
		return err
	}
	if !user.CanActFor(opp.AgencyID, clientID) {
		return forbidden("client %s", clientID)
	}
	st, err := c.repo.FindStatus(ctx, opp.ID, clientID)
	if err != nil {
		return fmt.Errorf("find status: %w", err)
	}
	if st == nil {
		return fmt.Errorf("opportunity %s is not assigned to %s: %w", opp.ID, clientID, entity.ErrNotFound)
	}
	return nil
}
