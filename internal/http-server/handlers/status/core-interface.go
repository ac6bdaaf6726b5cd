package status

import (
	"context"
	"prism/entity"
)

type Core interface {
	ListStatuses(ctx context.Context, user *entity.UserAuth, opportunityID, clientID string) ([]entity.ClientOpportunityStatus, error)
	GetStatus(ctx context.Context, user *entity.UserAuth, id string) (*entity.ClientOpportunityStatus, error)
	TransitionStatus(ctx context.Context, user *entity.UserAuth, id string, target entity.ResponseState, notes *string, declineReason string) (*entity.ClientOpportunityStatus, error)
}
