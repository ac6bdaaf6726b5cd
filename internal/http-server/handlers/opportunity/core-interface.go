package opportunity

import (
	"context"
	"prism/entity"
)

type Core interface {
	CreateOpportunity(ctx context.Context, user *entity.UserAuth, in entity.OpportunityInput) (*entity.Opportunity, error)
	ListOpportunities(ctx context.Context, user *entity.UserAuth, agencyID string, st entity.OpportunityStatus) ([]entity.Opportunity, error)
	GetOpportunity(ctx context.Context, user *entity.UserAuth, id string) (*entity.Opportunity, error)
	SetOpportunityStatus(ctx context.Context, user *entity.UserAuth, id string, next entity.OpportunityStatus) (*entity.Opportunity, error)
	AssignOpportunity(ctx context.Context, user *entity.UserAuth, id string, clientIDs []string) ([]entity.ClientOpportunityStatus, error)
}
