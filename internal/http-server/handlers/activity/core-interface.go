package activity

import (
	"context"
	"prism/entity"
)

type Core interface {
	ListActivity(ctx context.Context, user *entity.UserAuth, agencyID, opportunityID string, limit int) ([]entity.ActivityEntry, error)
}
