package restore

import (
	"context"
	"prism/entity"
)

type Core interface {
	CreateRestoreRequest(ctx context.Context, user *entity.UserAuth, opportunityID, clientID, reason string) (*entity.RestoreRequest, error)
	ListRestoreRequests(ctx context.Context, user *entity.UserAuth, agencyID string, st entity.RestoreStatus) ([]entity.RestoreRequest, error)
	GetRestoreRequest(ctx context.Context, user *entity.UserAuth, id string) (*entity.RestoreRequest, error)
	ApproveRestoreRequest(ctx context.Context, user *entity.UserAuth, id, notes string) (*entity.RestoreRequest, error)
	DenyRestoreRequest(ctx context.Context, user *entity.UserAuth, id, notes string) (*entity.RestoreRequest, error)
}
