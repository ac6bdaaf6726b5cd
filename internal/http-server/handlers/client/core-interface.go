package client

import (
	"context"
	"prism/entity"
)

type Core interface {
	CreateClient(ctx context.Context, user *entity.UserAuth, agencyID, name, email, company string) (*entity.Client, error)
	ListClients(ctx context.Context, user *entity.UserAuth, agencyID string) ([]entity.Client, error)
}
