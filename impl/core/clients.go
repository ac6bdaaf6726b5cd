package core

import (
	"context"
	"fmt"
	"log/slog"
	"prism/entity"
)

func (c *Core) CreateClient(ctx context.Context, user *entity.UserAuth, agencyID, name, email, company string) (*entity.Client, error) {
	agency, err := agencyFor(user, agencyID)
	if err != nil {
		return nil, err
	}

	client := entity.NewClient(agency, name, email)
	client.Company = company
	if err := c.repo.InsertClient(ctx, client); err != nil {
		return nil, fmt.Errorf("insert client: %w", err)
	}

	c.log.With(
		slog.String("client_id", client.ID),
		slog.String("agency_id", agency),
	).Info("client created")
	return client, nil
}

func (c *Core) ListClients(ctx context.Context, user *entity.UserAuth, agencyID string) ([]entity.Client, error) {
	agency, err := agencyFor(user, agencyID)
	if err != nil {
		return nil, err
	}
	clients, err := c.repo.ListClients(ctx, agency)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}
