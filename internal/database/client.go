package repository

import (
	"context"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"prism/entity"
)

func (m *MongoDB) InsertClient(ctx context.Context, client *entity.Client) error {
	_, err := m.collection(clientsCollection).InsertOne(ctx, client)
	if err != nil {
		return insertError(err)
	}
	return nil
}

func (m *MongoDB) GetClient(ctx context.Context, id string) (*entity.Client, error) {
	return get[entity.Client](ctx, m, m.collection(clientsCollection), bson.D{{"_id", id}})
}

func (m *MongoDB) ListClients(ctx context.Context, agencyID string) ([]entity.Client, error) {
	opts := options.Find().SetSort(bson.D{{"name", 1}})
	return list[entity.Client](ctx, m.collection(clientsCollection), bson.D{{"agency_id", agencyID}}, opts)
}
