package repository

import (
	"context"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"prism/entity"
)

// InsertRestoreRequest relies on the partial unique index over pending
// requests, so two racing inserts for the same pair cannot both succeed.
func (m *MongoDB) InsertRestoreRequest(ctx context.Context, req *entity.RestoreRequest) error {
	_, err := m.collection(restoreCollection).InsertOne(ctx, req)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entity.ErrDuplicateRequest
		}
		return fmt.Errorf("mongodb insert restore request: %w", err)
	}
	return nil
}

func (m *MongoDB) GetRestoreRequest(ctx context.Context, id string) (*entity.RestoreRequest, error) {
	return get[entity.RestoreRequest](ctx, m, m.collection(restoreCollection), bson.D{{"_id", id}})
}

func (m *MongoDB) FindPendingRestoreRequest(ctx context.Context, opportunityID, clientID string) (*entity.RestoreRequest, error) {
	filter := bson.D{
		{"opportunity_id", opportunityID},
		{"client_id", clientID},
		{"status", entity.RestorePending},
	}
	return get[entity.RestoreRequest](ctx, m, m.collection(restoreCollection), filter)
}

func (m *MongoDB) ResolveRestoreRequest(ctx context.Context, req *entity.RestoreRequest, from entity.RestoreStatus) (bool, error) {
	filter := bson.D{{"_id", req.ID}, {"status", from}}
	res, err := m.collection(restoreCollection).ReplaceOne(ctx, filter, req)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, entity.ErrDuplicateRequest
		}
		return false, fmt.Errorf("mongodb resolve restore request: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (m *MongoDB) ListRestoreRequests(ctx context.Context, f entity.RestoreFilter) ([]entity.RestoreRequest, error) {
	filter := bson.D{}
	if f.AgencyID != "" {
		filter = append(filter, bson.E{Key: "agency_id", Value: f.AgencyID})
	}
	if f.ClientID != "" {
		filter = append(filter, bson.E{Key: "client_id", Value: f.ClientID})
	}
	if f.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: f.Status})
	}
	opts := options.Find().SetSort(bson.D{{"requested_at", 1}})
	return list[entity.RestoreRequest](ctx, m.collection(restoreCollection), filter, opts)
}
