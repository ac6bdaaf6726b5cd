package repository

import (
	"context"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"prism/entity"
)

func (m *MongoDB) GetStatus(ctx context.Context, id string) (*entity.ClientOpportunityStatus, error) {
	return get[entity.ClientOpportunityStatus](ctx, m, m.collection(statusesCollection), bson.D{{"_id", id}})
}

func (m *MongoDB) FindStatus(ctx context.Context, opportunityID, clientID string) (*entity.ClientOpportunityStatus, error) {
	filter := bson.D{{"opportunity_id", opportunityID}, {"client_id", clientID}}
	return get[entity.ClientOpportunityStatus](ctx, m, m.collection(statusesCollection), filter)
}

func (m *MongoDB) InsertStatus(ctx context.Context, status *entity.ClientOpportunityStatus) error {
	_, err := m.collection(statusesCollection).InsertOne(ctx, status)
	if err != nil {
		return insertError(err)
	}
	return nil
}

// SwapStatus replaces the record only if nobody changed it since it was read:
// the stored state and version must still match the expected pair.
func (m *MongoDB) SwapStatus(ctx context.Context, next *entity.ClientOpportunityStatus, expectedState entity.ResponseState, expectedVersion int64) (bool, error) {
	filter := bson.D{
		{"_id", next.ID},
		{"response_state", expectedState},
		{"version", expectedVersion},
	}
	stored := *next
	stored.Version = expectedVersion + 1

	res, err := m.collection(statusesCollection).ReplaceOne(ctx, filter, &stored)
	if err != nil {
		return false, fmt.Errorf("mongodb swap status: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (m *MongoDB) ListStatuses(ctx context.Context, f entity.StatusFilter) ([]entity.ClientOpportunityStatus, error) {
	filter := bson.D{}
	if f.AgencyID != "" {
		filter = append(filter, bson.E{Key: "agency_id", Value: f.AgencyID})
	}
	if f.OpportunityID != "" {
		filter = append(filter, bson.E{Key: "opportunity_id", Value: f.OpportunityID})
	}
	if f.ClientID != "" {
		filter = append(filter, bson.E{Key: "client_id", Value: f.ClientID})
	}
	if len(f.States) > 0 {
		filter = append(filter, bson.E{Key: "response_state", Value: bson.D{{"$in", f.States}}})
	}
	opts := options.Find().SetSort(bson.D{{"created_at", 1}})
	return list[entity.ClientOpportunityStatus](ctx, m.collection(statusesCollection), filter, opts)
}
