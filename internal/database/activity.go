package repository

import (
	"context"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"prism/entity"
)

func (m *MongoDB) InsertActivity(ctx context.Context, entry *entity.ActivityEntry) error {
	_, err := m.collection(activityCollection).InsertOne(ctx, entry)
	if err != nil {
		return insertError(err)
	}
	return nil
}

// ListActivity returns the newest entries first.
func (m *MongoDB) ListActivity(ctx context.Context, agencyID, opportunityID string, limit int) ([]entity.ActivityEntry, error) {
	filter := bson.D{{"agency_id", agencyID}}
	if opportunityID != "" {
		filter = append(filter, bson.E{Key: "opportunity_id", Value: opportunityID})
	}
	opts := options.Find().SetSort(bson.D{{"created_at", -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return list[entity.ActivityEntry](ctx, m.collection(activityCollection), filter, opts)
}
