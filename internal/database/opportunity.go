package repository

import (
	"context"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"prism/entity"
	"time"
)

func (m *MongoDB) InsertOpportunity(ctx context.Context, opp *entity.Opportunity) error {
	_, err := m.collection(opportunitiesCollection).InsertOne(ctx, opp)
	if err != nil {
		return insertError(err)
	}
	return nil
}

func (m *MongoDB) GetOpportunity(ctx context.Context, id string) (*entity.Opportunity, error) {
	return get[entity.Opportunity](ctx, m, m.collection(opportunitiesCollection), bson.D{{"_id", id}})
}

func (m *MongoDB) ListOpportunities(ctx context.Context, f entity.OpportunityFilter) ([]entity.Opportunity, error) {
	filter := bson.D{}
	if f.AgencyID != "" {
		filter = append(filter, bson.E{Key: "agency_id", Value: f.AgencyID})
	}
	if f.IDs != nil {
		filter = append(filter, bson.E{Key: "_id", Value: bson.D{{"$in", f.IDs}}})
	}
	if f.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: f.Status})
	}
	if f.DeadlineBefore != nil {
		filter = append(filter, bson.E{Key: "deadline", Value: bson.D{{"$lt", *f.DeadlineBefore}}})
	}
	opts := options.Find().SetSort(bson.D{{"created_at", -1}})
	return list[entity.Opportunity](ctx, m.collection(opportunitiesCollection), filter, opts)
}

// SwapOpportunityStatus moves the lifecycle status only while it still equals from.
func (m *MongoDB) SwapOpportunityStatus(ctx context.Context, id string, from, to entity.OpportunityStatus, at time.Time) (bool, error) {
	filter := bson.D{{"_id", id}, {"status", from}}
	update := bson.D{{"$set", bson.D{{"status", to}, {"updated_at", at}}}}
	res, err := m.collection(opportunitiesCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("mongodb update opportunity: %w", err)
	}
	return res.ModifiedCount == 1, nil
}
