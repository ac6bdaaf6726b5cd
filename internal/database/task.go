package repository

import (
	"context"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"prism/entity"
)

func (m *MongoDB) InsertTask(ctx context.Context, task *entity.FollowUpTask) error {
	_, err := m.collection(tasksCollection).InsertOne(ctx, task)
	if err != nil {
		return insertError(err)
	}
	return nil
}

func (m *MongoDB) GetTask(ctx context.Context, id string) (*entity.FollowUpTask, error) {
	return get[entity.FollowUpTask](ctx, m, m.collection(tasksCollection), bson.D{{"_id", id}})
}

func (m *MongoDB) UpdateTask(ctx context.Context, task *entity.FollowUpTask) error {
	res, err := m.collection(tasksCollection).ReplaceOne(ctx, bson.D{{"_id", task.ID}}, task)
	if err != nil {
		return fmt.Errorf("mongodb update task: %w", err)
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (m *MongoDB) ListTasks(ctx context.Context, f entity.TaskFilter) ([]entity.FollowUpTask, error) {
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
	if f.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: f.Status})
	}
	opts := options.Find().SetSort(bson.D{{"created_at", 1}})
	return list[entity.FollowUpTask](ctx, m.collection(tasksCollection), filter, opts)
}
