package repository

import (
	"context"
	"errors"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"prism/entity"
	"time"
)

// GetOrCreateThread returns the thread for the (opportunity, client) pair,
// inserting the given one when none exists yet.
func (m *MongoDB) GetOrCreateThread(ctx context.Context, thread *entity.ChatThread) (*entity.ChatThread, error) {
	collection := m.collection(threadsCollection)
	filter := bson.D{{"opportunity_id", thread.OpportunityID}, {"client_id", thread.ClientID}}
	update := bson.D{{"$setOnInsert", thread}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var result entity.ChatThread
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result)
	if err != nil {
		// a concurrent upsert won the unique index; the thread exists now
		if mongo.IsDuplicateKeyError(err) {
			return m.FindThread(ctx, thread.OpportunityID, thread.ClientID)
		}
		return nil, fmt.Errorf("mongodb upsert chat thread: %w", err)
	}
	return &result, nil
}

func (m *MongoDB) GetThread(ctx context.Context, id string) (*entity.ChatThread, error) {
	return get[entity.ChatThread](ctx, m, m.collection(threadsCollection), bson.D{{"_id", id}})
}

func (m *MongoDB) FindThread(ctx context.Context, opportunityID, clientID string) (*entity.ChatThread, error) {
	filter := bson.D{{"opportunity_id", opportunityID}, {"client_id", clientID}}
	return get[entity.ChatThread](ctx, m, m.collection(threadsCollection), filter)
}

// AppendMessage allocates the next sequence number on the thread document and
// stores the message under it. created_at never goes backwards within a thread.
func (m *MongoDB) AppendMessage(ctx context.Context, msg *entity.ChatMessage) error {
	now := m.now().Truncate(time.Millisecond)
	update := bson.D{
		{"$inc", bson.D{{"last_seq", 1}}},
		{"$max", bson.D{{"last_message_at", now}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var thread entity.ChatThread
	err := m.collection(threadsCollection).FindOneAndUpdate(ctx, bson.D{{"_id", msg.ThreadID}}, update, opts).Decode(&thread)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("mongodb allocate message seq: %w", err)
	}

	msg.Seq = thread.LastSeq
	msg.CreatedAt = thread.LastMessageAt
	if _, err = m.collection(chatMessagesCollection).InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("mongodb insert chat message: %w", err)
	}
	return nil
}

func (m *MongoDB) SetThreadEscalated(ctx context.Context, threadID string, escalated bool, at time.Time) error {
	set := bson.D{{"is_escalated", escalated}}
	update := bson.D{{"$set", set}}
	if escalated {
		update = bson.D{{"$set", append(set, bson.E{Key: "escalated_at", Value: at})}}
	} else {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{"escalated_at", ""}}})
	}
	res, err := m.collection(threadsCollection).UpdateOne(ctx, bson.D{{"_id", threadID}}, update)
	if err != nil {
		return fmt.Errorf("mongodb update chat thread: %w", err)
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// ListMessages returns messages with seq greater than afterSeq in ascending order.
func (m *MongoDB) ListMessages(ctx context.Context, threadID string, afterSeq int64, limit int) ([]entity.ChatMessage, error) {
	filter := bson.D{{"thread_id", threadID}, {"seq", bson.D{{"$gt", afterSeq}}}}
	opts := options.Find().SetSort(bson.D{{"seq", 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return list[entity.ChatMessage](ctx, m.collection(chatMessagesCollection), filter, opts)
}

func (m *MongoDB) ListEscalatedThreads(ctx context.Context, agencyID string) ([]entity.ChatThread, error) {
	filter := bson.D{{"is_escalated", true}}
	if agencyID != "" {
		filter = append(filter, bson.E{Key: "agency_id", Value: agencyID})
	}
	opts := options.Find().SetSort(bson.D{{"last_message_at", 1}})
	return list[entity.ChatThread](ctx, m.collection(threadsCollection), filter, opts)
}
