package repository

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"log/slog"
	"prism/entity"
	"prism/internal/config"
	"prism/internal/lib/sl"
	"time"
)

const (
	apiKeysCollection       = "api-keys"
	opportunitiesCollection = "opportunities"
	clientsCollection       = "clients"
	statusesCollection      = "client-opportunity-statuses"
	restoreCollection       = "restore-requests"
	tasksCollection         = "follow-up-tasks"
	threadsCollection       = "chat-threads"
	chatMessagesCollection  = "chat-messages"
	activityCollection      = "activity"
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	client        *mongo.Client
	database      string
	log           *slog.Logger
	now           func() time.Time
}

func NewMongoClient(conf *config.Config, logger *slog.Logger) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	return newMongo(connectionUri, conf.Mongo.User, conf.Mongo.Password, conf.Mongo.Database, logger)
}

func newMongo(uri, user, password, database string, logger *slog.Logger) (*MongoDB, error) {
	clientOptions := options.Client().ApplyURI(uri)
	if user != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   user,
			Password:   password,
			AuthSource: database,
		})
	}
	m := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      database,
		log:           logger.With(sl.Module("mongodb")),
		now:           func() time.Time { return time.Now().UTC() },
	}
	if err := m.connect(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MongoDB) connect() error {
	ctx, cancel := context.WithTimeout(m.ctx, 10*time.Second)
	defer cancel()
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return fmt.Errorf("mongodb connect error: %w", err)
	}
	if err = connection.Ping(ctx, nil); err != nil {
		_ = connection.Disconnect(m.ctx)
		return fmt.Errorf("mongodb ping error: %w", err)
	}
	m.client = connection
	return nil
}

func (m *MongoDB) Close() {
	if m.client != nil {
		_ = m.client.Disconnect(m.ctx)
	}
}

func (m *MongoDB) collection(name string) *mongo.Collection {
	return m.client.Database(m.database).Collection(name)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find error: %w", err)
}

// EnsureIndexes creates the unique indexes the conditional writes rely on.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		statusesCollection: {
			{Keys: bson.D{{"opportunity_id", 1}, {"client_id", 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{"agency_id", 1}, {"response_state", 1}}},
		},
		restoreCollection: {
			{
				Keys: bson.D{{"opportunity_id", 1}, {"client_id", 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.D{{"status", "pending"}}).
					SetName("one_pending_per_pair"),
			},
			{Keys: bson.D{{"agency_id", 1}, {"requested_at", 1}}},
		},
		threadsCollection: {
			{Keys: bson.D{{"opportunity_id", 1}, {"client_id", 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{"agency_id", 1}, {"is_escalated", 1}}},
		},
		chatMessagesCollection: {
			{Keys: bson.D{{"thread_id", 1}, {"seq", 1}}, Options: options.Index().SetUnique(true)},
		},
		opportunitiesCollection: {
			{Keys: bson.D{{"agency_id", 1}, {"created_at", -1}}},
		},
		tasksCollection: {
			{Keys: bson.D{{"agency_id", 1}, {"status", 1}}},
		},
		activityCollection: {
			{Keys: bson.D{{"agency_id", 1}, {"created_at", -1}}},
		},
		apiKeysCollection: {
			{Keys: bson.D{{"key", 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, models := range indexes {
		if _, err := m.collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongodb create %s indexes: %w", name, err)
		}
	}
	return nil
}

func (m *MongoDB) CheckApiKey(key string) (string, error) {
	collection := m.collection(apiKeysCollection)
	filter := bson.D{{"key", key}}

	var result struct {
		Username string `bson:"username"`
		Key      string `bson:"key"`
	}
	err := collection.FindOne(m.ctx, filter).Decode(&result)
	if err != nil {
		return "", err
	}

	if result.Username == "" {
		return "", fmt.Errorf("api key not found")
	}

	return result.Username, nil
}

func (m *MongoDB) getKeyByUsername(username string) (string, error) {
	collection := m.collection(apiKeysCollection)
	filter := bson.D{{"username", username}}

	var result struct {
		Key string `bson:"key"`
	}
	err := collection.FindOne(m.ctx, filter).Decode(&result)
	if err != nil {
		return "", m.findError(err)
	}

	return result.Key, nil
}

func (m *MongoDB) GenerateApiKey(username string) (string, error) {
	k, err := m.getKeyByUsername(username)
	if err != nil {
		return "", fmt.Errorf("failed to get existing API key: %w", err)
	}
	if k != "" {
		return k, nil
	}

	key := uuid.NewString()
	doc := bson.D{
		{"username", username},
		{"key", key},
	}

	_, err = m.collection(apiKeysCollection).InsertOne(m.ctx, doc)
	if err != nil {
		return "", fmt.Errorf("mongodb insert error: %w", err)
	}

	return key, nil
}

// list decodes every document matching filter into a slice.
func list[T any](ctx context.Context, collection *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("mongodb find %s: %w", collection.Name(), err)
	}
	defer cursor.Close(ctx)

	var result []T
	if err = cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("mongodb decode %s: %w", collection.Name(), err)
	}
	return result, nil
}

// get decodes a single document or returns nil when none matches.
func get[T any](ctx context.Context, m *MongoDB, collection *mongo.Collection, filter any) (*T, error) {
	var result T
	err := collection.FindOne(ctx, filter).Decode(&result)
	if err != nil {
		return nil, m.findError(err)
	}
	return &result, nil
}

func insertError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", entity.ErrAlreadyExists, err)
	}
	return fmt.Errorf("mongodb insert error: %w", err)
}
