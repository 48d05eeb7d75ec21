package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"VoiceTaskManager_Backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const (
	tasksCollection      = "tasks"
	defaultMongoDatabase = "voicetasks"
	mongoConnectTimeout  = 10 * time.Second
)

// taskDocument mirrors the documents written by the original service.
type taskDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Text      string             `bson:"text"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d taskDocument) toModel() models.Task {
	return models.Task{
		ID:        d.ID.Hex(),
		Text:      d.Text,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

func mongoDatabaseName(uri, fallback string) (string, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", err
	}
	switch {
	case cs.Database != "":
		return cs.Database, nil
	case fallback != "":
		return fallback, nil
	default:
		return defaultMongoDatabase, nil
	}
}

// MongoStore keeps tasks in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	tasks  *mongo.Collection
}

// NewMongoStore connects to uri. The database named in the URI path wins
// over database, which in turn wins over the built-in default.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	database, err := mongoDatabaseName(uri, database)
	if err != nil {
		return nil, fmt.Errorf("NewMongoStore(): invalid URI: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("NewMongoStore(): failed to connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("NewMongoStore(): failed to ping: %w", err)
	}

	return &MongoStore{
		client: client,
		tasks:  client.Database(database).Collection(tasksCollection),
	}, nil
}

func (s *MongoStore) Create(ctx context.Context, text string) (models.Task, error) {
	text, err := normalizeText(text)
	if err != nil {
		return models.Task{}, err
	}
	doc := taskDocument{
		ID:   primitive.NewObjectID(),
		Text: text,
		// BSON dates carry millisecond precision.
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.tasks.InsertOne(ctx, doc); err != nil {
		return models.Task{}, err
	}
	return doc.toModel(), nil
}

// FindAll returns tasks in insertion order. ObjectIDs lead with their
// creation second.
func (s *MongoStore) FindAll(ctx context.Context) ([]models.Task, error) {
	cur, err := s.tasks.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	tasks := make([]models.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.toModel())
	}
	return tasks, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (models.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Task{}, ErrTaskNotFound
	}
	var doc taskDocument
	if err := s.tasks.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return doc.toModel(), nil
}

func (s *MongoStore) FindByIDAndDelete(ctx context.Context, id string) (models.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Task{}, ErrTaskNotFound
	}
	var doc taskDocument
	if err := s.tasks.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return doc.toModel(), nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
