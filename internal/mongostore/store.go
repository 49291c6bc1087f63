// Package mongostore keeps tasks and users in MongoDB. It satisfies the same
// interfaces as the relational repository, so the server can run on either.
package mongostore

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	tasksCollection = "tasks"
	usersCollection = "users"
)

// Store owns the client connection shared by TaskStore and UserStore
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and verifies the connection with a ping
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

// EnsureIndexes creates the indexes listing, filtering and login rely on
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.db.Collection(tasksCollection).Indexes().CreateMany(ctx, taskIndexes()); err != nil {
		return fmt.Errorf("create task indexes: %w", err)
	}
	if _, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, userIndexes()); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	log.Info("mongo indexes are in place")
	return nil
}

func (s *Store) Tasks() *TaskStore {
	return &TaskStore{coll: s.db.Collection(tasksCollection)}
}

func (s *Store) Users() *UserStore {
	return &UserStore{coll: s.db.Collection(usersCollection)}
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func taskIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "order", Value: 1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "completed", Value: 1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "tags", Value: 1}}},
	}
}

func userIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
}
