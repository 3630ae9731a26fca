package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	usersCollection    = "users"
	contactsCollection = "contacts"
)

// Store owns the client and hands out collection-backed repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB and verifies connectivity (fail fast).
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("empty MongoDB URI")
	}
	if database == "" {
		return nil, fmt.Errorf("empty MongoDB database name")
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetServerSelectionTimeout(5 * time.Second))
	if err != nil {
		return nil, err
	}

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Users() *UserRepo       { return NewUserRepo(s.db.Collection(usersCollection)) }
func (s *Store) Contacts() *ContactRepo { return NewContactRepo(s.db.Collection(contactsCollection)) }

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on. Idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys:    bson.D{{Key: "verification_token", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("verification_token"),
		},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err = s.db.Collection(contactsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("owner_created"),
		},
		{
			Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "favorite", Value: 1}},
			Options: options.Index().SetName("owner_favorite"),
		},
	})
	if err != nil {
		return fmt.Errorf("contacts indexes: %w", err)
	}
	return nil
}
