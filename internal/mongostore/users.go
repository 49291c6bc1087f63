package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"taskmanager/internal/model"
	"taskmanager/internal/repository"
)

type prefsDocument struct {
	DarkMode bool `bson:"darkMode"`
}

type userDocument struct {
	ID             string        `bson:"_id"`
	Username       string        `bson:"username"`
	Email          string        `bson:"email"`
	HashedPassword string        `bson:"password"`
	Preferences    prefsDocument `bson:"preferences"`
	CreatedAt      time.Time     `bson:"createdAt"`
}

func (d userDocument) toModel() (*model.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	return &model.User{
		ID:             id,
		Username:       d.Username,
		Email:          d.Email,
		HashedPassword: d.HashedPassword,
		Preferences:    model.Preferences{DarkMode: d.Preferences.DarkMode},
		CreatedAt:      d.CreatedAt,
	}, nil
}

type UserStore struct {
	coll *mongo.Collection
}

var _ repository.UserRepositoryInterface = (*UserStore)(nil)

func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	doc := userDocument{
		ID:             user.ID.String(),
		Username:       user.Username,
		Email:          user.Email,
		HashedPassword: user.HashedPassword,
		CreatedAt:      user.CreatedAt,
	}
	doc.Preferences.DarkMode = user.Preferences.DarkMode

	_, err := s.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrUserExists
	}
	return err
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *UserStore) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	return s.findOne(ctx, bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "email", Value: email}},
		bson.D{{Key: "username", Value: username}},
	}}})
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

func (s *UserStore) UpdatePreferences(ctx context.Context, id uuid.UUID, prefs model.Preferences) error {
	result, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id.String()}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "preferences.darkMode", Value: prefs.DarkMode}}}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

// findOne returns nil, nil when nothing matches, like the relational repository
func (s *UserStore) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	var doc userDocument
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.toModel()
}
