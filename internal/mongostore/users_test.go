package mongostore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"taskmanager/internal/model"
	"taskmanager/internal/repository"
)

const usersNS = "taskmanager.users"

func TestUserStore_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		store := &UserStore{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		user := &model.User{Username: "tester", Email: "test@example.com", HashedPassword: "hash"}
		err := store.Create(context.Background(), user)

		require.NoError(mt, err)
		assert.NotEqual(mt, uuid.Nil, user.ID)
		assert.False(mt, user.CreatedAt.IsZero())
	})

	mt.Run("duplicate email or username", func(mt *mtest.T) {
		// Arrange
		store := &UserStore{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: taskmanager.users index: email_1",
		}))

		// Act
		err := store.Create(context.Background(), &model.User{Username: "tester", Email: "test@example.com"})

		// Assert
		assert.ErrorIs(mt, err, repository.ErrUserExists)
	})
}

func TestUserStore_Lookups(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing user is not an error", func(mt *mtest.T) {
		store := &UserStore{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch))

		user, err := store.FindByEmail(context.Background(), "nobody@example.com")

		assert.NoError(mt, err)
		assert.Nil(mt, user)
	})

	mt.Run("found by id", func(mt *mtest.T) {
		store := &UserStore{coll: mt.Coll}
		id := uuid.New()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id.String()},
			{Key: "username", Value: "tester"},
			{Key: "email", Value: "test@example.com"},
			{Key: "password", Value: "hash"},
			{Key: "preferences", Value: bson.D{{Key: "darkMode", Value: true}}},
			{Key: "createdAt", Value: fixedNow},
		}))

		user, err := store.GetByID(context.Background(), id)

		require.NoError(mt, err)
		require.NotNil(mt, user)
		assert.Equal(mt, id, user.ID)
		assert.Equal(mt, "tester", user.Username)
		assert.True(mt, user.Preferences.DarkMode)
	})

	mt.Run("server error", func(mt *mtest.T) {
		store := &UserStore{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    8000,
			Name:    "AtlasError",
			Message: "boom",
		}))

		user, err := store.FindByEmailOrUsername(context.Background(), "a@example.com", "a")

		assert.Error(mt, err)
		assert.Nil(mt, user)
	})
}

func TestUserStore_UpdatePreferences_NotFound(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("no match", func(mt *mtest.T) {
		store := &UserStore{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := store.UpdatePreferences(context.Background(), uuid.New(), model.Preferences{DarkMode: true})

		assert.ErrorIs(mt, err, repository.ErrUserNotFound)
	})
}
