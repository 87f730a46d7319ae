package repository

import (
	"context"
	"errors"
	"fmt"

	"musicstream/db"
	"musicstream/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicateEmail is returned when an insert violates the unique index on
// users.email. The index, not the pre-check, is what closes the
// check-then-insert race: a concurrent duplicate surfaces here too.
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (primitive.ObjectID, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// AddFavorite inserts trackID into the user's favorite set as a single
	// conditional update; it reports false when the id was already present.
	AddFavorite(ctx context.Context, userID, trackID string) (bool, error)
	// RemoveFavorite removes trackID from the favorite set; it reports
	// false when the id was not a member.
	RemoveFavorite(ctx context.Context, userID, trackID string) (bool, error)
}

// mongoUserRepository implements UserRepository for MongoDB.
type mongoUserRepository struct {
	mgr *db.Manager
}

// NewMongoUserRepository creates a new mongoUserRepository.
func NewMongoUserRepository(mgr *db.Manager) UserRepository {
	return &mongoUserRepository{mgr: mgr}
}

// CreateUser inserts a new user document.
func (r *mongoUserRepository) CreateUser(ctx context.Context, user *model.User) (primitive.ObjectID, error) {
	col, err := r.mgr.Collection(db.UsersCollection)
	if err != nil {
		return primitive.NilObjectID, err
	}

	res, err := col.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, ErrDuplicateEmail
		}
		return primitive.NilObjectID, fmt.Errorf("failed to insert user: %w", err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id, nil
}

// GetUserByID retrieves a user by id. Returns (nil, nil) when not found or
// when the id is not a valid object id.
func (r *mongoUserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	col, err := r.mgr.Collection(db.UsersCollection)
	if err != nil {
		return nil, err
	}

	user := &model.User{}
	err = col.FindOne(ctx, bson.M{"_id": oid}).Decode(user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by id %s: %w", id, err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email. Returns (nil, nil) when not found.
func (r *mongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	col, err := r.mgr.Collection(db.UsersCollection)
	if err != nil {
		return nil, err
	}

	user := &model.User{}
	err = col.FindOne(ctx, bson.M{"email": email}).Decode(user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// AddFavorite performs a guarded $addToSet: the filter only matches when the
// track id is absent, so membership test and mutation happen in one
// store-level call.
func (r *mongoUserRepository) AddFavorite(ctx context.Context, userID, trackID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, nil
	}

	col, err := r.mgr.Collection(db.UsersCollection)
	if err != nil {
		return false, err
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": oid, "favoriteIds": bson.M{"$ne": trackID}},
		bson.M{"$addToSet": bson.M{"favoriteIds": trackID}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to add favorite: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// RemoveFavorite performs a guarded $pull: the filter only matches when the
// track id is a member.
func (r *mongoUserRepository) RemoveFavorite(ctx context.Context, userID, trackID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, nil
	}

	col, err := r.mgr.Collection(db.UsersCollection)
	if err != nil {
		return false, err
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": oid, "favoriteIds": trackID},
		bson.M{"$pull": bson.M{"favoriteIds": trackID}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove favorite: %w", err)
	}
	return res.ModifiedCount == 1, nil
}
