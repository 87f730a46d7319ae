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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PlaylistRepository defines the interface for playlist data operations.
type PlaylistRepository interface {
	CreatePlaylist(ctx context.Context, playlist *model.Playlist) (primitive.ObjectID, error)
	GetPlaylistByID(ctx context.Context, id string) (*model.Playlist, error)
	GetPlaylistsByUserID(ctx context.Context, userID string) ([]*model.Playlist, error)
	// UpdatePlaylistFields sets the non-nil fields. Returns false when the
	// id does not resolve.
	UpdatePlaylistFields(ctx context.Context, id string, name, description *string) (bool, error)
	DeletePlaylist(ctx context.Context, id string) (bool, error)
	// AddTrack appends trackID unless it is already present, as one guarded
	// update. Reports false when the id was already a member.
	AddTrack(ctx context.Context, playlistID, trackID string) (bool, error)
	// RemoveTrack removes trackID; reports false when it was not a member.
	RemoveTrack(ctx context.Context, playlistID, trackID string) (bool, error)
}

// mongoPlaylistRepository implements PlaylistRepository for MongoDB.
type mongoPlaylistRepository struct {
	mgr *db.Manager
}

// NewMongoPlaylistRepository creates a new mongoPlaylistRepository.
func NewMongoPlaylistRepository(mgr *db.Manager) PlaylistRepository {
	return &mongoPlaylistRepository{mgr: mgr}
}

// CreatePlaylist inserts a new playlist document.
func (r *mongoPlaylistRepository) CreatePlaylist(ctx context.Context, playlist *model.Playlist) (primitive.ObjectID, error) {
	col, err := r.mgr.Collection(db.PlaylistsCollection)
	if err != nil {
		return primitive.NilObjectID, err
	}

	res, err := col.InsertOne(ctx, playlist)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to insert playlist: %w", err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id, nil
}

// GetPlaylistByID retrieves a playlist by id. Returns (nil, nil) when not found.
func (r *mongoPlaylistRepository) GetPlaylistByID(ctx context.Context, id string) (*model.Playlist, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	col, err := r.mgr.Collection(db.PlaylistsCollection)
	if err != nil {
		return nil, err
	}

	playlist := &model.Playlist{}
	err = col.FindOne(ctx, bson.M{"_id": oid}).Decode(playlist)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find playlist by id %s: %w", id, err)
	}
	return playlist, nil
}

// GetPlaylistsByUserID returns the playlists owned by one user, newest first.
func (r *mongoPlaylistRepository) GetPlaylistsByUserID(ctx context.Context, userID string) ([]*model.Playlist, error) {
	col, err := r.mgr.Collection(db.PlaylistsCollection)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	playlists := make([]*model.Playlist, 0)
	if err := cursor.All(ctx, &playlists); err != nil {
		return nil, fmt.Errorf("failed to decode playlists: %w", err)
	}
	return playlists, nil
}

// UpdatePlaylistFields sets name and/or description when provided.
func (r *mongoPlaylistRepository) UpdatePlaylistFields(ctx context.Context, id string, name, description *string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	set := bson.M{}
	if name != nil {
		set["name"] = *name
	}
	if description != nil {
		set["description"] = *description
	}
	if len(set) == 0 {
		// Nothing to change; report whether the playlist exists.
		playlist, err := r.GetPlaylistByID(ctx, id)
		if err != nil {
			return false, err
		}
		return playlist != nil, nil
	}

	col, err := r.mgr.Collection(db.PlaylistsCollection)
	if err != nil {
		return false, err
	}

	res, err := col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to update playlist %s: %w", id, err)
	}
	return res.MatchedCount == 1, nil
}

// DeletePlaylist removes a playlist document.
func (r *mongoPlaylistRepository) DeletePlaylist(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	col, err := r.mgr.Collection(db.PlaylistsCollection)
	if err != nil {
		return false, err
	}

	res, err := col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("failed to delete playlist %s: %w", id, err)
	}
	return res.DeletedCount == 1, nil
}

// AddTrack appends trackID to musicIds unless already present.
func (r *mongoPlaylistRepository) AddTrack(ctx context.Context, playlistID, trackID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(playlistID)
	if err != nil {
		return false, nil
	}

	col, err := r.mgr.Collection(db.PlaylistsCollection)
	if err != nil {
		return false, err
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": oid, "musicIds": bson.M{"$ne": trackID}},
		bson.M{"$push": bson.M{"musicIds": trackID}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to add track to playlist: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// RemoveTrack removes trackID from musicIds.
func (r *mongoPlaylistRepository) RemoveTrack(ctx context.Context, playlistID, trackID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(playlistID)
	if err != nil {
		return false, nil
	}

	col, err := r.mgr.Collection(db.PlaylistsCollection)
	if err != nil {
		return false, err
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": oid, "musicIds": trackID},
		bson.M{"$pull": bson.M{"musicIds": trackID}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove track from playlist: %w", err)
	}
	return res.ModifiedCount == 1, nil
}
