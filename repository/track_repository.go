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

// TrackRepository defines the interface for track data operations.
// The audio locator and uploader of a track are immutable: no update
// method touches them.
type TrackRepository interface {
	CreateTrack(ctx context.Context, track *model.Track) (primitive.ObjectID, error)
	GetTrackByID(ctx context.Context, id string) (*model.Track, error)
	GetAllTracks(ctx context.Context, limit int64) ([]*model.Track, error)
	GetTracksByIDs(ctx context.Context, ids []string) ([]*model.Track, error)
	GetTracksByUploader(ctx context.Context, userID string, limit int64) ([]*model.Track, error)
	SearchTracks(ctx context.Context, query string, limit int64) ([]*model.Track, error)
	UpdateTrackCover(ctx context.Context, id, coverURL string) (bool, error)
	DeleteTrack(ctx context.Context, id string) (bool, error)
}

// mongoTrackRepository implements TrackRepository for MongoDB.
type mongoTrackRepository struct {
	mgr *db.Manager
}

// NewMongoTrackRepository creates a new mongoTrackRepository.
func NewMongoTrackRepository(mgr *db.Manager) TrackRepository {
	return &mongoTrackRepository{mgr: mgr}
}

// CreateTrack inserts a new track document.
func (r *mongoTrackRepository) CreateTrack(ctx context.Context, track *model.Track) (primitive.ObjectID, error) {
	col, err := r.mgr.Collection(db.TracksCollection)
	if err != nil {
		return primitive.NilObjectID, err
	}

	res, err := col.InsertOne(ctx, track)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to insert track: %w", err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id, nil
}

// GetTrackByID retrieves a track by id. Returns (nil, nil) when not found.
func (r *mongoTrackRepository) GetTrackByID(ctx context.Context, id string) (*model.Track, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	col, err := r.mgr.Collection(db.TracksCollection)
	if err != nil {
		return nil, err
	}

	track := &model.Track{}
	err = col.FindOne(ctx, bson.M{"_id": oid}).Decode(track)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find track by id %s: %w", id, err)
	}
	return track, nil
}

// GetAllTracks returns tracks ordered newest first, up to limit.
func (r *mongoTrackRepository) GetAllTracks(ctx context.Context, limit int64) ([]*model.Track, error) {
	return r.findMany(ctx, bson.M{}, limit)
}

// GetTracksByIDs returns the tracks whose ids resolve; ids that no longer
// resolve are simply absent from the result.
func (r *mongoTrackRepository) GetTracksByIDs(ctx context.Context, ids []string) ([]*model.Track, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []*model.Track{}, nil
	}
	return r.findMany(ctx, bson.M{"_id": bson.M{"$in": oids}}, int64(len(oids)))
}

// GetTracksByUploader returns the tracks uploaded by one user.
func (r *mongoTrackRepository) GetTracksByUploader(ctx context.Context, userID string, limit int64) ([]*model.Track, error) {
	return r.findMany(ctx, bson.M{"uploadedBy": userID}, limit)
}

// SearchTracks runs a text search over title/artist/genre.
func (r *mongoTrackRepository) SearchTracks(ctx context.Context, query string, limit int64) ([]*model.Track, error) {
	return r.findMany(ctx, bson.M{"$text": bson.M{"$search": query}}, limit)
}

func (r *mongoTrackRepository) findMany(ctx context.Context, filter bson.M, limit int64) ([]*model.Track, error) {
	col, err := r.mgr.Collection(db.TracksCollection)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}

	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer cursor.Close(ctx)

	tracks := make([]*model.Track, 0)
	if err := cursor.All(ctx, &tracks); err != nil {
		return nil, fmt.Errorf("failed to decode tracks: %w", err)
	}
	return tracks, nil
}

// UpdateTrackCover updates the cover reference for a track. Returns false
// when the id does not resolve.
func (r *mongoTrackRepository) UpdateTrackCover(ctx context.Context, id, coverURL string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	col, err := r.mgr.Collection(db.TracksCollection)
	if err != nil {
		return false, err
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"coverUrl": coverURL}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to update track cover: %w", err)
	}
	return res.MatchedCount == 1, nil
}

// DeleteTrack removes a track document. Returns false when the id does not
// resolve.
func (r *mongoTrackRepository) DeleteTrack(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	col, err := r.mgr.Collection(db.TracksCollection)
	if err != nil {
		return false, err
	}

	res, err := col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("failed to delete track %s: %w", id, err)
	}
	return res.DeletedCount == 1, nil
}
