package db

import (
	"context"

	"musicstream/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// indexSpec pairs a collection with one index definition.
type indexSpec struct {
	name       string
	collection string
	model      mongo.IndexModel
}

// indexSpecs is the index contract: a unique index on users.email, a text
// index over track metadata for search, and secondary indexes backing the
// common list queries.
func indexSpecs() []indexSpec {
	return []indexSpec{
		{
			name:       "users_email_unique",
			collection: UsersCollection,
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			name:       "tracks_text_search",
			collection: TracksCollection,
			model: mongo.IndexModel{
				Keys: bson.D{
					{Key: "title", Value: "text"},
					{Key: "artist", Value: "text"},
					{Key: "genre", Value: "text"},
				},
			},
		},
		{
			name:       "tracks_uploaded_by",
			collection: TracksCollection,
			model:      mongo.IndexModel{Keys: bson.D{{Key: "uploadedBy", Value: 1}}},
		},
		{
			name:       "tracks_created_at",
			collection: TracksCollection,
			model:      mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: 1}}},
		},
		{
			name:       "playlists_user_id",
			collection: PlaylistsCollection,
			model:      mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		{
			name:       "playlists_created_at",
			collection: PlaylistsCollection,
			model:      mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: 1}}},
		},
	}
}

// EnsureIndexes establishes the index contract. It is idempotent and never
// fails startup: an index that cannot be created degrades query performance,
// not correctness, so failures are recorded on the manager and surfaced
// through HealthSnapshot instead of returned.
func (m *Manager) EnsureIndexes(ctx context.Context) {
	database := m.Database()
	if database == nil {
		return
	}

	var missing []string
	for _, spec := range indexSpecs() {
		_, err := database.Collection(spec.collection).Indexes().CreateOne(ctx, spec.model)
		if err != nil {
			logger.Warn("failed to create index",
				logger.String("index", spec.name),
				logger.String("collection", spec.collection),
				logger.ErrorField(err))
			missing = append(missing, spec.name)
			continue
		}
	}

	m.SetMissingIndexes(missing)
	if len(missing) == 0 {
		logger.Info("all indexes ensured")
	}
}
