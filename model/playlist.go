package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Playlist represents a user-curated ordered list of track ids.
type Playlist struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	UserID      string             `bson:"userId" json:"userId"`
	MusicIDs    []string           `bson:"musicIds" json:"musicIds"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
