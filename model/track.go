package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Track represents an audio track in the catalog.
// AudioKey and UploadedBy are set on creation and never updated.
type Track struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title      string             `bson:"title" json:"title"`
	Artist     string             `bson:"artist" json:"artist"`
	Genre      string             `bson:"genre" json:"genre"`
	Duration   int                `bson:"duration" json:"duration"` // Duration in seconds
	CoverURL   string             `bson:"coverUrl,omitempty" json:"coverUrl,omitempty"`
	AudioKey   string             `bson:"audioUrl" json:"audioUrl"` // Opaque blob locator
	UploadedBy string             `bson:"uploadedBy" json:"uploadedBy"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
