package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered account.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"` // Not exposed in API responses
	FavoriteIDs  []string           `bson:"favoriteIds" json:"favoriteIds"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
