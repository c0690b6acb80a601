package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is an immutable reference to an uploaded KYC asset. Documents
// are created inside the same transaction as the customer that owns them
// and never mutated afterwards.
type Document struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	URL       string             `json:"url" bson:"url"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}
