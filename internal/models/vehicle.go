package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// Vehicle represents a registered vehicle tracked by the maintenance engine.
type Vehicle struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Make        string             `bson:"make" json:"make"`
	Model       string             `bson:"model" json:"model"`
	Year        int                `bson:"year" json:"year"`
	PlateNumber string             `bson:"plate_number" json:"plate_number"`
	VIN         string             `bson:"vin,omitempty" json:"vin,omitempty"`
	Status      string             `bson:"status" json:"status"` // "active" or "inactive"
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
