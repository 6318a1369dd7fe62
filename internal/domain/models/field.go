package models

import "time"

// Field is the subset of a farmer's field record the marketplace relies on.
type Field struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	UserID    string    `bson:"userId" json:"userId"`
	Name      string    `bson:"name" json:"name"`
	Location  string    `bson:"location" json:"location"`
	SoilType  string    `bson:"soilType" json:"soilType"`
	Crop      string    `bson:"crop,omitempty" json:"crop,omitempty"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
