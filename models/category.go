package models

import "time"

// Category ids travel in chat button data ("category_<id>"), which is
// limited to 64 bytes.
type Category struct {
	ID        string    `json:"id" bson:"id" yaml:"id" validate:"required,printascii,max=55"`
	Name      string    `json:"name" bson:"name" yaml:"name" validate:"required"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" yaml:"-"`
}
