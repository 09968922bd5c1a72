package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	DefaultPerPage = 5
	MaxPerPage     = 20
)

// Image is one uploaded picture: metadata in MongoDB, bytes in the media store.
type Image struct {
	ID         bson.ObjectID `json:"id" bson:"_id,omitempty"`
	URL        string        `json:"url" bson:"url"`
	MediaID    string        `json:"media_id" bson:"media_id"` // key inside the media store
	CategoryID string        `json:"category_id" bson:"category_id"`
	Year       int           `json:"year" bson:"year"`
	Tags       []string      `json:"tags" bson:"tags"`
	UploadedBy int64         `json:"uploaded_by" bson:"uploaded_by"`
	UploadedAt time.Time     `json:"uploaded_at" bson:"uploaded_at"`
}

// ImagePage is one page of images for a (category, year) pair.
type ImagePage struct {
	TotalCount int64   `json:"total_count"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	Items      []Image `json:"items"`
}

// TotalPages is ceil(TotalCount / PerPage).
func (p *ImagePage) TotalPages() int {
	return TotalPages(p.TotalCount, p.PerPage)
}

func TotalPages(total int64, perPage int) int {
	if perPage < 1 || total <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// UploadRequest carries the form fields sent alongside an image file.
type UploadRequest struct {
	Category   string
	Year       int
	Tags       string
	UploadedBy int64
}
