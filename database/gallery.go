package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"focusgallery/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrStoreUnavailable wraps every failure coming back from MongoDB.
var ErrStoreUnavailable = errors.New("gallery store unavailable")

const (
	categoriesCollection = "categories"
	imagesCollection     = "images"
)

type GalleryStore struct {
	categories *mongo.Collection
	images     *mongo.Collection
	now        func() time.Time
}

func NewGalleryStore(db *mongo.Database) *GalleryStore {
	return &GalleryStore{
		categories: db.Collection(categoriesCollection),
		images:     db.Collection(imagesCollection),
		now:        time.Now,
	}
}

func (s *GalleryStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.categories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("%w: category index: %w", ErrStoreUnavailable, err)
	}

	_, err = s.images.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category_id", Value: 1}, {Key: "year", Value: 1}}},
		{Keys: bson.D{{Key: "uploaded_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("%w: image indexes: %w", ErrStoreUnavailable, err)
	}

	slog.Info("Database indexes ensured")
	return nil
}

// SeedCategories inserts categories that do not exist yet; existing ones are
// left untouched so created_at stays stable across restarts.
func (s *GalleryStore) SeedCategories(ctx context.Context, categories []models.Category) error {
	now := s.now().UTC()
	for _, category := range categories {
		_, err := s.categories.UpdateOne(
			ctx,
			bson.M{"id": category.ID},
			bson.M{"$setOnInsert": bson.M{
				"id":         category.ID,
				"name":       category.Name,
				"created_at": now,
			}},
			options.UpdateOne().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("%w: seed %q: %w", ErrStoreUnavailable, category.ID, err)
		}
	}
	slog.Info("Seeded categories", "count", len(categories))
	return nil
}

func (s *GalleryStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	cursor, err := s.categories.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("%w: find categories: %w", ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	categories := []models.Category{}
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("%w: decode categories: %w", ErrStoreUnavailable, err)
	}
	return categories, nil
}

// ListYears returns the distinct years that have at least one image in the
// category, newest first.
func (s *GalleryStore) ListYears(ctx context.Context, categoryID string) ([]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"category_id": categoryID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "years": bson.M{"$addToSet": "$year"}}}},
	}
	cursor, err := s.images.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%w: aggregate years: %w", ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Years []int `bson:"years"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("%w: decode years: %w", ErrStoreUnavailable, err)
	}

	years := []int{}
	if len(result) > 0 {
		years = append(years, result[0].Years...)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

func (s *GalleryStore) ListImages(ctx context.Context, categoryID string, year, page, perPage int) (*models.ImagePage, error) {
	filter := bson.M{"category_id": categoryID, "year": year}

	total, err := s.images.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: count images: %w", ErrStoreUnavailable, err)
	}

	skip := (page - 1) * perPage
	findOptions := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(perPage)).
		SetSort(bson.D{{Key: "uploaded_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := s.images.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: find images: %w", ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	items := []models.Image{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("%w: decode images: %w", ErrStoreUnavailable, err)
	}

	return &models.ImagePage{
		TotalCount: total,
		Page:       page,
		PerPage:    perPage,
		Items:      items,
	}, nil
}

// InsertImage stores img and fills in its ID.
func (s *GalleryStore) InsertImage(ctx context.Context, img *models.Image) error {
	img.ID = bson.NewObjectID()
	if img.Tags == nil {
		img.Tags = []string{}
	}
	if _, err := s.images.InsertOne(ctx, img); err != nil {
		return fmt.Errorf("%w: insert image: %w", ErrStoreUnavailable, err)
	}
	return nil
}
