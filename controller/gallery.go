package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"focusgallery/media"
	"focusgallery/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// MaxUploadSize is the largest accepted image file (8 MiB).
const MaxUploadSize = 8 << 20

// multipart framing and form fields on top of the file itself
const formOverhead = 1 << 20

var allowedContentTypes = map[string]string{
	"image/jpeg": "image/jpeg",
	"image/jpg":  "image/jpeg",
	"image/png":  "image/png",
}

type GalleryStore interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListYears(ctx context.Context, categoryID string) ([]int, error)
	ListImages(ctx context.Context, categoryID string, year, page, perPage int) (*models.ImagePage, error)
	InsertImage(ctx context.Context, img *models.Image) error
}

type Gallery struct {
	store    GalleryStore
	uploader media.Uploader
	folder   string
	validate *validator.Validate
	now      func() time.Time
}

func NewGallery(store GalleryStore, uploader media.Uploader, folder string) *Gallery {
	return &Gallery{
		store:    store,
		uploader: uploader,
		folder:   folder,
		validate: validator.New(),
		now:      time.Now,
	}
}

type yearsQuery struct {
	Category string `form:"category" validate:"required"`
}

type imagesQuery struct {
	Category string `form:"category" validate:"required"`
	Year     int    `form:"year" validate:"required"`
	Page     int    `form:"page,default=1" validate:"min=1"`
	PerPage  int    `form:"per_page,default=5" validate:"min=1,max=20"`
}

type uploadForm struct {
	Category   string `form:"category" validate:"required"`
	Year       int    `form:"year" validate:"required"`
	Tags       string `form:"tags"`
	UploadedBy int64  `form:"uploaded_by" validate:"required"`
}

func (g *Gallery) GetCategories(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	categories, err := g.store.ListCategories(ctx)
	if err != nil {
		slog.Error("List categories failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error getting categories"})
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (g *Gallery) GetYears(c *gin.Context) {
	var q yearsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}
	if err := g.validate.Struct(q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Failed", "details": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	years, err := g.store.ListYears(ctx, q.Category)
	if err != nil {
		slog.Error("List years failed", "category", q.Category, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error getting years"})
		return
	}
	c.JSON(http.StatusOK, years)
}

func (g *Gallery) GetImages(c *gin.Context) {
	var q imagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}
	if err := g.validate.Struct(q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Failed", "details": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	page, err := g.store.ListImages(ctx, q.Category, q.Year, q.Page, q.PerPage)
	if err != nil {
		slog.Error("List images failed", "category", q.Category, "year", q.Year, "page", q.Page, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error getting images"})
		return
	}
	c.JSON(http.StatusOK, page)
}

func (g *Gallery) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+formOverhead)

	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File size exceeds 8 MB limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form data"})
		return
	}
	if err := g.validate.Struct(form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Failed", "details": err.Error()})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File size exceeds 8 MB limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}

	contentType, ok := allowedContentTypes[strings.ToLower(file.Header.Get("Content-Type"))]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type. Only JPG, JPEG, PNG are allowed."})
		return
	}
	if file.Size > MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File size exceeds 8 MB limit"})
		return
	}

	fileContent, err := file.Open()
	if err != nil {
		slog.Error("Open uploaded file failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Image upload failed"})
		return
	}
	defer fileContent.Close()

	sniffed, err := sniffContentType(fileContent)
	if err != nil {
		slog.Error("Read uploaded file failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Image upload failed"})
		return
	}
	if sniffed != contentType {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File content is not a valid JPG or PNG image."})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	stored, err := g.uploader.Upload(ctx, fileContent, file.Size, contentType, g.folder)
	if err != nil {
		slog.Error("Media upload failed", "category", form.Category, "uploaded_by", form.UploadedBy, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Image upload failed"})
		return
	}

	img := &models.Image{
		URL:        stored.URL,
		MediaID:    stored.MediaID,
		CategoryID: form.Category,
		Year:       form.Year,
		Tags:       ParseTags(form.Tags),
		UploadedBy: form.UploadedBy,
		UploadedAt: g.now().UTC(),
	}
	if err := g.store.InsertImage(ctx, img); err != nil {
		slog.Error("Insert image failed", "media_id", stored.MediaID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Image upload failed"})
		return
	}

	slog.Info("Image uploaded", "id", img.ID.Hex(), "category", img.CategoryID, "year", img.Year, "uploaded_by", img.UploadedBy)
	c.JSON(http.StatusOK, img)
}

// ParseTags splits a comma separated tag list, dropping blanks.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// sniffContentType detects the type from the first 512 bytes and rewinds f.
func sniffContentType(f io.ReadSeeker) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
