package database

import (
	"fmt"
	"os"

	"focusgallery/models"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var DefaultCategories = []models.Category{
	{ID: "gc-day", Name: "GC day"},
	{ID: "praise-night", Name: "Praise night"},
	{ID: "go-focus", Name: "Go Focus"},
	{ID: "easter", Name: "Easter"},
	{ID: "manuscript", Name: "Manuscript"},
}

type seedFile struct {
	Categories []models.Category `yaml:"categories"`
}

// LoadSeedFile reads the category catalogue from a YAML file. An empty path
// yields DefaultCategories.
func LoadSeedFile(path string) ([]models.Category, error) {
	if path == "" {
		return DefaultCategories, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]models.Category, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("seed file has no categories")
	}

	validate := validator.New()
	seen := make(map[string]bool, len(file.Categories))
	for i, category := range file.Categories {
		if err := validate.Struct(category); err != nil {
			return nil, fmt.Errorf("category %d: %w", i, err)
		}
		if seen[category.ID] {
			return nil, fmt.Errorf("duplicate category id %q", category.ID)
		}
		seen[category.ID] = true
	}
	return file.Categories, nil
}
