package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fieldsight/location-engine/internal/core/domain"
)

type taxonomyFile struct {
	Categories []domain.Category `yaml:"categories"`
}

// LoadTaxonomy reads the category taxonomy override from a YAML file. An
// empty path selects the built-in taxonomy.
func LoadTaxonomy(path string) ([]domain.Category, error) {
	if path == "" {
		return domain.DefaultTaxonomy(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy file: %w", err)
	}

	var file taxonomyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse taxonomy file: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("taxonomy file %s defines no categories", path)
	}
	for i, category := range file.Categories {
		if category.Name == "" {
			return nil, fmt.Errorf("taxonomy file %s: category %d has no name", path, i)
		}
	}
	return file.Categories, nil
}
