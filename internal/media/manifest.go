package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/starford/ansuz/internal/models"
)

// LoadManifest reads the JSON array of assets written by the image
// processing step. A missing file yields an empty list.
func LoadManifest(file string) ([]models.MediaAsset, error) {
	if file == "" {
		return nil, nil
	}
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("media: read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes a manifest document.
func ParseManifest(data []byte) ([]models.MediaAsset, error) {
	var assets []models.MediaAsset
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, fmt.Errorf("media: parse manifest: %w", err)
	}
	for i := range assets {
		if assets[i].Path == "" {
			return nil, fmt.Errorf("media: manifest entry %d has no path", i)
		}
	}
	return assets, nil
}
