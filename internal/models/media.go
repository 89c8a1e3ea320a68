package models

// MediaType classifies a media reference by its extension.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
	MediaOther MediaType = "other"
)

// FormatVariant is one encoded rendition of a size bucket.
type FormatVariant struct {
	Format string `json:"format"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MediaAsset is one optimized media item produced by the external
// image-processing step.
type MediaAsset struct {
	Path          string                     `json:"path"`
	EffectivePath string                     `json:"effective_path,omitempty"`
	Hash          string                     `json:"hash"`
	HashPath      string                     `json:"hash_path,omitempty"`
	Type          MediaType                  `json:"type,omitempty"`
	Sizes         map[string][]FormatVariant `json:"sizes"`
}

// MediaResult is the publishing view of an asset: every size/format with its
// final URL.
type MediaResult struct {
	Path     string                     `json:"path"`
	Hash     string                     `json:"hash"`
	Type     MediaType                  `json:"type"`
	Variants map[string][]FormatVariant `json:"variants"`
}
