package build

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/pipeline"
	"github.com/starford/ansuz/internal/slug"
	"github.com/starford/ansuz/internal/vault"
)

// Options are the build-wide settings. They are validated once before any
// document is processed.
type Options struct {
	NotesPrefix    string   `yaml:"notes_prefix"`
	AssetsPrefix   string   `yaml:"assets_prefix"`
	MediaPrefix    string   `yaml:"media_prefix"`
	Domain         string   `yaml:"domain"`
	AbsoluteURLs   bool     `yaml:"absolute_urls"`
	PreferredSize  string   `yaml:"preferred_size"`
	SlugStrategy   string   `yaml:"slug_strategy"`
	SlugNonce      string   `yaml:"slug_nonce"`
	IndexName      string   `yaml:"index_name"`
	Passes         []string `yaml:"passes"`
	EnableVideo    bool     `yaml:"enable_video"`
	EnableAudio    bool     `yaml:"enable_audio"`
	HashAddressing bool     `yaml:"hash_addressing"`
	Sharding       bool     `yaml:"sharding"`
	HashAlgorithm  string   `yaml:"hash_algorithm"`
	Sanitize       bool     `yaml:"sanitize"`
	HighlightStyle string   `yaml:"highlight_style"`
	ExcerptLength  int      `yaml:"excerpt_length"`
	Workers        int      `yaml:"workers"`
}

// DefaultOptions returns options with every pass enabled and numeric slug
// collision suffixes.
func DefaultOptions() Options {
	return Options{
		NotesPrefix:    "/",
		AssetsPrefix:   "/assets",
		MediaPrefix:    "/media",
		PreferredSize:  "md",
		SlugStrategy:   slug.StrategyNumber,
		IndexName:      vault.DefaultIndexName,
		HashAlgorithm:  "sha256",
		HighlightStyle: "github",
		ExcerptLength:  200,
	}
}

// Validate reports configuration errors wrapped in apperr.ErrInvalidConfig.
func (o *Options) Validate() error {
	passes := make([]interface{}, 0, len(pipeline.PassNames()))
	for _, p := range pipeline.PassNames() {
		passes = append(passes, p)
	}
	err := validation.ValidateStruct(o,
		validation.Field(&o.SlugStrategy, validation.In(slug.StrategyNumber, slug.StrategyHash)),
		validation.Field(&o.SlugNonce, validation.When(o.SlugStrategy != slug.StrategyHash,
			validation.Empty.Error("is only used by the hash slug strategy"))),
		validation.Field(&o.HashAlgorithm, validation.In("sha256", "blake3")),
		validation.Field(&o.PreferredSize, validation.In("sm", "md", "lg", "original")),
		validation.Field(&o.Domain, validation.When(o.AbsoluteURLs, validation.Required)),
		validation.Field(&o.Sharding, validation.When(!o.HashAddressing,
			validation.Empty.Error("requires hash_addressing"))),
		validation.Field(&o.Passes, validation.Each(validation.In(passes...))),
		validation.Field(&o.Workers, validation.Min(0)),
		validation.Field(&o.ExcerptLength, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("%w: build: %v", apperr.ErrInvalidConfig, err)
	}
	return nil
}
