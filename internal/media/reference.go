package media

import (
	"path"
	"strconv"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

var extTypes = map[string]models.MediaType{
	".png": models.MediaImage, ".jpg": models.MediaImage, ".jpeg": models.MediaImage,
	".gif": models.MediaImage, ".webp": models.MediaImage, ".avif": models.MediaImage,
	".svg": models.MediaImage, ".bmp": models.MediaImage, ".ico": models.MediaImage,
	".tif": models.MediaImage, ".tiff": models.MediaImage, ".heic": models.MediaImage,

	".mp4": models.MediaVideo, ".webm": models.MediaVideo, ".mov": models.MediaVideo,
	".mkv": models.MediaVideo, ".ogv": models.MediaVideo, ".m4v": models.MediaVideo,

	".mp3": models.MediaAudio, ".wav": models.MediaAudio, ".ogg": models.MediaAudio,
	".m4a": models.MediaAudio, ".flac": models.MediaAudio, ".aac": models.MediaAudio,
	".opus": models.MediaAudio,
}

// Classify returns the media type for the extension of p.
func Classify(p string) models.MediaType {
	if t, ok := extTypes[strings.ToLower(path.Ext(stripFragment(p)))]; ok {
		return t
	}
	return models.MediaOther
}

// IsMedia reports whether an embed target refers to a file other than a note.
func IsMedia(target string) bool {
	ext := strings.ToLower(path.Ext(stripFragment(target)))
	return ext != "" && ext != ".md"
}

// Reference is one media occurrence in a document.
type Reference struct {
	// Raw is the source text of the occurrence.
	Raw string
	// Target is the referenced path as written.
	Target string
	Alt    string
	Width  int
	Height int
	// Wiki is set for ![[...]] embeds.
	Wiki bool
}

// ParseEmbed builds a Reference from a wiki embed target and its label.
// A label of the form "300" or "300x200" is a size hint, anything else is
// alt text.
func ParseEmbed(target, label string) Reference {
	ref := Reference{Target: strings.TrimSpace(target), Wiki: true}
	ref.Raw = "![[" + ref.Target
	if label != "" {
		ref.Raw += "|" + label
	}
	ref.Raw += "]]"

	label = strings.TrimSpace(label)
	if w, h, ok := parseSize(label); ok {
		ref.Width, ref.Height = w, h
		return ref
	}
	if label != ref.Target {
		ref.Alt = label
	}
	return ref
}

func parseSize(s string) (int, int, bool) {
	if s == "" {
		return 0, 0, false
	}
	ws, hs, hasH := strings.Cut(strings.ToLower(s), "x")
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, false
	}
	if !hasH {
		return w, 0, true
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

func stripFragment(p string) string {
	if i := strings.IndexAny(p, "#?"); i >= 0 {
		return p[:i]
	}
	return p
}
