package media

import (
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// SizeOriginal is the bucket every asset carries.
const SizeOriginal = "original"

// fallbackSizes is tried after the preferred size.
var fallbackSizes = []string{"md", "sm", "lg", SizeOriginal}

// preferredFormats is the fixed format preference.
var preferredFormats = []string{"webp", "jpeg"}

// SizeOrder returns the size buckets to try, preferred first, without
// duplicates.
func SizeOrder(preferred string) []string {
	order := make([]string, 0, len(fallbackSizes)+1)
	seen := make(map[string]bool, len(fallbackSizes)+1)
	for _, s := range append([]string{preferred}, fallbackSizes...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		order = append(order, s)
	}
	return order
}

// NormalizeFormat lowercases f and maps "jpg" to "jpeg".
func NormalizeFormat(f string) string {
	f = strings.ToLower(strings.TrimPrefix(f, "."))
	if f == "jpg" {
		return "jpeg"
	}
	return f
}

// SelectVariant picks the best variant from sizes: the first non-empty size
// bucket in SizeOrder(preferred), then webp, then jpeg, then the first
// listed format.
func SelectVariant(sizes map[string][]models.FormatVariant, preferred string) (string, models.FormatVariant, bool) {
	for _, size := range SizeOrder(preferred) {
		variants := sizes[size]
		if len(variants) == 0 {
			continue
		}
		return size, pickFormat(variants), true
	}
	return "", models.FormatVariant{}, false
}

func pickFormat(variants []models.FormatVariant) models.FormatVariant {
	for _, want := range preferredFormats {
		for _, v := range variants {
			if NormalizeFormat(v.Format) == want {
				return v
			}
		}
	}
	return variants[0]
}
