package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/models"
)

func variants(fs ...string) []models.FormatVariant {
	out := make([]models.FormatVariant, 0, len(fs))
	for _, f := range fs {
		out = append(out, models.FormatVariant{Format: f, URL: "/" + f, Width: 100, Height: 50})
	}
	return out
}

func TestSelectVariant_FallbackChain(t *testing.T) {
	tests := []struct {
		name      string
		sizes     map[string][]models.FormatVariant
		preferred string
		size      string
		format    string
	}{
		{"preferred present", map[string][]models.FormatVariant{"lg": variants("webp"), "md": variants("webp")}, "lg", "lg", "webp"},
		{"preferred missing falls to md", map[string][]models.FormatVariant{"md": variants("png"), "sm": variants("webp")}, "xl", "md", "png"},
		{"md missing falls to sm", map[string][]models.FormatVariant{"sm": variants("jpeg"), "lg": variants("webp")}, "", "sm", "jpeg"},
		{"only original", map[string][]models.FormatVariant{"original": variants("png")}, "md", "original", "png"},
		{"empty bucket skipped", map[string][]models.FormatVariant{"md": nil, "lg": variants("webp")}, "md", "lg", "webp"},
		{"webp before jpeg", map[string][]models.FormatVariant{"md": variants("png", "jpg", "webp")}, "md", "md", "webp"},
		{"jpg normalized", map[string][]models.FormatVariant{"md": variants("png", "JPG")}, "md", "md", "JPG"},
		{"first available", map[string][]models.FormatVariant{"md": variants("avif", "png")}, "md", "md", "avif"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, v, ok := SelectVariant(tt.sizes, tt.preferred)
			if !ok {
				t.Fatal("no variant")
			}
			if size != tt.size || v.Format != tt.format {
				t.Errorf("got %s/%s, want %s/%s", size, v.Format, tt.size, tt.format)
			}
		})
	}
}

func TestSizeOrder_NoDuplicates(t *testing.T) {
	got := SizeOrder("md")
	want := []string{"md", "sm", "lg", "original"}
	if len(got) != len(want) {
		t.Fatalf("order = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestResolve_Placeholder(t *testing.T) {
	c := NewCatalog(nil, Options{})
	res := c.Resolve(Reference{Target: "missing.png"}, "notes/a.md")
	if !res.Missing {
		t.Fatal("expected Missing")
	}
	if res.URL != DefaultPlaceholderURL || res.Width != 800 || res.Height != 600 {
		t.Errorf("placeholder = %s %dx%d", res.URL, res.Width, res.Height)
	}
}

func testAssets() []models.MediaAsset {
	return []models.MediaAsset{
		{
			Path: "attachments/cat.png",
			Hash: "abcdef0123",
			Sizes: map[string][]models.FormatVariant{
				"md": {{Format: "webp", URL: "attachments/cat-md.webp", Width: 640, Height: 480}},
			},
		},
		{Path: "trips/photo.jpg", Hash: "1111"},
		{Path: "notes/photo.jpg", Hash: "2222"},
	}
}

func TestResolve_Strategies(t *testing.T) {
	c := NewCatalog(testAssets(), Options{Prefix: "/media"})

	tests := []struct {
		target   string
		doc      string
		strategy string
		path     string
	}{
		{"attachments/cat.png", "a.md", StrategyExact, "attachments/cat.png"},
		{"./Attachments/Cat.png", "a.md", StrategyPath, "attachments/cat.png"},
		{"/attachments/cat%2Epng", "a.md", StrategyPath, "attachments/cat.png"},
		{"cat.png", "x/a.md", StrategyFilename, "attachments/cat.png"},
		{"elsewhere/photo.jpg", "notes/today.md", StrategyFilename, "notes/photo.jpg"},
		{"photo.jpg", "other/today.md", StrategyFilename, "trips/photo.jpg"},
		{"photo.jpg", "trips/day.md", StrategyPath, "trips/photo.jpg"},
	}
	for _, tt := range tests {
		res := c.Resolve(Reference{Target: tt.target}, tt.doc)
		if res.Missing {
			t.Errorf("%s from %s: missing", tt.target, tt.doc)
			continue
		}
		if res.Strategy != tt.strategy || res.Asset.Path != tt.path {
			t.Errorf("%s from %s: %s/%s, want %s/%s", tt.target, tt.doc, res.Strategy, res.Asset.Path, tt.strategy, tt.path)
		}
	}

	res := c.Resolve(Reference{Target: "cat.png"}, "a.md")
	if res.URL != "/media/attachments/cat-md.webp" || res.Width != 640 {
		t.Errorf("url = %s width = %d", res.URL, res.Width)
	}
}

func TestURL_HashAddressing(t *testing.T) {
	c := NewCatalog(testAssets(), Options{Prefix: "/media/", HashAddressing: true, Sharding: true})
	res := c.Resolve(Reference{Target: "attachments/cat.png"}, "a.md")
	if res.URL != "/media/ab/cd/abcdef0123-md.webp" {
		t.Errorf("url = %s", res.URL)
	}

	c = NewCatalog(testAssets(), Options{Prefix: "/media", HashAddressing: true, AbsoluteURLs: true, Domain: "https://example.com/"})
	res = c.Resolve(Reference{Target: "trips/photo.jpg"}, "a.md")
	if res.URL != "https://example.com/media/1111-original.jpeg" {
		t.Errorf("url = %s", res.URL)
	}
}

func TestNewCatalog_SynthesizesOriginal(t *testing.T) {
	in := testAssets()
	c := NewCatalog(in, Options{})
	results := c.Results()
	r, ok := results["trips/photo.jpg"]
	if !ok {
		t.Fatal("missing result")
	}
	if len(r.Variants["original"]) != 1 || r.Variants["original"][0].URL != "/trips/photo.jpg" {
		t.Errorf("original = %+v", r.Variants["original"])
	}
	if r.Type != models.MediaImage {
		t.Errorf("type = %s", r.Type)
	}
	if _, touched := in[0].Sizes["original"]; touched {
		t.Error("caller's asset was modified")
	}
}

func TestParseEmbed(t *testing.T) {
	tests := []struct {
		label string
		alt   string
		w, h  int
	}{
		{"", "", 0, 0},
		{"A cat", "A cat", 0, 0},
		{"300", "", 300, 0},
		{"300x200", "", 300, 200},
		{"0x10", "0x10", 0, 0},
	}
	for _, tt := range tests {
		ref := ParseEmbed("cat.png", tt.label)
		if ref.Alt != tt.alt || ref.Width != tt.w || ref.Height != tt.h {
			t.Errorf("label %q: %+v", tt.label, ref)
		}
	}
	if got := ParseEmbed("cat.png", "300").Raw; got != "![[cat.png|300]]" {
		t.Errorf("raw = %s", got)
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]models.MediaType{
		"a.PNG":      models.MediaImage,
		"clip.mp4":   models.MediaVideo,
		"song.mp3":   models.MediaAudio,
		"paper.pdf":  models.MediaOther,
		"x.webp#top": models.MediaImage,
	}
	for in, want := range cases {
		if got := Classify(in); got != want {
			t.Errorf("Classify(%s) = %s, want %s", in, got, want)
		}
	}
	if IsMedia("Some Note") || IsMedia("note.md") || !IsMedia("file.pdf") {
		t.Error("IsMedia mismatch")
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "media.json")
	if err := os.WriteFile(file, []byte(`[{"path":"a.png","hash":"ff","sizes":{"sm":[{"format":"webp","url":"a-sm.webp","width":10,"height":5}]}}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	assets, err := LoadManifest(file)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(assets) != 1 || assets[0].Sizes["sm"][0].Width != 10 {
		t.Errorf("assets = %+v", assets)
	}

	missing, err := LoadManifest(filepath.Join(dir, "nope.json"))
	if err != nil || missing != nil {
		t.Errorf("missing manifest = %v, %v", missing, err)
	}

	if _, err := ParseManifest([]byte(`[{"hash":"x"}]`)); err == nil {
		t.Error("expected error for entry without path")
	}
}
