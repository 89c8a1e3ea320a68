// Package frontmatter separates structured metadata blocks from Markdown
// bodies and exposes the metadata as an ordered mapping.
package frontmatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	adrg "github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// Frontmatter is an ordered key/value mapping. The zero value and nil are
// both valid empty mappings.
type Frontmatter struct {
	keys   []string
	values map[string]any
}

// New returns an empty Frontmatter.
func New() *Frontmatter {
	return &Frontmatter{values: map[string]any{}}
}

// Set stores value under key, keeping the first insertion position.
func (f *Frontmatter) Set(key string, value any) {
	if f.values == nil {
		f.values = map[string]any{}
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Len returns the number of keys.
func (f *Frontmatter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Keys returns the keys in source order.
func (f *Frontmatter) Keys() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.keys...)
}

// Get returns the raw value for key.
func (f *Frontmatter) Get(key string) (any, bool) {
	if f == nil || f.values == nil {
		return nil, false
	}
	v, ok := f.values[key]
	return v, ok
}

// String returns key as a trimmed string. Numbers and booleans are formatted.
func (f *Frontmatter) String(key string) string {
	v, ok := f.Get(key)
	if !ok || v == nil {
		return ""
	}
	return scalarString(v)
}

// Bool reports whether key holds true (or the strings "true"/"yes").
func (f *Frontmatter) Bool(key string) bool {
	v, ok := f.Get(key)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes":
			return true
		}
	}
	return false
}

// StringList returns key as a list of non-empty strings. A scalar value is
// treated as a one-element list.
func (f *Frontmatter) StringList(key string) []string {
	v, ok := f.Get(key)
	if !ok || v == nil {
		return nil
	}
	var out []string
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			if item == nil {
				continue
			}
			if s := scalarString(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range list {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := scalarString(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Map returns a plain copy of the mapping.
func (f *Frontmatter) Map() map[string]any {
	if f.Len() == 0 {
		return nil
	}
	out := make(map[string]any, len(f.keys))
	for _, k := range f.keys {
		out[k] = f.values[k]
	}
	return out
}

// MarshalJSON encodes the mapping as a JSON object in source key order.
func (f *Frontmatter) MarshalJSON() ([]byte, error) {
	if f.Len() == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(f.values[k])
		if err != nil {
			return nil, fmt.Errorf("frontmatter: encode %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping its key order.
func (f *Frontmatter) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("frontmatter: expected object, got %v", tok)
	}
	*f = Frontmatter{values: map[string]any{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("frontmatter: decode %q: %w", key, err)
		}
		f.Set(key, normalize(value))
	}
	_, err = dec.Token()
	return err
}

// normalize turns decoded values into JSON-encodable ones. YAML mappings
// with non-string keys decode to map[any]any; their keys are formatted.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, x := range t {
			t[k] = normalize(x)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[fmt.Sprint(k)] = normalize(x)
		}
		return out
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = normalize(t[i])
		}
		return out
	}
	return v
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case fmt.Stringer:
		return s.String()
	}
	return ""
}

// MalformedError reports a frontmatter block that could not be decoded. The
// caller still receives the untouched text as body.
type MalformedError struct {
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return "frontmatter: " + e.Reason + ": " + e.Err.Error()
	}
	return "frontmatter: " + e.Reason
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Split separates a leading frontmatter block from the Markdown body.
//
// A YAML block must open with a "---" line at offset 0 and close with a
// "---" or "..." line. TOML ("+++") and JSON (";;;" or a leading "{"
// line) blocks are also recognised. Without a block the text is returned unchanged with an empty
// mapping. A malformed block yields an empty mapping, the original text and
// a *MalformedError.
func Split(data []byte) (string, *Frontmatter, error) {
	content := bytes.TrimPrefix(data, []byte("\ufeff"))

	switch firstLine(content) {
	case "---":
		return splitYAML(data, content)
	case "+++", ";;;":
		return splitOther(data, content)
	case "{":
		return splitJSON(data, content)
	}
	return string(data), New(), nil
}

func splitYAML(original, content []byte) (string, *Frontmatter, error) {
	rest := content[bytes.IndexByte(content, '\n')+1:]

	var block []byte
	var body []byte
	closed := false
	for offset := 0; offset < len(rest); {
		end := bytes.IndexByte(rest[offset:], '\n')
		var line []byte
		next := len(rest)
		if end >= 0 {
			line = rest[offset : offset+end]
			next = offset + end + 1
		} else {
			line = rest[offset:]
		}
		trimmed := strings.TrimRight(string(line), " \t\r")
		if trimmed == "---" || trimmed == "..." {
			block = rest[:offset]
			body = rest[next:]
			closed = true
			break
		}
		offset = next
	}
	if !closed {
		return string(original), New(), &MalformedError{Reason: "missing closing delimiter"}
	}

	fm, err := decodeYAML(block)
	if err != nil {
		return string(original), New(), err
	}
	return strings.TrimLeft(string(body), "\r\n"), fm, nil
}

func decodeYAML(block []byte) (*Frontmatter, error) {
	fm := New()
	var root yaml.Node
	if err := yaml.Unmarshal(block, &root); err != nil {
		return nil, &MalformedError{Reason: "invalid yaml", Err: err}
	}
	if root.Kind == 0 {
		return fm, nil
	}
	doc := &root
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return fm, nil
		}
		doc = doc.Content[0]
	}
	if doc.Kind == yaml.ScalarNode && doc.Tag == "!!null" {
		return fm, nil
	}
	if doc.Kind != yaml.MappingNode {
		return nil, &MalformedError{Reason: "top level is not a mapping"}
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i].Value
		var value any
		if err := doc.Content[i+1].Decode(&value); err != nil {
			return nil, &MalformedError{Reason: fmt.Sprintf("invalid value for %q", key), Err: err}
		}
		fm.Set(key, normalize(value))
	}
	return fm, nil
}

// splitOther handles TOML and JSON blocks. Key order is not preserved by
// those decoders, so keys are sorted.
func splitOther(original, content []byte) (string, *Frontmatter, error) {
	var values map[string]any
	body, err := adrg.Parse(bytes.NewReader(content), &values)
	if err != nil {
		return string(original), New(), &MalformedError{Reason: "invalid frontmatter block", Err: err}
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fm := New()
	for _, k := range keys {
		fm.Set(k, normalize(values[k]))
	}
	return strings.TrimLeft(string(body), "\r\n"), fm, nil
}

// splitJSON handles a bare JSON object opening the document. The object
// ends wherever the decoder stops, and its key order is kept.
func splitJSON(original, content []byte) (string, *Frontmatter, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return string(original), New(), &MalformedError{Reason: "invalid json", Err: err}
	}
	fm := New()
	if err := fm.UnmarshalJSON(raw); err != nil {
		return string(original), New(), &MalformedError{Reason: "invalid json", Err: err}
	}
	body := content[dec.InputOffset():]
	return strings.TrimLeft(string(body), " \t\r\n"), fm, nil
}

func firstLine(data []byte) string {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	} else {
		// A lone delimiter without a newline cannot open a block.
		return ""
	}
	return strings.TrimRight(string(line), " \t\r")
}
