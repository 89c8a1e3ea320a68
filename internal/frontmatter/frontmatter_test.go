package frontmatter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestSplit_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\npublic: true\ntags:\n  - go\n  - ansuz\n---\n# Hello\nBody text.\n")
	body, fm, err := Split(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", body)
	}
	if fm.String("title") != "Hello" {
		t.Errorf("title = %q", fm.String("title"))
	}
	if !fm.Bool("public") {
		t.Error("public should be true")
	}
	tags := fm.StringList("tags")
	if len(tags) != 2 || tags[0] != "go" || tags[1] != "ansuz" {
		t.Errorf("tags = %v", tags)
	}
}

func TestSplit_PreservesKeyOrder(t *testing.T) {
	input := []byte("---\nzeta: 1\nalpha: 2\nmid: three\n---\nbody")
	_, fm, err := Split(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	keys := fm.Keys()
	want := []string{"zeta", "alpha", "mid"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("keys = %v, want %v", keys, want)
	}
	out, err := fm.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(out) != `{"zeta":1,"alpha":2,"mid":"three"}` {
		t.Errorf("json = %s", out)
	}
}

func TestSplit_NoFrontmatter(t *testing.T) {
	input := "# Just a heading\nSome text.\n"
	body, fm, err := Split([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fm.Len() != 0 {
		t.Errorf("expected empty frontmatter, got %v", fm.Keys())
	}
	if body != input {
		t.Errorf("body changed: %q", body)
	}
}

func TestSplit_NotAtOffsetZero(t *testing.T) {
	input := "\n---\ntitle: x\n---\nbody"
	body, fm, err := Split([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fm.Len() != 0 || body != input {
		t.Errorf("block not at offset 0 must be left in the body")
	}
}

func TestSplit_InvalidYAMLFallback(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	body, fm, err := Split([]byte(input))
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedError, got %v", err)
	}
	if fm.Len() != 0 {
		t.Errorf("expected empty frontmatter on invalid YAML")
	}
	if body != input {
		t.Errorf("raw text should be preserved, got %q", body)
	}
}

func TestSplit_Unclosed(t *testing.T) {
	input := "---\ntitle: x\nno closing line"
	body, _, err := Split([]byte(input))
	if err == nil {
		t.Fatal("expected error for unclosed block")
	}
	if body != input {
		t.Errorf("body = %q", body)
	}
}

func TestSplit_ScalarTopLevelIsMalformed(t *testing.T) {
	_, _, err := Split([]byte("---\njust a string\n---\nbody"))
	if err == nil {
		t.Fatal("expected error for non-mapping frontmatter")
	}
}

func TestSplit_EmptyBlock(t *testing.T) {
	body, fm, err := Split([]byte("---\n---\nbody"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fm.Len() != 0 || body != "body" {
		t.Errorf("fm=%v body=%q", fm.Keys(), body)
	}
}

func TestStringList_ScalarAndNil(t *testing.T) {
	fm := New()
	fm.Set("alias", "Fido")
	fm.Set("count", 3)
	if got := fm.StringList("alias"); len(got) != 1 || got[0] != "Fido" {
		t.Errorf("alias = %v", got)
	}
	if got := fm.String("count"); got != "3" {
		t.Errorf("count = %q", got)
	}
	var nilFM *Frontmatter
	if nilFM.String("x") != "" || nilFM.Len() != 0 || nilFM.StringList("x") != nil {
		t.Error("nil frontmatter should behave as empty")
	}
}

func TestTags_InlineAndFrontmatter(t *testing.T) {
	fm := New()
	fm.Set("tags", []any{"alpha"})
	body := "Some text #beta and #alpha again."
	tags := Tags(fm, body)
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
}

func TestTitle_FrontmatterOverH1(t *testing.T) {
	fm := New()
	fm.Set("title", "FM Title")
	if got := Title(fm, "# H1 Title\ntext", "file"); got != "FM Title" {
		t.Errorf("title = %q, want %q", got, "FM Title")
	}
}

func TestTitle_H1FallbackSkipsCode(t *testing.T) {
	body := "```\n# not a heading\n```\nsome text\n# My Heading\nmore"
	if got := Title(nil, body, "file"); got != "My Heading" {
		t.Errorf("title = %q, want %q", got, "My Heading")
	}
	if got := Title(nil, "plain", "file"); got != "file" {
		t.Errorf("title = %q, want fallback", got)
	}
}

func TestAliases(t *testing.T) {
	fm := New()
	fm.Set("aliases", []any{"Fido", "Doggo"})
	fm.Set("alias", "Rex")
	got := Aliases(fm)
	if strings.Join(got, ",") != "Fido,Doggo,Rex" {
		t.Errorf("aliases = %v", got)
	}
}

func TestSplit_NonStringKeysEncode(t *testing.T) {
	input := []byte("---\nratings:\n  2023: good\n  true: yes\n---\nbody\n")
	_, fm, err := Split(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := json.Marshal(fm)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"ratings":{"2023":"good","true":"yes"}}` {
		t.Errorf("json = %s", out)
	}
}

func TestSplit_JSONObjectBlock(t *testing.T) {
	input := []byte("{\n  \"zeta\": \"z\",\n  \"title\": \"From JSON\",\n  \"public\": true\n}\n\n# Heading\n")
	body, fm, err := Split(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "# Heading\n" {
		t.Errorf("body = %q", body)
	}
	if strings.Join(fm.Keys(), ",") != "zeta,title,public" {
		t.Errorf("keys = %v", fm.Keys())
	}
	if fm.String("title") != "From JSON" || !fm.Bool("public") {
		t.Errorf("values = %v", fm.Map())
	}
}

func TestSplit_JSONObjectBlockMalformed(t *testing.T) {
	input := "{\n  \"title\": \n# oops\n"
	body, fm, err := Split([]byte(input))
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedError, got %v", err)
	}
	if fm.Len() != 0 || body != input {
		t.Errorf("malformed block must leave the text untouched")
	}
}

func TestUnmarshalJSON_KeepsOrder(t *testing.T) {
	var fm Frontmatter
	if err := json.Unmarshal([]byte(`{"b":1,"a":{"x":true},"c":["y"]}`), &fm); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if strings.Join(fm.Keys(), ",") != "b,a,c" {
		t.Errorf("keys = %v", fm.Keys())
	}
	out, err := json.Marshal(&fm)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"b":1,"a":{"x":true},"c":["y"]}` {
		t.Errorf("json = %s", out)
	}
}
