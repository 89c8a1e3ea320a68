package frontmatter

import (
	"regexp"
	"strings"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Title returns the frontmatter "title" if present, otherwise the first H1
// heading of body, otherwise fallback.
func Title(fm *Frontmatter, body, fallback string) string {
	if t := fm.String("title"); t != "" {
		return t
	}
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return fallback
}

// Tags collects tags from the frontmatter "tags" field followed by inline
// #tags in body, without duplicates.
func Tags(fm *Frontmatter, body string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, t := range fm.StringList("tags") {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// Aliases returns the declared aliases from "aliases" or "alias".
func Aliases(fm *Frontmatter) []string {
	out := fm.StringList("aliases")
	out = append(out, fm.StringList("alias")...)
	return out
}
