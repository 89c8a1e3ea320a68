// Package links resolves wiki-links and markdown links to document URIs.
package links

import "strings"

// Class is the shape of a wiki-link token.
type Class int

const (
	Page       Class = iota // [[note]]
	PageHeader              // [[note#Heading]]
	PageBlock               // [[note#^block]]
	Header                  // [[#Heading]]
	Block                   // [[#^block]]
)

func (c Class) String() string {
	switch c {
	case Page:
		return "page"
	case PageHeader:
		return "page-header"
	case PageBlock:
		return "page-block"
	case Header:
		return "header"
	case Block:
		return "block"
	}
	return "unknown"
}

// Target is a classified wiki-link token.
type Target struct {
	Class  Class
	Page   string
	Anchor string // heading text or block id, without '#' or '^'
}

// Classify splits token into its page and anchor parts.
func Classify(token string) Target {
	token = strings.TrimSpace(token)
	page, frag, hasFrag := strings.Cut(token, "#")
	page = strings.TrimSpace(page)
	frag = strings.TrimSpace(frag)

	if !hasFrag || frag == "" {
		return Target{Class: Page, Page: page}
	}
	block := strings.HasPrefix(frag, "^")
	anchor := strings.TrimPrefix(frag, "^")
	switch {
	case page == "" && block:
		return Target{Class: Block, Anchor: anchor}
	case page == "":
		return Target{Class: Header, Anchor: anchor}
	case block:
		return Target{Class: PageBlock, Page: page, Anchor: anchor}
	default:
		return Target{Class: PageHeader, Page: page, Anchor: anchor}
	}
}
