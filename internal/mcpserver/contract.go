package mcpserver

// VaultFormat describes the Markdown dialect the compiler understands, for
// LLM consumers writing or reviewing vault documents.
const VaultFormat = `# Ansuz Vault Format

A vault is a directory tree of Markdown files. Every ` + "`" + `.md` + "`" + ` file becomes one
page; hidden files and folders (leading ` + "`" + `.` + "`" + `) are ignored.

## Frontmatter

` + "```" + `markdown
---
title: Human-readable title     # OPTIONAL – falls back to the first H1, then the file name
slug: custom-url                # OPTIONAL – requested URL; collisions get a numeric suffix
aliases: [Other Name, Nick]     # OPTIONAL – extra names that [[wiki-links]] resolve to
tags: [go, notes]               # OPTIONAL – inline #tags in the body are collected too
public: true                    # OPTIONAL – visibility flag carried into the output
---
` + "```" + `

A malformed frontmatter block is reported as a diagnostic and the file is
rendered without metadata.

## Slugs

1. ` + "`" + `slug` + "`" + ` from frontmatter, slugified.
2. A folder's ` + "`" + `index.md` + "`" + ` takes the folder name (` + "`" + `blog/index.md` + "`" + ` is ` + "`" + `/blog` + "`" + `)
   unless the folder also has a ` + "`" + `README.md` + "`" + ` or ` + "`" + `_index.md` + "`" + `.
3. Otherwise the file name, slugified.

Duplicates keep the first claimant (in path order); later ones become
` + "`" + `name2` + "`" + `, ` + "`" + `name3` + "`" + ` and so on.

## Links

- ` + "`" + `[[Page]]` + "`" + `, ` + "`" + `[[Page|label]]` + "`" + `: resolved by slug, then alias, then file name,
  then vault path. Ties prefer the linking document's folder.
- ` + "`" + `[[Page#Heading]]` + "`" + `, ` + "`" + `[[Page#^block]]` + "`" + `, ` + "`" + `[[#Heading]]` + "`" + `: anchors.
- ` + "`" + `[text](other.md)` + "`" + `: relative Markdown links to vault files are rewritten.
- Unresolved wiki-links render as ` + "`" + `broken:` + "`" + ` links and are listed by the
  ` + "`" + `list_diagnostics` + "`" + ` tool.

## Media

- ` + "`" + `![[photo.jpg]]` + "`" + `, ` + "`" + `![[photo.jpg|300]]` + "`" + `, ` + "`" + `![[photo.jpg|300x200]]` + "`" + `, ` + "`" + `![alt](photo.jpg)` + "`" + `.
- References resolve against the media manifest by exact path, relative
  path, then file name. Missing media renders a placeholder image.

## Blocks

- Callouts: ` + "`" + `> [!note] Title` + "`" + `; ` + "`" + `[!tip]-` + "`" + ` folds closed, ` + "`" + `[!tip]+` + "`" + ` folds open.
- Math: ` + "`" + `$inline$` + "`" + `, ` + "`" + `$$display$$` + "`" + ` paragraphs and ` + "```" + `math fences.
- Diagrams: ` + "```" + `mermaid fences.
- Embeds: ` + "```" + `iframe or ` + "```" + `embed fences holding one http(s) URL.
- Code fences in any other language are syntax highlighted.

## Example

` + "```" + `markdown
---
title: Weekly standup
tags: [meetings]
aliases: [Standup]
---

# Weekly standup

> [!todo] Action items
> - review the [[design-doc#Storage|storage section]]

![[whiteboard.jpg|600]]
` + "```" + `
`
