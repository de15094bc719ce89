package note

import (
	"html"
	"regexp"
	"strings"
)

// hashtagRe matches inline hashtags in note content. Word characters plus
// Unicode letters so accented tags (#café, #日記) survive extraction.
var hashtagRe = regexp.MustCompile(`#([0-9_\p{L}][0-9_\p{L}-]*)`)

// objectLinkRe matches embedded object references using the reserved
// object:ID URI scheme, e.g. [Project Alpha](object:abc123).
var objectLinkRe = regexp.MustCompile(`object:([0-9A-Za-z_-]+)`)

// htmlTagRe matches HTML tags for plain-text extraction.
var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// whitespaceRe collapses runs of whitespace into single spaces.
var whitespaceRe = regexp.MustCompile(`\s+`)

// ExtractHashtags returns all inline hashtags found in content, without the
// leading '#'. Order follows first appearance; duplicates are preserved
// (callers dedup where it matters).
func ExtractHashtags(content string) []string {
	matches := hashtagRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return tags
}

// ExtractObjectLinks returns the IDs of all notes referenced via the
// object:ID scheme inside content, in order of appearance.
func ExtractObjectLinks(content string) []string {
	matches := objectLinkRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}
	return ids
}

// StripHTML converts rich HTML content into plain text: tags removed,
// entities decoded, whitespace collapsed.
func StripHTML(content string) string {
	text := htmlTagRe.ReplaceAllString(content, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// NormalizeTag canonicalizes a tag for matching: leading '#' stripped,
// surrounding space trimmed, inner whitespace collapsed, lowercased.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "#")
	tag = whitespaceRe.ReplaceAllString(tag, " ")
	return strings.ToLower(strings.TrimSpace(tag))
}
