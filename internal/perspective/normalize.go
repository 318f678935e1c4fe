package perspective

import (
	"regexp"
	"strings"
)

var (
	mentionRe = regexp.MustCompile(`@\w+`)
	urlRe     = regexp.MustCompile(`http\S+`)
)

// Normalize strips feed noise from item text before scoring:
//   - removes the '#' hashtag marker but keeps the tag word
//   - replaces user mentions with a fixed "user" placeholder
//   - removes URLs
//
// The scoring model handles handles and links inconsistently; stripping them
// keeps the score about the words themselves.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "#", "")
	text = mentionRe.ReplaceAllString(text, "user")
	text = urlRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
