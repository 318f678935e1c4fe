// Package report renders the matches from a tracking file into a readable
// markdown or HTML report.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/toxwatch/toxwatch/internal/tracking"
)

var md = goldmark.New()

const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>toxwatch report</title>
<style>
body { font-family: sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 0.3rem 0.6rem; text-align: left; }
blockquote { border-left: 3px solid #ccc; margin-left: 0; padding-left: 1rem; color: #555; }
</style>
</head>
<body>
%s
</body>
</html>
`

// Compose builds the markdown report for a set of tracked matches, in the
// order they were appended.
func Compose(path string, matches []tracking.Match) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Tracking report: %s\n\n", path)
	fmt.Fprintf(&b, "%d tracked match(es).\n\n", len(matches))

	if len(matches) == 0 {
		return b.String()
	}

	b.WriteString("## Score extremes\n\n")
	b.WriteString("| Attribute | Min | Max |\n|---|---|---|\n")
	for _, attr := range attributeNames(matches) {
		min, max := scoreRange(matches, attr)
		fmt.Fprintf(&b, "| %s | %.3f | %.3f |\n", attr, min, max)
	}
	b.WriteString("\n## Matches\n\n")

	for i, m := range matches {
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, m.Item.Display())
		fmt.Fprintf(&b, "Tracked at %s\n\n", m.TrackedAt.Format("2006-01-02 15:04:05 MST"))
		for _, attr := range sortedKeys(m.Scores) {
			fmt.Fprintf(&b, "- %s: %.3f\n", attr, m.Scores[attr])
		}
		if m.Reply != "" {
			fmt.Fprintf(&b, "\n> Reply: %s\n", m.Reply)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderHTML renders a markdown report into a standalone HTML page.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return fmt.Sprintf(htmlShell, buf.String()), nil
}

// attributeNames collects every scored attribute across matches, sorted.
func attributeNames(matches []tracking.Match) []string {
	seen := make(map[string]struct{})
	for _, m := range matches {
		for attr := range m.Scores {
			seen[attr] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for attr := range seen {
		names = append(names, attr)
	}
	sort.Strings(names)
	return names
}

func scoreRange(matches []tracking.Match, attr string) (min, max float64) {
	first := true
	for _, m := range matches {
		v, ok := m.Scores[attr]
		if !ok {
			continue
		}
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

func sortedKeys(scores map[string]float64) []string {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
