package feed

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

const maxPerFeed = 50

// RSS is a finite source backed by RSS/Atom feeds. Entries are mapped to
// items; when an entry carries only a link, the full text can optionally be
// fetched and extracted before scoring.
type RSS struct {
	urls         []string
	fetchContent bool
	parser       *gofeed.Parser
	client       *http.Client
	queue        []*Item
	loaded       bool
}

// NewRSS creates an RSS source over the given feed URLs.
func NewRSS(urls []string, fetchContent bool) *RSS {
	return &RSS{
		urls:         urls,
		fetchContent: fetchContent,
		parser:       gofeed.NewParser(),
		client:       &http.Client{Timeout: 15 * time.Second},
	}
}

// Next returns the next feed entry as an item, or io.EOF once every
// configured feed has been drained.
func (r *RSS) Next(ctx context.Context) (*Item, error) {
	if !r.loaded {
		if err := r.load(ctx); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(r.queue) == 0 {
		return nil, io.EOF
	}

	item := r.queue[0]
	r.queue = r.queue[1:]
	return item, nil
}

// Close releases nothing; the RSS source holds no long-lived connection.
func (r *RSS) Close() error {
	return nil
}

// load parses every configured feed up front. A feed that fails to parse is
// logged and skipped; only all feeds failing is a transport error.
func (r *RSS) load(ctx context.Context) error {
	r.loaded = true

	var lastErr error
	for _, feedURL := range r.urls {
		parsed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Failed to parse feed %s: %v", feedURL, err)
			lastErr = err
			continue
		}

		lang := normalizeLang(parsed.Language)
		count := 0
		for _, entry := range parsed.Items {
			if count >= maxPerFeed {
				break
			}
			item := r.entryToItem(ctx, entry, lang)
			if item == nil {
				continue
			}
			r.queue = append(r.queue, item)
			count++
		}
		log.Printf("Loaded %d entries from %s", count, feedURL)
	}

	if len(r.queue) == 0 && lastErr != nil {
		return fmt.Errorf("no feeds readable: %w", lastErr)
	}
	return nil
}

func (r *RSS) entryToItem(ctx context.Context, entry *gofeed.Item, lang string) *Item {
	id := entry.GUID
	if id == "" {
		id = entry.Link
	}
	if id == "" {
		return nil
	}

	text := strings.TrimSpace(entry.Title)
	body := stripHTML(entry.Description)
	if body == "" && entry.Content != "" {
		body = stripHTML(entry.Content)
	}
	if body == "" && r.fetchContent && entry.Link != "" {
		body = r.fetchFullText(ctx, entry.Link)
	}
	if body != "" {
		if text != "" {
			text += ". " + body
		} else {
			text = body
		}
	}
	if text == "" {
		return nil
	}

	author := ""
	if entry.Author != nil {
		author = entry.Author.Name
	}

	item := &Item{
		ID:         id,
		AuthorName: author,
		Text:       text,
		Lang:       lang,
	}
	if entry.Link != "" {
		item.Entities = &Entities{URLs: []string{entry.Link}}
	}
	return item
}

// fetchFullText pulls the linked page and extracts readable text. Failures
// fall back to the bare entry; the feed keeps flowing.
func (r *RSS) fetchFullText(ctx context.Context, link string) string {
	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "toxwatch/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return ""
	}

	parsedURL, _ := url.Parse(link)
	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return ""
	}

	return truncate(strings.TrimSpace(article.TextContent), 2000)
}

// truncate cuts text to at most max bytes without splitting a rune.
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	return text[:max]
}

// normalizeLang maps an RSS language tag like "en-US" onto the bare primary
// subtag the pipeline's language filter compares against.
func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexByte(lang, '-'); i > 0 {
		lang = lang[:i]
	}
	return lang
}

// stripHTML drops tags and decodes common entities from feed-provided HTML.
func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
