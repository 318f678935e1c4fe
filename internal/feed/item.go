// Package feed supplies the item stream the pipeline evaluates. Sources
// share one contract: Next returns items in arrival order, ErrMalformedRecord
// for an undecodable record, io.EOF when a finite source drains, and any
// other error for a broken connection.
package feed

import (
	"context"
	"errors"
)

// ErrMalformedRecord marks a feed record that could not be decoded. The
// pipeline counts it and moves on; it never ends a run.
var ErrMalformedRecord = errors.New("malformed feed record")

// Source yields feed items in arrival order.
type Source interface {
	Next(ctx context.Context) (*Item, error)
	Close() error
}

// Item is one unit from the feed.
type Item struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id,omitempty"`
	AuthorName string    `json:"author_name,omitempty"`
	Text       string    `json:"text"`
	Lang       string    `json:"lang,omitempty"`
	Entities   *Entities `json:"entities,omitempty"`
}

// Entities are the optional annotations carried by an item.
type Entities struct {
	URLs     []string `json:"urls,omitempty"`
	Mentions []string `json:"mentions,omitempty"`
	Hashtags []string `json:"hashtags,omitempty"`
}

// Display renders an item as "author -> text" for logs and reports.
func (it *Item) Display() string {
	author := it.AuthorName
	if author == "" {
		author = it.AuthorID
	}
	if author == "" {
		author = "unknown"
	}
	return author + " -> " + it.Text
}
