// Package rss fetches news feeds with conditional GETs, keeps a short
// rolling cache of items and matches them to ticker symbols.
package rss

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/ternarybob/vigil/internal/models"
)

const maxSnippet = 500

// ParseFeed normalizes an RSS 2.0 or Atom document into items keyed by the
// SHA-256 of the entry guid, falling back to its link. Entries without a
// date are stamped with now.
func ParseFeed(r io.Reader, feedURL string, now time.Time) ([]models.RssItem, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	items := make([]models.RssItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}
		id := entry.GUID
		if id == "" {
			id = link
		}
		if id == "" {
			continue
		}

		published := now
		switch {
		case entry.PublishedParsed != nil:
			published = *entry.PublishedParsed
		case entry.UpdatedParsed != nil:
			published = *entry.UpdatedParsed
		}

		body := entry.Description
		if body == "" {
			body = entry.Content
		}

		items = append(items, models.RssItem{
			Hash:        HashID(id),
			FeedURL:     feedURL,
			Title:       strings.TrimSpace(entry.Title),
			Link:        link,
			PublishedAt: published.UTC(),
			Snippet:     PlainText(body),
		})
	}
	return items, nil
}

// HashID returns the hex SHA-256 of id.
func HashID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// PlainText strips markup from an HTML fragment and collapses whitespace.
func PlainText(fragment string) string {
	if fragment == "" {
		return ""
	}
	text := fragment
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment)); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxSnippet {
		text = text[:maxSnippet]
	}
	return text
}
