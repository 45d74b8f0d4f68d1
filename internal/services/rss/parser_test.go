package rss

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssSample = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Markets</title>
    <item>
      <title>Buy $AAPL now</title>
      <link>https://news.example/aapl</link>
      <guid>aapl-1</guid>
      <pubDate>Mon, 10 Mar 2025 14:00:00 GMT</pubDate>
      <description><![CDATA[<p>Apple <b>rallies</b>   on volume</p>]]></description>
    </item>
    <item>
      <title>Undated item</title>
      <link>https://news.example/undated</link>
    </item>
    <item>
      <title>No id at all</title>
    </item>
  </channel>
</rss>`

const atomSample = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Markets</title>
  <entry>
    <title>TSLA earnings report</title>
    <id>urn:tsla:1</id>
    <link href="https://news.example/tsla"/>
    <updated>2025-03-09T12:00:00Z</updated>
    <summary>Tesla reports</summary>
  </entry>
</feed>`

func TestParseFeed_RSS(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	items, err := ParseFeed(strings.NewReader(rssSample), "https://feed.example/rss", now)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, HashID("aapl-1"), first.Hash)
	assert.Equal(t, "Buy $AAPL now", first.Title)
	assert.Equal(t, "https://news.example/aapl", first.Link)
	assert.Equal(t, "https://feed.example/rss", first.FeedURL)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC), first.PublishedAt)
	assert.Equal(t, "Apple rallies on volume", first.Snippet)

	second := items[1]
	assert.Equal(t, HashID("https://news.example/undated"), second.Hash, "link is the fallback id")
	assert.Equal(t, now, second.PublishedAt)
}

func TestParseFeed_Atom(t *testing.T) {
	items, err := ParseFeed(strings.NewReader(atomSample), "https://feed.example/atom", time.Now())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, HashID("urn:tsla:1"), items[0].Hash)
	assert.Equal(t, "https://news.example/tsla", items[0].Link)
	assert.Equal(t, time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC), items[0].PublishedAt)
	assert.Equal(t, "Tesla reports", items[0].Snippet)
}

func TestParseFeed_NotAFeed(t *testing.T) {
	_, err := ParseFeed(strings.NewReader("<html><body>hello</body></html>"), "https://x.example", time.Now())
	assert.Error(t, err)
}

func TestPlainText_Truncates(t *testing.T) {
	long := strings.Repeat("word ", 200)
	got := PlainText(long)
	assert.Len(t, got, 500)
	assert.Equal(t, "", PlainText(""))
}

func TestHashID_Stable(t *testing.T) {
	assert.Equal(t, HashID("x"), HashID("x"))
	assert.NotEqual(t, HashID("x"), HashID("y"))
	assert.Len(t, HashID("x"), 64)
}
