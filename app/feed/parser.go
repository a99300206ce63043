package feed

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []Entry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title: feed.Title,
		Link:  feed.Link,
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, p.normalizeItem(item))
	}

	return metadata, entries, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Entry {
	entry := Entry{
		"title":       item.Title,
		"description": item.Description,
		"content":     item.Content,
	}

	setIfPresent(entry, "link", item.Link)
	setIfPresent(entry, "guid", item.GUID)

	if item.PublishedParsed != nil {
		entry["published"] = item.PublishedParsed.UTC().Format(time.RFC3339)
	}
	if item.UpdatedParsed != nil {
		entry["updated"] = item.UpdatedParsed.UTC().Format(time.RFC3339)
	}

	if item.Author != nil {
		setIfPresent(entry, "author", strings.TrimSpace(item.Author.Name+" "+item.Author.Email))
	}

	if len(item.Categories) > 0 {
		entry["categories"] = strings.Join(item.Categories, " ")
	}

	// RSS 2.0 allows only one enclosure per item
	if len(item.Enclosures) > 0 && item.Enclosures[0] != nil {
		enclosure := item.Enclosures[0]
		setIfPresent(entry, "enclosure", enclosure.URL)
		setIfPresent(entry, "enclosure_url", enclosure.URL)
		setIfPresent(entry, "enclosure_type", enclosure.Type)
		if length, err := strconv.ParseInt(enclosure.Length, 10, 64); err == nil {
			entry["enclosure_length"] = strconv.FormatInt(length, 10)
		}
	}

	flattenExtensions(entry, item.Extensions)

	for k, v := range item.Custom {
		key := strings.ToLower(k)
		if _, exists := entry[key]; !exists {
			entry[key] = v
		}
	}

	return entry
}

// flattenExtensions copies namespaced elements such as <nyaa:infoHash> into
// the entry as "nyaa_infohash". Standard fields are never overwritten.
func flattenExtensions(entry Entry, extensions ext.Extensions) {
	for prefix, elements := range extensions {
		for name, values := range elements {
			if len(values) == 0 {
				continue
			}
			key := strings.ToLower(prefix + "_" + name)
			if _, exists := entry[key]; exists {
				continue
			}
			entry[key] = strings.TrimSpace(values[0].Value)
		}
	}
}

func setIfPresent(entry Entry, key, value string) {
	if value != "" {
		entry[key] = value
	}
}
