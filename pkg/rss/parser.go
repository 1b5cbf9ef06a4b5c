// Package rss provides streaming RSS 2.0 and Atom feed parsing.
// Feeds in the wild are routinely malformed, so the parser is lenient:
// non-strict XML, HTML entities, declared-charset decoding, and per-item
// error recovery via the OnError callback.
package rss

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"golang.org/x/net/html/charset"
)

// Item represents a single entry from an RSS or Atom feed.
type Item struct {
	Title   string
	Link    string
	Summary string
	GUID    string

	// Published is zero when the feed gave no parsable date.
	Published time.Time
}

// Parser provides streaming feed parsing with callback-based processing.
type Parser struct {
	// OnItem is called for each parsed item or entry.
	OnItem func(item *Item) error

	// OnError is called for recoverable parsing errors.
	OnError func(err error)
}

// feedTimeFormats covers the date shapes seen across RSS and Atom feeds.
var feedTimeFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	time.RFC822Z,
	time.RFC822,
}

// parseFeedTime parses a feed timestamp in any of the common formats.
func parseFeedTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}

	for _, format := range feedTimeFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time: %s", s)
}

// Parse parses an RSS or Atom feed from a reader. Both formats can appear
// behind the same source URL over time, so one parser handles both.
func (p *Parser) Parse(r io.Reader) error {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity
	decoder.CharsetReader = charset.NewReaderLabel

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading XML token: %w", err)
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "item":
				if p.OnItem == nil {
					_ = decoder.Skip()
					continue
				}
				item, err := p.parseRSSItem(decoder)
				if err != nil {
					p.handleError(err)
					continue
				}
				if err := p.OnItem(item); err != nil {
					return fmt.Errorf("item callback: %w", err)
				}

			case "entry":
				if p.OnItem == nil {
					_ = decoder.Skip()
					continue
				}
				item, err := p.parseAtomEntry(decoder)
				if err != nil {
					p.handleError(err)
					continue
				}
				if err := p.OnItem(item); err != nil {
					return fmt.Errorf("item callback: %w", err)
				}
			}
		}
	}

	return nil
}

// ParseCompressed parses a potentially compressed feed.
// It auto-detects compression based on magic bytes.
func (p *Parser) ParseCompressed(r io.Reader) error {
	br := bufio.NewReader(r)

	header, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return fmt.Errorf("peeking header: %w", err)
	}

	var reader io.Reader = br

	switch {
	case len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		// Gzip
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzr.Close()
		reader = gzr

	case len(header) >= 3 && header[0] == 'B' && header[1] == 'Z' && header[2] == 'h':
		// Bzip2
		reader = bzip2.NewReader(br)

	case len(header) >= 6 && header[0] == 0xfd && header[1] == '7' && header[2] == 'z' && header[3] == 'X' && header[4] == 'Z' && header[5] == 0x00:
		// XZ
		xzr, err := xz.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		reader = xzr
	}

	return p.Parse(reader)
}

// parseRSSItem parses an RSS 2.0 <item> element.
func (p *Parser) parseRSSItem(decoder *xml.Decoder) (*Item, error) {
	item := &Item{}

	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "title":
				var title string
				if err := decoder.DecodeElement(&title, &elem); err == nil && item.Title == "" {
					item.Title = strings.TrimSpace(title)
				}
			case "link":
				// Plain RSS carries the URL as chardata; embedded atom:link
				// elements carry it in the href attribute.
				href := attrValue(elem, "href")
				var link string
				if err := decoder.DecodeElement(&link, &elem); err == nil {
					link = strings.TrimSpace(link)
				}
				if item.Link == "" {
					if link != "" {
						item.Link = link
					} else if href != "" {
						item.Link = href
					}
				}
			case "description":
				var desc string
				if err := decoder.DecodeElement(&desc, &elem); err == nil && item.Summary == "" {
					item.Summary = strings.TrimSpace(desc)
				}
			case "guid":
				var guid string
				if err := decoder.DecodeElement(&guid, &elem); err == nil {
					item.GUID = strings.TrimSpace(guid)
				}
			case "pubDate":
				var raw string
				if err := decoder.DecodeElement(&raw, &elem); err == nil {
					if t, err := parseFeedTime(raw); err == nil {
						item.Published = t
					}
				}
			default:
				_ = decoder.Skip()
			}
		case xml.EndElement:
			if elem.Name.Local == "item" {
				return item, nil
			}
		}
	}
}

// parseAtomEntry parses an Atom <entry> element.
func (p *Parser) parseAtomEntry(decoder *xml.Decoder) (*Item, error) {
	item := &Item{}
	var content string

	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "title":
				var title string
				if err := decoder.DecodeElement(&title, &elem); err == nil && item.Title == "" {
					item.Title = strings.TrimSpace(title)
				}
			case "link":
				rel := attrValue(elem, "rel")
				href := attrValue(elem, "href")
				// The alternate (or unqualified) link is the story URL.
				if href != "" && (rel == "" || rel == "alternate") && item.Link == "" {
					item.Link = href
				}
				_ = decoder.Skip()
			case "summary":
				var summary string
				if err := decoder.DecodeElement(&summary, &elem); err == nil && item.Summary == "" {
					item.Summary = strings.TrimSpace(summary)
				}
			case "content":
				var c string
				if err := decoder.DecodeElement(&c, &elem); err == nil && content == "" {
					content = strings.TrimSpace(c)
				}
			case "id":
				var id string
				if err := decoder.DecodeElement(&id, &elem); err == nil {
					item.GUID = strings.TrimSpace(id)
				}
			case "published":
				var raw string
				if err := decoder.DecodeElement(&raw, &elem); err == nil {
					if t, err := parseFeedTime(raw); err == nil {
						item.Published = t
					}
				}
			case "updated":
				var raw string
				if err := decoder.DecodeElement(&raw, &elem); err == nil && item.Published.IsZero() {
					if t, err := parseFeedTime(raw); err == nil {
						item.Published = t
					}
				}
			default:
				_ = decoder.Skip()
			}
		case xml.EndElement:
			if elem.Name.Local == "entry" {
				if item.Summary == "" {
					item.Summary = content
				}
				return item, nil
			}
		}
	}
}

// attrValue returns the value of the named attribute, or "".
func attrValue(elem xml.StartElement, name string) string {
	for _, attr := range elem.Attr {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}

// handleError calls the OnError callback if set.
func (p *Parser) handleError(err error) {
	if p.OnError != nil {
		p.OnError(err)
	}
}

// ParseAll parses an entire feed and returns all items.
// Note: this loads all items into memory - use Parse with callbacks for large feeds.
func ParseAll(r io.Reader) ([]*Item, error) {
	var items []*Item
	p := &Parser{
		OnItem: func(item *Item) error {
			items = append(items, item)
			return nil
		},
	}
	if err := p.Parse(r); err != nil {
		return nil, err
	}
	return items, nil
}

// ParseString parses a feed string and calls the callback for each item.
func ParseString(content string, onItem func(*Item) error) error {
	p := &Parser{OnItem: onItem}
	return p.Parse(strings.NewReader(content))
}
