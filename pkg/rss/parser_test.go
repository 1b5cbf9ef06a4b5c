package rss

import (
	"bytes"
	"compress/gzip"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ulikunitz/xz"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
  <channel>
    <title>World Service</title>
    <link>https://news.example.com</link>
    <atom:link href="https://news.example.com/rss" rel="self"/>
    <item>
      <title>Markets &amp; Money Rally</title>
      <link>https://news.example.com/markets-rally</link>
      <description>Stocks climbed for a third day.</description>
      <guid isPermaLink="false">tag:news.example.com,2026:1001</guid>
      <pubDate>Mon, 12 Jan 2026 08:45:00 +0000</pubDate>
    </item>
    <item>
      <title>Storm Closes Coastal Roads</title>
      <link>https://news.example.com/storm-roads</link>
      <description><![CDATA[High winds and <b>flooding</b> overnight.]]></description>
      <guid>tag:news.example.com,2026:1002</guid>
      <pubDate>12 Jan 26 06:10 GMT</pubDate>
    </item>
    <item>
      <title>Undated Wire Story</title>
      <link>https://news.example.com/undated</link>
      <pubDate>sometime last tuesday</pubDate>
    </item>
  </channel>
</rss>`

const sampleAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Science Desk</title>
  <updated>2026-01-12T00:00:00Z</updated>
  <entry>
    <title>Probe Reaches Orbit</title>
    <link rel="alternate" href="https://science.example.org/probe-orbit"/>
    <link rel="edit" href="https://science.example.org/edit/77"/>
    <id>urn:uuid:7d3f1c8e-0001</id>
    <updated>2026-01-10T09:00:00Z</updated>
    <summary>Insertion burn completed on schedule.</summary>
  </entry>
  <entry>
    <title>Reef Survey Published</title>
    <link href="https://science.example.org/reef-survey"/>
    <id>urn:uuid:7d3f1c8e-0002</id>
    <published>2026-01-11T10:30:00Z</published>
    <updated>2026-01-12T11:00:00Z</updated>
    <content type="html">Coral cover is &lt;b&gt;recovering&lt;/b&gt; in three atolls.</content>
  </entry>
</feed>`

func collectItems(t *testing.T, content string) []*Item {
	t.Helper()

	var items []*Item
	p := &Parser{
		OnItem: func(item *Item) error {
			items = append(items, item)
			return nil
		},
	}

	if err := p.Parse(strings.NewReader(content)); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return items
}

func TestParser_ParseRSS(t *testing.T) {
	items := collectItems(t, sampleRSS)

	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	first := items[0]
	if first.Title != "Markets & Money Rally" {
		t.Errorf("expected entity-decoded title, got %q", first.Title)
	}
	if first.Link != "https://news.example.com/markets-rally" {
		t.Errorf("unexpected link %q", first.Link)
	}
	if first.Summary != "Stocks climbed for a third day." {
		t.Errorf("unexpected summary %q", first.Summary)
	}
	if first.GUID != "tag:news.example.com,2026:1001" {
		t.Errorf("unexpected guid %q", first.GUID)
	}
	want := time.Date(2026, 1, 12, 8, 45, 0, 0, time.UTC)
	if !first.Published.Equal(want) {
		t.Errorf("expected published %v, got %v", want, first.Published)
	}

	second := items[1]
	if !strings.Contains(second.Summary, "<b>flooding</b>") {
		t.Errorf("expected CDATA body preserved, got %q", second.Summary)
	}
	if second.Published.IsZero() {
		t.Errorf("expected RFC822 pubDate to parse, got zero time")
	}
}

func TestParser_ParseRSS_BadDateTolerated(t *testing.T) {
	items := collectItems(t, sampleRSS)

	undated := items[2]
	if undated.Title != "Undated Wire Story" {
		t.Fatalf("unexpected title %q", undated.Title)
	}
	if !undated.Published.IsZero() {
		t.Errorf("expected zero time for unparsable date, got %v", undated.Published)
	}
}

func TestParser_ParseAtom(t *testing.T) {
	items := collectItems(t, sampleAtom)

	if len(items) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(items))
	}

	first := items[0]
	if first.Title != "Probe Reaches Orbit" {
		t.Errorf("unexpected title %q", first.Title)
	}
	if first.Link != "https://science.example.org/probe-orbit" {
		t.Errorf("expected alternate link, got %q", first.Link)
	}
	if first.GUID != "urn:uuid:7d3f1c8e-0001" {
		t.Errorf("unexpected id %q", first.GUID)
	}
	// No <published>, so <updated> stands in.
	want := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	if !first.Published.Equal(want) {
		t.Errorf("expected updated fallback %v, got %v", want, first.Published)
	}
	if first.Summary != "Insertion burn completed on schedule." {
		t.Errorf("unexpected summary %q", first.Summary)
	}

	second := items[1]
	if second.Link != "https://science.example.org/reef-survey" {
		t.Errorf("expected unqualified link href, got %q", second.Link)
	}
	// <published> wins over <updated>.
	want = time.Date(2026, 1, 11, 10, 30, 0, 0, time.UTC)
	if !second.Published.Equal(want) {
		t.Errorf("expected published %v, got %v", want, second.Published)
	}
	// No <summary>, so <content> stands in.
	if !strings.Contains(second.Summary, "recovering") {
		t.Errorf("expected content fallback, got %q", second.Summary)
	}
}

func TestParser_DeclaredCharset(t *testing.T) {
	latin1 := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<rss version=\"2.0\"><channel><item>" +
		"<title>Caf\xe9 Culture Returns</title>" +
		"<link>https://news.example.com/cafe</link>" +
		"</item></channel></rss>")

	var items []*Item
	p := &Parser{
		OnItem: func(item *Item) error {
			items = append(items, item)
			return nil
		},
	}

	if err := p.Parse(bytes.NewReader(latin1)); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Title != "Café Culture Returns" {
		t.Errorf("expected decoded latin-1 title, got %q", items[0].Title)
	}
}

func TestParser_OnItemError(t *testing.T) {
	wantErr := errors.New("stop")
	p := &Parser{
		OnItem: func(item *Item) error {
			return wantErr
		},
	}

	err := p.Parse(strings.NewReader(sampleRSS))
	if err == nil {
		t.Fatal("expected error from item callback")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func TestParser_TruncatedItemRecovered(t *testing.T) {
	truncated := `<?xml version="1.0"?><rss><channel><item><title>Cut Off Mid`

	var parseErrs []error
	p := &Parser{
		OnItem: func(item *Item) error {
			t.Fatalf("truncated item should not be delivered, got %+v", item)
			return nil
		},
		OnError: func(err error) {
			parseErrs = append(parseErrs, err)
		},
	}

	if err := p.Parse(strings.NewReader(truncated)); err != nil {
		t.Fatalf("Parse should recover, got %v", err)
	}
	if len(parseErrs) == 0 {
		t.Error("expected OnError for truncated item")
	}
}

func TestParser_ParseCompressed_Gzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(sampleRSS)); err != nil {
		t.Fatalf("compressing sample: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}

	var items []*Item
	p := &Parser{
		OnItem: func(item *Item) error {
			items = append(items, item)
			return nil
		},
	}

	if err := p.ParseCompressed(&buf); err != nil {
		t.Fatalf("ParseCompressed failed: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("expected 3 items, got %d", len(items))
	}
}

func TestParser_ParseCompressed_XZ(t *testing.T) {
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("creating xz writer: %v", err)
	}
	if _, err := xw.Write([]byte(sampleAtom)); err != nil {
		t.Fatalf("compressing sample: %v", err)
	}
	if err := xw.Close(); err != nil {
		t.Fatalf("closing xz writer: %v", err)
	}

	var items []*Item
	p := &Parser{
		OnItem: func(item *Item) error {
			items = append(items, item)
			return nil
		},
	}

	if err := p.ParseCompressed(&buf); err != nil {
		t.Fatalf("ParseCompressed failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 entries, got %d", len(items))
	}
}

func TestParser_ParseCompressed_Plain(t *testing.T) {
	var items []*Item
	p := &Parser{
		OnItem: func(item *Item) error {
			items = append(items, item)
			return nil
		},
	}

	if err := p.ParseCompressed(strings.NewReader(sampleRSS)); err != nil {
		t.Fatalf("ParseCompressed failed: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("expected 3 items, got %d", len(items))
	}
}

func TestParseAll(t *testing.T) {
	items, err := ParseAll(strings.NewReader(sampleAtom))
	if err != nil {
		t.Fatalf("ParseAll failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 entries, got %d", len(items))
	}
}

func TestParseString(t *testing.T) {
	count := 0
	err := ParseString(sampleRSS, func(item *Item) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 items, got %d", count)
	}
}

func TestParseFeedTime(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"Mon, 12 Jan 2026 08:45:00 +0000", false},
		{"Mon, 12 Jan 2026 08:45:00 GMT", false},
		{"Mon, 2 Jan 2026 08:45:00 +0100", false},
		{"12 Jan 26 06:10 GMT", false},
		{"2026-01-12T08:45:00Z", false},
		{"2026-01-12T08:45:00+01:00", false},
		{"2026-01-12 08:45:00", false},
		{"  2026-01-12T08:45:00Z  ", false},
		{"", true},
		{"sometime last tuesday", true},
	}

	for _, tt := range tests {
		_, err := parseFeedTime(tt.input)
		if tt.wantErr && err == nil {
			t.Errorf("parseFeedTime(%q) expected error, got none", tt.input)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("parseFeedTime(%q) unexpected error: %v", tt.input, err)
		}
	}
}
