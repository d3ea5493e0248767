package feed

import (
	"testing"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <description>Test Item 1 Description</description>
      <guid>item-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	title, entries, err := parser.Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if title != "Test Feed" {
		t.Errorf("Expected title 'Test Feed', got: %s", title)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(entries))
	}

	entry1 := entries[0]
	if entry1.Title == nil || *entry1.Title != "Test Item 1" {
		t.Errorf("Expected title 'Test Item 1', got: %v", entry1.Title)
	}
	if entry1.Link == nil || *entry1.Link != "https://example.com/item1" {
		t.Errorf("Expected link 'https://example.com/item1', got: %v", entry1.Link)
	}
	if entry1.Published == nil || *entry1.Published != "Mon, 03 Jul 2023 10:00:00 GMT" {
		t.Errorf("Expected raw published string, got: %v", entry1.Published)
	}
	if entry1.Summary == nil || *entry1.Summary != "Test Item 1 Description" {
		t.Errorf("Expected summary 'Test Item 1 Description', got: %v", entry1.Summary)
	}

	entry2 := entries[1]
	if entry2.Published != nil {
		t.Errorf("Expected no published date, got: %s", *entry2.Published)
	}
	if entry2.Summary != nil {
		t.Errorf("Expected no summary, got: %s", *entry2.Summary)
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <id>urn:uuid:1234567890</id>
  <entry>
    <title>Test Entry</title>
    <link href="https://example.com/entry1"/>
    <id>urn:uuid:entry-1</id>
    <updated>2023-07-03T10:00:00Z</updated>
    <summary>Short summary</summary>
  </entry>
</feed>`

	parser := NewParser()
	title, entries, err := parser.Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if title != "Test Atom Feed" {
		t.Errorf("Expected title 'Test Atom Feed', got: %s", title)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(entries))
	}

	entry := entries[0]
	if entry.Link == nil || *entry.Link != "https://example.com/entry1" {
		t.Errorf("Expected link 'https://example.com/entry1', got: %v", entry.Link)
	}
	if entry.Updated == nil || *entry.Updated != "2023-07-03T10:00:00Z" {
		t.Errorf("Expected updated '2023-07-03T10:00:00Z', got: %v", entry.Updated)
	}
	if entry.Summary == nil || *entry.Summary != "Short summary" {
		t.Errorf("Expected summary 'Short summary', got: %v", entry.Summary)
	}
}

func TestParseUntitledFeed(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <item>
      <description>Only a description</description>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	title, entries, err := parser.Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if title != "" {
		t.Errorf("Expected empty title, got: %s", title)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(entries))
	}
	if entries[0].Title != nil || entries[0].Link != nil {
		t.Error("Expected title and link to be nil")
	}
}

func TestParseInvalidFeed(t *testing.T) {
	parser := NewParser()
	_, _, err := parser.Run([]byte("invalid xml"))

	if err == nil {
		t.Error("Expected error for invalid XML")
	}
}
