package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"net/url"
	"time"
)

type Generator struct {
	baseURL string
	version string
}

func NewGenerator(baseURL, version string) *Generator {
	return &Generator{baseURL: baseURL, version: version}
}

// Run renders one snapshot category as an RSS 2.0 channel, entries in rank order.
func (g *Generator) Run(snapshot *Snapshot, categoryName string) (string, error) {
	category, ok := snapshot.Category(categoryName)
	if !ok {
		return "", fmt.Errorf("category %q not in snapshot", categoryName)
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", category.Name, 4)
	g.writeElement(&buf, "link", g.baseURL+"/", 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Top ranked %s entries", category.Name), 4)

	selfLink := fmt.Sprintf("%s/categories/%s/rss", g.baseURL, url.PathEscape(category.Name))
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	g.writeElement(&buf, "lastBuildDate", snapshot.GeneratedAt.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("News-Hub/%s", g.version), 4)

	for _, entry := range category.Entries {
		g.writeItem(&buf, category.Name, entry)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, categoryName string, entry SnapshotEntry) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(entry.ID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", deref(entry.Title), 6)
	g.writeElement(buf, "link", deref(entry.URL), 6)
	g.writeElement(buf, "description", deref(entry.Summary), 6)

	if entry.PublishedAt != nil {
		g.writeElement(buf, "pubDate", entry.PublishedAt.Format(time.RFC1123Z), 6)
	}

	g.writeElement(buf, "category", categoryName, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
