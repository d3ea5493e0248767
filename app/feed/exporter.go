package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	JSONFileName = "feed.json"
	HTMLFileName = "index.html"

	// htmlEntriesPerCategory caps the rendered page even when the snapshot holds more.
	htmlEntriesPerCategory = 10
)

type JSONExporter struct{}

func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Run renders {"generated_at": ..., "categories": {name: [entry...]}} with
// categories in snapshot order.
func (e *JSONExporter) Run(snapshot *Snapshot) ([]byte, error) {
	var buf bytes.Buffer

	generatedAt, err := json.Marshal(snapshot.GeneratedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to encode generated_at: %w", err)
	}

	buf.WriteString(`{"generated_at":`)
	buf.Write(generatedAt)
	buf.WriteString(`,"categories":{`)

	for i, category := range snapshot.Categories {
		if i > 0 {
			buf.WriteByte(',')
		}

		name, err := json.Marshal(category.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to encode category name: %w", err)
		}

		entries := category.Entries
		if entries == nil {
			entries = []SnapshotEntry{}
		}
		encoded, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to encode entries for %s: %w", category.Name, err)
		}

		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(encoded)
	}
	buf.WriteString("}}")

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("failed to indent JSON: %w", err)
	}
	out.WriteByte('\n')

	return out.Bytes(), nil
}

type HTMLExporter struct {
	title string
}

func NewHTMLExporter(title string) *HTMLExporter {
	if title == "" {
		title = "News Hub"
	}
	return &HTMLExporter{title: title}
}

const pageStyle = `<style>
body{font-family:system-ui,-apple-system,Segoe UI,Roboto,Ubuntu;margin:24px;background:#0b0d10;color:#e8eaed}
h1{font-size:28px;margin:0 0 8px}
.sub{color:#9aa0a6;margin-bottom:24px}
.grid{display:grid;grid-template-columns:repeat(auto-fit,minmax(320px,1fr));gap:16px}
.card{background:#15181c;border:1px solid #23262b;border-radius:16px;padding:16px}
.card h2{margin:0 0 8px;font-size:18px}
.item{padding:8px 0;border-top:1px solid #23262b}
.item:first-child{border-top:none}
.item a{color:#8ab4f8;text-decoration:none}
.src{color:#9aa0a6;font-size:12px}
</style>`

func (e *HTMLExporter) Run(snapshot *Snapshot) (string, error) {
	var buf bytes.Buffer
	title := html.EscapeString(e.title)

	buf.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	buf.WriteString(fmt.Sprintf("<title>%s</title>\n", title))
	buf.WriteString(pageStyle)
	buf.WriteString("\n</head><body>\n")
	buf.WriteString(fmt.Sprintf("<h1>%s</h1><div class=\"sub\">Updated %s</div>\n",
		title, snapshot.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC")))
	buf.WriteString("<div class=\"grid\">\n")

	for _, category := range snapshot.Categories {
		e.writeCard(&buf, category)
	}

	buf.WriteString("</div></body></html>\n")

	return buf.String(), nil
}

func (e *HTMLExporter) writeCard(buf *bytes.Buffer, category CategorySnapshot) {
	buf.WriteString("<div class=\"card\">\n")
	buf.WriteString(fmt.Sprintf("<h2>%s</h2>\n", html.EscapeString(category.Name)))

	if len(category.Entries) == 0 {
		buf.WriteString("<div class=\"item\"><div class=\"src\">No items yet.</div></div>\n")
	}

	entries := category.Entries
	if len(entries) > htmlEntriesPerCategory {
		entries = entries[:htmlEntriesPerCategory]
	}

	for _, entry := range entries {
		title := entry.Title
		if title == nil || *title == "" {
			title = ptr("(no title)")
		}
		link := entry.URL
		if link == nil || *link == "" {
			link = ptr("#")
		}

		buf.WriteString(fmt.Sprintf("<div class=\"item\"><a href=\"%s\" target=\"_blank\" rel=\"noopener\">%s</a><div class=\"src\">%s</div></div>\n",
			html.EscapeString(*link),
			html.EscapeString(*title),
			html.EscapeString(entry.Source)))
	}

	buf.WriteString("</div>\n")
}

// WriteExports writes feed.json and index.html for snapshot into dir.
// Each file is replaced atomically.
func WriteExports(dir string, snapshot *Snapshot, jsonExporter *JSONExporter, htmlExporter *HTMLExporter) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := jsonExporter.Run(snapshot)
	if err != nil {
		return fmt.Errorf("failed to export JSON: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, JSONFileName), data); err != nil {
		return err
	}

	page, err := htmlExporter.Run(snapshot)
	if err != nil {
		return fmt.Errorf("failed to export HTML: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, HTMLFileName), []byte(page)); err != nil {
		return err
	}

	slog.Debug("Exports written", "dir", dir, "categories", len(snapshot.Categories))
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

func ptr(s string) *string {
	return &s
}
