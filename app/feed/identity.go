package feed

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const identityLength = 16

// HashID returns the persisted identity of an entry: the first 16 hex
// characters of sha1(url + "|" + title), nil fields read as "".
func HashID(url, title *string) string {
	content := deref(url) + "|" + deref(title)

	hash := sha1.Sum([]byte(content))
	return hex.EncodeToString(hash[:])[:identityLength]
}

// suppressionKey identifies duplicates within one aggregation run. It is
// deliberately coarser than HashID.
type suppressionKey struct {
	url   string
	title string
}

// Deduper tracks suppression keys for one category pass. Not safe for
// concurrent use.
type Deduper struct {
	seen  map[suppressionKey]struct{}
	caser cases.Caser
}

func NewDeduper() *Deduper {
	return &Deduper{
		seen:  make(map[suppressionKey]struct{}),
		caser: cases.Lower(language.Und),
	}
}

// Seen reports whether an entry with an equivalent url and title was already
// recorded, recording it otherwise.
func (d *Deduper) Seen(url, title *string) bool {
	key := suppressionKey{
		url:   d.normalize(deref(url)),
		title: d.normalize(deref(title)),
	}

	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

func (d *Deduper) Len() int {
	return len(d.seen)
}

// normalize trims, collapses whitespace runs to one space and lowercases.
func (d *Deduper) normalize(s string) string {
	return d.caser.String(strings.Join(strings.Fields(s), " "))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
