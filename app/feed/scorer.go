package feed

import (
	"math"
	"strings"
	"time"
)

const (
	recencyWeight = 0.7
	keywordWeight = 0.3

	// Five matching keywords give the full keyword weight. More matches keep
	// adding to the score; there is no clamp.
	keywordSaturation = 5.0
)

type Scorer struct {
	Now func() time.Time
}

func NewScorer() *Scorer {
	return &Scorer{Now: time.Now}
}

// Run scores entry against keywords at the scorer's current time.
func (s *Scorer) Run(entry Entry, keywords []string) float64 {
	return ScoreAt(entry, keywords, s.now())
}

func (s *Scorer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// ScoreAt blends recency and keyword relevance: 0.7*recency + 0.3*(matches/5).
func ScoreAt(entry Entry, keywords []string, now time.Time) float64 {
	recency := RecencyScore(entry.PublishedAt, now)
	matches := KeywordMatches(entry.Title, entry.Summary, keywords)

	return recencyWeight*recency + keywordWeight*(float64(matches)/keywordSaturation)
}

// RecencyScore decays hyperbolically with age in hours. Ages under one hour,
// including future timestamps, count as one hour.
func RecencyScore(publishedAt *time.Time, now time.Time) float64 {
	if publishedAt == nil {
		return 0
	}

	ageHours := math.Max(1, now.Sub(*publishedAt).Hours())
	return 1 / ageHours
}

// KeywordMatches counts configured keywords found in title and summary,
// case-insensitively. Each keyword counts at most once.
func KeywordMatches(title, summary *string, keywords []string) int {
	text := strings.ToLower(deref(title) + " " + deref(summary))

	matches := 0
	for _, keyword := range keywords {
		if strings.Contains(text, strings.ToLower(keyword)) {
			matches++
		}
	}
	return matches
}
