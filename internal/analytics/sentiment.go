package analytics

import (
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

// Sentiment labels, matching the dataset's French vocabulary.
const (
	SentimentPositive = "Positif"
	SentimentNeutral  = "Neutre"
	SentimentNegative = "Négatif"
)

// SentimentLabels returns all labels in display order.
func SentimentLabels() []string {
	return []string{SentimentPositive, SentimentNeutral, SentimentNegative}
}

var (
	mdLinkPattern = regexp.MustCompile(`\[(.*?)\]\((https?://[^\s)]+)\)`)
	urlPattern    = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

// SentimentAnalyzer labels free text with VADER. Reddit bodies are markdown,
// so they are rendered to plain text first.
type SentimentAnalyzer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewSentimentAnalyzer creates an analyzer. Safe to reuse across calls.
func NewSentimentAnalyzer() *SentimentAnalyzer {
	return &SentimentAnalyzer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Label returns the compound score and the label for text.
func (s *SentimentAnalyzer) Label(text string) (float64, string) {
	plain := markdownToText(text)
	score := s.analyzer.PolarityScores(plain).Compound

	switch {
	case score >= 0.20:
		return score, SentimentPositive
	case score <= -0.20:
		return score, SentimentNegative
	default:
		return score, SentimentNeutral
	}
}

func markdownToText(input string) string {
	out := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plain := strings.Join(strings.Fields(string(out)), " ")
	return removeLinks(plain)
}

func removeLinks(input string) string {
	input = mdLinkPattern.ReplaceAllString(input, "$1")
	return urlPattern.ReplaceAllString(input, "")
}
