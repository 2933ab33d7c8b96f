package analytics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlaswatch/atlaswatch/internal/config"
	"github.com/atlaswatch/atlaswatch/internal/store"
)

var testPlaces = []config.Place{
	{Name: "Fes", Type: "Ville", Latitude: 34.0331, Longitude: -5.0003},
	{Name: "Volubilis", Type: "Village", Latitude: 34.0736, Longitude: -5.5547},
}

func TestBuildSnapshot(t *testing.T) {
	records := []store.Record{
		{ID: "a", Location: "Fes", Text: "the medina was wonderful, I loved it", CreatedAt: time.Now()},
		{ID: "b", Location: "Somewhere", Text: "nothing matched here", CreatedAt: time.Now()},
	}

	rows := BuildSnapshot(records, DefaultTaxonomy(), testPlaces, NewSentimentAnalyzer())
	require.Len(t, rows, 2)

	fes := rows[0]
	assert.Equal(t, "Fes", fes.City)
	assert.Equal(t, "Ville", fes.LieuType)
	require.NotNil(t, fes.Latitude)
	assert.InDelta(t, 34.0331, *fes.Latitude, 1e-9)
	assert.Contains(t, fes.Themes, "Sites Culturels")
	assert.Equal(t, SentimentPositive, fes.Sentiment)

	// Unknown locations carry no coordinates and no lieu type.
	other := rows[1]
	assert.Nil(t, other.Latitude)
	assert.Empty(t, other.LieuType)
}

func TestSentimentLabels(t *testing.T) {
	s := NewSentimentAnalyzer()

	_, label := s.Label("This trip was absolutely amazing, wonderful people!")
	assert.Equal(t, SentimentPositive, label)

	_, label = s.Label("Horrible scam, terrible experience, never again.")
	assert.Equal(t, SentimentNegative, label)

	_, label = s.Label("The bus leaves at nine.")
	assert.Equal(t, SentimentNeutral, label)
}

func TestCSVRoundTrip(t *testing.T) {
	lat, lon := 34.0331, -5.0003
	rows := []Row{
		{
			Content:   "tajine, mint tea\nand a second line",
			Themes:    []string{"Nourriture & Boissons"},
			City:      "Fes",
			LieuType:  "Ville",
			Sentiment: "Positif",
			Latitude:  &lat,
			Longitude: &lon,
		},
		{
			Content:   "nothing here",
			City:      "Unknown",
			Sentiment: "Neutre",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	loaded, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, rows[0].Content, loaded[0].Content)
	assert.Equal(t, rows[0].Themes, loaded[0].Themes)
	assert.Equal(t, "Fes", loaded[0].City)
	require.NotNil(t, loaded[0].Latitude)
	assert.InDelta(t, lat, *loaded[0].Latitude, 1e-9)

	assert.Nil(t, loaded[1].Latitude)
	assert.Empty(t, loaded[1].Themes)
}

func TestReadCSVMissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("content,city\nhello,Fes\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}
