package analytics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/atlaswatch/atlaswatch/internal/config"
	"github.com/atlaswatch/atlaswatch/internal/store"
)

// Row is one analytics record. Themes and sentiment are derived at analysis
// time from the content, never read back from ingestion.
type Row struct {
	Content   string   `json:"content"`
	Themes    []string `json:"themes"`
	City      string   `json:"city"`
	LieuType  string   `json:"lieu_type"`
	Sentiment string   `json:"sentiment"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HasTheme reports whether the row matched the named theme.
func (r Row) HasTheme(name string) bool {
	for _, t := range r.Themes {
		if t == name {
			return true
		}
	}
	return false
}

// BuildSnapshot derives analytics rows from stored records. Theme assignment
// is a pure function of (text, taxonomy), so rebuilding a snapshot after a
// taxonomy change needs no re-ingestion.
func BuildSnapshot(records []store.Record, taxonomy Taxonomy, places []config.Place, sentiment *SentimentAnalyzer) []Row {
	placeByName := make(map[string]config.Place, len(places))
	for _, p := range places {
		placeByName[p.Name] = p
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := Row{
			Content: rec.Text,
			Themes:  Classify(rec.Text, taxonomy),
			City:    rec.Location,
		}
		if sentiment != nil {
			_, row.Sentiment = sentiment.Label(rec.Text)
		}
		if place, ok := placeByName[rec.Location]; ok {
			row.LieuType = place.Type
			lat, lon := place.Latitude, place.Longitude
			row.Latitude, row.Longitude = &lat, &lon
		}
		rows = append(rows, row)
	}
	return rows
}

var csvHeader = []string{"content", "themes", "city", "lieu_type", "sentiment", "latitude", "longitude"}

// WriteCSV exports rows as the dashboard dataset. Themes round-trip through
// a JSON list serialization.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i, row := range rows {
		themes, err := json.Marshal(row.Themes)
		if err != nil {
			return fmt.Errorf("serialize themes row %d: %w", i, err)
		}
		rec := []string{
			row.Content,
			string(themes),
			row.City,
			row.LieuType,
			row.Sentiment,
			formatCoord(row.Latitude),
			formatCoord(row.Longitude),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV loads a dataset export written by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range csvHeader {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("csv missing column %q", name)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		row := Row{
			Content:   rec[idx["content"]],
			City:      rec[idx["city"]],
			LieuType:  rec[idx["lieu_type"]],
			Sentiment: rec[idx["sentiment"]],
		}
		if raw := rec[idx["themes"]]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &row.Themes); err != nil {
				return nil, fmt.Errorf("parse themes line %d: %w", line, err)
			}
		}
		row.Latitude = parseCoord(rec[idx["latitude"]])
		row.Longitude = parseCoord(rec[idx["longitude"]])

		rows = append(rows, row)
	}
	return rows, nil
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseCoord(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
