package analytics

import (
	"sort"
	"strings"
)

// LocationCount is one entry of the by-location frequency view.
type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// KeywordCount is one entry of the keyword-occurrence view.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// MapMarker is one distinct (city, lat, lon) with its message count.
type MapMarker struct {
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Count     int     `json:"count"`
}

// CountByLocation counts rows per city, descending. Ties keep
// first-encountered row order, so repeated calls over the same rows are
// stable.
func CountByLocation(rows []Row) []LocationCount {
	counts := make(map[string]int)
	var order []string
	for _, row := range rows {
		if _, seen := counts[row.City]; !seen {
			order = append(order, row.City)
		}
		counts[row.City]++
	}

	out := make([]LocationCount, 0, len(order))
	for _, city := range order {
		out = append(out, LocationCount{Location: city, Count: counts[city]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// CountByTheme counts rows per theme. Themes are not mutually exclusive: a
// row matching N themes increments all N counters, so the sum of counts may
// exceed the row count.
func CountByTheme(rows []Row) map[string]int {
	counts := make(map[string]int)
	for _, row := range rows {
		for _, theme := range row.Themes {
			counts[theme]++
		}
	}
	return counts
}

// CountBySentiment counts rows per sentiment label.
func CountBySentiment(rows []Row) map[string]int {
	counts := make(map[string]int)
	for _, row := range rows {
		if row.Sentiment == "" {
			continue
		}
		counts[row.Sentiment]++
	}
	return counts
}

// KeywordOccurrences counts, for every keyword of every selected theme, the
// rows whose content contains it, and returns the top k descending. Ties
// keep taxonomy iteration order. A keyword listed under two selected themes
// is counted once per listing, as the dashboard always has.
func KeywordOccurrences(rows []Row, taxonomy Taxonomy, selectedThemes []string, k int) []KeywordCount {
	lowered := make([]string, len(rows))
	for i, row := range rows {
		lowered[i] = strings.ToLower(row.Content)
	}

	counts := make(map[string]int)
	var order []string
	for _, theme := range selectedThemes {
		for _, kw := range taxonomy.Keywords(theme) {
			n := 0
			for _, content := range lowered {
				if strings.Contains(content, kw) {
					n++
				}
			}
			if n == 0 {
				continue
			}
			if _, seen := counts[kw]; !seen {
				order = append(order, kw)
			}
			counts[kw] += n
		}
	}

	out := make([]KeywordCount, 0, len(order))
	for _, kw := range order {
		out = append(out, KeywordCount{Keyword: kw, Count: counts[kw]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })

	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// MapMarkers groups rows with coordinates by (city, lat, lon).
func MapMarkers(rows []Row) []MapMarker {
	type key struct {
		city     string
		lat, lon float64
	}
	counts := make(map[key]int)
	var order []key
	for _, row := range rows {
		if row.Latitude == nil || row.Longitude == nil {
			continue
		}
		k := key{city: row.City, lat: *row.Latitude, lon: *row.Longitude}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}

	out := make([]MapMarker, 0, len(order))
	for _, k := range order {
		out = append(out, MapMarker{City: k.city, Latitude: k.lat, Longitude: k.lon, Count: counts[k]})
	}
	return out
}

// UniqueCities counts distinct cities of the given lieu type; an empty type
// counts them all.
func UniqueCities(rows []Row, lieuType string) int {
	seen := make(map[string]bool)
	for _, row := range rows {
		if lieuType != "" && row.LieuType != lieuType {
			continue
		}
		seen[row.City] = true
	}
	return len(seen)
}
