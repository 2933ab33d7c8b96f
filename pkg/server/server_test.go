package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlaswatch/atlaswatch/internal/analytics"
	"github.com/atlaswatch/atlaswatch/internal/config"
)

func coord(v float64) *float64 { return &v }

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	places := []config.Place{
		{Name: "Fes", Type: "Ville", Latitude: 34.0331, Longitude: -5.0003},
		{Name: "Agadir", Type: "Ville", Latitude: 30.4278, Longitude: -9.5981},
		{Name: "Volubilis", Type: "Village", Latitude: 34.0736, Longitude: -5.5547},
	}
	srv := New(nil, analytics.DefaultTaxonomy(), places, 0)
	srv.SetSnapshot([]analytics.Row{
		{
			Content: "the medina of Fes is stunning", City: "Fes", LieuType: "Ville",
			Themes: []string{"Sites Culturels"}, Sentiment: analytics.SentimentPositive,
			Latitude: coord(34.0331), Longitude: coord(-5.0003),
		},
		{
			Content: "Fes riad was overpriced", City: "Fes", LieuType: "Ville",
			Themes: []string{"Hébergement"}, Sentiment: analytics.SentimentNegative,
			Latitude: coord(34.0331), Longitude: coord(-5.0003),
		},
		{
			Content: "surfing the beach in Agadir", City: "Agadir", LieuType: "Ville",
			Themes: []string{"Attractions Naturelles", "Activités"}, Sentiment: analytics.SentimentPositive,
			Latitude: coord(30.4278), Longitude: coord(-9.5981),
		},
		{
			Content: "roman ruins at Volubilis", City: "Volubilis", LieuType: "Village",
			Themes: []string{"Sites Culturels"}, Sentiment: analytics.SentimentNeutral,
			Latitude: coord(34.0736), Longitude: coord(-5.5547),
		},
		{
			Content: "no idea where this was", City: "Unknown", LieuType: "",
			Sentiment: analytics.SentimentNeutral,
		},
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp
}

func TestHealth(t *testing.T) {
	ts := testServer(t)

	var body map[string]string
	resp := getJSON(t, ts.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestStats(t *testing.T) {
	ts := testServer(t)

	var body struct {
		Messages       int `json:"messages"`
		UniqueVilles   int `json:"unique_villes"`
		UniqueVillages int `json:"unique_villages"`
	}
	getJSON(t, ts.URL+"/api/v1/stats", &body)

	assert.Equal(t, 5, body.Messages)
	assert.Equal(t, 2, body.UniqueVilles)
	assert.Equal(t, 1, body.UniqueVillages)
}

func TestStatsFiltered(t *testing.T) {
	ts := testServer(t)

	var body struct {
		Messages int `json:"messages"`
	}
	getJSON(t, ts.URL+"/api/v1/stats?cities=Fes&sentiments=Positif", &body)
	assert.Equal(t, 1, body.Messages)
}

func TestLocations(t *testing.T) {
	ts := testServer(t)

	var body struct {
		Data []analytics.LocationCount `json:"data"`
	}
	getJSON(t, ts.URL+"/api/v1/locations", &body)

	require.NotEmpty(t, body.Data)
	assert.Equal(t, "Fes", body.Data[0].Location)
	assert.Equal(t, 2, body.Data[0].Count)

	getJSON(t, ts.URL+"/api/v1/locations?limit=1", &body)
	assert.Len(t, body.Data, 1)
}

func TestThemes(t *testing.T) {
	ts := testServer(t)

	var body struct {
		Data   map[string]int `json:"data"`
		Themes []string       `json:"themes"`
	}
	getJSON(t, ts.URL+"/api/v1/themes", &body)

	assert.Equal(t, 2, body.Data["Sites Culturels"])
	assert.Equal(t, 1, body.Data["Activités"])
	assert.Len(t, body.Themes, 7)
}

func TestSentiments(t *testing.T) {
	ts := testServer(t)

	var body struct {
		Data map[string]int `json:"data"`
	}
	getJSON(t, ts.URL+"/api/v1/sentiments", &body)

	assert.Equal(t, 2, body.Data[analytics.SentimentPositive])
	assert.Equal(t, 2, body.Data[analytics.SentimentNeutral])
	assert.Equal(t, 1, body.Data[analytics.SentimentNegative])
}

func TestKeywordsRequiresThemes(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/keywords")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestKeywords(t *testing.T) {
	ts := testServer(t)

	var body struct {
		Data []analytics.KeywordCount `json:"data"`
	}
	getJSON(t, ts.URL+"/api/v1/keywords?themes=Sites+Culturels", &body)

	require.NotEmpty(t, body.Data)
	assert.Equal(t, "medina", body.Data[0].Keyword)
	assert.Equal(t, 1, body.Data[0].Count)
}

func TestMap(t *testing.T) {
	ts := testServer(t)

	var body struct {
		Data []analytics.MapMarker `json:"data"`
	}
	getJSON(t, ts.URL+"/api/v1/map", &body)

	// Unknown row has no coordinates and gets no marker.
	require.Len(t, body.Data, 3)
	byCity := map[string]int{}
	for _, m := range body.Data {
		byCity[m.City] = m.Count
	}
	assert.Equal(t, 2, byCity["Fes"])
	assert.Equal(t, 1, byCity["Agadir"])
}

func TestFeedPagination(t *testing.T) {
	ts := testServer(t)

	var body struct {
		Data   []analytics.Row `json:"data"`
		Offset int             `json:"offset"`
		Limit  int             `json:"limit"`
		Total  int             `json:"total"`
	}
	getJSON(t, ts.URL+"/api/v1/feed?limit=2", &body)
	assert.Len(t, body.Data, 2)
	assert.Equal(t, 5, body.Total)

	getJSON(t, ts.URL+"/api/v1/feed?offset=4&limit=2", &body)
	assert.Len(t, body.Data, 1)
	assert.Equal(t, 4, body.Offset)

	// Offset past the end yields an empty page, not an error.
	getJSON(t, ts.URL+"/api/v1/feed?offset=100", &body)
	assert.Empty(t, body.Data)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/stats", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/v1/refresh")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
