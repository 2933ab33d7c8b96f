package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQueriesCrossProduct(t *testing.T) {
	places := []string{"Fes", "Agadir"}
	templates := []string{"visit %s", "%s tourism"}

	queries := BuildQueries(places, templates)

	// Places on the outer loop, templates on the inner.
	assert.Equal(t, []string{
		"visit Fes",
		"Fes tourism",
		"visit Agadir",
		"Agadir tourism",
	}, queries)
}

func TestBuildQueriesKeepsDuplicateRenderings(t *testing.T) {
	// Two templates rendering identically both get issued.
	queries := BuildQueries([]string{"Fes"}, []string{"visit %s", "visit %s"})

	assert.Equal(t, []string{"visit Fes", "visit Fes"}, queries)
}

func TestBuildQueriesEmpty(t *testing.T) {
	assert.Empty(t, BuildQueries(nil, []string{"visit %s"}))
	assert.Empty(t, BuildQueries([]string{"Fes"}, nil))
}
