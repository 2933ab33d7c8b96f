package ingest

import "fmt"

// BuildQueries renders the full cross product of places and templates,
// places on the outer loop so one destination is fully covered before the
// next. Identical renderings from different templates are both kept.
func BuildQueries(places []string, templates []string) []string {
	queries := make([]string, 0, len(places)*len(templates))
	for _, place := range places {
		for _, tmpl := range templates {
			queries = append(queries, fmt.Sprintf(tmpl, place))
		}
	}
	return queries
}
