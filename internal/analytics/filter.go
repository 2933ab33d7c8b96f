package analytics

// Filter selects a subset of rows. Every selection is optional; an empty one
// passes all rows unchanged. Active selections combine with AND semantics,
// except Themes which matches a row containing any selected theme.
type Filter struct {
	LieuTypes  []string
	Cities     []string
	Themes     []string
	Sentiments []string
}

// IsZero reports whether no selection is active.
func (f Filter) IsZero() bool {
	return len(f.LieuTypes) == 0 && len(f.Cities) == 0 &&
		len(f.Themes) == 0 && len(f.Sentiments) == 0
}

// Apply returns the rows passing every active selection.
func (f Filter) Apply(rows []Row) []Row {
	if f.IsZero() {
		return rows
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if f.Matches(row) {
			out = append(out, row)
		}
	}
	return out
}

// Matches reports whether one row passes the filter.
func (f Filter) Matches(row Row) bool {
	if len(f.LieuTypes) > 0 && !contains(f.LieuTypes, row.LieuType) {
		return false
	}
	if len(f.Cities) > 0 && !contains(f.Cities, row.City) {
		return false
	}
	if len(f.Sentiments) > 0 && !contains(f.Sentiments, row.Sentiment) {
		return false
	}
	if len(f.Themes) > 0 {
		any := false
		for _, t := range f.Themes {
			if row.HasTheme(t) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	return true
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
