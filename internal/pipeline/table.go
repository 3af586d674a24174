// Package pipeline implements the observation metrics pipeline: scoping the
// raw table to configured entities, filtering incomplete rows, and deriving
// per-entity time-series metrics. Every stage takes a table and returns a new
// table; nothing is mutated in place.
package pipeline

import (
	"slices"

	"github.com/go-gota/gota/dataframe"
)

// Base column names of the observation table. Column presence is not
// guaranteed by the upstream feed; every stage checks before use.
const (
	ColLocation    = "location"
	ColDate        = "date"
	ColTotalCases  = "total_cases"
	ColNewCases    = "new_cases"
	ColTotalDeaths = "total_deaths"
	ColNewDeaths   = "new_deaths"
	ColPopulation  = "population"
)

// Derived column names. These are always computed from base columns and never
// overwrite them.
const (
	ColDeathRate         = "death_rate"
	ColCasesPerMillion   = "cases_per_million"
	ColDeathsPerMillion  = "deaths_per_million"
	ColNewCasesSmoothed  = "new_cases_smoothed"
	ColNewDeathsSmoothed = "new_deaths_smoothed"
)

// HasColumn reports whether the table has a column with the given name.
func HasColumn(df dataframe.DataFrame, name string) bool {
	return slices.Contains(df.Names(), name)
}

// sortByEntityDate establishes the canonical (location, date) ordering. Dates
// are ISO-8601 strings, so lexical order is chronological. Arrange is stable,
// which keeps duplicate (location, date) rows in their source order and makes
// every downstream tie-break deterministic.
func sortByEntityDate(df dataframe.DataFrame) dataframe.DataFrame {
	if df.Nrow() == 0 || !HasColumn(df, ColLocation) || !HasColumn(df, ColDate) {
		return df
	}
	return df.Arrange(dataframe.Sort(ColLocation), dataframe.Sort(ColDate))
}
