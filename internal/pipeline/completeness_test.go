package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterCompleteDropsRowsMissingAnyField(t *testing.T) {
	df := makeTable(t, [][]string{
		{"location", "date", "total_cases", "total_deaths"},
		{"Norway", "2021-01-01", "5", ""},
		{"Norway", "2021-01-02", "5", "1"},
	})

	filtered, report, err := FilterComplete(df, []string{ColTotalCases, ColTotalDeaths})
	require.NoError(t, err)

	// Completeness is all-or-nothing per row: only the second row survives.
	require.Equal(t, 1, filtered.Nrow())
	assert.Equal(t, "2021-01-02", filtered.Col(ColDate).Records()[0])

	assert.Equal(t, 0, report.Missing("Norway", ColTotalCases))
	assert.Equal(t, 1, report.Missing("Norway", ColTotalDeaths))
}

func TestFilterCompletePerEntityCounts(t *testing.T) {
	df := makeTable(t, [][]string{
		{"location", "date", "new_cases", "new_deaths"},
		{"Norway", "2021-01-01", "10", "1"},
		{"Norway", "2021-01-02", "", "1"},
		{"Norway", "2021-01-03", "", ""},
		{"Sweden", "2021-01-01", "20", "2"},
		{"Sweden", "2021-01-02", "25", ""},
	})

	filtered, report, err := FilterComplete(df, []string{ColNewCases, ColNewDeaths})
	require.NoError(t, err)

	assert.Equal(t, 2, filtered.Nrow())
	assert.Equal(t, 2, report.Missing("Norway", ColNewCases))
	assert.Equal(t, 1, report.Missing("Norway", ColNewDeaths))
	assert.Equal(t, 0, report.Missing("Sweden", ColNewCases))
	assert.Equal(t, 1, report.Missing("Sweden", ColNewDeaths))
	assert.Equal(t, 2, report.TotalMissing(ColNewCases))
	assert.Equal(t, 3, report.TotalForEntity("Norway"))
}

func TestFilterCompleteAllComplete(t *testing.T) {
	df := makeTable(t, [][]string{
		{"location", "date", "total_cases"},
		{"Norway", "2021-01-01", "100"},
		{"Norway", "2021-01-02", "120"},
	})

	filtered, report, err := FilterComplete(df, []string{ColTotalCases})
	require.NoError(t, err)
	assert.Equal(t, 2, filtered.Nrow())
	assert.Equal(t, 0, report.Missing("Norway", ColTotalCases))
}

func TestFilterCompleteAbsentColumn(t *testing.T) {
	df := makeTable(t, [][]string{
		{"location", "date", "total_cases"},
		{"Norway", "2021-01-01", "100"},
		{"Norway", "2021-01-02", "120"},
	})

	// A required column the table does not have counts as missing everywhere.
	filtered, report, err := FilterComplete(df, []string{ColTotalCases, "total_vaccinations"})
	require.NoError(t, err)
	assert.Equal(t, 0, filtered.Nrow())
	assert.Equal(t, 2, report.Missing("Norway", "total_vaccinations"))
	assert.Equal(t, 0, report.Missing("Norway", ColTotalCases))
}

func TestFilterCompleteEmptyTable(t *testing.T) {
	df := makeTable(t, [][]string{
		{"location", "date", "total_cases"},
		{"Norway", "2021-01-01", "100"},
	})
	empty, err := ScopeToEntities(df, []string{"Wakanda"})
	require.NoError(t, err)

	filtered, report, err := FilterComplete(empty, []string{ColTotalCases})
	require.NoError(t, err)
	assert.Equal(t, 0, filtered.Nrow())
	assert.Empty(t, report)
}

func TestFilterCompleteNoLocationColumn(t *testing.T) {
	df := makeTable(t, [][]string{
		{"date", "total_cases"},
		{"2021-01-01", "100"},
	})

	_, _, err := FilterComplete(df, []string{ColTotalCases})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "location")
}
