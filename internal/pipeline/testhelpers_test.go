package pipeline

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/require"
)

// makeTable builds an observation table from records (header row first) with
// the same column typing the dataset loader applies: known metric columns are
// floats where empty strings parse to NaN, everything else stays a string.
func makeTable(t *testing.T, records [][]string) dataframe.DataFrame {
	t.Helper()
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(map[string]series.Type{
			ColTotalCases:             series.Float,
			ColNewCases:               series.Float,
			ColTotalDeaths:            series.Float,
			ColNewDeaths:              series.Float,
			ColPopulation:             series.Float,
			"total_vaccinations":      series.Float,
			"people_vaccinated":       series.Float,
			"people_fully_vaccinated": series.Float,
		}),
	)
	require.NoError(t, df.Error())
	return df
}
