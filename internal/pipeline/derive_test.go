package pipeline

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveDeathRate(t *testing.T) {
	df := makeTable(t, [][]string{
		{"location", "date", "total_cases", "total_deaths"},
		{"Norway", "2021-01-01", "0", "0"},
		{"Norway", "2021-01-02", "100", "10"},
		{"Norway", "2021-01-03", "400", "30"},
	})

	out, omitted := NewDeriver(7).Derive(df)
	require.Empty(t, omitted)
	require.True(t, HasColumn(out, ColDeathRate))

	rate := out.Col(ColDeathRate).Float()
	// NaN exactly when total_cases is zero, never a fatal error.
	assert.True(t, math.IsNaN(rate[0]))
	assert.InDelta(t, 10.0, rate[1], 1e-9)
	assert.InDelta(t, 7.5, rate[2], 1e-9)

	// Base columns are never overwritten.
	assert.Equal(t, df.Col(ColTotalCases).Records(), out.Col(ColTotalCases).Records())
}

func TestDerivePerMillion(t *testing.T) {
	df := makeTable(t, [][]string{
		{"location", "date", "total_cases", "total_deaths", "population"},
		{"Norway", "2021-01-01", "100", "10", "1000000"},
		{"Norway", "2021-01-02", "250", "20", "1000000"},
	})

	out, omitted := NewDeriver(7).Derive(df)
	require.Empty(t, omitted)

	cases := out.Col(ColCasesPerMillion).Float()
	deaths := out.Col(ColDeathsPerMillion).Float()
	assert.InDelta(t, 100.0, cases[0], 1e-9)
	assert.InDelta(t, 250.0, cases[1], 1e-9)
	assert.InDelta(t, 10.0, deaths[0], 1e-9)
	assert.InDelta(t, 20.0, deaths[1], 1e-9)
}

func TestDerivePerMillionOmittedWithoutPopulation(t *testing.T) {
	df := makeTable(t, [][]string{
		{"location", "date", "total_cases", "total_deaths"},
		{"Norway", "2021-01-01", "100", "10"},
	})

	out, omitted := NewDeriver(7).Derive(df)

	// The dependent derived columns are entirely absent, not sentinel-filled.
	assert.False(t, HasColumn(out, ColCasesPerMillion))
	assert.False(t, HasColumn(out, ColDeathsPerMillion))
	assert.Contains(t, omitted, ColCasesPerMillion)
	assert.Contains(t, omitted, ColDeathsPerMillion)
	// death_rate still derived from the columns that are present.
	assert.True(t, HasColumn(out, ColDeathRate))
}

func rollingFixture(t *testing.T) [][]string {
	t.Helper()
	records := [][]string{{"location", "date", "new_cases", "new_deaths"}}
	for i := 1; i <= 10; i++ {
		records = append(records, []string{
			"Norway", fmt.Sprintf("2021-01-%02d", i), fmt.Sprintf("%d", i), "1",
		})
	}
	for i := 1; i <= 8; i++ {
		records = append(records, []string{
			"Sweden", fmt.Sprintf("2021-01-%02d", i), fmt.Sprintf("%d", i*10), "2",
		})
	}
	return records
}

func TestDeriveRollingAverage(t *testing.T) {
	df := makeTable(t, rollingFixture(t))

	out, _ := NewDeriver(7).Derive(df)
	require.True(t, HasColumn(out, ColNewCasesSmoothed))

	smoothed := out.Col(ColNewCasesSmoothed).Float()
	locs := out.Col(ColLocation).Records()
	require.Equal(t, "Norway", locs[0])

	// First window-1 observations of each entity are NaN by policy.
	for i := 0; i < 6; i++ {
		assert.True(t, math.IsNaN(smoothed[i]), "Norway row %d should be NaN", i)
	}
	assert.InDelta(t, 4.0, smoothed[6], 1e-9) // mean(1..7)
	assert.InDelta(t, 5.0, smoothed[7], 1e-9) // mean(2..8)
	assert.InDelta(t, 6.0, smoothed[8], 1e-9)
	assert.InDelta(t, 7.0, smoothed[9], 1e-9)

	// The window resets at the entity boundary: Sweden starts its own run of
	// leading NaNs instead of blending Norway's tail into its mean.
	require.Equal(t, "Sweden", locs[10])
	for i := 10; i < 16; i++ {
		assert.True(t, math.IsNaN(smoothed[i]), "Sweden row %d should be NaN", i)
	}
	assert.InDelta(t, 40.0, smoothed[16], 1e-9) // mean(10..70)
	assert.InDelta(t, 50.0, smoothed[17], 1e-9) // mean(20..80)
}

func TestDeriveWindowSize(t *testing.T) {
	df := makeTable(t, rollingFixture(t))

	out, _ := NewDeriver(3).Derive(df)
	smoothed := out.Col(ColNewCasesSmoothed).Float()

	assert.True(t, math.IsNaN(smoothed[0]))
	assert.True(t, math.IsNaN(smoothed[1]))
	assert.InDelta(t, 2.0, smoothed[2], 1e-9) // mean(1..3)
}

func TestDeriveIdempotent(t *testing.T) {
	df := makeTable(t, [][]string{
		{"location", "date", "total_cases", "total_deaths", "new_cases", "new_deaths", "population"},
		{"Norway", "2021-01-01", "100", "10", "10", "1", "5400000"},
		{"Norway", "2021-01-02", "150", "12", "50", "2", "5400000"},
	})

	d := NewDeriver(7)
	once, _ := d.Derive(df)
	twice, _ := d.Derive(once)

	// Derivation is a pure function of base columns: re-deriving replaces the
	// derived columns with identical values.
	assert.Equal(t, once.Names(), twice.Names())
	assert.Equal(t, once.Records(), twice.Records())
}

func TestDeriveEmptyTable(t *testing.T) {
	df := makeTable(t, [][]string{
		{"location", "date", "total_cases", "total_deaths"},
		{"Norway", "2021-01-01", "100", "10"},
	})
	empty, err := ScopeToEntities(df, []string{"Wakanda"})
	require.NoError(t, err)

	out, omitted := NewDeriver(7).Derive(empty)
	assert.Equal(t, 0, out.Nrow())
	assert.Empty(t, omitted)
}

func TestDeriveSortsByEntityAndDate(t *testing.T) {
	df := makeTable(t, [][]string{
		{"location", "date", "total_cases", "total_deaths"},
		{"Norway", "2021-01-03", "300", "3"},
		{"Norway", "2021-01-01", "100", "1"},
		{"Norway", "2021-01-02", "200", "2"},
	})

	out, _ := NewDeriver(7).Derive(df)
	assert.Equal(t, []string{"2021-01-01", "2021-01-02", "2021-01-03"}, out.Col(ColDate).Records())
}
