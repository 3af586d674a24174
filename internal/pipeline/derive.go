package pipeline

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// perMillion is the scale factor for per-capita normalization.
const perMillion = 1_000_000

// DefaultWindow is the default trailing-window size for smoothed series.
const DefaultWindow = 7

// Deriver computes derived metric columns from base columns. Derivation is a
// pure function of base columns: applying it to its own output replaces the
// derived columns with identical values.
type Deriver struct {
	Window int
}

// NewDeriver returns a Deriver with the given trailing-window size, falling
// back to DefaultWindow for non-positive values.
func NewDeriver(window int) Deriver {
	if window < 1 {
		window = DefaultWindow
	}
	return Deriver{Window: window}
}

// Derive returns a new table extended with the derived metric columns, plus
// the names of derived columns that were omitted because a base column they
// depend on is absent. An omitted column is entirely absent from the output,
// never filled with sentinels. A zero-row table is returned unchanged.
//
// Derived columns:
//   - death_rate: total_deaths / total_cases * 100; NaN where total_cases is
//     zero or either operand is missing.
//   - cases_per_million, deaths_per_million: count / population * 1e6; only
//     when a population column is present.
//   - new_cases_smoothed, new_deaths_smoothed: trailing mean over Window
//     observations within a single entity's date-ordered sequence. The first
//     Window-1 observations of each entity are NaN by policy, and windows
//     never cross entity boundaries.
func (d Deriver) Derive(df dataframe.DataFrame) (dataframe.DataFrame, []string) {
	if df.Nrow() == 0 {
		return df, nil
	}

	out := sortByEntityDate(df)
	var omitted []string

	out, omitted = d.deriveDeathRate(out, omitted)
	out, omitted = d.derivePerCapita(out, omitted)
	out, omitted = d.deriveSmoothed(out, omitted)

	for _, col := range omitted {
		zap.L().Warn("derived column omitted, base column absent", zap.String("column", col))
	}

	return out, omitted
}

func (d Deriver) deriveDeathRate(df dataframe.DataFrame, omitted []string) (dataframe.DataFrame, []string) {
	if !HasColumn(df, ColTotalCases) || !HasColumn(df, ColTotalDeaths) {
		return df, append(omitted, ColDeathRate)
	}

	cases := df.Col(ColTotalCases).Float()
	deaths := df.Col(ColTotalDeaths).Float()
	rate := make([]float64, len(cases))
	for i := range rate {
		if cases[i] == 0 || math.IsNaN(cases[i]) || math.IsNaN(deaths[i]) {
			rate[i] = math.NaN()
			continue
		}
		rate[i] = deaths[i] / cases[i] * 100
	}
	return df.Mutate(series.New(rate, series.Float, ColDeathRate)), omitted
}

func (d Deriver) derivePerCapita(df dataframe.DataFrame, omitted []string) (dataframe.DataFrame, []string) {
	if !HasColumn(df, ColPopulation) {
		return df, append(omitted, ColCasesPerMillion, ColDeathsPerMillion)
	}
	pop := df.Col(ColPopulation).Float()

	perCapita := []struct {
		base    string
		derived string
	}{
		{ColTotalCases, ColCasesPerMillion},
		{ColTotalDeaths, ColDeathsPerMillion},
	}
	for _, pc := range perCapita {
		if !HasColumn(df, pc.base) {
			omitted = append(omitted, pc.derived)
			continue
		}
		counts := df.Col(pc.base).Float()
		rate := make([]float64, len(counts))
		for i := range rate {
			if pop[i] == 0 || math.IsNaN(pop[i]) || math.IsNaN(counts[i]) {
				rate[i] = math.NaN()
				continue
			}
			rate[i] = counts[i] / pop[i] * perMillion
		}
		df = df.Mutate(series.New(rate, series.Float, pc.derived))
	}
	return df, omitted
}

func (d Deriver) deriveSmoothed(df dataframe.DataFrame, omitted []string) (dataframe.DataFrame, []string) {
	if !HasColumn(df, ColLocation) || !HasColumn(df, ColDate) {
		return df, append(omitted, ColNewCasesSmoothed, ColNewDeathsSmoothed)
	}
	locs := df.Col(ColLocation).Records()

	smoothed := []struct {
		base    string
		derived string
	}{
		{ColNewCases, ColNewCasesSmoothed},
		{ColNewDeaths, ColNewDeathsSmoothed},
	}
	for _, sm := range smoothed {
		if !HasColumn(df, sm.base) {
			omitted = append(omitted, sm.derived)
			continue
		}
		vals := rollingMean(df.Col(sm.base).Float(), locs, d.Window)
		df = df.Mutate(series.New(vals, series.Float, sm.derived))
	}
	return df, omitted
}

// rollingMean computes the trailing mean of xs over windows of size w that
// reset at every entity boundary in locs. Positions with fewer than w samples
// in the current entity's run are NaN.
func rollingMean(xs []float64, locs []string, w int) []float64 {
	out := make([]float64, len(xs))
	start := 0
	for i := range xs {
		if i > 0 && locs[i] != locs[i-1] {
			start = i
		}
		if i-start+1 < w {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.Mean(xs[i-w+1:i+1], nil)
	}
	return out
}
