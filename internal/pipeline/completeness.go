package pipeline

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// MissingReport counts missing values per entity per required column. It is
// diagnostic output only; it never feeds back into filtering decisions.
type MissingReport map[string]map[string]int

// Missing returns the missing-value count for one entity and column.
func (r MissingReport) Missing(entity, column string) int {
	return r[entity][column]
}

// TotalMissing returns the missing-value count for a column across all entities.
func (r MissingReport) TotalMissing(column string) int {
	total := 0
	for _, cols := range r {
		total += cols[column]
	}
	return total
}

// TotalForEntity returns the missing-value count across all columns for one entity.
func (r MissingReport) TotalForEntity(entity string) int {
	total := 0
	for _, n := range r[entity] {
		total += n
	}
	return total
}

// FilterComplete retains only rows where every column in required is non-null.
// Completeness is all-or-nothing per row: a row missing even one required
// field is excluded entirely. A required column absent from the table counts
// as missing on every row, so the filtered result is then empty.
//
// Independent metric groups (case/death fields vs. vaccination fields) are
// filtered by separate calls over the same input, since vaccination reporting
// is much sparser than case reporting.
func FilterComplete(df dataframe.DataFrame, required []string) (dataframe.DataFrame, MissingReport, error) {
	if !HasColumn(df, ColLocation) {
		return dataframe.DataFrame{}, nil, eris.Errorf("completeness: table has no %q column", ColLocation)
	}

	report := MissingReport{}
	if df.Nrow() == 0 {
		return df, report, nil
	}

	locs := df.Col(ColLocation).Records()
	for _, loc := range locs {
		if _, ok := report[loc]; !ok {
			cols := make(map[string]int, len(required))
			for _, c := range required {
				cols[c] = 0
			}
			report[loc] = cols
		}
	}

	type colCheck struct {
		name    string
		present bool
	}
	checks := make([]colCheck, 0, len(required))
	for _, c := range required {
		present := HasColumn(df, c)
		if !present {
			zap.L().Warn("required column absent from table, all rows excluded",
				zap.String("column", c),
			)
		}
		checks = append(checks, colCheck{name: c, present: present})
	}

	keep := make([]int, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		complete := true
		for _, c := range checks {
			if !c.present || df.Col(c.name).Elem(i).IsNA() {
				report[locs[i]][c.name]++
				complete = false
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}

	if len(keep) == df.Nrow() {
		return df.Copy(), report, nil
	}

	filtered := df.Subset(keep)
	if filtered.Error() != nil {
		return dataframe.DataFrame{}, nil, eris.Wrap(filtered.Error(), "completeness: subset")
	}
	return filtered, report, nil
}
