package pipeline

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/rotisserie/eris"
)

// LatestPerEntity returns, for each entity, the row with the maximum date.
// When several rows share an entity's maximum date, the last row of the
// entity's stable date-ordered sequence wins, so repeated runs over the same
// input always pick the same row. Used for snapshot comparisons across
// entities.
func LatestPerEntity(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if !HasColumn(df, ColLocation) || !HasColumn(df, ColDate) {
		return dataframe.DataFrame{}, eris.Errorf("latest: table needs %q and %q columns", ColLocation, ColDate)
	}
	if df.Nrow() == 0 {
		return df.Copy(), nil
	}

	sorted := sortByEntityDate(df)
	locs := sorted.Col(ColLocation).Records()

	var idx []int
	for i := range locs {
		if i == len(locs)-1 || locs[i+1] != locs[i] {
			idx = append(idx, i)
		}
	}

	latest := sorted.Subset(idx)
	if latest.Error() != nil {
		return dataframe.DataFrame{}, eris.Wrap(latest.Error(), "latest: subset")
	}
	return latest, nil
}
