package pipeline

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ScopeToEntities restricts the table to rows whose location is in entities
// and establishes the (location, date) ordering downstream stages depend on.
// All columns are preserved. Entities absent from the table are not an error;
// they simply contribute zero rows, which is logged for observability.
func ScopeToEntities(df dataframe.DataFrame, entities []string) (dataframe.DataFrame, error) {
	if !HasColumn(df, ColLocation) {
		return dataframe.DataFrame{}, eris.Errorf("scope: table has no %q column", ColLocation)
	}

	scoped := df.Filter(dataframe.F{
		Colname:    ColLocation,
		Comparator: series.In,
		Comparando: entities,
	})
	if scoped.Error() != nil {
		return dataframe.DataFrame{}, eris.Wrap(scoped.Error(), "scope: filter")
	}
	scoped = sortByEntityDate(scoped)

	present := make(map[string]int, len(entities))
	if scoped.Nrow() > 0 {
		for _, loc := range scoped.Col(ColLocation).Records() {
			present[loc]++
		}
	}
	for _, e := range entities {
		if present[e] == 0 {
			zap.L().Info("entity absent from source data", zap.String("entity", e))
		}
	}
	zap.L().Debug("scoped observations",
		zap.Int("rows", scoped.Nrow()),
		zap.Int("entities_requested", len(entities)),
		zap.Int("entities_present", len(present)),
	)

	return scoped, nil
}
