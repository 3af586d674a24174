package pipeline

import (
	"context"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/meridian-analytics/epitrend/internal/config"
	"github.com/meridian-analytics/epitrend/internal/dataset"
)

// Result holds the outputs of one pipeline run: the derived tables, the
// latest-per-entity snapshot, and the diagnostics accumulated along the way.
type Result struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	SourceRows int
	SourceCols int
	ScopedRows int
	Entities   []string

	// Cases is the case/death sub-table extended with derived metrics.
	Cases dataframe.DataFrame
	// Vaccinations is the independently filtered vaccination sub-table.
	// Vaccination reporting is sparser, so it is usually smaller than Cases.
	Vaccinations dataframe.DataFrame
	// Latest holds one row per entity: its most recent derived observation.
	Latest dataframe.DataFrame

	CaseMissing        MissingReport
	VaccinationMissing MissingReport
	OmittedColumns     []string
}

// Runner wires the pipeline stages together: load, scope, filter, derive,
// snapshot. Control flow is strictly linear and synchronous; each stage
// consumes the previous stage's output table.
type Runner struct {
	cfg    *config.Config
	loader *dataset.Loader
}

// NewRunner creates a Runner for the given configuration and loader.
func NewRunner(cfg *config.Config, loader *dataset.Loader) *Runner {
	return &Runner{cfg: cfg, loader: loader}
}

// Run executes the full pipeline once. An ingestion failure is fatal; every
// later stage tolerates missing entities and missing optional columns.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	started := time.Now()
	log := zap.L().With(zap.String("run_id", runID))

	raw, err := r.loader.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load")
	}

	scoped, err := ScopeToEntities(raw, r.cfg.Scope.Entities)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: scope")
	}
	log.Info("scoped to configured entities",
		zap.Int("source_rows", raw.Nrow()),
		zap.Int("scoped_rows", scoped.Nrow()),
	)

	cases, caseMissing, err := FilterComplete(scoped, r.cfg.Metrics.CaseColumns)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: filter case columns")
	}
	vax, vaxMissing, err := FilterComplete(scoped, r.cfg.Metrics.VaccinationColumns)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: filter vaccination columns")
	}
	log.Info("filtered incomplete rows",
		zap.Int("case_rows", cases.Nrow()),
		zap.Int("vaccination_rows", vax.Nrow()),
	)

	deriver := NewDeriver(r.cfg.Metrics.RollingWindow)
	derived, omitted := deriver.Derive(cases)

	latest, err := LatestPerEntity(derived)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: latest per entity")
	}
	log.Info("derived metrics",
		zap.Int("rows", derived.Nrow()),
		zap.Int("snapshot_rows", latest.Nrow()),
		zap.Strings("omitted_columns", omitted),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &Result{
		RunID:              runID,
		StartedAt:          started,
		Duration:           time.Since(started),
		SourceRows:         raw.Nrow(),
		SourceCols:         raw.Ncol(),
		ScopedRows:         scoped.Nrow(),
		Entities:           r.cfg.Scope.Entities,
		Cases:              derived,
		Vaccinations:       vax,
		Latest:             latest,
		CaseMissing:        caseMissing,
		VaccinationMissing: vaxMissing,
		OmittedColumns:     omitted,
	}, nil
}
