// Package report renders pipeline results: a markdown findings narrative,
// JSON/YAML run summaries, and CSV/XLSX exports of the derived tables.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/meridian-analytics/epitrend/internal/pipeline"
)

// Summary is the serializable digest of one pipeline run.
type Summary struct {
	RunID           string           `json:"run_id" yaml:"run_id"`
	GeneratedAt     time.Time        `json:"generated_at" yaml:"generated_at"`
	SourceRows      int              `json:"source_rows" yaml:"source_rows"`
	SourceCols      int              `json:"source_columns" yaml:"source_columns"`
	ScopedRows      int              `json:"scoped_rows" yaml:"scoped_rows"`
	CaseRows        int              `json:"case_rows" yaml:"case_rows"`
	VaccinationRows int              `json:"vaccination_rows" yaml:"vaccination_rows"`
	OmittedColumns  []string         `json:"omitted_columns,omitempty" yaml:"omitted_columns,omitempty"`
	AbsentEntities  []string         `json:"absent_entities,omitempty" yaml:"absent_entities,omitempty"`
	Countries       []CountrySummary `json:"countries" yaml:"countries"`
	Findings        []string         `json:"findings" yaml:"findings"`
}

// CountrySummary is the latest derived observation for one entity. Pointer
// fields are nil where the underlying value is missing or undefined (NaN),
// which keeps the summary encodable as JSON.
type CountrySummary struct {
	Location          string   `json:"location" yaml:"location"`
	LatestDate        string   `json:"latest_date" yaml:"latest_date"`
	TotalCases        *float64 `json:"total_cases,omitempty" yaml:"total_cases,omitempty"`
	TotalDeaths       *float64 `json:"total_deaths,omitempty" yaml:"total_deaths,omitempty"`
	DeathRate         *float64 `json:"death_rate,omitempty" yaml:"death_rate,omitempty"`
	CasesPerMillion   *float64 `json:"cases_per_million,omitempty" yaml:"cases_per_million,omitempty"`
	DeathsPerMillion  *float64 `json:"deaths_per_million,omitempty" yaml:"deaths_per_million,omitempty"`
	MissingCaseValues int      `json:"missing_case_values" yaml:"missing_case_values"`
	MissingVaccValues int      `json:"missing_vaccination_values" yaml:"missing_vaccination_values"`
}

// Summarize digests a pipeline result into a Summary.
func Summarize(res *pipeline.Result) Summary {
	s := Summary{
		RunID:           res.RunID,
		GeneratedAt:     res.StartedAt,
		SourceRows:      res.SourceRows,
		SourceCols:      res.SourceCols,
		ScopedRows:      res.ScopedRows,
		CaseRows:        res.Cases.Nrow(),
		VaccinationRows: res.Vaccinations.Nrow(),
		OmittedColumns:  res.OmittedColumns,
	}

	present := map[string]bool{}
	for i := 0; i < res.Latest.Nrow(); i++ {
		c := CountrySummary{
			Location:   res.Latest.Col(pipeline.ColLocation).Elem(i).String(),
			LatestDate: res.Latest.Col(pipeline.ColDate).Elem(i).String(),
		}
		c.TotalCases = floatCell(res.Latest, pipeline.ColTotalCases, i)
		c.TotalDeaths = floatCell(res.Latest, pipeline.ColTotalDeaths, i)
		c.DeathRate = floatCell(res.Latest, pipeline.ColDeathRate, i)
		c.CasesPerMillion = floatCell(res.Latest, pipeline.ColCasesPerMillion, i)
		c.DeathsPerMillion = floatCell(res.Latest, pipeline.ColDeathsPerMillion, i)
		c.MissingCaseValues = res.CaseMissing.TotalForEntity(c.Location)
		c.MissingVaccValues = res.VaccinationMissing.TotalForEntity(c.Location)
		s.Countries = append(s.Countries, c)
		present[c.Location] = true
	}

	for _, e := range res.Entities {
		if !present[e] {
			s.AbsentEntities = append(s.AbsentEntities, e)
		}
	}

	s.Findings = findings(s)
	return s
}

// findings derives the written observations the report ends with. Everything
// here is computed from the snapshot summaries only.
func findings(s Summary) []string {
	var out []string

	if hi := maxBy(s.Countries, func(c CountrySummary) *float64 { return c.DeathRate }); hi != nil {
		out = append(out, fmt.Sprintf("%s has the highest latest death rate at %.2f%%.",
			hi.Location, *hi.DeathRate))
	}
	if lo := minBy(s.Countries, func(c CountrySummary) *float64 { return c.DeathRate }); lo != nil {
		out = append(out, fmt.Sprintf("%s has the lowest latest death rate at %.2f%%.",
			lo.Location, *lo.DeathRate))
	}
	if hi := maxBy(s.Countries, func(c CountrySummary) *float64 { return c.CasesPerMillion }); hi != nil {
		out = append(out, fmt.Sprintf("%s leads in cases per million at %.0f.",
			hi.Location, *hi.CasesPerMillion))
	}

	var sparse []string
	for _, c := range s.Countries {
		if c.MissingVaccValues > 0 {
			sparse = append(sparse, c.Location)
		}
	}
	if len(sparse) > 0 {
		out = append(out, fmt.Sprintf("Vaccination reporting is incomplete for %s.",
			strings.Join(sparse, ", ")))
	}
	if len(s.AbsentEntities) > 0 {
		out = append(out, fmt.Sprintf("Requested but absent from the source data: %s.",
			strings.Join(s.AbsentEntities, ", ")))
	}

	return out
}

func maxBy(cs []CountrySummary, key func(CountrySummary) *float64) *CountrySummary {
	var best *CountrySummary
	for i := range cs {
		v := key(cs[i])
		if v == nil {
			continue
		}
		if best == nil || *v > *key(*best) {
			best = &cs[i]
		}
	}
	return best
}

func minBy(cs []CountrySummary, key func(CountrySummary) *float64) *CountrySummary {
	var best *CountrySummary
	for i := range cs {
		v := key(cs[i])
		if v == nil {
			continue
		}
		if best == nil || *v < *key(*best) {
			best = &cs[i]
		}
	}
	return best
}

// floatCell returns the value at (col, row) or nil when the column is absent
// or the value is NaN.
func floatCell(df dataframe.DataFrame, col string, row int) *float64 {
	if !pipeline.HasColumn(df, col) {
		return nil
	}
	v := df.Col(col).Elem(row).Float()
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// JSON renders the summary as indented JSON.
func (s Summary) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "report: marshal json")
	}
	return data, nil
}

// YAML renders the summary as YAML.
func (s Summary) YAML() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, eris.Wrap(err, "report: marshal yaml")
	}
	return data, nil
}

// Markdown renders the summary as a human-readable report.
func (s Summary) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Epidemiological metrics report\n\n")
	fmt.Fprintf(&b, "Run `%s`, generated %s.\n\n", s.RunID, s.GeneratedAt.Format("2006-01-02 15:04 MST"))

	fmt.Fprintf(&b, "## Pipeline\n\n")
	fmt.Fprintf(&b, "- Source table: %d rows, %d columns\n", s.SourceRows, s.SourceCols)
	fmt.Fprintf(&b, "- Scoped rows: %d\n", s.ScopedRows)
	fmt.Fprintf(&b, "- Complete case/death rows: %d\n", s.CaseRows)
	fmt.Fprintf(&b, "- Complete vaccination rows: %d\n", s.VaccinationRows)
	if len(s.OmittedColumns) > 0 {
		fmt.Fprintf(&b, "- Omitted derived columns: %s\n", strings.Join(s.OmittedColumns, ", "))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Latest snapshot per country\n\n")
	b.WriteString("| Country | Date | Total cases | Total deaths | Death rate (%) | Cases per million |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, c := range s.Countries {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			c.Location, c.LatestDate,
			fmtCount(c.TotalCases), fmtCount(c.TotalDeaths),
			fmtRate(c.DeathRate), fmtCount(c.CasesPerMillion),
		)
	}
	b.WriteString("\n")

	if len(s.Findings) > 0 {
		fmt.Fprintf(&b, "## Findings\n\n")
		for _, f := range s.Findings {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	return b.String()
}

func fmtCount(v *float64) string {
	if v == nil {
		return "–"
	}
	return fmt.Sprintf("%.0f", *v)
}

func fmtRate(v *float64) string {
	if v == nil {
		return "–"
	}
	return fmt.Sprintf("%.2f", *v)
}

// WriteCSVs writes the derived tables to dir as cases.csv, vaccinations.csv,
// and latest.csv.
func WriteCSVs(dir string, res *pipeline.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return eris.Wrap(err, "report: create output dir")
	}
	tables := []struct {
		name string
		df   dataframe.DataFrame
	}{
		{"cases.csv", res.Cases},
		{"vaccinations.csv", res.Vaccinations},
		{"latest.csv", res.Latest},
	}
	for _, tb := range tables {
		file, err := os.Create(filepath.Join(dir, tb.name))
		if err != nil {
			return eris.Wrapf(err, "report: create %s", tb.name)
		}
		if err := tb.df.WriteCSV(file); err != nil {
			_ = file.Close()
			return eris.Wrapf(err, "report: write %s", tb.name)
		}
		if err := file.Close(); err != nil {
			return eris.Wrapf(err, "report: close %s", tb.name)
		}
	}
	return nil
}
