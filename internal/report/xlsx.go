package report

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/meridian-analytics/epitrend/internal/pipeline"
)

// WriteXLSX writes a snapshot workbook with one sheet for the latest-per-
// country table and one for the run summary. NaN cells stay empty so
// spreadsheet consumers see blanks instead of a NaN literal.
func WriteXLSX(path string, res *pipeline.Result) error {
	file := xlsx.NewFile()

	if err := addTableSheet(file, "Latest", res.Latest); err != nil {
		return err
	}
	if err := addSummarySheet(file, Summarize(res)); err != nil {
		return err
	}

	if err := file.Save(path); err != nil {
		return eris.Wrap(err, "report: save xlsx")
	}
	return nil
}

func addTableSheet(file *xlsx.File, name string, df dataframe.DataFrame) error {
	sheet, err := file.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "report: add sheet %s", name)
	}

	header := sheet.AddRow()
	for _, col := range df.Names() {
		header.AddCell().SetString(col)
	}

	types := df.Types()
	for i := 0; i < df.Nrow(); i++ {
		row := sheet.AddRow()
		for j, col := range df.Names() {
			cell := row.AddCell()
			if types[j] == series.Float {
				v := df.Col(col).Elem(i).Float()
				if math.IsNaN(v) {
					continue
				}
				cell.SetFloat(v)
				continue
			}
			cell.SetString(df.Col(col).Elem(i).String())
		}
	}
	return nil
}

func addSummarySheet(file *xlsx.File, s Summary) error {
	sheet, err := file.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	addKV := func(key, value string) {
		row := sheet.AddRow()
		row.AddCell().SetString(key)
		row.AddCell().SetString(value)
	}
	addKV("Run", s.RunID)
	addKV("Generated", s.GeneratedAt.Format("2006-01-02 15:04:05"))

	addInt := func(key string, value int) {
		row := sheet.AddRow()
		row.AddCell().SetString(key)
		row.AddCell().SetInt(value)
	}
	addInt("Source rows", s.SourceRows)
	addInt("Scoped rows", s.ScopedRows)
	addInt("Case rows", s.CaseRows)
	addInt("Vaccination rows", s.VaccinationRows)

	for _, f := range s.Findings {
		row := sheet.AddRow()
		row.AddCell().SetString(f)
	}
	return nil
}
