package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/meridian-analytics/epitrend/internal/dataset"
	"github.com/meridian-analytics/epitrend/internal/fetcher"
	"github.com/meridian-analytics/epitrend/internal/pipeline"
	"github.com/meridian-analytics/epitrend/internal/report"
)

var (
	reportFormat string
	reportOutput string
	reportXLSX   string
	reportCSVDir string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the metrics pipeline and render a report",
	Long: `Runs the full pipeline (load, scope, filter, derive) and renders the run
summary in the requested format.

Examples:
  epitrend report
  epitrend report --format yaml
  epitrend report --format markdown --output findings.md
  epitrend report --xlsx snapshot.xlsx --csv-dir out/`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		res, err := runPipeline(ctx)
		if err != nil {
			return err
		}
		summary := report.Summarize(res)

		var rendered []byte
		switch reportFormat {
		case "markdown", "md":
			rendered = []byte(summary.Markdown())
		case "json":
			rendered, err = summary.JSON()
		case "yaml":
			rendered, err = summary.YAML()
		default:
			return eris.Errorf("report: unknown format %q", reportFormat)
		}
		if err != nil {
			return err
		}

		if reportOutput != "" {
			if err := os.WriteFile(reportOutput, rendered, 0644); err != nil {
				return eris.Wrap(err, "report: write output")
			}
		} else {
			fmt.Println(string(rendered))
		}

		if reportXLSX != "" {
			if err := report.WriteXLSX(reportXLSX, res); err != nil {
				return err
			}
		}
		if reportCSVDir != "" {
			if err := report.WriteCSVs(reportCSVDir, res); err != nil {
				return err
			}
		}

		return nil
	},
}

// runPipeline wires the configured fetcher, loader, and runner together and
// executes one run.
func runPipeline(ctx context.Context) (*pipeline.Result, error) {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: cfg.Dataset.UserAgent,
		Timeout:   time.Duration(cfg.Dataset.TimeoutSecs) * time.Second,
	})
	loader := dataset.NewLoader(f, cfg.Dataset)
	return pipeline.NewRunner(cfg, loader).Run(ctx)
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "markdown", "output format: markdown|json|yaml")
	reportCmd.Flags().StringVar(&reportOutput, "output", "", "write the report to a file instead of stdout")
	reportCmd.Flags().StringVar(&reportXLSX, "xlsx", "", "also write a snapshot workbook to this path")
	reportCmd.Flags().StringVar(&reportCSVDir, "csv-dir", "", "also export the derived tables as CSVs to this directory")
	rootCmd.AddCommand(reportCmd)
}
