package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var latestCSV string

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the latest derived observation per country",
	Long: `Runs the pipeline and prints one row per country: its most recent
observation with all derived metric columns.

Examples:
  epitrend latest
  epitrend latest --csv latest.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		res, err := runPipeline(cmd.Context())
		if err != nil {
			return err
		}

		if latestCSV != "" {
			file, err := os.Create(latestCSV)
			if err != nil {
				return eris.Wrap(err, "latest: create output file")
			}
			defer file.Close() //nolint:errcheck
			if err := res.Latest.WriteCSV(file); err != nil {
				return eris.Wrap(err, "latest: write csv")
			}
			return nil
		}

		fmt.Println(res.Latest)
		return nil
	},
}

func init() {
	latestCmd.Flags().StringVar(&latestCSV, "csv", "", "write the snapshot as CSV to this path instead of printing")
	rootCmd.AddCommand(latestCmd)
}
