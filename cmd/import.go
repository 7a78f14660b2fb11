package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"scriptforge/internal"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import [spreadsheet]",
	Short: "Import projects and videos from a spreadsheet",
	Long: `Import reads an .xlsx spreadsheet with a header row naming at least a
'project' column and a video URL column, plus an optional 'topic' column.

Projects are created on first reference. Video and channel metadata is
fetched from the YouTube Data API in batches. Each imported row is marked
'Imported' in the sheet and skipped on subsequent runs.`,
	Example: `  # Import the configured default spreadsheet
  scriptforge import

  # Import a specific file
  scriptforge import research/projects.xlsx`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.Spreadsheet
		if len(args) == 1 {
			path = args[0]
		}
		if !internal.FileExists(path) {
			return fmt.Errorf("spreadsheet not found: %s", path)
		}

		app := internal.NewApp(config)
		defer app.Close()

		report, err := app.ImportSpreadsheet(cmd.Context(), path)
		if err != nil {
			return err
		}

		fmt.Printf("Imported %d of %d rows (%d already imported, %d failed)\n",
			report.Imported, report.Rows, report.Skipped, report.Failed)
		for _, msg := range report.Errors {
			fmt.Printf("  %s\n", msg)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
