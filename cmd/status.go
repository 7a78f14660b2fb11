package cmd

import (
	"github.com/spf13/cobra"

	"scriptforge/internal"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status [project]",
	Short: "Show pipeline status",
	Long: `Status reports what each configured stage has done and what it would
still process, per project, without running anything.`,
	Example: `  # Status for every project
  scriptforge status

  # Status for one project
  scriptforge status "AI Tools"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := internal.NewApp(config)
		defer app.Close()

		if len(args) == 1 {
			return printPipelineStatus(cmd.Context(), app, args[0])
		}

		store, err := app.Store()
		if err != nil {
			return err
		}
		projects, err := store.Projects()
		if err != nil {
			return err
		}
		for _, p := range projects {
			if err := printPipelineStatus(cmd.Context(), app, p.Name); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
