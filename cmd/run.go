package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"scriptforge/internal"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [project]",
	Short: "Run pipeline stages",
	Long: `Run executes the configured stage sequence. Without arguments it runs
every stage for every project. With a project name it runs the sequence
for that project only; --stage limits the run to a single stage.

Stages are idempotent: items that already carry the stage's output are
skipped, and a failed item is reported and retried on the next run.`,
	Example: `  # Run all stages for all projects
  scriptforge run

  # Run all stages for one project
  scriptforge run "AI Tools"

  # Run only topic discovery for one project
  scriptforge run "AI Tools" --stage topics`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateOpenAIAPIKey(config.OpenAIAPIKey); err != nil {
			return err
		}

		app := internal.NewApp(config)
		defer app.Close()

		stage, _ := cmd.Flags().GetString("stage")

		if len(args) == 0 {
			if stage != "" {
				return fmt.Errorf("--stage requires a project name")
			}
			return app.RunAll(cmd.Context())
		}

		projectName := args[0]
		if stage != "" {
			result, err := app.RunStage(cmd.Context(), stage, projectName)
			if err != nil {
				return err
			}
			if !result.ProjectExists {
				return fmt.Errorf("project %q does not exist", projectName)
			}
			if !result.Success && len(result.Items) > 0 {
				return fmt.Errorf("stage %s failed for all %d items", stage, result.Failed)
			}
			return nil
		}

		_, err := app.RunProject(cmd.Context(), projectName)
		return err
	},
}

func init() {
	runCmd.Flags().String("stage", "", "Run only this stage (transcripts, topics, summaries, clusters, analysis, script)")
	rootCmd.AddCommand(runCmd)
}
