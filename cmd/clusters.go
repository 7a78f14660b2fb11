package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scriptforge/internal"
)

// clustersCmd represents the clusters command
var clustersCmd = &cobra.Command{
	Use:   "clusters [project]",
	Short: "Show a project's topic clusters",
	Long: `Clusters lists the topic clusters of a project in display order, with
each cluster's topics, their source videos and timestamps.

With --analyze, every cluster is additionally assessed by the language
model on readiness, density and structure. The assessment is transient
output and never stored.`,
	Example: `  # Show clusters
  scriptforge clusters "AI Tools"

  # Show clusters with quality analysis
  scriptforge clusters "AI Tools" --analyze`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := internal.NewApp(config)
		defer app.Close()

		projectName := args[0]
		if err := printClusters(app, projectName); err != nil {
			return err
		}

		analyze, _ := cmd.Flags().GetBool("analyze")
		if !analyze {
			return nil
		}

		if err := internal.ValidateOpenAIAPIKey(config.OpenAIAPIKey); err != nil {
			return err
		}
		analyzer, err := app.Analyzer()
		if err != nil {
			return err
		}
		analysis, err := analyzer.AnalyzeProject(cmd.Context(), projectName)
		if err != nil {
			return err
		}
		if analysis == nil {
			return fmt.Errorf("project %q does not exist", projectName)
		}
		return printAnalysis(analysis)
	},
}

func printClusters(app *internal.App, projectName string) error {
	store, err := app.Store()
	if err != nil {
		return err
	}
	project, err := store.ProjectByName(projectName)
	if err != nil {
		return err
	}
	if project == nil {
		return fmt.Errorf("project %q does not exist", projectName)
	}

	clusters, err := store.ClustersByProject(project.ID)
	if err != nil {
		return err
	}
	if len(clusters) == 0 {
		fmt.Println("No clusters yet. Run the clusters stage first.")
		return nil
	}

	for _, cluster := range clusters {
		assignments, err := store.AssignmentsByCluster(cluster.ID)
		if err != nil {
			return err
		}
		fmt.Printf("\n%d. %s (%d topics)\n", cluster.DisplayOrder, cluster.Name, len(assignments))
		if cluster.Description != "" {
			fmt.Printf("   %s\n", cluster.Description)
		}
		for _, asg := range assignments {
			if asg.Topic == nil {
				continue
			}
			mark := ""
			if asg.Topic.Selected {
				mark = " *"
			}
			fmt.Printf("   - [%s] %s%s\n",
				internal.FormatTimestamp(asg.Topic.StartOffset()), asg.Topic.Title, mark)
			if asg.Rationale != "" {
				fmt.Printf("     %s\n", asg.Rationale)
			}
		}
	}
	return nil
}

// printAnalysis renders a project analysis as Markdown on the terminal.
func printAnalysis(analysis *internal.ProjectAnalysis) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Cluster analysis: %s\n", analysis.Project)
	for _, ca := range analysis.Clusters {
		fmt.Fprintf(&sb, "\n## %s (%d topics)\n", ca.ClusterName, ca.TopicCount)
		writeAspect(&sb, "Readiness", ca.Readiness)
		writeAspect(&sb, "Density", ca.Density)
		writeAspect(&sb, "Structure", ca.Structure)
	}

	rendered, err := internal.RenderMarkdown(sb.String())
	if err != nil {
		return err
	}
	fmt.Println(rendered)
	return nil
}

func writeAspect(sb *strings.Builder, label string, report *internal.AspectReport) {
	if report == nil {
		fmt.Fprintf(sb, "\n**%s**: assessment unavailable\n", label)
		return
	}
	fmt.Fprintf(sb, "\n**%s** (%d/100): %s\n", label, report.Score, report.Assessment)
	for _, m := range report.MissingElements {
		fmt.Fprintf(sb, "- missing: %s\n", m)
	}
	for _, r := range report.Redundancies {
		fmt.Fprintf(sb, "- redundant: %s\n", r)
	}
	if len(report.SuggestedOrder) > 0 {
		order := make([]string, len(report.SuggestedOrder))
		for i, idx := range report.SuggestedOrder {
			order[i] = fmt.Sprint(idx)
		}
		fmt.Fprintf(sb, "- suggested order: %s\n", strings.Join(order, ", "))
	}
}

func init() {
	clustersCmd.Flags().Bool("analyze", false, "Assess cluster quality with the language model")
	rootCmd.AddCommand(clustersCmd)
}
