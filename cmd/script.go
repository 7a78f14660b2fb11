package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"scriptforge/internal"
)

// scriptCmd represents the script command
var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Generate and show synthesized scripts",
}

// scriptGenerateCmd synthesizes a new script version for a project.
var scriptGenerateCmd = &cobra.Command{
	Use:   "generate [project]",
	Short: "Synthesize a new script version",
	Long: `Generate synthesizes a narrative script from every transcribed video of
the project. Each run creates a new version; earlier versions are kept.`,
	Example: `  # Generate a new script version
  scriptforge script generate "AI Tools"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateOpenAIAPIKey(config.OpenAIAPIKey); err != nil {
			return err
		}

		app := internal.NewApp(config)
		defer app.Close()

		script, err := app.GenerateScript(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Generated script v%d: %d words, ~%.0f minutes\n",
			script.Version, script.WordCount, script.EstimatedMinutes())
		return nil
	},
}

// scriptShowCmd prints the latest script version.
var scriptShowCmd = &cobra.Command{
	Use:   "show [project]",
	Short: "Show the latest script version",
	Example: `  # Render the latest script in the terminal
  scriptforge script show "AI Tools"

  # Pipe the raw Markdown to a file
  scriptforge script show "AI Tools" > script.md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := internal.NewApp(config)
		defer app.Close()

		script, err := app.LatestScript(args[0])
		if err != nil {
			return err
		}
		if script == nil {
			return fmt.Errorf("project %q has no script yet - run 'scriptforge script generate' first", args[0])
		}

		rendered, err := internal.RenderMarkdown(script.Content)
		if err != nil {
			return err
		}
		if !config.Quiet {
			fmt.Printf("%s (v%d, %d words, ~%.0f min)\n\n",
				script.Title, script.Version, script.WordCount, script.EstimatedMinutes())
		}
		fmt.Println(rendered)
		return nil
	},
}

// scriptCpCmd copies the latest script to the system clipboard instead of printing to stdout.
var scriptCpCmd = &cobra.Command{
	Use:   "cp [project]",
	Short: "Copy the latest script to the clipboard",
	Example: `  # Copy the latest script version
  scriptforge script cp "AI Tools"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := internal.NewApp(config)
		defer app.Close()

		script, err := app.LatestScript(args[0])
		if err != nil {
			return err
		}
		if script == nil {
			return fmt.Errorf("project %q has no script yet - run 'scriptforge script generate' first", args[0])
		}

		if err := clipboard.WriteAll(script.Content); err != nil {
			return fmt.Errorf("copying script to clipboard: %w", err)
		}
		if !config.Quiet {
			fmt.Printf("Script v%d copied to clipboard\n", script.Version)
		}
		return nil
	},
}

// printLatestScript backs the interactive menu's script view.
func printLatestScript(app *internal.App, projectName string) error {
	script, err := app.LatestScript(projectName)
	if err != nil {
		return err
	}
	if script == nil {
		fmt.Println("No script yet. Run the script stage first.")
		return nil
	}
	rendered, err := internal.RenderMarkdown(script.Content)
	if err != nil {
		return err
	}
	fmt.Printf("%s (v%d, %d words, ~%.0f min)\n\n",
		script.Title, script.Version, script.WordCount, script.EstimatedMinutes())
	fmt.Println(rendered)
	return nil
}

func init() {
	scriptCmd.AddCommand(scriptGenerateCmd)
	scriptCmd.AddCommand(scriptShowCmd)
	scriptCmd.AddCommand(scriptCpCmd)
	rootCmd.AddCommand(scriptCmd)
}
