package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"scriptforge/internal"
)

var (
	config *internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scriptforge",
	Short: "Turn collections of YouTube videos into narrative video scripts",
	Long: `ScriptForge runs a multi-stage pipeline over projects of YouTube videos:
it fetches transcripts, discovers and clusters the topics they cover,
summarizes each video, and synthesizes a complete narrative script.

Projects and videos are imported from a spreadsheet. Every stage is
idempotent: already-processed items are skipped, so runs can be repeated
or resumed after failures.`,
	Example: `  # Interactive menu
  scriptforge

  # Import projects and videos from a spreadsheet
  scriptforge import projects.xlsx

  # Run all configured stages over all projects
  scriptforge run

  # Run one stage for one project
  scriptforge run "AI Tools" --stage topics`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			config.Verbose = true
		}
		if q, _ := cmd.Flags().GetBool("quiet"); q {
			config.Quiet = true
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractiveMenu(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Create a cancellable context for the entire application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize configuration with Viper
	config = internal.InitConfig()

	// Ensure XDG directories exist
	if err := internal.EnsureDirs(config.ConfigDir, config.DataDir, config.CacheDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating XDG directories: %v\n", err)
		os.Exit(1)
	}

	// Ensure default config exists in XDG config directory
	if err := internal.EnsureDefaultConfig(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default config: %v\n", err)
	}

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt signal. Shutting down...")
		cancel()
	}()

	// Set context on root command
	rootCmd.SetContext(ctx)

	return rootCmd.Execute()
}

// runInteractiveMenu drives the pipeline from a simple terminal menu.
func runInteractiveMenu(ctx context.Context) error {
	app := internal.NewApp(config)
	defer app.Close()

	reader := bufio.NewReader(os.Stdin)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Println()
		fmt.Println("ScriptForge")
		fmt.Println("  1) List projects")
		fmt.Println("  2) Show pipeline status for a project")
		fmt.Println("  3) Run all stages for all projects")
		fmt.Println("  4) Run one stage for a project")
		fmt.Println("  5) View clusters for a project")
		fmt.Println("  6) Show latest script for a project")
		fmt.Println("  q) Quit")
		fmt.Print("> ")

		choice, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		choice = strings.TrimSpace(choice)

		switch choice {
		case "1":
			if err := printProjects(app); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		case "2":
			name := promptLine(reader, "Project name: ")
			if err := printPipelineStatus(ctx, app, name); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		case "3":
			if err := app.RunAll(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		case "4":
			name := promptLine(reader, "Project name: ")
			stage := promptLine(reader, "Stage (transcripts/topics/summaries/clusters/analysis/script): ")
			if _, err := app.RunStage(ctx, stage, name); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		case "5":
			name := promptLine(reader, "Project name: ")
			if err := printClusters(app, name); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		case "6":
			name := promptLine(reader, "Project name: ")
			if err := printLatestScript(app, name); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		case "q", "quit", "exit":
			return nil
		default:
			fmt.Println("Unknown choice.")
		}
	}
}

func promptLine(reader *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func printProjects(app *internal.App) error {
	store, err := app.Store()
	if err != nil {
		return err
	}
	projects, err := store.Projects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects found. Import a spreadsheet first.")
		return nil
	}
	for _, p := range projects {
		videos, err := store.VideosByProject(p.ID)
		if err != nil {
			return err
		}
		fmt.Printf("  %s (topic: %s, videos: %d)\n", p.Name, p.Topic, len(videos))
	}
	return nil
}

func printPipelineStatus(ctx context.Context, app *internal.App, projectName string) error {
	statuses, err := app.PipelineStatus(ctx, projectName)
	if err != nil {
		return err
	}
	fmt.Printf("Pipeline status for %s:\n", projectName)
	for _, st := range statuses {
		state := "pending"
		if st.IsComplete {
			state = "complete"
		}
		fmt.Printf("  %-12s %-9s %d done, %d pending of %d\n",
			st.Stage, state, st.Done, st.Pending, st.Total)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-essential output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}
