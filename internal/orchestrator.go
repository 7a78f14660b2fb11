package internal

import (
	"context"
	"fmt"
)

// Orchestrator runs the configured stage sequence over projects. Stages run
// strictly in order; a stage whose status reads complete is skipped, and
// failures inside a stage never stop the stages or projects after it.
type Orchestrator struct {
	stages []Stage
	ui     UIManager
	log    *Logger
}

func NewOrchestrator(stages []Stage, ui UIManager, log *Logger) *Orchestrator {
	return &Orchestrator{stages: stages, ui: ui, log: log}
}

// Stages returns the configured sequence.
func (o *Orchestrator) Stages() []Stage { return o.stages }

// StageByName finds a configured stage.
func (o *Orchestrator) StageByName(name string) (Stage, error) {
	for _, s := range o.stages {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown stage: %s", name)
}

// RunProject runs the full sequence for one project. The returned results
// hold one entry per stage that actually processed something.
func (o *Orchestrator) RunProject(ctx context.Context, projectName string) ([]StageResult, error) {
	var results []StageResult
	for _, stage := range o.stages {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		status, err := stage.Status(ctx, projectName)
		if err != nil {
			return results, fmt.Errorf("checking %s status: %w", stage.Name(), err)
		}
		if !status.ProjectExists {
			return results, fmt.Errorf("project %q does not exist", projectName)
		}
		if status.IsComplete {
			o.ui.Verbose("  %s: up to date\n", stage.Name())
			continue
		}

		o.ui.Printf("  %s: %d pending\n", stage.Name(), status.Pending)
		result, err := o.RunStage(ctx, stage, projectName)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// RunStage runs one stage for one project and reports per-item outcomes.
func (o *Orchestrator) RunStage(ctx context.Context, stage Stage, projectName string) (StageResult, error) {
	result, err := stage.Process(ctx, projectName)
	if err != nil {
		return result, fmt.Errorf("running %s: %w", stage.Name(), err)
	}

	for _, item := range result.Items {
		mark := "ok"
		if !item.Success {
			mark = "FAILED"
		}
		o.ui.Printf("    [%s] %s: %s\n", mark, item.Title, item.Message)
	}
	if result.Failed > 0 {
		o.ui.Printf("  %s: %d succeeded, %d failed\n", stage.Name(), result.Succeeded, result.Failed)
	}
	return result, nil
}

// RunAll runs the full sequence for every known project. A failing project
// is reported and the remaining projects still run.
func (o *Orchestrator) RunAll(ctx context.Context, store *Store) error {
	projects, err := store.Projects()
	if err != nil {
		return fmt.Errorf("listing projects: %w", err)
	}
	if len(projects) == 0 {
		o.ui.Println("No projects found. Import a spreadsheet first.")
		return nil
	}

	bar := o.ui.NewProgressBar(len(projects), "projects")
	defer bar.Finish()

	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			return err
		}
		bar.Describe(p.Name)
		o.ui.Printf("Project %s\n", p.Name)
		if _, err := o.RunProject(ctx, p.Name); err != nil {
			if ctx.Err() != nil {
				return err
			}
			o.log.Error("project run failed", "project", p.Name, "error", err)
			o.ui.Printf("  project failed: %v\n", err)
		}
		bar.Add(1)
	}
	return nil
}
