package internal

import "context"

// Stage names as they appear in configuration and on the CLI.
const (
	StageTranscripts = "transcripts"
	StageTopics      = "topics"
	StageSummaries   = "summaries"
	StageClusters    = "clusters"
	StageAnalysis    = "analysis"
	StageScript      = "script"
)

// StageStatus reports what a stage would do for a project without doing it.
type StageStatus struct {
	Stage         string
	Project       string
	ProjectExists bool
	Total         int
	Done          int
	Pending       int
	IsComplete    bool
}

// ItemOutcome is the per-item result of one stage run. Chars and Topics are
// stage-specific metrics and zero where they do not apply.
type ItemOutcome struct {
	ID      string
	Title   string
	Success bool
	Message string
	Chars   int
	Topics  int
}

// StageResult summarizes one stage run over a project. Success means at
// least one item succeeded; individual failures never abort the run.
type StageResult struct {
	Stage         string
	Project       string
	ProjectExists bool
	Success       bool
	Succeeded     int
	Failed        int
	Items         []ItemOutcome
}

// Stage is one step of the pipeline. Implementations determine their own
// pending work from data state, so re-running a completed stage is a no-op.
type Stage interface {
	Name() string
	Status(ctx context.Context, projectName string) (StageStatus, error)
	Process(ctx context.Context, projectName string) (StageResult, error)
}

func newStageResult(stage, project string) StageResult {
	return StageResult{Stage: stage, Project: project, ProjectExists: true}
}

func (r *StageResult) record(item ItemOutcome) {
	r.Items = append(r.Items, item)
	if item.Success {
		r.Succeeded++
	} else {
		r.Failed++
	}
	r.Success = r.Succeeded > 0
}
