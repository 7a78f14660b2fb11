package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ScriptStage synthesizes one narrative script per run from every project
// video that has a transcript. Each run appends a new immutable version.
type ScriptStage struct {
	store *Store
	llm   *LLM
	model ModelConfig
	log   *Logger
}

func NewScriptStage(store *Store, llm *LLM, model ModelConfig, log *Logger) *ScriptStage {
	return &ScriptStage{store: store, llm: llm, model: model, log: log}
}

func (s *ScriptStage) Name() string { return StageScript }

func (s *ScriptStage) Status(ctx context.Context, projectName string) (StageStatus, error) {
	status := StageStatus{Stage: s.Name(), Project: projectName}

	project, err := s.store.ProjectByName(projectName)
	if err != nil {
		return status, err
	}
	if project == nil {
		status.IsComplete = true
		return status, nil
	}
	status.ProjectExists = true

	sources, err := s.sources(project)
	if err != nil {
		return status, err
	}
	version, err := s.store.MaxScriptVersion(project.ID)
	if err != nil {
		return status, err
	}

	// Synthesis always produces a fresh version, so the stage reads complete
	// only once a script exists and never blocks re-runs through Process.
	status.Total = 1
	if version > 0 {
		status.Done = 1
	} else if len(sources) > 0 {
		status.Pending = 1
	}
	status.IsComplete = status.Pending == 0
	return status, nil
}

func (s *ScriptStage) Process(ctx context.Context, projectName string) (StageResult, error) {
	result := newStageResult(s.Name(), projectName)

	project, err := s.store.ProjectByName(projectName)
	if err != nil {
		return result, err
	}
	if project == nil {
		result.ProjectExists = false
		return result, nil
	}

	script, err := s.Synthesize(ctx, project)
	if err != nil {
		result.record(ItemOutcome{ID: project.Name, Title: project.Name, Message: err.Error()})
		return result, nil
	}

	result.record(ItemOutcome{
		ID:      script.ID.String(),
		Title:   script.Title,
		Success: true,
		Chars:   len(script.Content),
		Message: fmt.Sprintf("v%d, %d words, ~%.0f min", script.Version, script.WordCount, script.EstimatedMinutes()),
	})
	return result, nil
}

// Synthesize generates and persists the next script version for a project.
// It requires at least one video with a transcript.
func (s *ScriptStage) Synthesize(ctx context.Context, project *Project) (*Script, error) {
	videos, err := s.store.VideosByProject(project.ID)
	if err != nil {
		return nil, err
	}

	titles, err := s.store.ChannelTitles(videos)
	if err != nil {
		return nil, err
	}
	sources := buildScriptSources(videos, titles)
	if len(sources) == 0 {
		return nil, fmt.Errorf("no videos with transcripts")
	}

	prompt, err := BuildScriptPrompt(project.Name, project.Topic, sources)
	if err != nil {
		return nil, err
	}

	resp, err := s.llm.Generate(ctx, ChatRequest{
		Model:       s.model.Model,
		System:      scriptSystem,
		User:        prompt,
		Temperature: s.model.Temperature,
		MaxTokens:   s.model.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(StripCodeFence(resp.Content))
	if content == "" {
		return nil, fmt.Errorf("empty script response")
	}

	version, err := s.store.MaxScriptVersion(project.ID)
	if err != nil {
		return nil, err
	}

	title := project.Topic
	if title == "" {
		title = project.Name
	}
	script := &Script{
		ProjectID:        project.ID,
		Title:            title,
		Content:          content,
		Version:          version + 1,
		WordCount:        len(strings.Fields(content)),
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
	}
	if err := s.store.Create(script); err != nil {
		return nil, fmt.Errorf("saving script: %w", err)
	}
	return script, nil
}

func (s *ScriptStage) sources(project *Project) ([]ScriptSource, error) {
	videos, err := s.store.VideosByProject(project.ID)
	if err != nil {
		return nil, err
	}
	titles, err := s.store.ChannelTitles(videos)
	if err != nil {
		return nil, err
	}
	return buildScriptSources(videos, titles), nil
}

// buildScriptSources collects one excerpt per transcribed video. The summary
// stage's output is preferred as the excerpt; videos not yet summarized fall
// back to the raw transcript, word-capped in the prompt builder.
func buildScriptSources(videos []Video, channelTitles map[uuid.UUID]string) []ScriptSource {
	var out []ScriptSource
	for i := range videos {
		v := &videos[i]
		if v.RawTranscript == "" {
			continue
		}
		excerpt := v.MainSummary
		if excerpt == "" {
			excerpt = v.RawTranscript
		}
		out = append(out, ScriptSource{
			Title:   v.Title,
			Channel: channelTitles[v.ChannelID],
			Excerpt: excerpt,
		})
	}
	return out
}
