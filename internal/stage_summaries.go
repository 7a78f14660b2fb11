package internal

import (
	"context"
	"encoding/json"
	"fmt"
)

// SummaryStage produces the per-video topic, summary, and structured outline
// for every project video with a transcript but no summary yet.
type SummaryStage struct {
	store *Store
	llm   *LLM
	model ModelConfig
	log   *Logger
}

func NewSummaryStage(store *Store, llm *LLM, model ModelConfig, log *Logger) *SummaryStage {
	return &SummaryStage{store: store, llm: llm, model: model, log: log}
}

func (s *SummaryStage) Name() string { return StageSummaries }

type summaryPayload struct {
	VideoTopic        string          `json:"video_topic"`
	MainSummary       string          `json:"main_summary"`
	StructuredContent json.RawMessage `json:"structured_content"`
}

func summaryPending(v *Video) bool {
	return v.RawTranscript != "" && v.VideoTopic == ""
}

func (s *SummaryStage) Status(ctx context.Context, projectName string) (StageStatus, error) {
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

	videos, err := s.store.VideosByProject(project.ID)
	if err != nil {
		return status, err
	}
	for i := range videos {
		if videos[i].RawTranscript == "" {
			continue
		}
		status.Total++
		if summaryPending(&videos[i]) {
			status.Pending++
		} else {
			status.Done++
		}
	}
	status.IsComplete = status.Pending == 0
	return status, nil
}

func (s *SummaryStage) Process(ctx context.Context, projectName string) (StageResult, error) {
	result := newStageResult(s.Name(), projectName)

	project, err := s.store.ProjectByName(projectName)
	if err != nil {
		return result, err
	}
	if project == nil {
		result.ProjectExists = false
		return result, nil
	}

	videos, err := s.store.VideosByProject(project.ID)
	if err != nil {
		return result, err
	}

	for i := range videos {
		video := &videos[i]
		if !summaryPending(video) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.record(s.processVideo(ctx, video))
	}
	return result, nil
}

func (s *SummaryStage) processVideo(ctx context.Context, video *Video) ItemOutcome {
	outcome := ItemOutcome{ID: video.YoutubeID, Title: video.Title}

	prompt, err := BuildSummaryPrompt(video.Title, video.RawTranscript)
	if err != nil {
		outcome.Message = err.Error()
		return outcome
	}

	resp, err := s.llm.Generate(ctx, ChatRequest{
		Model:       s.model.Model,
		System:      summarySystem,
		User:        prompt,
		Temperature: s.model.Temperature,
		MaxTokens:   s.model.MaxTokens,
		JSONOnly:    true,
	})
	if err != nil {
		s.log.Warn("summary generation failed", "video", video.YoutubeID, "error", err)
		outcome.Message = err.Error()
		return outcome
	}

	var payload summaryPayload
	if err := decodeStagePayload(resp.Content, &payload); err != nil {
		outcome.Message = err.Error()
		return outcome
	}
	if payload.VideoTopic == "" || payload.MainSummary == "" {
		outcome.Message = "response missing video_topic or main_summary"
		return outcome
	}

	// All three fields land in one save so a video is never half-summarized.
	video.VideoTopic = TruncateField(payload.VideoTopic, VideoTopicMax)
	video.MainSummary = payload.MainSummary
	video.StructuredContent = string(payload.StructuredContent)
	if err := s.store.Save(video); err != nil {
		outcome.Message = fmt.Sprintf("saving summary: %v", err)
		return outcome
	}

	outcome.Success = true
	outcome.Chars = len(payload.MainSummary)
	outcome.Message = payload.VideoTopic
	return outcome
}
