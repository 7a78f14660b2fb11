package internal

import (
	"context"
	"encoding/json"
	"fmt"
)

// TopicStage discovers transcript topics for every project video that has a
// transcript but no topics yet.
type TopicStage struct {
	store *Store
	llm   *LLM
	model ModelConfig
	log   *Logger
}

func NewTopicStage(store *Store, llm *LLM, model ModelConfig, log *Logger) *TopicStage {
	return &TopicStage{store: store, llm: llm, model: model, log: log}
}

func (s *TopicStage) Name() string { return StageTopics }

type topicPayload struct {
	Topics []struct {
		StartTime         string   `json:"start_time"`
		Title             string   `json:"title"`
		Summary           string   `json:"summary"`
		Content           string   `json:"content"`
		BlueprintElements []string `json:"blueprint_elements"`
	} `json:"topics"`
}

func (s *TopicStage) Status(ctx context.Context, projectName string) (StageStatus, error) {
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
			continue // not this stage's concern yet
		}
		pending, err := s.isPending(&videos[i])
		if err != nil {
			return status, err
		}
		status.Total++
		if pending {
			status.Pending++
		} else {
			status.Done++
		}
	}
	status.IsComplete = status.Pending == 0
	return status, nil
}

// isPending reports whether a video still needs topic discovery: it has a
// transcript and zero discovered topics.
func (s *TopicStage) isPending(video *Video) (bool, error) {
	if video.RawTranscript == "" {
		return false, nil
	}
	n, err := s.store.TopicCountByVideo(video.ID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func (s *TopicStage) Process(ctx context.Context, projectName string) (StageResult, error) {
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
		pending, err := s.isPending(video)
		if err != nil {
			return result, err
		}
		if !pending {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.record(s.processVideo(ctx, video))
	}
	return result, nil
}

func (s *TopicStage) processVideo(ctx context.Context, video *Video) ItemOutcome {
	outcome := ItemOutcome{ID: video.YoutubeID, Title: video.Title}

	prompt, err := BuildTopicDiscoveryPrompt(video.Title, video.RawTranscript)
	if err != nil {
		outcome.Message = err.Error()
		return outcome
	}

	resp, err := s.llm.Generate(ctx, ChatRequest{
		Model:       s.model.Model,
		System:      topicDiscoverySystem,
		User:        prompt,
		Temperature: s.model.Temperature,
		MaxTokens:   s.model.MaxTokens,
		JSONOnly:    true,
	})
	if err != nil {
		s.log.Warn("topic discovery failed", "video", video.YoutubeID, "error", err)
		outcome.Message = err.Error()
		return outcome
	}

	var payload topicPayload
	if err := decodeStagePayload(resp.Content, &payload); err != nil {
		outcome.Message = err.Error()
		return outcome
	}
	if len(payload.Topics) == 0 {
		outcome.Message = "response contained no topics"
		return outcome
	}

	topics := make([]TranscriptTopic, 0, len(payload.Topics))
	for _, t := range payload.Topics {
		if t.Title == "" {
			outcome.Message = "response topic missing title"
			return outcome
		}
		elements := "[]"
		if len(t.BlueprintElements) > 0 {
			raw, err := json.Marshal(t.BlueprintElements)
			if err != nil {
				outcome.Message = fmt.Sprintf("serializing blueprint elements: %v", err)
				return outcome
			}
			elements = string(raw)
		}
		topics = append(topics, TranscriptTopic{
			VideoID:           video.ID,
			StartTime:         int64(ParseTimestamp(t.StartTime).Seconds()),
			Title:             TruncateField(t.Title, TopicTitleMax),
			Summary:           TruncateField(t.Summary, TopicSummaryMax),
			Content:           t.Content,
			BlueprintElements: elements,
		})
	}

	// All-or-nothing: a partially saved topic list would make the video look
	// processed on the next run.
	if err := s.store.Create(&topics); err != nil {
		outcome.Message = fmt.Sprintf("saving topics: %v", err)
		return outcome
	}

	outcome.Success = true
	outcome.Topics = len(topics)
	outcome.Message = fmt.Sprintf("%d topics", len(topics))
	return outcome
}
