package internal

import (
	"context"
	"fmt"
	"time"
)

// TranscriptStage downloads raw transcripts for every project video that
// does not have one yet.
type TranscriptStage struct {
	store   *Store
	fetcher TranscriptFetcher
	delay   time.Duration
	log     *Logger
}

func NewTranscriptStage(store *Store, fetcher TranscriptFetcher, delay time.Duration, log *Logger) *TranscriptStage {
	return &TranscriptStage{store: store, fetcher: fetcher, delay: delay, log: log}
}

func (s *TranscriptStage) Name() string { return StageTranscripts }

func (s *TranscriptStage) Status(ctx context.Context, projectName string) (StageStatus, error) {
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
	status.Total = len(videos)
	for _, v := range videos {
		if v.RawTranscript == "" {
			status.Pending++
		} else {
			status.Done++
		}
	}
	status.IsComplete = status.Pending == 0
	return status, nil
}

func (s *TranscriptStage) Process(ctx context.Context, projectName string) (StageResult, error) {
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

	first := true
	for i := range videos {
		video := &videos[i]
		if video.RawTranscript != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !first && s.delay > 0 {
			time.Sleep(s.delay)
		}
		first = false

		result.record(s.processVideo(ctx, video))
	}
	return result, nil
}

func (s *TranscriptStage) processVideo(ctx context.Context, video *Video) ItemOutcome {
	outcome := ItemOutcome{ID: video.YoutubeID, Title: video.Title}

	text, err := s.fetcher.Fetch(ctx, video.URL())
	if err != nil {
		s.log.Warn("transcript fetch failed", "video", video.YoutubeID, "error", err)
		outcome.Message = err.Error()
		return outcome
	}

	video.RawTranscript = text
	if err := s.store.Save(video); err != nil {
		outcome.Message = fmt.Sprintf("saving transcript: %v", err)
		return outcome
	}

	outcome.Success = true
	outcome.Chars = len(text)
	outcome.Message = fmt.Sprintf("%d characters", len(text))
	return outcome
}
