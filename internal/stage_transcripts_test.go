package internal

import (
	"context"
	"fmt"
	"testing"
)

// fakeFetcher is a scripted TranscriptFetcher keyed by video URL.
type fakeFetcher struct {
	responses map[string]string
	errs      map[string]error
	calls     int
}

func (f *fakeFetcher) Fetch(ctx context.Context, videoURL string) (string, error) {
	f.calls++
	if err, ok := f.errs[videoURL]; ok {
		return "", err
	}
	if text, ok := f.responses[videoURL]; ok {
		return text, nil
	}
	return "", fmt.Errorf("no captions for %s", videoURL)
}

func TestTranscriptStageFetchesMissingOnly(t *testing.T) {
	store := newTestStore(t)
	project, err := store.EnsureProject("trans-ok", "")
	if err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}

	done := Video{YoutubeID: "alreadydone", Title: "Done", RawTranscript: "existing", ProjectID: &project.ID}
	todo := Video{YoutubeID: "stillneeded", Title: "Todo", ProjectID: &project.ID}
	for _, v := range []*Video{&done, &todo} {
		if err := store.Create(v); err != nil {
			t.Fatalf("creating video: %v", err)
		}
	}

	fetcher := &fakeFetcher{responses: map[string]string{
		todo.URL(): "fresh transcript text",
	}}
	stage := NewTranscriptStage(store, fetcher, 0, NopLogger())

	status, err := stage.Status(context.Background(), "trans-ok")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Done != 1 || status.Pending != 1 {
		t.Errorf("expected 1 done / 1 pending, got %+v", status)
	}

	result, err := stage.Process(context.Background(), "trans-ok")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("expected only the missing transcript fetched, got %d calls", fetcher.calls)
	}
	if !result.Success || result.Succeeded != 1 {
		t.Errorf("unexpected result %+v", result)
	}

	saved, err := store.VideoByYoutubeID("stillneeded")
	if err != nil {
		t.Fatalf("VideoByYoutubeID: %v", err)
	}
	if saved.RawTranscript != "fresh transcript text" {
		t.Errorf("transcript not persisted: %q", saved.RawTranscript)
	}
}

func TestTranscriptStageFailureIsolated(t *testing.T) {
	store := newTestStore(t)
	project, err := store.EnsureProject("trans-fail", "")
	if err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}

	bad := Video{YoutubeID: "failingvid1", Title: "Bad", ProjectID: &project.ID}
	good := Video{YoutubeID: "workingvid1", Title: "Good", ProjectID: &project.ID}
	for _, v := range []*Video{&bad, &good} {
		if err := store.Create(v); err != nil {
			t.Fatalf("creating video: %v", err)
		}
	}

	fetcher := &fakeFetcher{
		responses: map[string]string{good.URL(): "text"},
		errs:      map[string]error{bad.URL(): fmt.Errorf("service returned 429")},
	}
	stage := NewTranscriptStage(store, fetcher, 0, NopLogger())

	result, err := stage.Process(context.Background(), "trans-fail")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Errorf("expected failure isolation, got %+v", result)
	}
	if !result.Success {
		t.Error("one success should mark the run successful")
	}

	// The failed video stays pending for the next run.
	status, err := stage.Status(context.Background(), "trans-fail")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Pending != 1 {
		t.Errorf("expected failed video still pending, got %+v", status)
	}
}

func TestTranscriptStageUnknownProject(t *testing.T) {
	store := newTestStore(t)
	stage := NewTranscriptStage(store, &fakeFetcher{}, 0, NopLogger())

	result, err := stage.Process(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.ProjectExists {
		t.Error("expected ProjectExists=false")
	}
}
