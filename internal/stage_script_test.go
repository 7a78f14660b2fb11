package internal

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

const scriptResponse = `# Hook

Big opening.

# Introduction

Framing.

# Body

The main ideas, developed at length.

# Outro

Closing thought.`

func TestScriptStageSynthesizeCreatesVersion(t *testing.T) {
	store := newTestStore(t)
	project, _ := seedProject(t, store, "script-ok", 2)

	llm, _ := newFakeLLM(func(req ChatRequest) (string, error) {
		if req.JSONOnly {
			t.Error("script synthesis must not request JSON mode")
		}
		return scriptResponse, nil
	})
	stage := NewScriptStage(store, llm, ModelConfig{Model: "test"}, NopLogger())

	script, err := stage.Synthesize(context.Background(), project)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if script.Version != 1 {
		t.Errorf("expected version 1, got %d", script.Version)
	}
	if script.WordCount != len(strings.Fields(scriptResponse)) {
		t.Errorf("WordCount = %d", script.WordCount)
	}
	if script.PromptTokens != 100 || script.CompletionTokens != 50 {
		t.Errorf("token usage not recorded: %d/%d", script.PromptTokens, script.CompletionTokens)
	}
}

func TestScriptStageVersionsIncrement(t *testing.T) {
	store := newTestStore(t)
	project, _ := seedProject(t, store, "script-vers", 1)

	llm, _ := newFakeLLM(func(req ChatRequest) (string, error) {
		return scriptResponse, nil
	})
	stage := NewScriptStage(store, llm, ModelConfig{Model: "test"}, NopLogger())

	for want := 1; want <= 3; want++ {
		script, err := stage.Synthesize(context.Background(), project)
		if err != nil {
			t.Fatalf("Synthesize run %d: %v", want, err)
		}
		if script.Version != want {
			t.Errorf("expected version %d, got %d", want, script.Version)
		}
	}

	latest, err := store.LatestScript(project.ID)
	if err != nil {
		t.Fatalf("LatestScript: %v", err)
	}
	if latest.Version != 3 {
		t.Errorf("expected latest v3, got v%d", latest.Version)
	}
}

func TestScriptStageRequiresTranscripts(t *testing.T) {
	store := newTestStore(t)

	project, err := store.EnsureProject("script-empty", "")
	if err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}
	bare := Video{YoutubeID: "notranscript", Title: "Bare", ProjectID: &project.ID}
	if err := store.Create(&bare); err != nil {
		t.Fatalf("creating video: %v", err)
	}

	llm, chat := newFakeLLM(func(req ChatRequest) (string, error) {
		return scriptResponse, nil
	})
	stage := NewScriptStage(store, llm, ModelConfig{Model: "test"}, NopLogger())

	if _, err := stage.Synthesize(context.Background(), project); err == nil {
		t.Fatal("expected error for project without transcripts")
	}
	if chat.calls != 0 {
		t.Errorf("expected no model call, got %d", chat.calls)
	}
}

func TestScriptStagePromptCarriesAllSources(t *testing.T) {
	store := newTestStore(t)
	project, _ := seedProject(t, store, "script-prompt", 3)

	var prompt string
	llm, _ := newFakeLLM(func(req ChatRequest) (string, error) {
		prompt = req.User
		return scriptResponse, nil
	})
	stage := NewScriptStage(store, llm, ModelConfig{Model: "test"}, NopLogger())

	if _, err := stage.Synthesize(context.Background(), project); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if !strings.Contains(prompt, fmt.Sprintf("Video %d", i)) {
			t.Errorf("prompt missing source video %d", i)
		}
	}
	if !strings.Contains(prompt, "3 videos") {
		t.Errorf("prompt should state the source count")
	}
}

func TestScriptStageStatusBlocksOnlyWithoutSources(t *testing.T) {
	store := newTestStore(t)
	seedProject(t, store, "script-status", 1)

	llm, _ := newFakeLLM(func(req ChatRequest) (string, error) {
		return scriptResponse, nil
	})
	stage := NewScriptStage(store, llm, ModelConfig{Model: "test"}, NopLogger())

	status, err := stage.Status(context.Background(), "script-status")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.IsComplete {
		t.Error("expected pending synthesis before any script exists")
	}

	if _, err := stage.Process(context.Background(), "script-status"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	status, err = stage.Status(context.Background(), "script-status")
	if err != nil {
		t.Fatalf("Status after run: %v", err)
	}
	if !status.IsComplete {
		t.Error("expected stage complete once a script version exists")
	}
}
