package internal

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func clusterTestSetup(t *testing.T, store *Store, name string, topicTitles ...string) *Project {
	t.Helper()
	project, videos := seedProject(t, store, name, 1)
	for i, title := range topicTitles {
		topic := TranscriptTopic{
			VideoID:   videos[0].ID,
			Title:     title,
			Summary:   "about " + title,
			StartTime: int64(i * 60),
		}
		if err := store.Create(&topic); err != nil {
			t.Fatalf("creating topic: %v", err)
		}
	}
	return project
}

func TestClusterStageProcessAssignsTopics(t *testing.T) {
	store := newTestStore(t)
	project := clusterTestSetup(t, store, "clusters-ok", "Alpha", "Beta", "Gamma")

	llm, _ := newFakeLLM(func(req ChatRequest) (string, error) {
		return `{"clusters":[
			{"name":"First","description":"d1","display_order":1,"topics":[{"index":0,"rationale":"fits"},{"index":2,"rationale":"fits too"}]},
			{"name":"Second","description":"d2","display_order":2,"topics":[{"index":1,"rationale":"other"}]}
		]}`, nil
	})
	stage := NewClusterStage(store, llm, ModelConfig{Model: "test"}, NopLogger())

	result, err := stage.Process(context.Background(), "clusters-ok")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}

	clusters, err := store.ClustersByProject(project.ID)
	if err != nil {
		t.Fatalf("ClustersByProject: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].Name != "First" || clusters[1].Name != "Second" {
		t.Errorf("unexpected cluster order: %s, %s", clusters[0].Name, clusters[1].Name)
	}

	assigned, err := store.AssignedTopicCount(project.ID)
	if err != nil {
		t.Fatalf("AssignedTopicCount: %v", err)
	}
	if assigned != 3 {
		t.Errorf("expected all 3 topics assigned, got %d", assigned)
	}
}

func TestClusterStageRecomputeReplacesClusters(t *testing.T) {
	store := newTestStore(t)
	project := clusterTestSetup(t, store, "clusters-redo", "Alpha", "Beta")

	llm, _ := newFakeLLM(func(req ChatRequest) (string, error) {
		return `{"clusters":[{"name":"Only","description":"","display_order":1,"topics":[{"index":0,"rationale":""},{"index":1,"rationale":""}]}]}`, nil
	})
	stage := NewClusterStage(store, llm, ModelConfig{Model: "test"}, NopLogger())

	for i := 0; i < 2; i++ {
		if _, err := stage.Process(context.Background(), "clusters-redo"); err != nil {
			t.Fatalf("Process run %d: %v", i+1, err)
		}
	}

	clusters, err := store.ClustersByProject(project.ID)
	if err != nil {
		t.Fatalf("ClustersByProject: %v", err)
	}
	if len(clusters) != 1 {
		t.Errorf("expected the recompute to replace clusters, got %d live clusters", len(clusters))
	}
}

func TestClusterStageFailureLeavesNoClusters(t *testing.T) {
	store := newTestStore(t)
	project := clusterTestSetup(t, store, "clusters-fail", "Alpha", "Beta")

	// First run succeeds, second run's model call fails. The clear runs
	// before the call, so the failed run must leave zero clusters.
	call := 0
	llm, _ := newFakeLLM(func(req ChatRequest) (string, error) {
		call++
		if call == 1 {
			return `{"clusters":[{"name":"Only","description":"","display_order":1,"topics":[{"index":0,"rationale":""}]}]}`, nil
		}
		return "", fmt.Errorf("model unavailable")
	})
	stage := NewClusterStage(store, llm, ModelConfig{Model: "test"}, NopLogger())

	if _, err := stage.Process(context.Background(), "clusters-fail"); err != nil {
		t.Fatalf("first Process: %v", err)
	}
	result, err := stage.Process(context.Background(), "clusters-fail")
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if result.Success {
		t.Error("expected failed run to report failure")
	}

	clusters, err := store.ClustersByProject(project.ID)
	if err != nil {
		t.Fatalf("ClustersByProject: %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("expected no clusters after failed recompute, got %d", len(clusters))
	}
}

func TestClusterStageDiscardsBadIndices(t *testing.T) {
	store := newTestStore(t)
	project := clusterTestSetup(t, store, "clusters-idx", "Alpha", "Beta")

	llm, _ := newFakeLLM(func(req ChatRequest) (string, error) {
		return `{"clusters":[
			{"name":"Good","description":"","display_order":1,"topics":[{"index":0,"rationale":""},{"index":99,"rationale":""},{"index":0,"rationale":"dup"},{"index":-1,"rationale":""}]},
			{"name":"Empty","description":"","display_order":2,"topics":[{"index":50,"rationale":""}]}
		]}`, nil
	})
	stage := NewClusterStage(store, llm, ModelConfig{Model: "test"}, NopLogger())

	result, err := stage.Process(context.Background(), "clusters-idx")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}

	clusters, err := store.ClustersByProject(project.ID)
	if err != nil {
		t.Fatalf("ClustersByProject: %v", err)
	}
	// The cluster left with only invalid references must not be persisted.
	if len(clusters) != 1 || clusters[0].Name != "Good" {
		t.Fatalf("expected only the Good cluster, got %d clusters", len(clusters))
	}
	assignments, err := store.AssignmentsByCluster(clusters[0].ID)
	if err != nil {
		t.Fatalf("AssignmentsByCluster: %v", err)
	}
	if len(assignments) != 1 {
		t.Errorf("expected 1 valid assignment, got %d", len(assignments))
	}
}

func TestClusterStageZeroUsableClustersIsFailure(t *testing.T) {
	store := newTestStore(t)
	clusterTestSetup(t, store, "clusters-zero", "Alpha")

	llm, _ := newFakeLLM(func(req ChatRequest) (string, error) {
		return `{"clusters":[]}`, nil
	})
	stage := NewClusterStage(store, llm, ModelConfig{Model: "test"}, NopLogger())

	result, err := stage.Process(context.Background(), "clusters-zero")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Success {
		t.Error("expected zero usable clusters to count as failure")
	}
}

func TestClusterStagePromptIndexesAllTopics(t *testing.T) {
	store := newTestStore(t)
	clusterTestSetup(t, store, "clusters-prompt", "Alpha", "Beta", "Gamma")

	var prompt string
	llm, _ := newFakeLLM(func(req ChatRequest) (string, error) {
		prompt = req.User
		return `{"clusters":[{"name":"All","description":"","display_order":1,"topics":[{"index":0,"rationale":""}]}]}`, nil
	})
	stage := NewClusterStage(store, llm, ModelConfig{Model: "test"}, NopLogger())

	if _, err := stage.Process(context.Background(), "clusters-prompt"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	for _, marker := range []string{"[0] Alpha", "[1] Beta", "[2] Gamma"} {
		if !strings.Contains(prompt, marker) {
			t.Errorf("prompt missing topic digest %q", marker)
		}
	}
}
