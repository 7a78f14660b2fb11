package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ClusterStage groups all of a project's discovered topics into thematic
// clusters. Each run is a full recompute: existing clusters and assignments
// are cleared before the model is asked, so a failed run leaves the project
// with no clusters rather than a stale set.
type ClusterStage struct {
	store *Store
	llm   *LLM
	model ModelConfig
	log   *Logger
}

func NewClusterStage(store *Store, llm *LLM, model ModelConfig, log *Logger) *ClusterStage {
	return &ClusterStage{store: store, llm: llm, model: model, log: log}
}

func (s *ClusterStage) Name() string { return StageClusters }

type clusterPayload struct {
	Clusters []struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		DisplayOrder int    `json:"display_order"`
		Topics       []struct {
			Index     int    `json:"index"`
			Rationale string `json:"rationale"`
		} `json:"topics"`
	} `json:"clusters"`
}

func (s *ClusterStage) Status(ctx context.Context, projectName string) (StageStatus, error) {
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

	topics, err := s.store.TopicsByProject(project.ID)
	if err != nil {
		return status, err
	}
	assigned, err := s.store.AssignedTopicCount(project.ID)
	if err != nil {
		return status, err
	}

	status.Total = len(topics)
	status.Done = int(assigned)
	status.Pending = status.Total - status.Done
	if status.Pending < 0 {
		status.Pending = 0
	}
	status.IsComplete = status.Pending == 0
	return status, nil
}

func (s *ClusterStage) Process(ctx context.Context, projectName string) (StageResult, error) {
	result := newStageResult(s.Name(), projectName)

	project, err := s.store.ProjectByName(projectName)
	if err != nil {
		return result, err
	}
	if project == nil {
		result.ProjectExists = false
		return result, nil
	}

	topics, err := s.store.TopicsByProject(project.ID)
	if err != nil {
		return result, err
	}
	if len(topics) == 0 {
		result.record(ItemOutcome{ID: project.Name, Title: project.Name,
			Message: "no topics to cluster"})
		return result, nil
	}

	if err := s.store.ClearClusters(project.ID); err != nil {
		return result, fmt.Errorf("clearing previous clusters: %w", err)
	}

	digests := make([]TopicDigest, len(topics))
	for i, t := range topics {
		digests[i] = TopicDigest{
			Index:     i,
			Title:     t.Title,
			Summary:   t.Summary,
			Blueprint: blueprintDigest(t.BlueprintElements),
		}
	}

	prompt, err := BuildClusteringPrompt(project.Name, project.Topic, digests)
	if err != nil {
		result.record(ItemOutcome{ID: project.Name, Title: project.Name, Message: err.Error()})
		return result, nil
	}

	resp, err := s.llm.Generate(ctx, ChatRequest{
		Model:       s.model.Model,
		System:      clusteringSystem,
		User:        prompt,
		Temperature: s.model.Temperature,
		MaxTokens:   s.model.MaxTokens,
		JSONOnly:    true,
	})
	if err != nil {
		s.log.Warn("clustering failed", "project", project.Name, "error", err)
		result.record(ItemOutcome{ID: project.Name, Title: project.Name, Message: err.Error()})
		return result, nil
	}

	var payload clusterPayload
	if err := decodeStagePayload(resp.Content, &payload); err != nil {
		result.record(ItemOutcome{ID: project.Name, Title: project.Name, Message: err.Error()})
		return result, nil
	}

	saved, assigned := 0, 0
	claimed := make(map[int]bool, len(topics))
	for order, c := range payload.Clusters {
		if c.Name == "" {
			continue
		}
		displayOrder := c.DisplayOrder
		if displayOrder <= 0 {
			displayOrder = order + 1
		}

		var assignments []TopicClusterAssignment
		for _, ref := range c.Topics {
			// Out-of-range and duplicate indices are discarded, not errors:
			// the rest of the model's grouping is still usable.
			if ref.Index < 0 || ref.Index >= len(topics) || claimed[ref.Index] {
				s.log.Warn("discarding topic reference",
					"project", project.Name, "cluster", c.Name, "index", ref.Index)
				continue
			}
			claimed[ref.Index] = true
			assignments = append(assignments, TopicClusterAssignment{
				TopicID:   topics[ref.Index].ID,
				Rationale: ref.Rationale,
			})
		}
		if len(assignments) == 0 {
			continue // empty clusters are never persisted
		}

		cluster := TopicCluster{
			ProjectID:    project.ID,
			Name:         c.Name,
			Description:  c.Description,
			DisplayOrder: displayOrder,
		}
		if err := s.store.Create(&cluster); err != nil {
			result.record(ItemOutcome{ID: project.Name, Title: project.Name,
				Message: fmt.Sprintf("saving cluster %q: %v", c.Name, err)})
			return result, nil
		}
		for i := range assignments {
			assignments[i].ClusterID = cluster.ID
		}
		if err := s.store.Create(&assignments); err != nil {
			result.record(ItemOutcome{ID: project.Name, Title: project.Name,
				Message: fmt.Sprintf("saving assignments for %q: %v", c.Name, err)})
			return result, nil
		}
		saved++
		assigned += len(assignments)
	}

	if saved == 0 {
		result.record(ItemOutcome{ID: project.Name, Title: project.Name,
			Message: "response yielded no usable clusters"})
		return result, nil
	}

	result.record(ItemOutcome{
		ID:      project.Name,
		Title:   project.Name,
		Success: true,
		Topics:  assigned,
		Message: fmt.Sprintf("%d clusters, %d of %d topics assigned", saved, assigned, len(topics)),
	})
	return result, nil
}

// blueprintDigest flattens the stored JSON step list into a short
// comma-separated string for prompts. Unparseable input yields "".
func blueprintDigest(serialized string) string {
	if serialized == "" || serialized == "[]" {
		return ""
	}
	var elements []string
	if err := json.Unmarshal([]byte(serialized), &elements); err != nil {
		return ""
	}
	return strings.Join(elements, ", ")
}
