package internal

import (
	"context"
	"fmt"
	"sync"
)

// Analysis aspects. Each cluster is assessed on all three in parallel.
const (
	AspectReadiness = "readiness"
	AspectDensity   = "density"
	AspectStructure = "structure"
)

// AspectReport is the outcome of one analysis sub-call. Score runs 0-100.
type AspectReport struct {
	Aspect          string   `json:"aspect"`
	Score           int      `json:"score"`
	Assessment      string   `json:"assessment"`
	MissingElements []string `json:"missing_elements,omitempty"`
	Redundancies    []string `json:"redundancies,omitempty"`
	SuggestedOrder  []int    `json:"suggested_order,omitempty"`
}

// ClusterAnalysis gathers a cluster's aspect reports. Any report may be nil
// when its sub-call failed; the others still stand.
type ClusterAnalysis struct {
	ClusterID   string        `json:"cluster_id"`
	ClusterName string        `json:"cluster_name"`
	TopicCount  int           `json:"topic_count"`
	Readiness   *AspectReport `json:"readiness"`
	Density     *AspectReport `json:"density"`
	Structure   *AspectReport `json:"structure"`
}

// ProjectAnalysis is the transient result of analyzing every cluster of a
// project. It is rendered, never persisted.
type ProjectAnalysis struct {
	Project  string            `json:"project"`
	Clusters []ClusterAnalysis `json:"clusters"`
}

// Analyzer runs the per-cluster quality assessment.
type Analyzer struct {
	store *Store
	llm   *LLM
	model ModelConfig
	log   *Logger
}

func NewAnalyzer(store *Store, llm *LLM, model ModelConfig, log *Logger) *Analyzer {
	return &Analyzer{store: store, llm: llm, model: model, log: log}
}

type analysisPayload struct {
	Score           int      `json:"score"`
	Assessment      string   `json:"assessment"`
	MissingElements []string `json:"missing_elements"`
	Redundancies    []string `json:"redundancies"`
	SuggestedOrder  []int    `json:"suggested_order"`
}

// AnalyzeProject assesses every cluster of the project that holds at least
// one topic. Returns nil when the project doesn't exist.
func (a *Analyzer) AnalyzeProject(ctx context.Context, projectName string) (*ProjectAnalysis, error) {
	project, err := a.store.ProjectByName(projectName)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, nil
	}

	clusters, err := a.store.ClustersByProject(project.ID)
	if err != nil {
		return nil, err
	}

	analysis := &ProjectAnalysis{Project: project.Name}
	for i := range clusters {
		ca, err := a.AnalyzeCluster(ctx, &clusters[i])
		if err != nil {
			return nil, err
		}
		if ca == nil {
			continue // clusters without topics are skipped
		}
		analysis.Clusters = append(analysis.Clusters, *ca)
	}
	return analysis, nil
}

// AnalyzeCluster runs the three aspect assessments for one cluster
// concurrently. A failed aspect leaves its report nil without failing the
// others. Returns nil when the cluster has no topics.
func (a *Analyzer) AnalyzeCluster(ctx context.Context, cluster *TopicCluster) (*ClusterAnalysis, error) {
	assignments, err := a.store.AssignmentsByCluster(cluster.ID)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, nil
	}

	digests := make([]TopicDigest, 0, len(assignments))
	for i, asg := range assignments {
		if asg.Topic == nil {
			continue
		}
		digests = append(digests, TopicDigest{
			Index:   i,
			Title:   asg.Topic.Title,
			Summary: asg.Topic.Summary,
		})
	}

	ca := &ClusterAnalysis{
		ClusterID:   cluster.ID.String(),
		ClusterName: cluster.Name,
		TopicCount:  len(digests),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, aspect := range []string{AspectReadiness, AspectDensity, AspectStructure} {
		wg.Add(1)
		go func(aspect string) {
			defer wg.Done()
			report, err := a.assess(ctx, aspect, cluster.Name, digests)
			if err != nil {
				a.log.Warn("cluster analysis aspect failed",
					"cluster", cluster.Name, "aspect", aspect, "error", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch aspect {
			case AspectReadiness:
				ca.Readiness = report
			case AspectDensity:
				ca.Density = report
			case AspectStructure:
				ca.Structure = report
			}
		}(aspect)
	}
	wg.Wait()

	return ca, nil
}

func (a *Analyzer) assess(ctx context.Context, aspect, clusterName string, digests []TopicDigest) (*AspectReport, error) {
	prompt, err := BuildAnalysisPrompt(aspect, clusterName, digests)
	if err != nil {
		return nil, err
	}

	resp, err := a.llm.Generate(ctx, ChatRequest{
		Model:       a.model.Model,
		System:      analysisSystem(aspect),
		User:        prompt,
		Temperature: a.model.Temperature,
		MaxTokens:   a.model.MaxTokens,
		JSONOnly:    true,
	})
	if err != nil {
		return nil, err
	}

	var payload analysisPayload
	if err := decodeStagePayload(resp.Content, &payload); err != nil {
		return nil, err
	}
	if payload.Assessment == "" {
		return nil, fmt.Errorf("response missing assessment")
	}

	return &AspectReport{
		Aspect:          aspect,
		Score:           payload.Score,
		Assessment:      payload.Assessment,
		MissingElements: payload.MissingElements,
		Redundancies:    payload.Redundancies,
		SuggestedOrder:  payload.SuggestedOrder,
	}, nil
}

// AnalysisStage adapts the Analyzer into the pipeline stage shape so it can
// be scheduled like the persistent stages, even though its output is
// transient.
type AnalysisStage struct {
	analyzer *Analyzer
	store    *Store
	sink     func(*ProjectAnalysis)
}

// NewAnalysisStage wraps an Analyzer. sink receives each project's analysis
// for rendering and may be nil.
func NewAnalysisStage(analyzer *Analyzer, store *Store, sink func(*ProjectAnalysis)) *AnalysisStage {
	return &AnalysisStage{analyzer: analyzer, store: store, sink: sink}
}

func (s *AnalysisStage) Name() string { return StageAnalysis }

func (s *AnalysisStage) Status(ctx context.Context, projectName string) (StageStatus, error) {
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

	clusters, err := s.store.ClustersByProject(project.ID)
	if err != nil {
		return status, err
	}
	// Analysis has no persisted output, so every populated cluster counts as
	// pending on every run.
	for i := range clusters {
		assignments, err := s.store.AssignmentsByCluster(clusters[i].ID)
		if err != nil {
			return status, err
		}
		if len(assignments) > 0 {
			status.Total++
			status.Pending++
		}
	}
	status.IsComplete = status.Total == 0
	return status, nil
}

func (s *AnalysisStage) Process(ctx context.Context, projectName string) (StageResult, error) {
	result := newStageResult(s.Name(), projectName)

	analysis, err := s.analyzer.AnalyzeProject(ctx, projectName)
	if err != nil {
		return result, err
	}
	if analysis == nil {
		result.ProjectExists = false
		return result, nil
	}

	for _, ca := range analysis.Clusters {
		got := 0
		for _, r := range []*AspectReport{ca.Readiness, ca.Density, ca.Structure} {
			if r != nil {
				got++
			}
		}
		result.record(ItemOutcome{
			ID:      ca.ClusterID,
			Title:   ca.ClusterName,
			Success: got > 0,
			Topics:  ca.TopicCount,
			Message: fmt.Sprintf("%d of 3 assessments", got),
		})
	}
	if s.sink != nil {
		s.sink(analysis)
	}
	return result, nil
}
