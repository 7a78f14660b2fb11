package internal

import (
	"testing"

	"github.com/google/uuid"
)

func TestRecordAuditStamping(t *testing.T) {
	store := newTestStore(t)

	ch := Channel{YoutubeID: "UCtestchannel", Title: "Test Channel"}
	if err := store.Create(&ch); err != nil {
		t.Fatalf("creating channel: %v", err)
	}
	if ch.ID == uuid.Nil {
		t.Error("expected id to be assigned on create")
	}
	if ch.CreatedBy != actor || ch.ModifiedBy != actor {
		t.Errorf("expected audit stamps %q, got created_by=%q modified_by=%q",
			actor, ch.CreatedBy, ch.ModifiedBy)
	}
}

func TestEnsureProjectCreatesOnFirstReference(t *testing.T) {
	store := newTestStore(t)

	p1, err := store.EnsureProject("AI Tools", "ai tooling")
	if err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}
	p2, err := store.EnsureProject("AI Tools", "")
	if err != nil {
		t.Fatalf("EnsureProject second call: %v", err)
	}
	if p1.ID != p2.ID {
		t.Error("expected same project on repeated reference")
	}
	if p2.Topic != "ai tooling" {
		t.Errorf("expected topic preserved, got %q", p2.Topic)
	}
}

func TestProjectByNameMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	p, err := store.ProjectByName("nope")
	if err != nil {
		t.Fatalf("ProjectByName: %v", err)
	}
	if p != nil {
		t.Error("expected nil for missing project")
	}
}

func TestClearClustersSoftDeletes(t *testing.T) {
	store := newTestStore(t)
	project, videos := seedProject(t, store, "clear-test", 1)

	topic := TranscriptTopic{VideoID: videos[0].ID, Title: "Topic A"}
	if err := store.Create(&topic); err != nil {
		t.Fatalf("creating topic: %v", err)
	}
	cluster := TopicCluster{ProjectID: project.ID, Name: "Cluster 1", DisplayOrder: 1}
	if err := store.Create(&cluster); err != nil {
		t.Fatalf("creating cluster: %v", err)
	}
	asg := TopicClusterAssignment{TopicID: topic.ID, ClusterID: cluster.ID}
	if err := store.Create(&asg); err != nil {
		t.Fatalf("creating assignment: %v", err)
	}

	if err := store.ClearClusters(project.ID); err != nil {
		t.Fatalf("ClearClusters: %v", err)
	}

	clusters, err := store.ClustersByProject(project.ID)
	if err != nil {
		t.Fatalf("ClustersByProject: %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("expected no live clusters, got %d", len(clusters))
	}
	assigned, err := store.AssignedTopicCount(project.ID)
	if err != nil {
		t.Fatalf("AssignedTopicCount: %v", err)
	}
	if assigned != 0 {
		t.Errorf("expected no live assignments, got %d", assigned)
	}

	// Soft-deleted rows stay behind for audit.
	var total int64
	if err := store.DB().Unscoped().Model(&TopicCluster{}).
		Where("project_id = ?", project.ID).Count(&total).Error; err != nil {
		t.Fatalf("counting unscoped clusters: %v", err)
	}
	if total != 1 {
		t.Errorf("expected soft-deleted cluster row to remain, got %d rows", total)
	}

	// The topic can be assigned again despite the unique index.
	cluster2 := TopicCluster{ProjectID: project.ID, Name: "Cluster 2", DisplayOrder: 1}
	if err := store.Create(&cluster2); err != nil {
		t.Fatalf("creating replacement cluster: %v", err)
	}
	asg2 := TopicClusterAssignment{TopicID: topic.ID, ClusterID: cluster2.ID}
	if err := store.Create(&asg2); err != nil {
		t.Fatalf("re-assigning topic after clear: %v", err)
	}
}

func TestMaxScriptVersion(t *testing.T) {
	store := newTestStore(t)
	project, _ := seedProject(t, store, "version-test", 1)

	v, err := store.MaxScriptVersion(project.ID)
	if err != nil {
		t.Fatalf("MaxScriptVersion: %v", err)
	}
	if v != 0 {
		t.Errorf("expected version 0 with no scripts, got %d", v)
	}

	for i := 1; i <= 3; i++ {
		sc := Script{ProjectID: project.ID, Title: "t", Content: "c", Version: i, WordCount: 10}
		if err := store.Create(&sc); err != nil {
			t.Fatalf("creating script v%d: %v", i, err)
		}
	}

	v, err = store.MaxScriptVersion(project.ID)
	if err != nil {
		t.Fatalf("MaxScriptVersion: %v", err)
	}
	if v != 3 {
		t.Errorf("expected max version 3, got %d", v)
	}

	latest, err := store.LatestScript(project.ID)
	if err != nil {
		t.Fatalf("LatestScript: %v", err)
	}
	if latest == nil || latest.Version != 3 {
		t.Errorf("expected latest script v3, got %+v", latest)
	}
}

func TestTopicsByProjectOrdering(t *testing.T) {
	store := newTestStore(t)
	project, videos := seedProject(t, store, "order-test", 1)

	// Insert out of order; the query must return start-time order.
	for _, start := range []int64{120, 30, 300} {
		topic := TranscriptTopic{VideoID: videos[0].ID, StartTime: start, Title: "t"}
		if err := store.Create(&topic); err != nil {
			t.Fatalf("creating topic: %v", err)
		}
	}

	topics, err := store.TopicsByProject(project.ID)
	if err != nil {
		t.Fatalf("TopicsByProject: %v", err)
	}
	if len(topics) != 3 {
		t.Fatalf("expected 3 topics, got %d", len(topics))
	}
	for i := 1; i < len(topics); i++ {
		if topics[i].StartTime < topics[i-1].StartTime {
			t.Errorf("topics out of order: %d before %d", topics[i-1].StartTime, topics[i].StartTime)
		}
	}
}
