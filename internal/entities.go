package internal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Record is the shared base for every auditable, soft-deletable entity.
// Embedding it gives an entity a uuid primary key, create/update timestamps,
// actor stamps, and gorm's soft-delete behavior.
type Record struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	CreatedBy  string         `json:"created_by"`
	ModifiedBy string         `json:"modified_by"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// actor is stamped into CreatedBy/ModifiedBy on every write.
const actor = "scriptforge"

// BeforeCreate assigns the id and audit stamps. Promoted onto every entity
// that embeds Record, so gorm applies it uniformly.
func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedBy == "" {
		r.CreatedBy = actor
	}
	r.ModifiedBy = actor
	return nil
}

// BeforeUpdate refreshes the modifier stamp.
func (r *Record) BeforeUpdate(tx *gorm.DB) error {
	r.ModifiedBy = actor
	return nil
}

// Project groups a set of source videos toward one synthesized script.
// Projects carry no audit/soft-delete columns and are never deleted by the
// pipeline.
type Project struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Topic     string    `json:"topic"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Videos   []Video        `gorm:"foreignKey:ProjectID" json:"videos,omitempty"`
	Clusters []TopicCluster `gorm:"foreignKey:ProjectID" json:"clusters,omitempty"`
	Scripts  []Script       `gorm:"foreignKey:ProjectID" json:"scripts,omitempty"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Project) TableName() string { return "projects" }

// Channel is a YouTube channel, created lazily the first time one of its
// videos is imported and shared across projects.
type Channel struct {
	Record

	YoutubeID       string `gorm:"uniqueIndex;not null" json:"youtube_id"`
	Title           string `json:"title"`
	SubscriberCount int64  `json:"subscriber_count"`
	VideoCount      int64  `json:"video_count"`
	ViewCount       int64  `json:"view_count"`

	Videos []Video `gorm:"foreignKey:ChannelID" json:"videos,omitempty"`
}

func (Channel) TableName() string { return "channels" }

// Video is one imported YouTube video. RawTranscript stays empty until the
// transcript stage runs; VideoTopic/MainSummary/StructuredContent stay empty
// until the summary stage runs.
type Video struct {
	Record

	YoutubeID   string    `gorm:"uniqueIndex;not null" json:"youtube_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ViewCount   int64     `json:"view_count"`
	LikeCount   int64     `json:"like_count"`
	Duration    int64     `json:"duration_seconds"`
	PublishedAt time.Time `json:"published_at"`

	RawTranscript     string `gorm:"type:text" json:"raw_transcript"`
	VideoTopic        string `json:"video_topic"`
	MainSummary       string `gorm:"type:text" json:"main_summary"`
	StructuredContent string `gorm:"type:text" json:"structured_content"`

	ProjectID *uuid.UUID `gorm:"type:uuid;index" json:"project_id,omitempty"`
	ChannelID uuid.UUID  `gorm:"type:uuid;index" json:"channel_id"`

	Topics []TranscriptTopic `gorm:"foreignKey:VideoID" json:"topics,omitempty"`
}

func (Video) TableName() string { return "videos" }

// URL returns the canonical watch URL for the video.
func (v *Video) URL() string {
	return "https://www.youtube.com/watch?v=" + v.YoutubeID
}

// TranscriptTopic is one discovered segment of a video transcript.
type TranscriptTopic struct {
	Record

	VideoID   uuid.UUID `gorm:"type:uuid;index;not null" json:"video_id"`
	StartTime int64     `json:"start_time_seconds"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Content   string    `gorm:"type:text" json:"content"`
	// BlueprintElements holds a JSON-serialized list of extracted steps.
	BlueprintElements string `gorm:"type:text" json:"blueprint_elements"`
	Selected          bool   `json:"selected"`

	Video *Video `gorm:"foreignKey:VideoID" json:"video,omitempty"`
}

func (TranscriptTopic) TableName() string { return "transcript_topics" }

// StartOffset returns the topic's start as a duration into the video.
func (t *TranscriptTopic) StartOffset() time.Duration {
	return time.Duration(t.StartTime) * time.Second
}

// TopicCluster is a named, ordered group of thematically related topics.
// Clusters for a project are fully replaced on every clustering run.
type TopicCluster struct {
	Record

	ProjectID    uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id"`
	Name         string    `json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	DisplayOrder int       `json:"display_order"`

	Assignments []TopicClusterAssignment `gorm:"foreignKey:ClusterID" json:"assignments,omitempty"`
}

func (TopicCluster) TableName() string { return "topic_clusters" }

// TopicClusterAssignment links a topic to at most one cluster. Uniqueness is
// over live rows only; soft-deleted assignments from prior clustering runs
// stay behind for audit.
type TopicClusterAssignment struct {
	Record

	TopicID   uuid.UUID `gorm:"type:uuid;index:idx_assignment_topic,unique,where:deleted_at IS NULL;not null" json:"topic_id"`
	ClusterID uuid.UUID `gorm:"type:uuid;index;not null" json:"cluster_id"`
	Rationale string    `json:"rationale"`

	Topic   *TranscriptTopic `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
	Cluster *TopicCluster    `gorm:"foreignKey:ClusterID" json:"cluster,omitempty"`
}

func (TopicClusterAssignment) TableName() string { return "topic_cluster_assignments" }

// Script is a synthesized narrative script. Versions are monotonically
// increasing per project and never mutated; each synthesis run creates a new
// row.
type Script struct {
	Record

	ProjectID        uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id"`
	Title            string    `json:"title"`
	Content          string    `gorm:"type:text" json:"content"`
	Version          int       `gorm:"not null" json:"version"`
	WordCount        int       `json:"word_count"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
}

func (Script) TableName() string { return "scripts" }

// EstimatedMinutes estimates spoken duration at 150 words per minute.
func (s *Script) EstimatedMinutes() float64 {
	return float64(s.WordCount) / 150.0
}
