package internal

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store wraps the gorm session shared by one run of the pipeline.
type Store struct {
	db *gorm.DB
}

// OpenStore connects to the configured database and migrates the schema.
// The initial connection is retried with exponential backoff so a postgres
// container that is still starting doesn't fail the run.
func OpenStore(driver, dsn string) (*Store, error) {
	var dial gorm.Dialector
	switch driver {
	case "postgres":
		dial = postgres.Open(dsn)
	case "sqlite", "":
		dial = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", driver)
	}

	var db *gorm.DB
	open := func() error {
		var err error
		db, err = gorm.Open(dial, &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		return err
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(open, policy); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.AutoMigrate(
		&Project{},
		&Channel{},
		&Video{},
		&TranscriptTopic{},
		&TopicCluster{},
		&TopicClusterAssignment{},
		&Script{},
	); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStore wraps an existing gorm session. Used by tests.
func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// DB exposes the underlying session for callers that need raw queries.
func (s *Store) DB() *gorm.DB { return s.db }

// Save persists an entity, stamping audit fields through the Record hooks.
func (s *Store) Save(entity any) error {
	return s.db.Save(entity).Error
}

// Create inserts an entity.
func (s *Store) Create(entity any) error {
	return s.db.Create(entity).Error
}

// ProjectByName returns the project with the given name, or nil when it
// doesn't exist. Callers branch on the nil rather than an error.
func (s *Store) ProjectByName(name string) (*Project, error) {
	var p Project
	err := s.db.Where("name = ?", name).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// EnsureProject returns the project with the given name, creating it on
// first reference.
func (s *Store) EnsureProject(name, topic string) (*Project, error) {
	p, err := s.ProjectByName(name)
	if err != nil {
		return nil, err
	}
	if p != nil {
		if topic != "" && p.Topic != topic {
			p.Topic = topic
			if err := s.Save(p); err != nil {
				return nil, err
			}
		}
		return p, nil
	}
	p = &Project{Name: name, Topic: topic}
	if err := s.Create(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Projects lists all projects ordered by name.
func (s *Store) Projects() ([]Project, error) {
	var out []Project
	err := s.db.Order("name").Find(&out).Error
	return out, err
}

// ChannelByYoutubeID returns the channel for the external id, or nil.
func (s *Store) ChannelByYoutubeID(youtubeID string) (*Channel, error) {
	var c Channel
	err := s.db.Where("youtube_id = ?", youtubeID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ChannelTitles maps channel ids to titles for the given videos.
func (s *Store) ChannelTitles(videos []Video) (map[uuid.UUID]string, error) {
	ids := make([]uuid.UUID, 0, len(videos))
	seen := make(map[uuid.UUID]bool, len(videos))
	for i := range videos {
		if id := videos[i].ChannelID; id != uuid.Nil && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	titles := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}
	var channels []Channel
	if err := s.db.Where("id IN ?", ids).Find(&channels).Error; err != nil {
		return nil, err
	}
	for i := range channels {
		titles[channels[i].ID] = channels[i].Title
	}
	return titles, nil
}

// VideoByYoutubeID returns the video for the external id, or nil.
func (s *Store) VideoByYoutubeID(youtubeID string) (*Video, error) {
	var v Video
	err := s.db.Where("youtube_id = ?", youtubeID).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// VideosByProject returns all videos linked to a project, oldest first.
func (s *Store) VideosByProject(projectID uuid.UUID) ([]Video, error) {
	var out []Video
	err := s.db.Where("project_id = ?", projectID).Order("published_at, created_at").Find(&out).Error
	return out, err
}

// TopicCountByVideo counts discovered topics for a video.
func (s *Store) TopicCountByVideo(videoID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.Model(&TranscriptTopic{}).Where("video_id = ?", videoID).Count(&n).Error
	return n, err
}

// TopicsByProject returns every discovered topic across a project's videos,
// ordered by video then start time. The ordering fixes the zero-based index
// used in the clustering prompt.
func (s *Store) TopicsByProject(projectID uuid.UUID) ([]TranscriptTopic, error) {
	var out []TranscriptTopic
	err := s.db.
		Joins("JOIN videos ON videos.id = transcript_topics.video_id").
		Where("videos.project_id = ? AND videos.deleted_at IS NULL", projectID).
		Order("transcript_topics.video_id, transcript_topics.start_time").
		Find(&out).Error
	return out, err
}

// AssignedTopicCount counts topics of a project that currently belong to a
// cluster.
func (s *Store) AssignedTopicCount(projectID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.Model(&TopicClusterAssignment{}).
		Joins("JOIN topic_clusters ON topic_clusters.id = topic_cluster_assignments.cluster_id").
		Where("topic_clusters.project_id = ? AND topic_clusters.deleted_at IS NULL", projectID).
		Count(&n).Error
	return n, err
}

// ClustersByProject returns the project's clusters in display order.
func (s *Store) ClustersByProject(projectID uuid.UUID) ([]TopicCluster, error) {
	var out []TopicCluster
	err := s.db.Where("project_id = ?", projectID).Order("display_order").Find(&out).Error
	return out, err
}

// AssignmentsByCluster returns a cluster's assignments with topics preloaded.
func (s *Store) AssignmentsByCluster(clusterID uuid.UUID) ([]TopicClusterAssignment, error) {
	var out []TopicClusterAssignment
	err := s.db.Preload("Topic").Where("cluster_id = ?", clusterID).Find(&out).Error
	return out, err
}

// AssignmentCountByTopic counts live assignments for one topic.
func (s *Store) AssignmentCountByTopic(topicID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.Model(&TopicClusterAssignment{}).Where("topic_id = ?", topicID).Count(&n).Error
	return n, err
}

// ClearClusters soft-deletes every cluster and cluster assignment for a
// project. Clustering is a full recompute, so this runs before each pass —
// and before the LLM call, which means a failed pass leaves the project with
// no clusters, not the stale set.
func (s *Store) ClearClusters(projectID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var clusterIDs []uuid.UUID
		if err := tx.Model(&TopicCluster{}).Where("project_id = ?", projectID).
			Pluck("id", &clusterIDs).Error; err != nil {
			return err
		}
		if len(clusterIDs) == 0 {
			return nil
		}
		if err := tx.Where("cluster_id IN ?", clusterIDs).
			Delete(&TopicClusterAssignment{}).Error; err != nil {
			return err
		}
		return tx.Where("project_id = ?", projectID).Delete(&TopicCluster{}).Error
	})
}

// MaxScriptVersion returns the highest script version for a project, zero
// when none exist.
func (s *Store) MaxScriptVersion(projectID uuid.UUID) (int, error) {
	var v *int
	err := s.db.Model(&Script{}).Where("project_id = ?", projectID).
		Select("MAX(version)").Scan(&v).Error
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	return *v, nil
}

// LatestScript returns the newest script version for a project, or nil.
func (s *Store) LatestScript(projectID uuid.UUID) (*Script, error) {
	var sc Script
	err := s.db.Where("project_id = ?", projectID).Order("version DESC").First(&sc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}
