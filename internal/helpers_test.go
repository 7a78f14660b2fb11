package internal

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestStore opens an isolated in-memory database with the full schema.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
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
		t.Fatalf("migrating test schema: %v", err)
	}
	return NewStore(db)
}

// fakeChat is a scripted ChatClient. respond inspects each request and
// returns the canned content or an error.
type fakeChat struct {
	respond func(req ChatRequest) (string, error)
	calls   int
}

func (f *fakeChat) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	f.calls++
	content, err := f.respond(req)
	if err != nil {
		return nil, err
	}
	return &ChatResponse{Content: content, PromptTokens: 100, CompletionTokens: 50}, nil
}

func newFakeLLM(respond func(req ChatRequest) (string, error)) (*LLM, *fakeChat) {
	chat := &fakeChat{respond: respond}
	return NewLLM(chat, NopLogger()), chat
}

// seedProject creates a project with n videos, each with a transcript.
func seedProject(t *testing.T, store *Store, name string, n int) (*Project, []Video) {
	t.Helper()

	project, err := store.EnsureProject(name, "test topic")
	if err != nil {
		t.Fatalf("creating project: %v", err)
	}
	videos := make([]Video, 0, n)
	for i := 0; i < n; i++ {
		v := Video{
			YoutubeID:     fmt.Sprintf("vid-%s-%02d", name, i),
			Title:         fmt.Sprintf("Video %d", i+1),
			RawTranscript: fmt.Sprintf("Transcript of video %d. It covers several things.", i+1),
			ProjectID:     &project.ID,
			ChannelID:     uuid.New(),
		}
		if err := store.Create(&v); err != nil {
			t.Fatalf("creating video: %v", err)
		}
		videos = append(videos, v)
	}
	return project, videos
}
