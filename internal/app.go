package internal

import (
	"context"
	"fmt"
	"sync"
)

// App holds the application state and dependencies. The database and API
// clients are constructed lazily so commands that never touch them don't
// need credentials or a reachable database.
type App struct {
	config *Config
	ui     UIManager
	log    *Logger

	llm         *LLM
	metadata    MetadataService
	transcripts TranscriptFetcher

	store     *Store
	storeOnce sync.Once
	storeErr  error
}

// NewApp initializes the application
func NewApp(config *Config, options ...AppOption) *App {
	log, err := NewLogger(config.LogMode)
	if err != nil {
		log = NopLogger()
	}

	app := &App{
		config:      config,
		ui:          NewUIManager(config.Verbose, config.Quiet),
		log:         log,
		metadata:    NewYouTube(config.YouTubeAPIKey, config.Verbose),
		transcripts: NewTranscriptService(config.TranscriptBaseURL, config.TranscriptAPIKey),
	}
	app.llm = NewLLMWithKey(config.OpenAIAPIKey, app.log)

	// Apply any custom options
	for _, option := range options {
		option(app)
	}

	return app
}

// AppOption customizes App creation
type AppOption func(*App)

// WithStore sets a pre-opened store. Used by tests.
func WithStore(store *Store) AppOption {
	return func(a *App) {
		a.store = store
		a.storeOnce.Do(func() {})
	}
}

// WithLLM sets a custom chat gateway
func WithLLM(llm *LLM) AppOption {
	return func(a *App) {
		a.llm = llm
	}
}

// WithMetadata sets a custom metadata service
func WithMetadata(m MetadataService) AppOption {
	return func(a *App) {
		a.metadata = m
	}
}

// WithTranscripts sets a custom transcript fetcher
func WithTranscripts(f TranscriptFetcher) AppOption {
	return func(a *App) {
		a.transcripts = f
	}
}

// WithUI sets a custom UI manager
func WithUI(ui UIManager) AppOption {
	return func(a *App) {
		a.ui = ui
	}
}

// WithLogger sets a custom logger
func WithLogger(log *Logger) AppOption {
	return func(a *App) {
		a.log = log
	}
}

// Config exposes the loaded configuration.
func (app *App) Config() *Config { return app.config }

// UI exposes the UI manager.
func (app *App) UI() UIManager { return app.ui }

// Log exposes the logger.
func (app *App) Log() *Logger { return app.log }

// Close flushes the logger.
func (app *App) Close() {
	app.log.Sync()
}

// Store opens the database on first use and migrates the schema.
func (app *App) Store() (*Store, error) {
	app.storeOnce.Do(func() {
		if err := EnsureDirs(app.config.DataDir); err != nil {
			app.storeErr = fmt.Errorf("creating data directory: %w", err)
			return
		}
		app.store, app.storeErr = OpenStore(app.config.DBDriver, app.config.DBDSN)
	})
	return app.store, app.storeErr
}

// stageFor builds one pipeline stage by name. analysisSink receives the
// transient analysis output and may be nil.
func (app *App) stageFor(name string, analysisSink func(*ProjectAnalysis)) (Stage, error) {
	store, err := app.Store()
	if err != nil {
		return nil, err
	}
	switch name {
	case StageTranscripts:
		return NewTranscriptStage(store, app.transcripts, app.config.TranscriptDelay, app.log), nil
	case StageTopics:
		return NewTopicStage(store, app.llm, app.config.ModelFor(StageTopics), app.log), nil
	case StageSummaries:
		return NewSummaryStage(store, app.llm, app.config.ModelFor(StageSummaries), app.log), nil
	case StageClusters:
		return NewClusterStage(store, app.llm, app.config.ModelFor(StageClusters), app.log), nil
	case StageAnalysis:
		analyzer := NewAnalyzer(store, app.llm, app.config.ModelFor(StageAnalysis), app.log)
		return NewAnalysisStage(analyzer, store, analysisSink), nil
	case StageScript:
		return NewScriptStage(store, app.llm, app.config.ModelFor(StageScript), app.log), nil
	default:
		return nil, fmt.Errorf("unknown stage: %s", name)
	}
}

// Orchestrator builds the configured stage sequence.
func (app *App) Orchestrator() (*Orchestrator, error) {
	stages := make([]Stage, 0, len(app.config.Stages))
	for _, name := range app.config.Stages {
		stage, err := app.stageFor(name, nil)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return NewOrchestrator(stages, app.ui, app.log), nil
}

// Analyzer builds the cluster quality analyzer.
func (app *App) Analyzer() (*Analyzer, error) {
	store, err := app.Store()
	if err != nil {
		return nil, err
	}
	return NewAnalyzer(store, app.llm, app.config.ModelFor(StageAnalysis), app.log), nil
}

// ImportSpreadsheet imports the given spreadsheet file.
func (app *App) ImportSpreadsheet(ctx context.Context, path string) (*ImportReport, error) {
	store, err := app.Store()
	if err != nil {
		return nil, err
	}
	importer := NewImporter(store, app.metadata, app.ui, app.log)
	return importer.Import(ctx, path)
}

// RunAll runs the configured stage sequence over every project.
func (app *App) RunAll(ctx context.Context) error {
	store, err := app.Store()
	if err != nil {
		return err
	}
	orch, err := app.Orchestrator()
	if err != nil {
		return err
	}
	return orch.RunAll(ctx, store)
}

// RunProject runs the configured stage sequence for one project.
func (app *App) RunProject(ctx context.Context, projectName string) ([]StageResult, error) {
	orch, err := app.Orchestrator()
	if err != nil {
		return nil, err
	}
	return orch.RunProject(ctx, projectName)
}

// RunStage runs one stage, by name, for one project.
func (app *App) RunStage(ctx context.Context, stageName, projectName string) (StageResult, error) {
	stage, err := app.stageFor(stageName, nil)
	if err != nil {
		return StageResult{}, err
	}
	orch := NewOrchestrator([]Stage{stage}, app.ui, app.log)
	return orch.RunStage(ctx, stage, projectName)
}

// PipelineStatus reports every configured stage's status for one project.
func (app *App) PipelineStatus(ctx context.Context, projectName string) ([]StageStatus, error) {
	orch, err := app.Orchestrator()
	if err != nil {
		return nil, err
	}
	var out []StageStatus
	for _, stage := range orch.Stages() {
		status, err := stage.Status(ctx, projectName)
		if err != nil {
			return nil, fmt.Errorf("checking %s status: %w", stage.Name(), err)
		}
		if !status.ProjectExists {
			return nil, fmt.Errorf("project %q does not exist", projectName)
		}
		out = append(out, status)
	}
	return out, nil
}

// GenerateScript synthesizes a new script version for a project.
func (app *App) GenerateScript(ctx context.Context, projectName string) (*Script, error) {
	store, err := app.Store()
	if err != nil {
		return nil, err
	}
	project, err := store.ProjectByName(projectName)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %q does not exist", projectName)
	}
	stage := NewScriptStage(store, app.llm, app.config.ModelFor(StageScript), app.log)
	return stage.Synthesize(ctx, project)
}

// LatestScript returns a project's newest script version, or nil.
func (app *App) LatestScript(projectName string) (*Script, error) {
	store, err := app.Store()
	if err != nil {
		return nil, err
	}
	project, err := store.ProjectByName(projectName)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %q does not exist", projectName)
	}
	return store.LatestScript(project.ID)
}
