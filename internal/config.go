package internal

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ModelConfig fixes the chat-completion parameters for a single stage.
type ModelConfig struct {
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int64   `mapstructure:"max_tokens"`
}

// Config holds application settings
type Config struct {
	// User configurable settings
	DBDriver          string
	DBDSN             string
	Spreadsheet       string
	Stages            []string
	TranscriptDelay   time.Duration
	TranscriptBaseURL string
	Verbose           bool
	Quiet             bool
	MCPLogEnabled     bool
	LogMode           string

	// Per-stage model settings
	Models map[string]ModelConfig

	// API credentials (environment only, never written to config.toml)
	OpenAIAPIKey     string
	YouTubeAPIKey    string
	TranscriptAPIKey string

	// Fixed XDG paths (not configurable)
	ConfigDir string
	DataDir   string
	CacheDir  string
}

//go:embed config.toml
var defaultFS embed.FS

// defaultModels is the fallback when a stage has no [models] entry.
var defaultModels = map[string]ModelConfig{
	StageTopics:    {Model: "gpt-4o-mini", Temperature: 0.3, MaxTokens: 8192},
	StageSummaries: {Model: "gpt-4o-mini", Temperature: 0.3, MaxTokens: 2048},
	StageClusters:  {Model: "gpt-4o", Temperature: 0.2, MaxTokens: 8192},
	StageAnalysis:  {Model: "gpt-4o-mini", Temperature: 0.4, MaxTokens: 2048},
	StageScript:    {Model: "gpt-4o", Temperature: 0.7, MaxTokens: 16384},
}

// EnsureDefaultConfig checks if a config file exists in the XDG config
// directory and creates it from the embedded default if it doesn't exist.
func EnsureDefaultConfig(configDir string) error {
	filePath := filepath.Join(configDir, "config.toml")
	if FileExists(filePath) {
		return nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultContent, err := defaultFS.ReadFile("config.toml")
	if err != nil {
		return fmt.Errorf("reading embedded default configuration: %w", err)
	}

	if err := os.WriteFile(filePath, defaultContent, 0644); err != nil {
		return fmt.Errorf("writing default configuration: %w", err)
	}

	fmt.Printf("Created default configuration at %s\n", filePath)
	return nil
}

// InitConfig initializes Viper and loads configuration
func InitConfig() *Config {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	// XDG standard directories
	configDir := filepath.Join(xdg.ConfigHome, "scriptforge")
	dataDir := filepath.Join(xdg.DataHome, "scriptforge")
	cacheDir := filepath.Join(xdg.CacheHome, "scriptforge")

	v := viper.New()

	// Set default values for configurable settings
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "")
	v.SetDefault("spreadsheet", "projects.xlsx")
	v.SetDefault("stages", []string{StageTranscripts, StageTopics, StageClusters, StageSummaries})
	v.SetDefault("transcript_delay", 1500*time.Millisecond)
	v.SetDefault("transcript_base_url", "https://api.supadata.ai/v1")
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("mcp_log", false)
	v.SetDefault("log_mode", "dev")

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("SCRIPTFORGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// API keys live in well-known env vars, not the config file
	_ = v.BindEnv("openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("youtube_api_key", "YOUTUBE_API_KEY")
	_ = v.BindEnv("transcript_api_key", "TRANSCRIPT_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: Error reading config file: %v\n", err)
		}
	}

	models := make(map[string]ModelConfig, len(defaultModels))
	for stage, def := range defaultModels {
		mc := def
		if v.IsSet("models." + stage) {
			if err := v.UnmarshalKey("models."+stage, &mc); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: invalid [models.%s] config: %v\n", stage, err)
				mc = def
			}
			if mc.Model == "" {
				mc.Model = def.Model
			}
			if mc.MaxTokens == 0 {
				mc.MaxTokens = def.MaxTokens
			}
		}
		models[stage] = mc
	}

	dsn := v.GetString("db_dsn")
	if dsn == "" {
		dsn = filepath.Join(dataDir, "scriptforge.db")
	}

	config := &Config{
		DBDriver:          v.GetString("db_driver"),
		DBDSN:             dsn,
		Spreadsheet:       v.GetString("spreadsheet"),
		Stages:            v.GetStringSlice("stages"),
		TranscriptDelay:   v.GetDuration("transcript_delay"),
		TranscriptBaseURL: v.GetString("transcript_base_url"),
		Verbose:           v.GetBool("verbose"),
		Quiet:             v.GetBool("quiet"),
		MCPLogEnabled:     v.GetBool("mcp_log"),
		LogMode:           v.GetString("log_mode"),

		Models: models,

		OpenAIAPIKey:     v.GetString("openai_api_key"),
		YouTubeAPIKey:    v.GetString("youtube_api_key"),
		TranscriptAPIKey: v.GetString("transcript_api_key"),

		ConfigDir: configDir,
		DataDir:   dataDir,
		CacheDir:  cacheDir,
	}

	if config.Verbose {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	return config
}

// ModelFor returns the chat settings for a stage, falling back to defaults.
func (c *Config) ModelFor(stage string) ModelConfig {
	if mc, ok := c.Models[stage]; ok {
		return mc
	}
	return defaultModels[stage]
}

// ValidateOpenAIAPIKey checks if the OpenAI API key is set and returns a
// standardized error if not.
func ValidateOpenAIAPIKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("OpenAI API key is required - set the OPENAI_API_KEY environment variable")
	}
	return nil
}
