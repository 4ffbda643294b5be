// Package config loads campus-qa settings from defaults, an optional YAML file
// and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable holding the YAML config path.
const FileEnv = "CAMPUSQA_CONFIG"

type Config struct {
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Index   IndexConfig   `yaml:"index"`
	Sheets  SheetsConfig  `yaml:"sheets"`
	Monitor MonitorConfig `yaml:"monitor"`
	Logging LoggingConfig `yaml:"logging"`
	Qdrant  QdrantConfig  `yaml:"qdrant"`
	GitHub  GitHubConfig  `yaml:"github"`
	Server  ServerConfig  `yaml:"server"`
}

type OpenAIConfig struct {
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	EmbeddingModel  string        `yaml:"embedding_model"`
	GenerationModel string        `yaml:"generation_model"`
	Timeout         time.Duration `yaml:"timeout"`
}

type IndexConfig struct {
	Dir        string `yaml:"dir"`
	CorpusPath string `yaml:"corpus_path"`
	BatchSize  int    `yaml:"batch_size"`
	TopK       int    `yaml:"top_k"`
}

type SheetsConfig struct {
	URL            string        `yaml:"url"`
	QuestionTable  string        `yaml:"question_table"`
	AnswerTable    string        `yaml:"answer_table"`
	RequestDelay   time.Duration `yaml:"request_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type MonitorConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	BackupPath   string        `yaml:"backup_path"`

	// AllowDegraded answers from the keyword table when the index or models
	// cannot be loaded, instead of refusing to start.
	AllowDegraded bool `yaml:"allow_degraded"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type QdrantConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

type GitHubConfig struct {
	Token string `yaml:"token"`
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Path  string `yaml:"path"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode bool   `yaml:"mode"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		OpenAI: OpenAIConfig{
			EmbeddingModel:  "text-embedding-3-small",
			GenerationModel: "gpt-4o-mini",
			Timeout:         60 * time.Second,
		},
		Index: IndexConfig{
			Dir:        "./index_output",
			CorpusPath: "./corpus.jsonl",
			BatchSize:  16,
			TopK:       3,
		},
		Sheets: SheetsConfig{
			QuestionTable:  "question",
			AnswerTable:    "answer",
			RequestDelay:   time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Monitor: MonitorConfig{
			PollInterval:  10 * time.Second,
			BackupPath:    "answer_backup.jsonl",
			AllowDegraded: true,
		},
		Logging: LoggingConfig{Level: "info"},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "campus_posts",
		},
		Server: ServerConfig{Port: "8080"},
	}
}

// Load reads .env if present, then the YAML file named by CAMPUSQA_CONFIG,
// then the process environment.
func Load() (*Config, error) {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path, ok := lookup(FileEnv); ok && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	e := envReader{lookup: lookup}
	e.setString("OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	e.setString("OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	e.setString("EMBEDDING_MODEL", &cfg.OpenAI.EmbeddingModel)
	e.setString("GENERATION_MODEL", &cfg.OpenAI.GenerationModel)
	e.setDuration("OPENAI_TIMEOUT", &cfg.OpenAI.Timeout)

	e.setString("INDEX_DIR", &cfg.Index.Dir)
	e.setString("CORPUS_PATH", &cfg.Index.CorpusPath)
	e.setInt("EMBED_BATCH_SIZE", &cfg.Index.BatchSize)
	e.setInt("RETRIEVAL_TOP_K", &cfg.Index.TopK)

	e.setString("SHEETS_URL", &cfg.Sheets.URL)
	e.setString("QUESTION_TABLE", &cfg.Sheets.QuestionTable)
	e.setString("ANSWER_TABLE", &cfg.Sheets.AnswerTable)
	e.setDuration("REQUEST_DELAY", &cfg.Sheets.RequestDelay)
	e.setDuration("REQUEST_TIMEOUT", &cfg.Sheets.RequestTimeout)

	e.setDuration("POLL_INTERVAL", &cfg.Monitor.PollInterval)
	e.setString("BACKUP_PATH", &cfg.Monitor.BackupPath)
	e.setBool("ALLOW_DEGRADED", &cfg.Monitor.AllowDegraded)

	e.setString("LOG_LEVEL", &cfg.Logging.Level)
	e.setString("LOG_FILE", &cfg.Logging.File)

	e.setBool("QDRANT_ENABLED", &cfg.Qdrant.Enabled)
	e.setString("QDRANT_HOST", &cfg.Qdrant.Host)
	e.setInt("QDRANT_PORT", &cfg.Qdrant.Port)
	e.setString("QDRANT_COLLECTION", &cfg.Qdrant.Collection)

	e.setString("GITHUB_TOKEN", &cfg.GitHub.Token)
	e.setString("CORPUS_GITHUB_OWNER", &cfg.GitHub.Owner)
	e.setString("CORPUS_GITHUB_REPO", &cfg.GitHub.Repo)
	e.setString("CORPUS_GITHUB_PATH", &cfg.GitHub.Path)

	e.setString("PORT", &cfg.Server.Port)
	e.setBool("SERVER_MODE", &cfg.Server.Mode)

	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the components cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Index.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("EMBED_BATCH_SIZE must be positive, got %d", c.Index.BatchSize))
	}
	if c.Index.TopK <= 0 {
		errs = append(errs, fmt.Errorf("RETRIEVAL_TOP_K must be positive, got %d", c.Index.TopK))
	}
	if c.Monitor.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.Monitor.PollInterval))
	}
	if c.Sheets.RequestDelay < 0 {
		errs = append(errs, fmt.Errorf("REQUEST_DELAY must not be negative, got %s", c.Sheets.RequestDelay))
	}
	if c.Sheets.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.Sheets.RequestTimeout))
	}
	if c.Qdrant.Enabled && (c.Qdrant.Port <= 0 || c.Qdrant.Host == "") {
		errs = append(errs, fmt.Errorf("QDRANT_HOST and QDRANT_PORT are required when Qdrant is enabled"))
	}
	return errors.Join(errs...)
}

// GitHubCorpus reports whether the corpus should be downloaded from GitHub.
func (c *Config) GitHubCorpus() bool {
	return c.GitHub.Owner != "" && c.GitHub.Repo != "" && c.GitHub.Path != ""
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) setString(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) setInt(key string, dst *int) {
	if v, ok := e.get(key); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = i
	}
}

func (e *envReader) setBool(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
}

// setDuration accepts Go duration strings or a bare number of seconds.
func (e *envReader) setDuration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = time.Duration(secs * float64(time.Second))
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}
