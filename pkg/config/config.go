// Package config loads scrapejob settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"scrapejob/pkg/db"
	"scrapejob/pkg/extract"
	"scrapejob/pkg/httpclient"
	"scrapejob/pkg/render"
	"scrapejob/pkg/telemetry"
)

// Document store backends.
const (
	DocumentS3       = "s3"
	DocumentSupabase = "supabase"
	DocumentFile     = "file"
	DocumentMemory   = "memory"
)

// Row store backends.
const (
	RowsDynamoDB = "dynamodb"
	RowsPostgres = "postgres"
	RowsSupabase = "supabase"
	RowsMongo    = "mongo"
	RowsSQLite   = "sqlite"
	RowsMemory   = "memory"
	RowsNone     = "none"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string           `yaml:"log_level"`
	LogFormat string           `yaml:"log_format"`
	Timezone  string           `yaml:"timezone"`
	Render    RenderConfig     `yaml:"render"`
	Document  DocumentConfig   `yaml:"document"`
	Rows      RowsConfig       `yaml:"rows"`
	Supabase  SupabaseConfig   `yaml:"supabase"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Jobs      []JobConfig      `yaml:"jobs"`
}

type RenderConfig struct {
	Engine       string        `yaml:"engine"`
	ExecPath     string        `yaml:"exec_path"`
	UserAgent    string        `yaml:"user_agent"`
	Wait         time.Duration `yaml:"wait"`
	WindowWidth  int           `yaml:"window_width"`
	WindowHeight int           `yaml:"window_height"`
	// HTTPProfile is browser or curl; only the http engine reads it.
	HTTPProfile  string        `yaml:"http_profile"`
}

type DocumentConfig struct {
	Backend string `yaml:"backend"`
	Bucket  string `yaml:"bucket"`
	Region  string `yaml:"region"`
	// Dir is the root directory of the file backend.
	Dir             string `yaml:"dir"`
	ConflictRetries int    `yaml:"conflict_retries"`
}

type RowsConfig struct {
	Backend    string `yaml:"backend"`
	Region     string `yaml:"region"`
	DSN        string `yaml:"dsn"`
	MongoURI   string `yaml:"mongo_uri"`
	Database   string `yaml:"database"`
	SQLitePath string `yaml:"sqlite_path"`
}

type SupabaseConfig struct {
	URL      string `yaml:"url"`
	Key      string `yaml:"key"`
	Password string `yaml:"password"`
}

// JobConfig describes one scrape target.
type JobConfig struct {
	Name        string       `yaml:"name"`
	Label       string       `yaml:"label"`
	URL         string       `yaml:"url"`
	Schedule    string       `yaml:"schedule"`
	DocumentKey string       `yaml:"document_key"`
	Table       string       `yaml:"table"`
	Rule        extract.Rule `yaml:"rule"`
}

// Load reads configuration from a YAML file and applies defaults. A missing
// file yields the built-in configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv("SCRAPEJOB_CONFIG"); path != "" {
		return path
	}
	return "./scrapejob.yaml"
}

// Job returns the named job.
func (c *Config) Job(name string) (JobConfig, bool) {
	for _, j := range c.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return JobConfig{}, false
}

// Location returns the configured time zone. Validation guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RenderOptions converts the render section for render.Acquire.
func (c *Config) RenderOptions() render.Config {
	return render.Config{
		Engine:       c.Render.Engine,
		ExecPath:     c.Render.ExecPath,
		UserAgent:    c.Render.UserAgent,
		Wait:         c.Render.Wait,
		WindowWidth:  c.Render.WindowWidth,
		WindowHeight: c.Render.WindowHeight,
		HTTPProfile:  c.Render.HTTPProfile,
	}
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.Render.Engine == "" {
		cfg.Render.Engine = render.EngineChrome
	}
	if cfg.Render.HTTPProfile == "" {
		cfg.Render.HTTPProfile = render.ProfileBrowser
	}
	if cfg.Render.UserAgent == "" {
		cfg.Render.UserAgent = httpclient.DefaultUserAgent
	}
	if cfg.Render.Wait == 0 {
		cfg.Render.Wait = 10 * time.Second
	}
	if cfg.Render.WindowWidth == 0 {
		cfg.Render.WindowWidth = 1920
	}
	if cfg.Render.WindowHeight == 0 {
		cfg.Render.WindowHeight = 1080
	}
	if cfg.Document.Backend == "" {
		cfg.Document.Backend = DocumentS3
	}
	if cfg.Document.Bucket == "" {
		cfg.Document.Bucket = "comandante7"
	}
	if cfg.Document.Dir == "" {
		cfg.Document.Dir = "./data"
	}
	if cfg.Rows.Backend == "" {
		cfg.Rows.Backend = RowsDynamoDB
	}
	if cfg.Rows.Database == "" {
		cfg.Rows.Database = "scrapejob"
	}
	if cfg.Rows.SQLitePath == "" {
		cfg.Rows.SQLitePath = "./scrapejob.db"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "scrapejob"
	}
	if len(cfg.Jobs) == 0 {
		cfg.Jobs = DefaultJobs()
	}
	for i := range cfg.Jobs {
		j := &cfg.Jobs[i]
		if j.DocumentKey == "" {
			j.DocumentKey = "data/" + j.Name + ".json"
		}
		if j.Table == "" {
			j.Table = j.Name + "_scraping"
		}
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("SCRAPEJOB_BUCKET"); v != "" {
		cfg.Document.Bucket = v
	}
	if v := os.Getenv("SCRAPEJOB_DOCUMENT_BACKEND"); v != "" {
		cfg.Document.Backend = v
	}
	if v := os.Getenv("SCRAPEJOB_ROWS_BACKEND"); v != "" {
		cfg.Rows.Backend = v
	}
	if v := os.Getenv("SCRAPEJOB_DSN"); v != "" {
		cfg.Rows.DSN = v
	}
	if v := os.Getenv("SCRAPEJOB_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SCRAPEJOB_CONFLICT_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Document.ConflictRetries = n
		}
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.Supabase.URL = v
	}
	if v := os.Getenv("SUPABASE_KEY"); v != "" {
		cfg.Supabase.Key = v
	}
}

func validate(cfg *Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", cfg.LogFormat)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	switch cfg.Render.Engine {
	case render.EngineChrome, render.EngineHTTP:
	default:
		return fmt.Errorf("%w: %q", render.ErrUnknownEngine, cfg.Render.Engine)
	}
	switch cfg.Render.HTTPProfile {
	case render.ProfileBrowser, render.ProfileCurl:
	default:
		return fmt.Errorf("%w: %q", render.ErrUnknownProfile, cfg.Render.HTTPProfile)
	}
	if cfg.Render.Wait < 0 {
		return fmt.Errorf("render.wait must not be negative")
	}
	if cfg.Document.ConflictRetries < 0 {
		return fmt.Errorf("document.conflict_retries must not be negative")
	}

	switch cfg.Document.Backend {
	case DocumentS3, DocumentSupabase:
		if cfg.Document.Bucket == "" {
			return fmt.Errorf("document.bucket is required for the %s backend", cfg.Document.Backend)
		}
	case DocumentFile, DocumentMemory:
	default:
		return fmt.Errorf("unknown document backend %q", cfg.Document.Backend)
	}
	if cfg.Document.Backend == DocumentSupabase && (cfg.Supabase.URL == "" || cfg.Supabase.Key == "") {
		return fmt.Errorf("supabase.url and supabase.key are required for the supabase document backend")
	}

	switch cfg.Rows.Backend {
	case RowsPostgres:
		if cfg.Rows.DSN == "" {
			return fmt.Errorf("rows.dsn is required for the postgres backend")
		}
	case RowsMongo:
		if cfg.Rows.MongoURI == "" {
			return fmt.Errorf("rows.mongo_uri is required for the mongo backend")
		}
	case RowsSupabase:
		if cfg.Supabase.URL == "" || (cfg.Supabase.Key == "" && cfg.Supabase.Password == "") {
			return fmt.Errorf("supabase.url and either supabase.key or supabase.password are required for the supabase rows backend")
		}
	case RowsDynamoDB, RowsSQLite, RowsMemory, RowsNone:
	default:
		return fmt.Errorf("unknown rows backend %q", cfg.Rows.Backend)
	}

	seen := make(map[string]bool)
	for i, j := range cfg.Jobs {
		if j.Name == "" {
			return fmt.Errorf("jobs[%d]: name is required", i)
		}
		if seen[j.Name] {
			return fmt.Errorf("jobs[%d]: duplicate job name %q", i, j.Name)
		}
		seen[j.Name] = true
		if j.URL == "" {
			return fmt.Errorf("job %s: url is required", j.Name)
		}
		if err := j.Rule.Validate(); err != nil {
			return fmt.Errorf("job %s: %w", j.Name, err)
		}
		if cfg.Rows.Backend != RowsNone {
			if err := db.ValidateTable(j.Table); err != nil {
				return fmt.Errorf("job %s: %w", j.Name, err)
			}
		}
	}
	return nil
}
