// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Evidence      EvidenceConfig     `mapstructure:"evidence"`
	Jobs          JobsConfig         `mapstructure:"jobs"`
	Results       ResultsConfig      `mapstructure:"results"`
	Decision      DecisionConfig     `mapstructure:"decision"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	SQLite        SQLiteConfig        `mapstructure:"sqlite"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	// Schema holds the result tables; empty uses the server's search_path.
	Schema string `mapstructure:"schema"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s application_name=adjudicator",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
	if p.Schema != "" {
		dsn += " search_path=" + p.Schema
	}
	return dsn
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// --- Adjudication Sections ---

// EvidenceConfig selects and tunes the evidence provider.
type EvidenceConfig struct {
	Provider      string  `mapstructure:"provider"` // http | static
	BaseURL       string  `mapstructure:"base_url"`
	APIToken      string  `mapstructure:"api_token"`
	FixturePath   string  `mapstructure:"fixture_path"`
	Timeout       int     `mapstructure:"timeout"` // milliseconds, per call
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
	MaxRetries    int     `mapstructure:"max_retries"`
	RetryDelay    int     `mapstructure:"retry_delay"` // milliseconds
	CacheTTL      int     `mapstructure:"cache_ttl"`   // milliseconds
}

type JobsConfig struct {
	LogTail         int    `mapstructure:"log_tail"`
	DefaultCaseType string `mapstructure:"default_case_type"`
	InputColumn     string `mapstructure:"input_column"`
}

// ResultsConfig lists the result backends rows are appended to.
type ResultsConfig struct {
	Backends   []string `mapstructure:"backends"` // csv | postgres | sqlite | redis | elasticsearch
	CSVPath    string   `mapstructure:"csv_path"`
	ReportPath string   `mapstructure:"report_path"`
	Table      string   `mapstructure:"table"`
	RedisKey   string   `mapstructure:"redis_key"`
}

type BandConfig struct {
	Floor    int    `mapstructure:"floor"`
	Decision string `mapstructure:"decision"`
}

type DecisionConfig struct {
	RulesPath       string                  `mapstructure:"rules_path"`
	DocumentPenalty int                     `mapstructure:"document_penalty"`
	Bands           map[string][]BandConfig `mapstructure:"bands"`
}

// NotificationConfig holds settings for job-completion notifications.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SES struct {
		Enabled    bool     `mapstructure:"enabled"`
		FromEmail  string   `mapstructure:"from_email"`
		Recipients []string `mapstructure:"recipients"`
	} `mapstructure:"ses"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// HasBackend reports whether a result backend is enabled.
func (r ResultsConfig) HasBackend(name string) bool {
	for _, b := range r.Backends {
		if b == name {
			return true
		}
	}
	return false
}
