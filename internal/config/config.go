package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvAPIURL          = "API_URL"
	EnvPollingInterval = "POLLING_INTERVAL"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Agent    AgentConfig    `yaml:"agent"`
	LLM      LLMConfig      `yaml:"llm"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Slack    SlackConfig    `yaml:"slack"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	MetricsPort     int             `yaml:"metricsPort"`
	CORSOrigins     []string        `yaml:"corsOrigins"`
	AuthToken       string          `yaml:"authToken"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

type AgentConfig struct {
	PollingEnabled          bool          `yaml:"pollingEnabled"`
	PollingInterval         time.Duration `yaml:"pollingInterval"`
	HistoryCapacity         int           `yaml:"historyCapacity"`
	RecommendationMaxTokens int           `yaml:"recommendationMaxTokens"`
	ChatMaxTokens           int           `yaml:"chatMaxTokens"`
	ChatTemperature         float64       `yaml:"chatTemperature"`
}

type LLMConfig struct {
	Provider string        `yaml:"provider"`
	Timeout  time.Duration `yaml:"timeout"`
	OpenAI   OpenAIConfig  `yaml:"openai"`
	Ollama   OllamaConfig  `yaml:"ollama"`
}

type OpenAIConfig struct {
	APIKey     string `yaml:"apiKey"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"baseURL"`
	MaxRetries int    `yaml:"maxRetries"`
}

type OllamaConfig struct {
	BaseURL    string `yaml:"baseURL"`
	Model      string `yaml:"model"`
	MaxRetries int    `yaml:"maxRetries"`
}

type MetricsConfig struct {
	Provider   string           `yaml:"provider"`
	Static     StaticConfig     `yaml:"static"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
}

// StaticConfig points at a YAML or JSON snapshot file. An empty path serves
// the built-in sample.
type StaticConfig struct {
	Path string `yaml:"path"`
}

type PrometheusConfig struct {
	URL         string                   `yaml:"url"`
	Environment string                   `yaml:"environment"`
	Region      string                   `yaml:"region"`
	Timeout     time.Duration            `yaml:"timeout"`
	Services    []PrometheusServiceQuery `yaml:"services"`
}

type PrometheusServiceQuery struct {
	Name    string                  `yaml:"name"`
	Metrics []PrometheusMetricQuery `yaml:"metrics"`
}

type PrometheusMetricQuery struct {
	Name       string   `yaml:"name"`
	Query      string   `yaml:"query"`
	WarnAbove  *float64 `yaml:"warnAbove"`
	ErrorAbove *float64 `yaml:"errorAbove"`
}

type KubernetesConfig struct {
	InCluster   bool     `yaml:"inCluster"`
	Kubeconfig  string   `yaml:"kubeconfig"`
	Namespaces  []string `yaml:"namespaces"`
	Environment string   `yaml:"environment"`
	Region      string   `yaml:"region"`
	EventLimit  int      `yaml:"eventLimit"`
}

type DeliveryConfig struct {
	HTTP    HTTPDeliveryConfig    `yaml:"http"`
	Slack   SlackDeliveryConfig   `yaml:"slack"`
	Archive ArchiveDeliveryConfig `yaml:"archive"`
}

// HTTPDeliveryConfig posts recommendations to APIURL. Token authenticates
// the request; when empty, server.authToken is used.
type HTTPDeliveryConfig struct {
	Enabled bool          `yaml:"enabled"`
	APIURL  string        `yaml:"apiURL"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// SlackDeliveryConfig posts recommendations to Channel, falling back to
// slack.defaultChannel.
type SlackDeliveryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Channel string `yaml:"channel"`
}

type ArchiveDeliveryConfig struct {
	Enabled bool `yaml:"enabled"`
}

type SlackConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BotToken       string `yaml:"botToken"`
	AppToken       string `yaml:"appToken"`
	DefaultChannel string `yaml:"defaultChannel"`
}

type DatabaseConfig struct {
	SQLite SQLiteConfig `yaml:"sqlite"`
}

type SQLiteConfig struct {
	Path              string `yaml:"path"`
	MaxOpenConns      int    `yaml:"maxOpenConns"`
	PragmaJournalMode string `yaml:"pragmaJournalMode"`
	PragmaBusyTimeout int    `yaml:"pragmaBusyTimeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load builds the configuration from defaults, the optional YAML file at path
// and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MetricsPort:     9090,
			CORSOrigins:     []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 5,
				Burst:             10,
			},
		},
		Agent: AgentConfig{
			PollingEnabled:          true,
			PollingInterval:         300 * time.Second,
			HistoryCapacity:         20,
			RecommendationMaxTokens: 300,
			ChatMaxTokens:           500,
			ChatTemperature:         0.7,
		},
		LLM: LLMConfig{
			Provider: "openai",
			Timeout:  60 * time.Second,
			OpenAI: OpenAIConfig{
				Model:      "gpt-4o",
				MaxRetries: 3,
			},
			Ollama: OllamaConfig{
				BaseURL:    "http://localhost:11434",
				Model:      "llama3:8b",
				MaxRetries: 3,
			},
		},
		Metrics: MetricsConfig{
			Provider: "static",
			Prometheus: PrometheusConfig{
				Environment: "Production",
				Timeout:     10 * time.Second,
			},
			Kubernetes: KubernetesConfig{
				InCluster:   true,
				Environment: "Production",
				EventLimit:  5,
			},
		},
		Delivery: DeliveryConfig{
			HTTP: HTTPDeliveryConfig{Timeout: 10 * time.Second},
		},
		Slack: SlackConfig{
			DefaultChannel: "#ops-alerts",
		},
		Database: DatabaseConfig{
			SQLite: SQLiteConfig{
				Path:              "/data/serviceops.db",
				MaxOpenConns:      1,
				PragmaJournalMode: "wal",
				PragmaBusyTimeout: 5000,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyEnvOverrides applies the documented environment variables. Setting
// API_URL also turns on HTTP delivery.
func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvOpenAIKey); ok && v != "" {
		cfg.LLM.OpenAI.APIKey = v
	}
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		cfg.Delivery.HTTP.APIURL = strings.TrimRight(v, "/")
		cfg.Delivery.HTTP.Enabled = true
	}
	if v, ok := lookup(EnvPollingInterval); ok && v != "" {
		secs, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || secs <= 0 {
			return fmt.Errorf("%s must be a positive number of seconds (got %q)", EnvPollingInterval, v)
		}
		cfg.Agent.PollingInterval = time.Duration(secs) * time.Second
	}
	return nil
}

// expandEnvVars replaces ${VAR} patterns with environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "${" + key + "}"
	})
}

// SlackChannel returns the channel recommendations are posted to.
func (d *DeliveryConfig) SlackChannel(slack SlackConfig) string {
	if d.Slack.Channel != "" {
		return d.Slack.Channel
	}
	return slack.DefaultChannel
}

// HTTPToken returns the bearer token the HTTP sink sends.
func (d *DeliveryConfig) HTTPToken(server ServerConfig) string {
	if d.HTTP.Token != "" {
		return d.HTTP.Token
	}
	return server.AuthToken
}
