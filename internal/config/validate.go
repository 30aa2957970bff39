package config

import (
	"fmt"
	"strings"
)

var (
	validLLMProviders     = map[string]bool{"openai": true, "ollama": true}
	validMetricsProviders = map[string]bool{"static": true, "prometheus": true, "kubernetes": true}
	validLogFormats       = map[string]bool{"json": true, "text": true}
)

// Validate checks the config for errors. The OpenAI key is not checked here;
// a missing key is reported by the first LLM call.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535 {
		errs = append(errs, "server.metricsPort must be between 1 and 65535")
	}
	if cfg.Server.MetricsPort == cfg.Server.Port {
		errs = append(errs, "server.metricsPort must differ from server.port")
	}
	if rl := cfg.Server.RateLimit; rl.Enabled && (rl.RequestsPerSecond <= 0 || rl.Burst <= 0) {
		errs = append(errs, "server.rateLimit.requestsPerSecond and burst must be positive when enabled")
	}

	if cfg.Agent.PollingInterval <= 0 {
		errs = append(errs, "agent.pollingInterval must be positive")
	}
	if cfg.Agent.HistoryCapacity <= 0 {
		errs = append(errs, "agent.historyCapacity must be positive")
	}
	if cfg.Agent.RecommendationMaxTokens <= 0 || cfg.Agent.ChatMaxTokens <= 0 {
		errs = append(errs, "agent.recommendationMaxTokens and agent.chatMaxTokens must be positive")
	}
	if cfg.Agent.ChatTemperature < 0 || cfg.Agent.ChatTemperature > 2 {
		errs = append(errs, "agent.chatTemperature must be between 0 and 2")
	}

	if !validLLMProviders[cfg.LLM.Provider] {
		errs = append(errs, fmt.Sprintf("llm.provider must be one of: openai, ollama (got %q)", cfg.LLM.Provider))
	}
	if cfg.LLM.OpenAI.MaxRetries < 0 || cfg.LLM.Ollama.MaxRetries < 0 {
		errs = append(errs, "llm.openai.maxRetries and llm.ollama.maxRetries must not be negative")
	}
	if cfg.LLM.Provider == "ollama" && (cfg.LLM.Ollama.BaseURL == "" || cfg.LLM.Ollama.Model == "") {
		errs = append(errs, "llm.ollama.baseURL and llm.ollama.model are required when provider is ollama")
	}

	switch cfg.Metrics.Provider {
	case "prometheus":
		if cfg.Metrics.Prometheus.URL == "" {
			errs = append(errs, "metrics.prometheus.url is required when provider is prometheus")
		}
		if len(cfg.Metrics.Prometheus.Services) == 0 {
			errs = append(errs, "metrics.prometheus.services must list at least one service")
		}
		for i, svc := range cfg.Metrics.Prometheus.Services {
			if svc.Name == "" {
				errs = append(errs, fmt.Sprintf("metrics.prometheus.services[%d].name is required", i))
			}
			for j, m := range svc.Metrics {
				if m.Name == "" || m.Query == "" {
					errs = append(errs, fmt.Sprintf("metrics.prometheus.services[%d].metrics[%d] needs name and query", i, j))
				}
			}
		}
	default:
		if !validMetricsProviders[cfg.Metrics.Provider] {
			errs = append(errs, fmt.Sprintf("metrics.provider must be one of: static, prometheus, kubernetes (got %q)", cfg.Metrics.Provider))
		}
	}

	if cfg.Delivery.HTTP.Enabled && cfg.Delivery.HTTP.APIURL == "" {
		errs = append(errs, "delivery.http.apiURL is required when http delivery is enabled")
	}
	if cfg.Delivery.Slack.Enabled {
		if cfg.Slack.BotToken == "" {
			errs = append(errs, "slack.botToken is required when slack delivery is enabled")
		}
		if cfg.Delivery.SlackChannel(cfg.Slack) == "" {
			errs = append(errs, "delivery.slack.channel or slack.defaultChannel is required when slack delivery is enabled")
		}
	}
	if cfg.Delivery.Archive.Enabled && cfg.Database.SQLite.Path == "" {
		errs = append(errs, "database.sqlite.path is required when the archive is enabled")
	}

	if cfg.Slack.Enabled {
		if cfg.Slack.BotToken == "" {
			errs = append(errs, "slack.botToken is required when slack is enabled")
		}
		if cfg.Slack.AppToken == "" {
			errs = append(errs, "slack.appToken is required when slack is enabled")
		}
	}

	if !validLogFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("logging.format must be json or text (got %q)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
