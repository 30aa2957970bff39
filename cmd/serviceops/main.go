package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jonny/serviceops-ai/internal/adapter/inbound/httpapi"
	"github.com/jonny/serviceops-ai/internal/adapter/inbound/slackbot"
	"github.com/jonny/serviceops-ai/internal/adapter/outbound/llm/ollama"
	"github.com/jonny/serviceops-ai/internal/adapter/outbound/llm/openai"
	"github.com/jonny/serviceops-ai/internal/adapter/outbound/metrics/kubernetes"
	"github.com/jonny/serviceops-ai/internal/adapter/outbound/metrics/prometheus"
	"github.com/jonny/serviceops-ai/internal/adapter/outbound/metrics/static"
	"github.com/jonny/serviceops-ai/internal/adapter/outbound/persistence/sqlite"
	"github.com/jonny/serviceops-ai/internal/adapter/outbound/sink"
	"github.com/jonny/serviceops-ai/internal/adapter/outbound/sink/httpsink"
	slacksink "github.com/jonny/serviceops-ai/internal/adapter/outbound/sink/slack"
	"github.com/jonny/serviceops-ai/internal/config"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
	"github.com/jonny/serviceops-ai/internal/domain/prompt"
	"github.com/jonny/serviceops-ai/internal/domain/service"
	"github.com/jonny/serviceops-ai/pkg/health"
	"github.com/jonny/serviceops-ai/pkg/version"
)

// healthChecker is implemented by metrics providers that can probe their backend.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	printVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = buildLogger(cfg.Logging)

	// --- LLM ---
	llmClient, err := buildLLM(cfg.LLM)
	if err != nil {
		logger.Error("failed to create LLM client", "error", err)
		os.Exit(1)
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.OpenAI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; LLM requests will fail until it is configured")
	}

	// --- Metrics provider ---
	metricsProvider, err := buildMetricsProvider(cfg.Metrics)
	if err != nil {
		logger.Error("failed to create metrics provider", "error", err)
		os.Exit(1)
	}

	// --- Database (optional) ---
	var (
		recRepo   *sqlite.RecommendationRepo
		cycleRepo *sqlite.CycleRepo
		store     *sqlite.Store
	)
	if cfg.Delivery.Archive.Enabled {
		store, err = sqlite.NewStore(sqlite.Config{
			Path:              cfg.Database.SQLite.Path,
			MaxOpenConns:      cfg.Database.SQLite.MaxOpenConns,
			PragmaJournalMode: cfg.Database.SQLite.PragmaJournalMode,
			PragmaBusyTimeout: cfg.Database.SQLite.PragmaBusyTimeout,
		})
		if err != nil {
			logger.Error("failed to open sqlite store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		recRepo = sqlite.NewRecommendationRepo(store)
		cycleRepo = sqlite.NewCycleRepo(store)
	}

	// --- Sinks ---
	recommendationSink, err := buildSink(cfg, recRepo, logger)
	if err != nil {
		logger.Error("failed to create recommendation sink", "error", err)
		os.Exit(1)
	}

	// --- Domain services ---
	builder, err := prompt.NewBuilder()
	if err != nil {
		logger.Error("failed to parse prompt templates", "error", err)
		os.Exit(1)
	}

	composer := service.NewComposer(llmClient, builder, service.ComposerConfig{
		MaxTokens: cfg.Agent.RecommendationMaxTokens,
		Timeout:   cfg.LLM.Timeout,
	}, logger)
	conversation := service.NewConversation(llmClient, metricsProvider, builder, service.ConversationConfig{
		HistoryCapacity: cfg.Agent.HistoryCapacity,
		MaxTokens:       cfg.Agent.ChatMaxTokens,
		Temperature:     cfg.Agent.ChatTemperature,
		Timeout:         cfg.LLM.Timeout,
	}, logger)
	agent := service.NewAgent(metricsProvider, composer, conversation, logger)

	// Interface values stay nil when the store is disabled so the API
	// answers 404 for the archive routes.
	var (
		inboxRepo outbound.RecommendationRepository
		cycles    outbound.CycleRepository
		archive   httpapi.RecommendationLister
		cycleLog  httpapi.CycleLister
	)
	if store != nil {
		inboxRepo, archive = recRepo, recRepo
		cycles, cycleLog = cycleRepo, cycleRepo
	}
	inbox := service.NewInbox(inboxRepo, logger)
	scheduler := service.NewScheduler(metricsProvider, composer, recommendationSink, cycles, cfg.Agent.PollingInterval, logger)

	// --- API server ---
	apiServer := httpapi.NewServer(httpapi.ServerConfig{
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		CORSOrigins:       cfg.Server.CORSOrigins,
		AuthToken:         cfg.Server.AuthToken,
		RateLimitEnabled:  cfg.Server.RateLimit.Enabled,
		RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
		Burst:             cfg.Server.RateLimit.Burst,
	}, httpapi.NewHandler(agent, inbox, archive, cycleLog, logger), logger)

	// --- Health checker ---
	checker := health.NewChecker()
	checker.Register("llm", llmClient.HealthCheck)
	if hc, ok := metricsProvider.(healthChecker); ok {
		checker.Register("metrics", hc.HealthCheck)
	}
	if store != nil {
		checker.Register("database", store.Ping)
	}

	// --- Metrics server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", checker.LivenessHandler())
	metricsMux.HandleFunc("/readyz", checker.ReadinessHandler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Signal handling & startup ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return apiServer.Start(gCtx)
	})

	g.Go(func() error {
		logger.Info("starting metrics server", "port", cfg.Server.MetricsPort)
		errCh := make(chan error, 1)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()
		select {
		case <-gCtx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	})

	if cfg.Agent.PollingEnabled {
		g.Go(func() error {
			return scheduler.Run(gCtx)
		})
	} else {
		logger.Info("polling disabled")
	}

	if cfg.Slack.Enabled {
		g.Go(func() error {
			logger.Info("starting slack bot")
			bot := slackbot.NewBot(slackbot.Config{
				BotToken: cfg.Slack.BotToken,
				AppToken: cfg.Slack.AppToken,
			}, agent, logger)
			return bot.Start(gCtx)
		})
	} else {
		logger.Info("slack bot disabled")
	}

	logger.Info("serviceops-ai started",
		"version", version.String(),
		"llm", cfg.LLM.Provider,
		"metrics", metricsProvider.Name(),
		"sink", recommendationSink.Name(),
	)

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("serviceops-ai stopped")
}

// buildLLM constructs the configured chat-completion client.
func buildLLM(cfg config.LLMConfig) (outbound.LLMProvider, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewClient(ollama.Config{
			BaseURL:    cfg.Ollama.BaseURL,
			Model:      cfg.Ollama.Model,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.Ollama.MaxRetries,
		})
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:     cfg.OpenAI.APIKey,
			Model:      cfg.OpenAI.Model,
			BaseURL:    cfg.OpenAI.BaseURL,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.OpenAI.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// buildMetricsProvider constructs the configured metrics source.
func buildMetricsProvider(cfg config.MetricsConfig) (outbound.MetricsProvider, error) {
	switch cfg.Provider {
	case "static":
		return static.NewProvider(cfg.Static.Path), nil
	case "prometheus":
		services := make([]prometheus.ServiceQuery, 0, len(cfg.Prometheus.Services))
		for _, s := range cfg.Prometheus.Services {
			queries := make([]prometheus.MetricQuery, 0, len(s.Metrics))
			for _, m := range s.Metrics {
				queries = append(queries, prometheus.MetricQuery{
					Name:       m.Name,
					Query:      m.Query,
					WarnAbove:  m.WarnAbove,
					ErrorAbove: m.ErrorAbove,
				})
			}
			services = append(services, prometheus.ServiceQuery{Name: s.Name, Metrics: queries})
		}
		return prometheus.NewProvider(prometheus.Config{
			URL:         cfg.Prometheus.URL,
			Environment: cfg.Prometheus.Environment,
			Region:      cfg.Prometheus.Region,
			Timeout:     cfg.Prometheus.Timeout,
			Services:    services,
		})
	case "kubernetes":
		clientset, err := kubernetes.NewClientset(cfg.Kubernetes.InCluster, cfg.Kubernetes.Kubeconfig)
		if err != nil {
			return nil, err
		}
		return kubernetes.NewProvider(clientset, kubernetes.Config{
			Namespaces:  cfg.Kubernetes.Namespaces,
			Environment: cfg.Kubernetes.Environment,
			Region:      cfg.Kubernetes.Region,
			EventLimit:  cfg.Kubernetes.EventLimit,
		}), nil
	default:
		return nil, fmt.Errorf("unknown metrics provider %q", cfg.Provider)
	}
}

// buildSink fans recommendations out to every enabled destination. With none
// enabled they are only logged.
func buildSink(cfg *config.Config, repo *sqlite.RecommendationRepo, logger *slog.Logger) (outbound.RecommendationSink, error) {
	var sinks []outbound.RecommendationSink

	if cfg.Delivery.HTTP.Enabled {
		s, err := httpsink.New(httpsink.Config{
			APIURL:  cfg.Delivery.HTTP.APIURL,
			Token:   cfg.Delivery.HTTPToken(cfg.Server),
			Timeout: cfg.Delivery.HTTP.Timeout,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Delivery.Slack.Enabled {
		s, err := slacksink.New(slacksink.Config{
			BotToken: cfg.Slack.BotToken,
			Channel:  cfg.Delivery.SlackChannel(cfg.Slack),
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if repo != nil {
		sinks = append(sinks, sink.NewArchive(repo))
	}

	switch len(sinks) {
	case 0:
		return sink.NewLog(logger), nil
	case 1:
		return sinks[0], nil
	default:
		return sink.NewMulti(sinks...), nil
	}
}

// buildLogger constructs a slog.Logger based on config.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
