// Package app assembles the configured components into a running
// application shared by the CLI, TUI and HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"ragagent/internal/agent"
	"ragagent/internal/calculator"
	"ragagent/internal/chunker"
	"ragagent/internal/config"
	"ragagent/internal/domain"
	"ragagent/internal/embedding"
	"ragagent/internal/llm"
	"ragagent/internal/llm/openai"
	"ragagent/internal/service"
	"ragagent/internal/summarizer"
	"ragagent/internal/tools"
	"ragagent/internal/vectorstore"
)

// App holds the long-lived components.
type App struct {
	Config *config.AppConfig
	Log    *slog.Logger
	Index  *service.RAGService
	Tools  *tools.Registry
	Email  *tools.EmailSender
	Calc   *tools.Calculator

	// newModel builds the chat model on first use so that commands which
	// never ask the agent work without an API key.
	newModel  func() (llm.ChatModel, error)
	agentOnce sync.Once
	agent     *agent.Agent
	agentErr  error
}

// New wires every component described by cfg.
func New(cfg *config.AppConfig, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	emb, err := embedding.New(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	ch, err := chunker.New(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	st, err := vectorstore.New(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}
	idx := service.NewRAGService(ch, emb, st, sum, service.Options{
		PersistDir:          cfg.Index.PersistDir,
		SummaryMaxSentences: cfg.Summarizer.MaxSentences,
		Logger:              log.With("component", "index"),
	})

	calc := tools.NewCalculator(calculator.Limits{MaxLength: cfg.Calculator.MaxLength, MaxDepth: cfg.Calculator.MaxDepth})
	email := tools.NewEmailSender(log.With("component", "email"))
	search := tools.NewWebSearch(tools.WebSearchConfig{
		SerpAPIURL:    cfg.Search.SerpAPIURL,
		SerpAPIKey:    os.Getenv(cfg.Search.SerpAPIKeyEnv),
		DuckDuckGoURL: cfg.Search.DuckDuckGoURL,
		Timeout:       time.Duration(cfg.Search.TimeoutSecs) * time.Second,
		MaxResults:    cfg.Search.MaxResults,
	})
	reg, err := tools.NewRegistry(calc, search, email, tools.NewRetrieval(idx, cfg.Index.TopK))
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Log:    log,
		Index:  idx,
		Tools:  reg,
		Email:  email,
		Calc:   calc,
	}
	a.newModel = func() (llm.ChatModel, error) {
		return openai.NewChat(openai.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKeyEnv:   cfg.LLM.APIKeyEnv,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
			MaxRetries:  2,
		})
	}
	return a, nil
}

// WithChatModel replaces the configured chat model. Used by tests.
func (a *App) WithChatModel(m llm.ChatModel) *App {
	a.newModel = func() (llm.ChatModel, error) { return m, nil }
	return a
}

// Agent returns the tool-calling agent, building it on first use.
func (a *App) Agent() (*agent.Agent, error) {
	a.agentOnce.Do(func() {
		model, err := a.newModel()
		if err != nil {
			a.agentErr = err
			return
		}
		a.agent = agent.New(model, a.Tools, agent.Options{
			SystemPrompt: a.Config.LLM.SystemPrompt,
			MaxSteps:     a.Config.LLM.MaxSteps,
			Logger:       a.Log.With("component", "agent"),
		})
	})
	return a.agent, a.agentErr
}

// Ask runs the agent on question.
func (a *App) Ask(ctx context.Context, question string) (agent.Result, error) {
	ag, err := a.Agent()
	if err != nil {
		return agent.Result{}, err
	}
	return ag.Run(ctx, question)
}

// LoadIndex restores a persisted index if there is one. A missing index is
// not an error.
func (a *App) LoadIndex(ctx context.Context) error {
	_, err := a.Index.Load(ctx)
	if errors.Is(err, service.ErrNoIndex) {
		return nil
	}
	return err
}
