package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nexusflow/taxassist/internal/agent"
	"github.com/nexusflow/taxassist/internal/config"
	"github.com/nexusflow/taxassist/internal/db"
	"github.com/nexusflow/taxassist/internal/embeddings"
	"github.com/nexusflow/taxassist/internal/llm"
	"github.com/nexusflow/taxassist/internal/memory"
	"github.com/nexusflow/taxassist/internal/retrieval"
	"github.com/nexusflow/taxassist/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `taxassist init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if verbose {
		log.Printf("config: %s (provider=%s model=%s data_dir=%s)",
			cfgFile, cfg.Provider, cfg.Model, cfg.DataDir)
	}
	return cfg, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = config.ProviderOpenAI
	}

	switch provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, cfg.EmbeddingModel), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, 768, ""), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", provider)
	}
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	apiKey := os.Getenv(config.APIKeyEnvVar(cfg.Provider))
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable is required for provider %s",
			config.APIKeyEnvVar(cfg.Provider), cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIProvider(apiKey, cfg.Model), nil
	case config.ProviderOpenRouter:
		return llm.NewOpenRouterProvider(apiKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// buildEngine wires the full dependency graph: embedder, per-user vector
// store, retrieval tool, session memory, and the conversational engine.
// The returned db handle must be closed by the caller.
func buildEngine(cfg *config.Config) (*agent.Engine, *vectordb.UserStore, *db.DB, error) {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	store := vectordb.NewUserStore(cfg.DataDir, embedder)

	database, err := db.Open(filepath.Join(cfg.DataDir, "taxassist.db"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	mem := memory.NewStore(database, cfg.HardClear)
	retriever := retrieval.NewRetriever(store, cfg.TopK)

	engine := agent.NewEngine(mem, retriever, provider, cfg.Model)
	engine.SetMaxToolRounds(cfg.MaxToolRounds)

	prompt, err := cfg.SystemPrompt()
	if err != nil {
		database.Close()
		return nil, nil, nil, err
	}
	if prompt != "" {
		engine.SetSystemPrompt(prompt)
	}

	return engine, store, database, nil
}
