package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// DefaultConfigFile is where the wizard writes its result.
const DefaultConfigFile = ".taxassist.yml"

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .taxassist.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to taxassist! Let's configure your document assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Chat provider selection.
	providerPrompt := promptui.Select{
		Label: "Select chat provider",
		Items: []string{"openai", "openrouter"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Chat model.
	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: cfg.Model,
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model prompt: %w", err)
	}

	// 3. Embedding provider.
	embPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{"openai", "ollama"},
	}
	_, embStr, err := embPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding provider selection: %w", err)
	}
	cfg.EmbeddingProvider = ProviderType(embStr)
	if cfg.EmbeddingProvider == ProviderOllama {
		cfg.EmbeddingModel = "nomic-embed-text"
	}

	// 4. Data directory for per-user indexes and conversation history.
	dirPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dirPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir prompt: %w", err)
	}

	// 5. HTTP port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port prompt: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Save(DefaultConfigFile); err != nil {
		return nil, err
	}
	fmt.Printf("\nSaved configuration to %s\n", DefaultConfigFile)
	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" {
		fmt.Printf("Remember to export %s before starting the server.\n", envVar)
	}

	return cfg, nil
}
