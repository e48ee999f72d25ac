package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOllama     ProviderType = "ollama"
)

// Config is the top-level taxassist configuration, corresponding to .taxassist.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	DataDir           string       `yaml:"data_dir" koanf:"data_dir"`
	Port              int          `yaml:"port" koanf:"port"`
	TopK              int          `yaml:"top_k" koanf:"top_k"`
	MaxToolRounds     int          `yaml:"max_tool_rounds" koanf:"max_tool_rounds"`
	HardClear         bool         `yaml:"hard_clear" koanf:"hard_clear"`
	SystemPromptFile  string       `yaml:"system_prompt_file" koanf:"system_prompt_file"`
	Include           []string     `yaml:"include" koanf:"include"`
	Exclude           []string     `yaml:"exclude" koanf:"exclude"`
	CORSAllowAll      bool         `yaml:"cors_allow_all" koanf:"cors_allow_all"`
}
