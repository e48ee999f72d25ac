package config

// DefaultExcludes are glob patterns skipped during batch ingestion by default.
// Document text is expected to be pre-extracted, so binary formats are out.
var DefaultExcludes = []string{
	".git/**",
	"*.pdf",
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.zip",
	"*.gz",
	".DS_Store",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             "gpt-4.1",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-large",
		DataDir:           "user_embeddings",
		Port:              8000,
		TopK:              3,
		MaxToolRounds:     5,
		HardClear:         false,
		Include:           []string{"**/*.txt", "**/*.md"},
		Exclude:           DefaultExcludes,
		CORSAllowAll:      true,
	}
}
