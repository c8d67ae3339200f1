// Package config loads service configuration from defaults, an optional
// .env file, and CALLANALYTICS_* environment variables, in that order of
// precedence (later wins).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	GenAI      GenAIConfig
	Index      IndexConfig
	Clustering ClusteringConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port       int
	Token      string // optional; empty disables bearer auth
	MCPEnabled bool
}

type GenAIConfig struct {
	BaseURL      string
	APIKey       string
	EmbedModel   string
	DefaultModel string
}

// IndexConfig selects and parameterizes the vector index backend. Backend is
// either "sqlite" (local, default) or "pinecone" (remote).
type IndexConfig struct {
	Backend        string
	DataDir        string
	Dimension      int
	Namespace      string
	DocsNamespace  string
	DocsTopK       int
	PineconeHost   string
	PineconeAPIKey string
}

type ClusteringConfig struct {
	Threshold float64
	Limit     int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:       4000,
			MCPEnabled: true,
		},
		GenAI: GenAIConfig{
			BaseURL:      "https://api.openai.com/v1",
			EmbedModel:   "text-embedding-3-large",
			DefaultModel: "gpt-4o-mini",
		},
		Index: IndexConfig{
			Backend:       "sqlite",
			DataDir:       defaultDataDir(),
			Dimension:     1024,
			Namespace:     "calls",
			DocsNamespace: "docs",
			DocsTopK:      5,
		},
		Clustering: ClusteringConfig{
			Threshold: 0.85,
			Limit:     1000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".call-analytics")
}

// Load reads configuration for the running process. A .env file in the
// working directory is applied first if present; explicit environment
// variables always win over it.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadFromEnv(os.Getenv)
}

func loadFromEnv(getenv func(string) string) (Config, error) {
	cfg := defaults()
	applyEnvOverrides(&cfg, getenv)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.GenAI.APIKey == "" {
		return fmt.Errorf("missing required config: model API key. Set CALLANALYTICS_GENAI_API_KEY")
	}
	switch c.Index.Backend {
	case "sqlite":
	case "pinecone":
		if c.Index.PineconeHost == "" {
			return fmt.Errorf("index backend is pinecone but CALLANALYTICS_PINECONE_HOST is not set")
		}
		if c.Index.PineconeAPIKey == "" {
			return fmt.Errorf("index backend is pinecone but CALLANALYTICS_PINECONE_API_KEY is not set")
		}
	default:
		return fmt.Errorf("unknown index backend %q (want sqlite or pinecone)", c.Index.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Index.Dimension <= 0 {
		return fmt.Errorf("index dimension must be positive, got %d", c.Index.Dimension)
	}
	if c.Clustering.Threshold <= 0 || c.Clustering.Threshold >= 1 {
		return fmt.Errorf("clustering threshold %v out of range (0, 1)", c.Clustering.Threshold)
	}
	if c.Clustering.Limit <= 0 {
		return fmt.Errorf("clustering limit must be positive, got %d", c.Clustering.Limit)
	}
	return nil
}
