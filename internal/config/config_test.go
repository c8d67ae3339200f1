package config

import (
	"strings"
	"testing"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestLoadDefaultsWithAPIKey(t *testing.T) {
	cfg, err := loadFromEnv(envMap(map[string]string{
		"CALLANALYTICS_GENAI_API_KEY": "sk-test",
	}))
	if err != nil {
		t.Fatalf("loadFromEnv: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Index.Backend != "sqlite" {
		t.Errorf("backend = %q, want sqlite", cfg.Index.Backend)
	}
	if cfg.Clustering.Threshold != 0.85 {
		t.Errorf("threshold = %v, want 0.85", cfg.Clustering.Threshold)
	}
	if !cfg.Server.MCPEnabled {
		t.Error("MCP should be enabled by default")
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	_, err := loadFromEnv(envMap(nil))
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
	if !strings.Contains(err.Error(), "CALLANALYTICS_GENAI_API_KEY") {
		t.Errorf("error %q does not name the env var", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg, err := loadFromEnv(envMap(map[string]string{
		"CALLANALYTICS_GENAI_API_KEY":        "sk-test",
		"CALLANALYTICS_SERVER_PORT":          "8080",
		"CALLANALYTICS_SERVER_MCP_ENABLED":   "false",
		"CALLANALYTICS_INDEX_DIMENSION":      "3072",
		"CALLANALYTICS_CLUSTERING_THRESHOLD": "0.9",
		"CALLANALYTICS_INDEX_NAMESPACE":      "calls-prod",
	}))
	if err != nil {
		t.Fatalf("loadFromEnv: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.MCPEnabled {
		t.Error("MCP should be disabled")
	}
	if cfg.Index.Dimension != 3072 {
		t.Errorf("dimension = %d, want 3072", cfg.Index.Dimension)
	}
	if cfg.Clustering.Threshold != 0.9 {
		t.Errorf("threshold = %v, want 0.9", cfg.Clustering.Threshold)
	}
	if cfg.Index.Namespace != "calls-prod" {
		t.Errorf("namespace = %q, want calls-prod", cfg.Index.Namespace)
	}
}

func TestLoadUnparseableOverrideKeepsDefault(t *testing.T) {
	cfg, err := loadFromEnv(envMap(map[string]string{
		"CALLANALYTICS_GENAI_API_KEY": "sk-test",
		"CALLANALYTICS_SERVER_PORT":   "not-a-number",
	}))
	if err != nil {
		t.Fatalf("loadFromEnv: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("port = %d, want default 4000", cfg.Server.Port)
	}
}

func TestLoadPineconeBackendRequiresCredentials(t *testing.T) {
	_, err := loadFromEnv(envMap(map[string]string{
		"CALLANALYTICS_GENAI_API_KEY": "sk-test",
		"CALLANALYTICS_INDEX_BACKEND": "pinecone",
	}))
	if err == nil || !strings.Contains(err.Error(), "CALLANALYTICS_PINECONE_HOST") {
		t.Fatalf("err = %v, want missing pinecone host error", err)
	}

	cfg, err := loadFromEnv(envMap(map[string]string{
		"CALLANALYTICS_GENAI_API_KEY":    "sk-test",
		"CALLANALYTICS_INDEX_BACKEND":    "pinecone",
		"CALLANALYTICS_PINECONE_HOST":    "https://calls-abc123.svc.pinecone.io",
		"CALLANALYTICS_PINECONE_API_KEY": "pc-test",
	}))
	if err != nil {
		t.Fatalf("loadFromEnv: %v", err)
	}
	if cfg.Index.Backend != "pinecone" {
		t.Errorf("backend = %q", cfg.Index.Backend)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	_, err := loadFromEnv(envMap(map[string]string{
		"CALLANALYTICS_GENAI_API_KEY": "sk-test",
		"CALLANALYTICS_INDEX_BACKEND": "redis",
	}))
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("err = %v, want unknown backend error", err)
	}
}

func TestLoadRejectsOutOfRangeThreshold(t *testing.T) {
	for _, raw := range []string{"0", "1", "1.5", "-0.2"} {
		_, err := loadFromEnv(envMap(map[string]string{
			"CALLANALYTICS_GENAI_API_KEY":        "sk-test",
			"CALLANALYTICS_CLUSTERING_THRESHOLD": raw,
		}))
		if err == nil {
			t.Errorf("threshold %s: expected validation error", raw)
		}
	}
}
