package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	env   string
	typ   keyType
	apply func(cfg *Config, v any)
}

var specs = []keySpec{
	{
		env: "CALLANALYTICS_SERVER_PORT", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
	},
	{
		env: "CALLANALYTICS_SERVER_TOKEN", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
	},
	{
		env: "CALLANALYTICS_SERVER_MCP_ENABLED", typ: kBool,
		apply: func(cfg *Config, v any) { cfg.Server.MCPEnabled = v.(bool) },
	},
	{
		env: "CALLANALYTICS_GENAI_BASE_URL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.GenAI.BaseURL = v.(string) },
	},
	{
		env: "CALLANALYTICS_GENAI_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.GenAI.APIKey = v.(string) },
	},
	{
		env: "CALLANALYTICS_GENAI_EMBED_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.GenAI.EmbedModel = v.(string) },
	},
	{
		env: "CALLANALYTICS_GENAI_DEFAULT_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.GenAI.DefaultModel = v.(string) },
	},
	{
		env: "CALLANALYTICS_INDEX_BACKEND", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Index.Backend = v.(string) },
	},
	{
		env: "CALLANALYTICS_INDEX_DATA_DIR", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Index.DataDir = v.(string) },
	},
	{
		env: "CALLANALYTICS_INDEX_DIMENSION", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Index.Dimension = v.(int) },
	},
	{
		env: "CALLANALYTICS_INDEX_NAMESPACE", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Index.Namespace = v.(string) },
	},
	{
		env: "CALLANALYTICS_INDEX_DOCS_NAMESPACE", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Index.DocsNamespace = v.(string) },
	},
	{
		env: "CALLANALYTICS_INDEX_DOCS_TOP_K", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Index.DocsTopK = v.(int) },
	},
	{
		env: "CALLANALYTICS_PINECONE_HOST", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Index.PineconeHost = v.(string) },
	},
	{
		env: "CALLANALYTICS_PINECONE_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Index.PineconeAPIKey = v.(string) },
	},
	{
		env: "CALLANALYTICS_CLUSTERING_THRESHOLD", typ: kFloat,
		apply: func(cfg *Config, v any) { cfg.Clustering.Threshold = v.(float64) },
	},
	{
		env: "CALLANALYTICS_CLUSTERING_LIMIT", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Clustering.Limit = v.(int) },
	},
	{
		env: "CALLANALYTICS_LOG_LEVEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
	},
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	for _, s := range specs {
		raw := getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
