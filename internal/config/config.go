package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type StorageBackend string

const (
	BackendMemory    StorageBackend = "memory"
	BackendSupabase  StorageBackend = "supabase"
	BackendFirestore StorageBackend = "firestore"
	BackendSQLite    StorageBackend = "sqlite"
)

type Config struct {
	Port string `yaml:"port"`

	StorageBackend StorageBackend `yaml:"storage_backend"`

	SupabaseURL     string `yaml:"supabase_url"`
	SupabaseAnonKey string `yaml:"supabase_anon_key"`

	GCPProjectID string `yaml:"gcp_project_id"`

	SQLitePath string `yaml:"sqlite_path"`

	OpenAIModel string `yaml:"openai_model"`
	GeminiModel string `yaml:"gemini_model"`

	// UseMockLLM answers every provider with the mock generator. Dev only.
	UseMockLLM bool `yaml:"use_mock_llm"`
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

// Load builds the config from an optional YAML file (LEXIA_CONFIG) with
// environment variables taking precedence over file values.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           "8080",
		StorageBackend: BackendMemory,
		SQLitePath:     "lexia.db",
	}

	if path := os.Getenv("LEXIA_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("LEXIA_PORT", cfg.Port)
	cfg.StorageBackend = StorageBackend(getEnv("LEXIA_STORAGE_BACKEND", string(cfg.StorageBackend)))
	cfg.SupabaseURL = getEnv("LEXIA_SUPABASE_URL", cfg.SupabaseURL)
	cfg.SupabaseAnonKey = getEnv("LEXIA_SUPABASE_ANON_KEY", cfg.SupabaseAnonKey)
	cfg.GCPProjectID = getEnv("LEXIA_GCP_PROJECT", cfg.GCPProjectID)
	cfg.SQLitePath = getEnv("LEXIA_SQLITE_PATH", cfg.SQLitePath)
	cfg.OpenAIModel = getEnv("LEXIA_OPENAI_MODEL", cfg.OpenAIModel)
	cfg.GeminiModel = getEnv("LEXIA_GEMINI_MODEL", cfg.GeminiModel)
	cfg.UseMockLLM = getBoolEnv("LEXIA_USE_MOCK_LLM", cfg.UseMockLLM)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case BackendMemory, BackendSQLite:
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return fmt.Errorf("LEXIA_SUPABASE_URL and LEXIA_SUPABASE_ANON_KEY are required for the supabase backend")
		}
	case BackendFirestore:
		if c.GCPProjectID == "" {
			return fmt.Errorf("LEXIA_GCP_PROJECT is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	return nil
}
