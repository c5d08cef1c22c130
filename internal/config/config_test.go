package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, BackendMemory, cfg.StorageBackend)
	require.Equal(t, "lexia.db", cfg.SQLitePath)
	require.False(t, cfg.UseMockLLM)
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexia.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
storage_backend: sqlite
sqlite_path: /tmp/lexia.db
openai_model: gpt-4.1
use_mock_llm: true
`), 0o600))
	t.Setenv("LEXIA_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, BackendSQLite, cfg.StorageBackend)
	require.Equal(t, "/tmp/lexia.db", cfg.SQLitePath)
	require.Equal(t, "gpt-4.1", cfg.OpenAIModel)
	require.True(t, cfg.UseMockLLM)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexia.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9000\"\n"), 0o600))
	t.Setenv("LEXIA_CONFIG", path)
	t.Setenv("LEXIA_PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9100", cfg.Port)
}

func TestSupabaseBackendRequiresCredentials(t *testing.T) {
	t.Setenv("LEXIA_STORAGE_BACKEND", "supabase")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("LEXIA_SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("LEXIA_SUPABASE_ANON_KEY", "anon-key")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendSupabase, cfg.StorageBackend)
	require.Equal(t, "https://proj.supabase.co", cfg.SupabaseURL)
}

func TestFirestoreBackendRequiresProject(t *testing.T) {
	t.Setenv("LEXIA_STORAGE_BACKEND", "firestore")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("LEXIA_GCP_PROJECT", "lexia-prod")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "lexia-prod", cfg.GCPProjectID)
}

func TestUnknownBackendRejected(t *testing.T) {
	t.Setenv("LEXIA_STORAGE_BACKEND", "redis")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown storage backend")
}

func TestMissingConfigFileFails(t *testing.T) {
	t.Setenv("LEXIA_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}
