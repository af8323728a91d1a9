package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
}

func TestLoadFromFileWithDefaults(t *testing.T) {
	writeConfigFile(t, `
[llm]
base_url = "https://llm.example.com/v1"
api_key = "secret"
model = "test-model"

[embedding]
model = "test-embedding"
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://llm.example.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "test-model", cfg.LLM.Model)

	// Unset sections keep their defaults.
	assert.Equal(t, 1000, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 200, cfg.Retrieval.ChunkOverlap)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, 3, cfg.Retrieval.QueryExpansions)
	assert.Equal(t, "chat.turn.persist", cfg.RabbitMQ.TurnPersistQueue)

	// Embedding endpoint falls back to the llm endpoint.
	assert.Equal(t, cfg.LLM.BaseURL, cfg.Embedding.BaseURL)
	assert.Equal(t, cfg.LLM.APIKey, cfg.Embedding.APIKey)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	writeConfigFile(t, `
[llm]
base_url = "https://llm.example.com/v1"
api_key = "secret"
model = "file-model"
`)
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("RETRIEVAL_TOP_K", "8")
	t.Setenv("EMBEDDING_MODEL", "env-embedding")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.LLM.Model)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, "env-embedding", cfg.Embedding.Model)
}

func TestLoadMissingAPIKeyFails(t *testing.T) {
	writeConfigFile(t, `
[llm]
base_url = "https://llm.example.com/v1"
model = "test-model"

[embedding]
model = "test-embedding"
`)

	_, err := Load()
	assert.ErrorContains(t, err, "api_key")
}

func TestLoadONNXProviderRequiresModelPath(t *testing.T) {
	writeConfigFile(t, `
[llm]
base_url = "https://llm.example.com/v1"
api_key = "secret"
model = "test-model"

[embedding]
provider = "onnx"
`)

	_, err := Load()
	assert.ErrorContains(t, err, "onnx_model_path")
}

func TestLoadUnknownProviderFails(t *testing.T) {
	writeConfigFile(t, `
[llm]
base_url = "https://llm.example.com/v1"
api_key = "secret"
model = "test-model"

[embedding]
provider = "imaginary"
`)

	_, err := Load()
	assert.ErrorContains(t, err, "unknown embedding provider")
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.User = "app"
	cfg.MySQL.Password = "pw"
	cfg.MySQL.Host = "db.internal"
	cfg.MySQL.Port = 3307
	cfg.MySQL.DB = "docchat"
	cfg.MySQL.Params = "parseTime=True"

	assert.Equal(t, "app:pw@tcp(db.internal:3307)/docchat?parseTime=True", cfg.MySQLDSN())
}
