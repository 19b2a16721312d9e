package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Activ8-AI/maosec/internal/logging"
)

func writeConfig(t *testing.T, content string) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "maosec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return &Config{Path: path, Logger: logging.New(false, true)}
}

const sampleConfig = `
version: 0
prefix: maos
roster: roster.yaml
default_store: primary
stores:
  primary:
    type: gcp.secretmanager
    project_id: activ8-prod
  dr:
    type: aws.secretsmanager
    region: us-east-1
    timeout_ms: 5000
source:
  type: notion
  database_id: abc123def456
  token_env: NOTION_TOKEN
checks:
  - name: portal-db
    type: sql
    driver: postgres
    dsn_var: MAOS_PROD_ACTIV8AI_CODEX_PORTAL_DATABASE_URL
`

func TestLoadValidConfig(t *testing.T) {
	cfg := writeConfig(t, sampleConfig)
	require.NoError(t, cfg.Load())

	assert.Equal(t, "maos", cfg.Prefix())
	assert.Equal(t, []string{"dr", "primary"}, cfg.StoreNames())

	store, err := cfg.GetStore("primary")
	require.NoError(t, err)
	assert.Equal(t, "gcp.secretmanager", store.Type)
	assert.Equal(t, "activ8-prod", store.Config["project_id"])
	assert.Equal(t, 30000, store.GetStoreTimeout())

	dr, err := cfg.GetStore("dr")
	require.NoError(t, err)
	assert.Equal(t, 5000, dr.GetStoreTimeout())

	name, err := cfg.DefaultStore()
	require.NoError(t, err)
	assert.Equal(t, "primary", name)

	require.Len(t, cfg.Definition.Checks, 1)
	assert.Equal(t, "postgres", cfg.Definition.Checks[0].Driver)
}

func TestLoadMissingFile(t *testing.T) {
	cfg := &Config{Path: filepath.Join(t.TempDir(), "nope.yaml"), Logger: logging.New(false, true)}
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

func TestLoadRejectsBadVersion(t *testing.T) {
	cfg := writeConfig(t, `
version: 3
roster: roster.yaml
stores:
  primary: {type: gcp.secretmanager}
source: {type: static}
`)
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported configuration version")
}

func TestLoadRequiresStores(t *testing.T) {
	cfg := writeConfig(t, `
version: 0
roster: roster.yaml
source: {type: static}
`)
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no secret stores configured")
}

func TestLoadRequiresSource(t *testing.T) {
	cfg := writeConfig(t, `
version: 0
roster: roster.yaml
stores:
  primary: {type: gcp.secretmanager}
`)
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credential source configured")
}

func TestGetStoreUnknown(t *testing.T) {
	cfg := writeConfig(t, sampleConfig)
	require.NoError(t, cfg.Load())

	_, err := cfg.GetStore("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available stores: dr, primary")
}

func TestDefaultStoreAmbiguous(t *testing.T) {
	cfg := writeConfig(t, `
version: 0
roster: roster.yaml
stores:
  a: {type: gcp.secretmanager, project_id: p}
  b: {type: aws.secretsmanager, region: us-east-1}
source: {type: static}
`)
	require.NoError(t, cfg.Load())

	_, err := cfg.DefaultStore()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no default selected")
}

func TestDefaultStoreSingle(t *testing.T) {
	cfg := writeConfig(t, `
version: 0
roster: roster.yaml
stores:
  only: {type: aws.ssm, region: us-east-1}
source: {type: static}
`)
	require.NoError(t, cfg.Load())

	name, err := cfg.DefaultStore()
	require.NoError(t, err)
	assert.Equal(t, "only", name)
}

func TestStaticSourceRecords(t *testing.T) {
	cfg := writeConfig(t, `
version: 0
roster: roster.yaml
stores:
  primary: {type: gcp.secretmanager, project_id: p}
source:
  type: static
  records:
    - {name: JWT_SECRET, value: shh, tenant: activ8ai, system: codex_portal, env: prod}
`)
	require.NoError(t, cfg.Load())
	require.Len(t, cfg.Definition.Source.Records, 1)
	assert.Equal(t, "JWT_SECRET", cfg.Definition.Source.Records[0].Name)
}
