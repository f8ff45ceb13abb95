package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ventas-historico/internal/types"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"VENTAS_DATA_DIR", "VENTAS_STORE_PATH", "PORT", "VENTAS_ADDR",
		"VENTAS_LOG_LEVEL", "VENTAS_PRESENTATION", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, "ZETH50T.DBF", cfg.Tables.Headers)
	assert.Equal(t, "ZETH51T.DBF", cfg.Tables.Details)
	assert.Equal(t, "ZETH70.DBF", cfg.Tables.Products)
	assert.Equal(t, "ZETH70_EXT.DBF", cfg.Tables.ProductsExt)
	assert.Equal(t, "VENTAS_HISTORICO.DBF", cfg.Store.Path)
	assert.Equal(t, types.DefaultLedgerSchema, cfg.Store.Schema)
	assert.Equal(t, "cp850", cfg.Store.Encoding)
	assert.Equal(t, StrategyGrouped, cfg.Presentation.Strategy)
	assert.Equal(t, []string{"CR", "CRE", "CRED", "CREDITO"}, cfg.Presentation.CreditPaymentTypes)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
data_dir: /srv/zqred
store:
  path: historico/VENTAS.DBF
  backup_dir: backups
  backup_retention: 48
  backup_name_format: "{original}-{uuid}"
  backup_timestamp_subdirs: true
  strict_validation: true
presentation:
  strategy: flat
server:
  reconcile_rate_per_minute: 6
log_format: text
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	t.Setenv("PORT", "9090")
	t.Setenv("VENTAS_LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.local, http://b.local,")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StrategyFlat, cfg.Presentation.Strategy)
	assert.Equal(t, 48, cfg.Store.BackupRetention)
	assert.Equal(t, "{original}-{uuid}", cfg.Store.BackupNameFormat)
	assert.True(t, cfg.Store.BackupTimestampSubdirs)
	assert.True(t, cfg.Store.StrictValidation)
	assert.Equal(t, 6, cfg.Server.ReconcileRatePerMinute)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.Server.CORSAllowedOrigins)

	assert.Equal(t, filepath.Join("/srv/zqred", "historico/VENTAS.DBF"), cfg.StorePath())
	assert.Equal(t, filepath.Join("/srv/zqred", "backups"), cfg.BackupDir())
	assert.Equal(t, filepath.Join("/srv/zqred", "ZETH51T.DBF"), cfg.DetailsPath())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		yaml string
	}{
		{"unknown strategy", "presentation:\n  strategy: pivot\n"},
		{"unknown encoding", "store:\n  encoding: utf-16\n"},
		{"schema missing column", "store:\n  schema: \"N_TICKET C(10);PRONUM C(10)\"\n"},
		{"bad schema", "store:\n  schema: \"EERR X(20)\"\n"},
		{"negative retention", "store:\n  backup_retention: -1\n"},
		{"backup name without unique part", "store:\n  backup_name_format: \"{original}-{date}\"\n"},
		{"backup name with a path", "store:\n  backup_name_format: \"old/{uuid}\"\n"},
		{"unknown log format", "log_format: xml\n"},
		{"malformed yaml", "store: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestResolveKeepsAbsolutePaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/data"

	abs := filepath.Join(string(filepath.Separator), "tmp", "X.DBF")
	assert.Equal(t, abs, cfg.Resolve(abs))
	assert.Equal(t, "", cfg.Resolve(""))
	assert.Equal(t, filepath.Join("/data", "ZETH70.DBF"), cfg.ProductsPath())
	assert.Equal(t, "", cfg.BackupDir())
}
