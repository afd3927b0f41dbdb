package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demoreport.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, 2, cfg.Cache.KeepSnapshots)
	assert.True(t, cfg.Cache.BloomEnabled)
	assert.Equal(t, "fail", cfg.Export.CacheReadPolicy)
	assert.Equal(t, "xlsx", cfg.Export.Format)
	assert.Equal(t, "demoreport", cfg.Telemetry.ServiceName)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "file overrides defaults",
			file: `
cache:
  backend: sqlite
  sqlite_file: matches.db
export:
  cache_read_policy: reanalyze
  analysis_timeout: 90s
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "sqlite", cfg.Cache.Backend)
				assert.Equal(t, "matches.db", cfg.Cache.SQLiteFile)
				assert.Equal(t, "reanalyze", cfg.Export.CacheReadPolicy)
				assert.Equal(t, 90*time.Second, cfg.Export.AnalysisTimeout)
				// untouched sections keep their defaults
				assert.Equal(t, "info", cfg.Logging.Level)
			},
		},
		{
			name: "env overrides file",
			file: `
logging:
  level: warn
`,
			env: map[string]string{
				"DEMOREPORT_LOGGING_LEVEL":           "debug",
				"DEMOREPORT_EXPORT_BATCH_CONCURRENCY": "8",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 8, cfg.Export.BatchConcurrency)
			},
		},
		{
			name: "nested object store env",
			env: map[string]string{
				"DEMOREPORT_CACHE_BACKEND":                 "object",
				"DEMOREPORT_CACHE_OBJECT_STORE_ENDPOINT":   "localhost:9000",
				"DEMOREPORT_CACHE_OBJECT_STORE_ACCESS_KEY": "minio",
				"DEMOREPORT_CACHE_OBJECT_STORE_SECRET_KEY": "minio123",
				"DEMOREPORT_CACHE_OBJECT_STORE_BUCKET":     "demos",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "object", cfg.Cache.Backend)
				assert.Equal(t, "localhost:9000", cfg.Cache.ObjectStore.Endpoint)
				assert.Equal(t, "demos", cfg.Cache.ObjectStore.Bucket)
				assert.Equal(t, "demoreport/cache", cfg.Cache.ObjectStore.Prefix)
			},
		},
		{
			name:    "invalid backend",
			env:     map[string]string{"DEMOREPORT_CACHE_BACKEND": "redis"},
			wantErr: true,
		},
		{
			name:    "invalid cache read policy in file",
			file:    "export:\n  cache_read_policy: ignore\n",
			wantErr: true,
		},
		{
			name:    "object backend without bucket",
			env:     map[string]string{"DEMOREPORT_CACHE_BACKEND": "object"},
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "logging: [unclosed",
			wantErr: true,
		},
		{
			name:    "malformed env value",
			env:     map[string]string{"DEMOREPORT_CACHE_KEEP_SNAPSHOTS": "many"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

func TestObjectStoreConfig_Validate(t *testing.T) {
	valid := ObjectStoreConfig{
		Endpoint:  "s3.local:9000",
		AccessKey: "a",
		SecretKey: "b",
		Bucket:    "demos",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*ObjectStoreConfig)
		want   string
	}{
		{name: "no endpoint", mutate: func(o *ObjectStoreConfig) { o.Endpoint = "" }, want: "endpoint"},
		{name: "scheme in endpoint", mutate: func(o *ObjectStoreConfig) { o.Endpoint = "https://s3.local" }, want: "scheme"},
		{name: "no secret", mutate: func(o *ObjectStoreConfig) { o.SecretKey = " " }, want: "secret key"},
		{name: "no bucket", mutate: func(o *ObjectStoreConfig) { o.Bucket = "" }, want: "bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid
			tt.mutate(&o)
			err := o.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_FileLoggingNeedsPath(t *testing.T) {
	cfg := Default()
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = ""
	assert.Error(t, cfg.Validate())

	cfg.Logging.FilePath = "logs/x.log"
	assert.NoError(t, cfg.Validate())
}
