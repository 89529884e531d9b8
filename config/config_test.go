package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("testdata/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Http.Port)
	assert.Equal(t, 10*time.Second, cfg.Http.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Http.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "USD", cfg.Display.Currency)
	assert.Equal(t, "pipeline", cfg.DefaultDeployment)

	require.Len(t, cfg.Deployments, 2)
	linear := cfg.Deployments[0]
	assert.Equal(t, filepath.Join("testdata", "models", "linear.json"), linear.Model)
	assert.Equal(t, filepath.Join("testdata", "models", "columns.json"), linear.Manifest)
	assert.Equal(t, ">=1.0.0", linear.VersionConstraint)
	assert.Equal(t, "/srv/models/pipeline.json", cfg.Deployments[1].Model)
	assert.Equal(t, []string{"input.age >= 18"}, cfg.Deployments[1].Rules)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "deployments:\n  - name: a\n    model: a.json\n    scheme: onehot\n"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Http.Port)
	assert.Equal(t, 30*time.Second, cfg.Http.Timeout)
	assert.Equal(t, int64(64<<10), cfg.Http.MaxBodyBytes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "Rs", cfg.Display.Currency)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"no deployments":    "http:\n  port: 80\n",
		"missing scheme":    "deployments:\n  - name: a\n    model: a.json\n",
		"unknown scheme":    "deployments:\n  - name: a\n    model: a.json\n    scheme: ordinal\n",
		"missing name":      "deployments:\n  - model: a.json\n    scheme: onehot\n",
		"missing model":     "deployments:\n  - name: a\n    scheme: onehot\n",
		"duplicate name":    "deployments:\n  - name: a\n    model: a.json\n    scheme: onehot\n  - name: a\n    model: b.json\n    scheme: onehot\n",
		"unknown default":   "default_deployment: b\ndeployments:\n  - name: a\n    model: a.json\n    scheme: onehot\n",
		"port out of range": "http:\n  port: 70000\ndeployments:\n  - name: a\n    model: a.json\n    scheme: onehot\n",
		"bad yaml":          "deployments: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, "config.yaml", Path(""))
	t.Setenv(EnvConfigPath, "/etc/insurecast.yaml")
	assert.Equal(t, "/etc/insurecast.yaml", Path(""))
	assert.Equal(t, "custom.yaml", Path("custom.yaml"))
}
