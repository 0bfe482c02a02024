package deployment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "bkper.yaml", `
id: my-app
deployment:
  web:
    main: src/web.ts
    client: client
  events:
    main: src/events.ts
  services: [exchange-rates]
  secrets: [API_KEY]
  compatibility_date: "2024-09-23"
`)
	cfg, err := Load(dir)
	assert.NoError(t, err)
	assert.Equal(t, "my-app", cfg.Id)
	assert.Equal(t, "src/web.ts", cfg.Deployment.Web.Main)
	assert.Equal(t, "client", cfg.Deployment.Web.Client)
	assert.Equal(t, "src/events.ts", cfg.Deployment.Events.Main)
	assert.Equal(t, []string{"exchange-rates"}, cfg.Deployment.Services)
	assert.Equal(t, "2024-09-23", cfg.Deployment.CompatibilityDate)
	assert.True(t, cfg.Deployment.SourceFormat())
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "bkper.json", `{"id":"my-app","deployment":{"events":{"main":"src/events.ts"}}}`)
	cfg, err := Load(dir)
	assert.NoError(t, err)
	assert.Equal(t, "src/events.ts", cfg.Deployment.Events.Main)
	assert.Zero(t, cfg.Deployment.Web)
}

func TestLoadPriority(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "bkper-app.yaml", `{"id":"legacy"}`)
	writeConfig(t, dir, "bkper.yaml", `{"id":"current"}`)
	cfg, err := Load(dir)
	assert.NoError(t, err)
	assert.Equal(t, "current", cfg.Id)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestPrebuiltFormatDetection(t *testing.T) {
	cfg := DeploymentConfig{Web: &WebConfig{Main: "dist/web.js"}}
	assert.False(t, cfg.SourceFormat())
	cfg = DeploymentConfig{Web: &WebConfig{Main: "src/web.ts"}, Events: &EventsConfig{Main: "dist/events.js"}}
	assert.False(t, cfg.SourceFormat())
	cfg = DeploymentConfig{}
	assert.False(t, cfg.SourceFormat())
}

func TestValidateMissingEntryPoint(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "bkper.yaml", `{"deployment":{"events":{"main":"src/events.ts"}}}`)
	cfg, err := Load(dir)
	assert.NoError(t, err)
	assert.Error(t, cfg.Validate())

	assert.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0700))
	writeConfig(t, dir, "src/events.ts", "export default {}")
	assert.NoError(t, cfg.Validate())
}

func TestWriteEnvTypes(t *testing.T) {
	dir := t.TempDir()
	err := WriteEnvTypes(dir, DeploymentConfig{
		Services: []string{"exchange-rates"},
		Secrets:  []string{"api_key"},
	})
	assert.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "env.d.ts"))
	assert.NoError(t, err)
	assert.Contains(t, string(data), "EXCHANGE_RATES: Fetcher;")
	assert.Contains(t, string(data), "API_KEY: string;")
}

func TestReadDevVars(t *testing.T) {
	dir := t.TempDir()
	vars, err := ReadDevVars(dir)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(vars))

	writeConfig(t, dir, ".dev.vars", "# local secrets\nAPI_KEY=abc123\nOTHER = \"quoted\"\n")
	vars, err = ReadDevVars(dir)
	assert.NoError(t, err)
	assert.Equal(t, "abc123", vars["API_KEY"])
	assert.Equal(t, "quoted", vars["OTHER"])
}

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600)
	assert.NoError(t, err)
}
