package deployment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"
)

// Config files are checked in priority order. The bkper-app.* names are
// legacy and only read when no bkper.* file exists.
var configFiles = []string{"bkper.yaml", "bkper.json", "bkper-app.yaml", "bkper-app.json"}

type Config struct {
	// Id is the app id registered with the platform.
	Id         string           `json:"id,omitempty"`
	Name       string           `json:"name,omitempty"`
	Deployment DeploymentConfig `json:"deployment"`

	// Dir is the absolute path of the directory the config was loaded from.
	Dir string `json:"-"`
}

// DeploymentConfig declares which handlers a dev session may run. Immutable
// once loaded.
type DeploymentConfig struct {
	Web               *WebConfig    `json:"web,omitempty"`
	Events            *EventsConfig `json:"events,omitempty"`
	Services          []string      `json:"services,omitempty"`
	Secrets           []string      `json:"secrets,omitempty"`
	CompatibilityDate string        `json:"compatibility_date,omitempty"`
}

type WebConfig struct {
	// Main is the path to the web handler entry point, relative to the config.
	Main string `json:"main"`
	// Client is the optional root of a web client served by a dev server.
	Client string `json:"client,omitempty"`
}

type EventsConfig struct {
	Main string `json:"main"`
}

// Load reads the first config file found in dir.
func Load(dir string) (Config, error) {
	for _, name := range configFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("could not read %s: %w", path, err)
		}
		config := Config{}
		// sigs.k8s.io/yaml accepts both YAML and JSON bodies.
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("could not parse %s: %w", path, err)
		}
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return Config{}, err
		}
		config.Dir = absDir
		return config, nil
	}
	return Config{}, fmt.Errorf("no bkper config found in %s (expected one of %s)", dir, strings.Join(configFiles, ", "))
}

// SourceFormat reports whether the deployment section points at TypeScript
// sources rather than prebuilt bundles. Legacy prebuilt configs list .js
// bundle paths and cannot drive a dev session.
func (d DeploymentConfig) SourceFormat() bool {
	if d.Web != nil && !strings.HasSuffix(d.Web.Main, ".ts") {
		return false
	}
	if d.Events != nil && !strings.HasSuffix(d.Events.Main, ".ts") {
		return false
	}
	return d.Web != nil || d.Events != nil
}

// Validate checks that the declared entry points exist on disk.
func (c Config) Validate() error {
	if c.Deployment.Web == nil && c.Deployment.Events == nil {
		return fmt.Errorf("deployment config declares no web or events handler")
	}
	if c.Deployment.Web != nil {
		if _, err := os.Stat(c.WebEntryPoint()); err != nil {
			return fmt.Errorf("web entry point %s not found: %w", c.Deployment.Web.Main, err)
		}
		if c.Deployment.Web.Client != "" {
			if _, err := os.Stat(c.ClientRoot()); err != nil {
				return fmt.Errorf("client root %s not found: %w", c.Deployment.Web.Client, err)
			}
		}
	}
	if c.Deployment.Events != nil {
		if _, err := os.Stat(c.EventsEntryPoint()); err != nil {
			return fmt.Errorf("events entry point %s not found: %w", c.Deployment.Events.Main, err)
		}
	}
	return nil
}

func (c Config) WebEntryPoint() string {
	if c.Deployment.Web == nil {
		return ""
	}
	return filepath.Join(c.Dir, c.Deployment.Web.Main)
}

func (c Config) ClientRoot() string {
	if c.Deployment.Web == nil || c.Deployment.Web.Client == "" {
		return ""
	}
	return filepath.Join(c.Dir, c.Deployment.Web.Client)
}

func (c Config) EventsEntryPoint() string {
	if c.Deployment.Events == nil {
		return ""
	}
	return filepath.Join(c.Dir, c.Deployment.Events.Main)
}

// SharedDir returns the conventional shared package directory consumed by
// both handlers, or the empty string if it does not exist.
func (c Config) SharedDir() string {
	dir := filepath.Join(c.Dir, "shared")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}
