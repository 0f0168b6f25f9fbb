// Package codegen turns GraphQL operation documents into typed Go documents
// for the client package, validated against the exported schema.
package codegen

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory
const DefaultConfigFile = "codegen.yaml"

// Config mirrors the codegen.yaml file
type Config struct {
	// Schema globs select the SDL files
	Schema Globs `yaml:"schema"`
	// Documents globs select .graphql/.gql files and Go sources calling client.Document
	Documents         Globs             `yaml:"documents"`
	IgnoreNoDocuments bool              `yaml:"ignoreNoDocuments"`
	Generates         map[string]Target `yaml:"generates"`
	// Scalars overrides the Go type of a custom scalar, e.g. Datetime: time.Time
	Scalars map[string]string `yaml:"scalars"`

	// BaseDir anchors relative globs and output directories
	BaseDir string `yaml:"-"`
}

// Target is one output directory
type Target struct {
	Package string `yaml:"package"`
}

// Globs accepts either a single pattern or a list
type Globs []string

func (g *Globs) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*g = Globs{value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*g = list
		return nil
	default:
		return errors.Errorf("line %d: expected a pattern or a list of patterns", value.Line)
	}
}

// LoadConfig reads a codegen.yaml file. Relative paths in it are resolved
// against the file's directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	cfg.BaseDir = filepath.Dir(path)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return &cfg, nil
}

// Validate checks the required settings
func (c *Config) Validate() error {
	if len(c.Schema) == 0 {
		return errors.New("schema is required")
	}
	if len(c.Generates) == 0 {
		return errors.New("generates needs at least one output directory")
	}
	for dir, target := range c.Generates {
		if target.Package == "" {
			return errors.Errorf("generates.%s: package is required", dir)
		}
	}
	return nil
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.BaseDir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(c.BaseDir, p)
}
