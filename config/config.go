// Package config loads the serverops YAML configuration.
//
// Loading happens in three steps. The secrets section is decoded first and
// used to build a secret.Resolver. Every string value in the document is
// then resolved (${VAR} and secretref:<provider>:<ref>). Finally the
// resolved document is decoded strictly, defaults are applied and the
// result is validated.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/serverops/instrumented"
	"github.com/jonwraymond/serverops/observe"
	"github.com/jonwraymond/serverops/secret"
	"github.com/jonwraymond/serverops/server"
)

// DefaultServiceName is used when observe.serviceName is unset.
const DefaultServiceName = "serverops"

// ErrEmptyPath is returned by Load when no file name is given.
var ErrEmptyPath = errors.New("config: path is required")

// Config is the top-level configuration file.
type Config struct {
	Server  server.Config                        `yaml:"server"`
	Health  instrumented.HealthCheckGroupFactory `yaml:"health"`
	Observe observe.Config                       `yaml:"observe"`
	Secrets SecretsConfig                        `yaml:"secrets"`
}

// SecretsConfig selects the providers secret references may use.
type SecretsConfig struct {
	// Strict rejects references that resolve to an empty value.
	// Default: true
	Strict *bool `yaml:"strict"`

	// Providers maps provider name to its settings. When empty the
	// built-in env and file providers are enabled.
	Providers map[string]map[string]any `yaml:"providers"`
}

// StrictMode reports whether empty secrets are rejected.
func (s SecretsConfig) StrictMode() bool {
	return s.Strict == nil || *s.Strict
}

type options struct {
	registry *secret.Registry
	baseDir  string
}

// Option customizes loading.
type Option func(*options)

// WithSecretRegistry replaces the registry providers are created from.
func WithSecretRegistry(r *secret.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithBaseDir sets the directory relative file secret references are read from.
func WithBaseDir(dir string) Option {
	return func(o *options) {
		o.baseDir = dir
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads and parses the file at path. Relative file secrets are read
// from the file's directory unless WithBaseDir says otherwise.
func Load(ctx context.Context, path string, opts ...Option) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	opts = append([]Option{WithBaseDir(filepath.Dir(path))}, opts...)
	cfg, err := Parse(ctx, data, opts...)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses a YAML document.
func Parse(ctx context.Context, data []byte, opts ...Option) (*Config, error) {
	o := options{registry: secret.NewDefaultRegistry()}
	for _, opt := range opts {
		opt(&o)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	cfg := &Config{}
	if len(doc.Content) > 0 {
		var head struct {
			Secrets SecretsConfig `yaml:"secrets"`
		}
		if err := doc.Decode(&head); err != nil {
			return nil, fmt.Errorf("secrets: %w", err)
		}

		resolver, err := newResolver(head.Secrets, o)
		if err != nil {
			return nil, err
		}
		defer resolver.Close()

		if err := resolver.ResolveNode(ctx, &doc); err != nil {
			return nil, fmt.Errorf("resolve: %w", err)
		}
		if err := decodeStrict(&doc, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newResolver(sc SecretsConfig, o options) (*secret.Resolver, error) {
	providers := sc.Providers
	if len(providers) == 0 {
		providers = map[string]map[string]any{"env": nil, "file": nil}
	}

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	created := make([]secret.Provider, 0, len(names))
	for _, name := range names {
		settings := providers[name]
		if name == "file" && o.baseDir != "" {
			settings = withDefault(settings, "dir", o.baseDir)
		}
		p, err := o.registry.Create(name, settings)
		if err != nil {
			for _, open := range created {
				_ = open.Close()
			}
			return nil, fmt.Errorf("secrets: %w", err)
		}
		created = append(created, p)
	}
	return secret.NewResolver(sc.StrictMode(), created...), nil
}

func withDefault(m map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	if _, ok := out[key]; !ok {
		out[key] = value
	}
	return out
}

// decodeStrict re-encodes the resolved document so unknown keys are rejected.
func decodeStrict(doc *yaml.Node, cfg *Config) error {
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	c.Server.ApplyDefaults()
	if c.Observe.ServiceName == "" {
		c.Observe.ServiceName = DefaultServiceName
	}
	if c.Observe.Logging.Enabled && c.Observe.Logging.Level == "" {
		c.Observe.Logging.Level = "info"
	}
}

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Health.Validate(); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	if err := c.Observe.Validate(); err != nil {
		return err
	}
	return nil
}

// Marshal renders c as YAML. Secret provider settings are omitted.
func (c *Config) Marshal() ([]byte, error) {
	out := *c
	out.Secrets = SecretsConfig{Strict: c.Secrets.Strict}
	if len(c.Secrets.Providers) > 0 {
		out.Secrets.Providers = make(map[string]map[string]any, len(c.Secrets.Providers))
		for name := range c.Secrets.Providers {
			out.Secrets.Providers[name] = nil
		}
	}
	return yaml.Marshal(&out)
}
