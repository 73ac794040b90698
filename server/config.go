package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// ErrNoConnectors is returned when a config declares no connectors.
var ErrNoConnectors = errors.New("server: at least one connector is required")

// Config configures the embedded HTTP server.
type Config struct {
	// Connectors lists the addresses the server listens on.
	// Default: a single connector on port 8080.
	Connectors []ConnectorConfig `yaml:"connectors"`

	// ThreadPool bounds concurrent request handling.
	ThreadPool ThreadPoolConfig `yaml:"threadPool"`

	// Filters and Servlets carry init parameters keyed by mapping name.
	Filters  map[string]MappingConfig `yaml:"filters"`
	Servlets map[string]MappingConfig `yaml:"servlets"`

	// GracefulTimeout bounds in-flight request draining on shutdown.
	// Default: 10 seconds
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`

	// ExposeMetrics mounts a Prometheus scrape endpoint at /metrics.
	ExposeMetrics bool `yaml:"exposeMetrics"`
}

// MappingConfig holds configured init parameters for a filter or servlet.
type MappingConfig struct {
	Params map[string]string `yaml:"params"`
}

// ConnectorConfig configures one listening address.
type ConnectorConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
}

// Addr returns the host:port listen address.
func (c ConnectorConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if len(c.Connectors) == 0 {
		c.Connectors = []ConnectorConfig{{Port: 8080}}
	}
	for i := range c.Connectors {
		if c.Connectors[i].ReadHeaderTimeout <= 0 {
			c.Connectors[i].ReadHeaderTimeout = 10 * time.Second
		}
	}
	if c.ThreadPool.MaxThreads <= 0 {
		c.ThreadPool.MaxThreads = 1024
	}
	if c.GracefulTimeout <= 0 {
		c.GracefulTimeout = 10 * time.Second
	}
}

// Validate reports configuration errors.
func (c *Config) Validate() error {
	if len(c.Connectors) == 0 {
		return ErrNoConnectors
	}
	for i, conn := range c.Connectors {
		if conn.Port < 0 || conn.Port > 65535 {
			return fmt.Errorf("server: connector %d: invalid port %d", i, conn.Port)
		}
	}
	if c.ThreadPool.MaxQueuedRequests < 0 {
		return fmt.Errorf("server: maxQueuedRequests must not be negative, got %d", c.ThreadPool.MaxQueuedRequests)
	}
	return nil
}
