package observe

import (
	"fmt"
	"slices"
)

// Config selects the telemetry backends for a service.
type Config struct {
	ServiceName string        `yaml:"serviceName"`
	Version     string        `yaml:"version"`
	Tracing     TracingConfig `yaml:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Logging     LoggingConfig `yaml:"logging"`
}

// TracingConfig configures spans for health checks and HTTP requests.
type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"`  // otlp|jaeger|stdout|none
	SamplePct float64 `yaml:"samplePct"` // 0.0-1.0
}

// MetricsConfig configures the OpenTelemetry meter provider.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // otlp|prometheus|stdout|none
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`  // debug|info|warn|error
	Format  string `yaml:"format"` // json|console

	// Output is stderr, stdout or a file path. Files are rotated when
	// Rotate is set.
	Output string        `yaml:"output"`
	Rotate *RotateConfig `yaml:"rotate,omitempty"`
}

// RotateConfig bounds the size and age of file log output.
type RotateConfig struct {
	MaxSizeMB  int  `yaml:"maxSizeMB"`
	MaxBackups int  `yaml:"maxBackups"`
	MaxAgeDays int  `yaml:"maxAgeDays"`
	Compress   bool `yaml:"compress"`
}

// Validate reports the first invalid setting of an enabled subsystem.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}

	if t := c.Tracing; t.Enabled {
		if !slices.Contains(ValidTracingExporters, t.Exporter) {
			return fmt.Errorf("%w: %q", ErrInvalidTracingExporter, t.Exporter)
		}
		if t.SamplePct < MinSamplePct || t.SamplePct > MaxSamplePct {
			return fmt.Errorf("%w, got: %f", ErrInvalidSamplePct, t.SamplePct)
		}
	}

	if m := c.Metrics; m.Enabled && !slices.Contains(ValidMetricsExporters, m.Exporter) {
		return fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, m.Exporter)
	}

	if l := c.Logging; l.Enabled {
		if !slices.Contains(ValidLogLevels, l.Level) {
			return fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
		}
		if !slices.Contains(ValidLogFormats, l.Format) {
			return fmt.Errorf("%w: %q", ErrInvalidLogFormat, l.Format)
		}
		if r := l.Rotate; r != nil && (r.MaxSizeMB < 0 || r.MaxBackups < 0 || r.MaxAgeDays < 0) {
			return fmt.Errorf("%w: rotation limits must not be negative", ErrInvalidLogOutput)
		}
		if l.Rotate != nil && isStdStream(l.Output) {
			return fmt.Errorf("%w: rotation needs a file output, got %q", ErrInvalidLogOutput, l.Output)
		}
	}

	return nil
}

func isStdStream(output string) bool {
	return output == "" || output == "stderr" || output == "stdout"
}
