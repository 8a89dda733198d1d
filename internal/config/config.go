// Package config loads the chat2png configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arran4/chat2png/internal/fonts"
	"github.com/arran4/chat2png/internal/raster"
	apperrors "github.com/arran4/chat2png/pkg/errors"
	"github.com/arran4/chat2png/pkg/logger"
	"github.com/arran4/chat2png/pkg/telemetry"
)

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = "chat2png.yaml"

// Config is the whole configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Export    ExportConfig     `yaml:"export"`
	Raster    RasterConfig     `yaml:"raster"`
	Fonts     fonts.Config     `yaml:"fonts"`
	Database  DatabaseConfig   `yaml:"database"`
	Logging   logger.Config    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Metrics   MetricsConfig    `yaml:"metrics"`
}

type ServerConfig struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Debug bool   `yaml:"debug"`
	// MaxUploadBytes caps request bodies.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// Address returns the listen address.
func (c ServerConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

type ExportConfig struct {
	Scale float64 `yaml:"scale"`
	// ImageTimeout is the global image readiness deadline.
	ImageTimeout time.Duration `yaml:"image_timeout"`
	// DecodeTimeout bounds decoding of local image bytes.
	DecodeTimeout time.Duration `yaml:"decode_timeout"`
	ViewportWidth float64       `yaml:"viewport_width"`
	OutputDir     string        `yaml:"output_dir"`
	// RichText renders message text as Markdown.
	RichText bool `yaml:"rich_text"`
}

type RasterConfig struct {
	// Backend is auto, serialize or capture.
	Backend       string        `yaml:"backend"`
	MobilePattern string        `yaml:"mobile_pattern"`
	ChromePath    string        `yaml:"chrome_path"`
	Timeout       time.Duration `yaml:"timeout"`
	// FetchTimeout bounds a single remote image request.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	// BaseDir resolves relative image paths.
	BaseDir string `yaml:"base_dir"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8092,
			MaxUploadBytes: 16 << 20,
		},
		Export: ExportConfig{
			Scale:         raster.DefaultScale,
			ImageTimeout:  2500 * time.Millisecond,
			DecodeTimeout: 800 * time.Millisecond,
			ViewportWidth: raster.DefaultViewportWidth,
			OutputDir:     ".",
		},
		Raster: RasterConfig{
			Backend:       raster.ModeAuto,
			MobilePattern: raster.DefaultMobilePattern,
			Timeout:       60 * time.Second,
			FetchTimeout:  15 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./data/chat2png.db",
		},
		Logging: logger.Config{
			Level:      "info",
			Format:     "text",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 5,
		},
		Telemetry: telemetry.Config{
			ServiceName: "chat2png",
			OTLP: telemetry.OTLPConfig{
				Endpoint: "localhost:4317",
				Insecure: true,
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads path over the defaults. ${VAR} and ${VAR:-default} references
// are expanded before parsing, then CHAT2PNG_* environment overrides apply.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.Wrap(apperrors.ErrCodeConfigNotFound, "config file not found: "+path, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeConfigParse, "read config", err)
	}
	return Parse(data)
}

// LoadOrDefault loads path when it exists and falls back to the defaults
// (plus environment overrides) otherwise.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if apperrors.HasCode(err, apperrors.ErrCodeConfigNotFound) {
		cfg = Default()
		applyEnvOverrides(cfg)
		return cfg, cfg.Validate()
	}
	return cfg, err
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfigParse, "parse config", err)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(content string) string {
	return envRef.ReplaceAllStringFunc(content, func(match string) string {
		name, def, hasDef := strings.Cut(match[2:len(match)-1], ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasDef {
			return def
		}
		return ""
	})
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHAT2PNG_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CHAT2PNG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CHAT2PNG_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("CHAT2PNG_RASTER_BACKEND"); v != "" {
		cfg.Raster.Backend = v
	}
	if v := os.Getenv("CHAT2PNG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CHAT2PNG_OUTPUT_DIR"); v != "" {
		cfg.Export.OutputDir = v
	}
	if v := os.Getenv("CHROME_PATH"); v != "" && cfg.Raster.ChromePath == "" {
		cfg.Raster.ChromePath = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return apperrors.New(apperrors.ErrCodeConfigInvalid, fmt.Sprintf(format, args...))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return invalid("server.port out of range: %d", c.Server.Port)
	}
	if c.Export.Scale <= 0 || c.Export.Scale > 8 {
		return invalid("export.scale must be in (0, 8]: %g", c.Export.Scale)
	}
	if c.Export.ImageTimeout <= 0 {
		return invalid("export.image_timeout must be positive")
	}
	if c.Export.DecodeTimeout <= 0 || c.Export.DecodeTimeout > c.Export.ImageTimeout {
		return invalid("export.decode_timeout must be positive and at most image_timeout")
	}
	if c.Export.ViewportWidth <= 0 {
		return invalid("export.viewport_width must be positive")
	}
	switch c.Raster.Backend {
	case raster.ModeAuto, raster.ModeSerialize, raster.ModeCapture:
	default:
		return invalid("raster.backend must be auto, serialize or capture: %q", c.Raster.Backend)
	}
	if _, err := regexp.Compile(c.Raster.MobilePattern); err != nil {
		return invalid("raster.mobile_pattern: %v", err)
	}
	if c.Raster.Timeout < 0 {
		return invalid("raster.timeout must not be negative")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		return invalid("logging.format must be json or text: %q", c.Logging.Format)
	}
	return nil
}
