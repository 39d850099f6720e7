package server

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"todoapp/internal/domain/errors"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr            string `json:"addr" toml:"addr" yaml:"addr"`
	Port            int    `json:"port" toml:"port" yaml:"port" validate:"min=1,max=65535"`
	BackendURL      string `json:"backend_url" toml:"backend_url" yaml:"backend_url" validate:"required,url"`
	APIPrefix       string `json:"api_prefix" toml:"api_prefix" yaml:"api_prefix" validate:"required"`
	StripAPIPrefix  bool   `json:"strip_api_prefix" toml:"strip_api_prefix" yaml:"strip_api_prefix"`
	PublicDir       string `json:"public_dir" toml:"public_dir" yaml:"public_dir" validate:"required"`
	IndexFile       string `json:"index_file" toml:"index_file" yaml:"index_file" validate:"required"`
	Gzip            bool   `json:"gzip" toml:"gzip" yaml:"gzip"`
	ShutdownTimeout int    `json:"shutdown_timeout" toml:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`
	LogLevel        string `json:"log_level" toml:"log_level" yaml:"log_level"`
}

const (
	defaultAddr            = "0.0.0.0"
	defaultPort            = 3000
	defaultBackendURL      = "http://localhost:5000"
	defaultAPIPrefix       = "/api"
	defaultPublicDir       = "public"
	defaultIndexFile       = "index.html"
	defaultShutdownTimeout = 30
	defaultLogLevel        = "info"
)

// DefaultConfig returns the built-in settings before any file, environment
// or flag override.
func DefaultConfig() *Config {
	return &Config{
		Addr:            defaultAddr,
		Port:            defaultPort,
		BackendURL:      defaultBackendURL,
		APIPrefix:       defaultAPIPrefix,
		PublicDir:       defaultPublicDir,
		IndexFile:       defaultIndexFile,
		Gzip:            true,
		ShutdownTimeout: defaultShutdownTimeout,
		LogLevel:        defaultLogLevel,
	}
}

func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Addr, strconv.Itoa(c.Port))
}

func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// ReadConfig layers defaults, an optional config file (-c or CONFIG),
// environment variables and explicitly set flags, in that order.
func ReadConfig(args []string, logger *log.Logger) (*Config, error) {
	fs := flag.NewFlagSet("edge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	addr := fs.String("addr", defaultAddr, "listen address")
	port := fs.Int("port", defaultPort, "listen port")
	backend := fs.String("backend", defaultBackendURL, "backend origin the API prefix is proxied to")
	prefix := fs.String("api-prefix", defaultAPIPrefix, "path prefix forwarded to the backend")
	strip := fs.Bool("strip-api-prefix", false, "remove the API prefix before forwarding")
	public := fs.String("public", defaultPublicDir, "directory with static assets")
	index := fs.String("index", defaultIndexFile, "single-page entry document inside the public directory")
	gzipOn := fs.Bool("gzip", true, "compress static responses")
	shutdown := fs.Int("shutdown-timeout", defaultShutdownTimeout, "graceful shutdown timeout in seconds")
	level := fs.String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	configFile := fs.String("c", "", "path to a JSON, TOML or YAML config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	configPath := *configFile
	if configPath == "" {
		configPath = os.Getenv("CONFIG")
	}
	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, err
		}
		logger.Info("config file loaded", "path", configPath)
	}

	applyEnvOverrides(cfg, logger)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "port":
			cfg.Port = *port
		case "backend":
			cfg.BackendURL = *backend
		case "api-prefix":
			cfg.APIPrefix = *prefix
		case "strip-api-prefix":
			cfg.StripAPIPrefix = *strip
		case "public":
			cfg.PublicDir = *public
		case "index":
			cfg.IndexFile = *index
		case "gzip":
			cfg.Gzip = *gzipOn
		case "shutdown-timeout":
			cfg.ShutdownTimeout = *shutdown
		case "log-level":
			cfg.LogLevel = *level
		}
	})

	cfg.APIPrefix = normalizePrefix(cfg.APIPrefix)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfigFile decodes path on top of cfg so missing keys keep their
// current values.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w %s: %v", errors.ErrConfigFileReadFailed, path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: %s", errors.ErrConfigUnsupported, path)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrConfigParseFailed, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config, logger *log.Logger) {
	if addr := os.Getenv("ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err != nil {
			logger.Warn(errors.ErrConfigInvalidFormat.Error(), "env", "PORT", "value", port)
		} else if p < 1 || p > 65535 {
			logger.Warn(errors.ErrInvalidPort.Error(), "env", "PORT", "value", p)
		} else {
			cfg.Port = p
		}
	}
	if backend := os.Getenv("BACKEND_URL"); backend != "" {
		cfg.BackendURL = backend
	}
	if prefix := os.Getenv("API_PREFIX"); prefix != "" {
		cfg.APIPrefix = prefix
	}
	if strip := os.Getenv("STRIP_API_PREFIX"); strip != "" {
		if v, err := strconv.ParseBool(strip); err != nil {
			logger.Warn(errors.ErrConfigInvalidFormat.Error(), "env", "STRIP_API_PREFIX", "value", strip)
		} else {
			cfg.StripAPIPrefix = v
		}
	}
	if public := os.Getenv("PUBLIC_DIR"); public != "" {
		cfg.PublicDir = public
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if timeout := os.Getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		if v, err := strconv.Atoi(timeout); err != nil || v < 0 {
			logger.Warn(errors.ErrConfigInvalidFormat.Error(), "env", "SHUTDOWN_TIMEOUT", "value", timeout)
		} else {
			cfg.ShutdownTimeout = v
		}
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return configValidationError(err)
	}
	if !strings.HasPrefix(c.APIPrefix, "/") || c.APIPrefix == "/" {
		return errors.ErrInvalidAPIPrefix
	}
	return nil
}

func normalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

func configValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.ErrValidationFailed
	}
	switch field := verrs[0].Field(); field {
	case "Port":
		return errors.ErrInvalidPort
	case "BackendURL":
		return errors.ErrInvalidBackendURL
	case "APIPrefix":
		return errors.ErrInvalidAPIPrefix
	default:
		return fmt.Errorf("%w: %s", errors.ErrValidationFailed, field)
	}
}
