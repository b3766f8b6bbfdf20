package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Enabled          bool
	Directory        string `validate:"required"`
	ProjectName      string
	ServiceName      string
	GroupID          string
	AutoSave         bool
	IncludeSchema    bool
	FetchTimeout     time.Duration `validate:"gt=0"`
	PeersFile        string        `validate:"required"`
	Manifest         string
	DefaultConnector string `validate:"required"`

	HTTPHost string `validate:"required"`
	HTTPPort int    `validate:"min=1,max=65535"`

	TracingEnabled bool
	ZipkinURL      string `validate:"omitempty,url"`
}

// Defaults applied when a variable is unset.
const (
	DefaultDirectory     = "/tmp/topology"
	DefaultFetchTimeout  = 2 * time.Second
	DefaultManifest      = "topology.yaml"
	DefaultConnector     = "gochannel"
	DefaultHTTPHost      = "localhost"
	DefaultHTTPPort      = 8080
	DefaultZipkinURL     = "http://localhost:9411/api/v2/spans"
	defaultPeersFileName = "services.txt"
)

var validate = validator.New()

// New loads configuration from .env and the environment, exiting on invalid values.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// FromEnv builds a Config from getenv and validates it.
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		Enabled:          p.getBool("TOPOLOGY_ENABLED", true),
		Directory:        p.getString("TOPOLOGY_DIRECTORY", DefaultDirectory),
		ProjectName:      getenv("TOPOLOGY_PROJECT_NAME"),
		ServiceName:      getenv("TOPOLOGY_SERVICE_NAME"),
		GroupID:          getenv("TOPOLOGY_GROUP_ID"),
		AutoSave:         p.getBool("TOPOLOGY_AUTO_SAVE", true),
		IncludeSchema:    p.getBool("TOPOLOGY_INCLUDE_SCHEMA", true),
		FetchTimeout:     p.getDuration("TOPOLOGY_FETCH_TIMEOUT", DefaultFetchTimeout),
		Manifest:         p.getString("TOPOLOGY_MANIFEST", DefaultManifest),
		DefaultConnector: p.getString("TOPOLOGY_DEFAULT_CONNECTOR", DefaultConnector),
		HTTPHost:         p.getString("HTTP_HOST", DefaultHTTPHost),
		HTTPPort:         p.getInt("HTTP_PORT", DefaultHTTPPort),
		TracingEnabled:   p.getBool("TOPOLOGY_TRACING_ENABLED", false),
		ZipkinURL:        p.getString("TOPOLOGY_ZIPKIN_URL", DefaultZipkinURL),
	}
	cfg.PeersFile = p.getString("TOPOLOGY_PEERS_FILE", filepath.Join(cfg.Directory, defaultPeersFileName))

	if p.err != nil {
		return nil, p.err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

// SelfURL returns the base URL peers use to reach this process.
func (c *Config) SelfURL() string {
	return "http://" + c.Addr()
}

// parser reads typed values and keeps the first conversion error.
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) getString(key, def string) string {
	if v := p.getenv(key); v != "" {
		return v
	}
	return def
}

func (p *parser) getBool(key string, def bool) bool {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *parser) getInt(key string, def int) int {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) getDuration(key string, def time.Duration) time.Duration {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}
}
