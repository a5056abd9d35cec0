package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIBaseURL  = "/api"
	DefaultProxyTarget = "http://localhost:8000"

	// Port is fixed: the order service only allows CORS from localhost:3000.
	Port = "3000"
)

var allowedHosts = []string{"localhost", "127.0.0.1", "console"}

// proxyTargetEnv is checked in order; the first non-empty value wins.
var proxyTargetEnv = []string{"API_PROXY_TARGET", "ORDER_SERVICE_URL"}

type Config struct {
	APIBaseURL  string
	ProxyTarget string

	Log       Log
	API       API
	Session   Session
	Kafka     Kafka `envPrefix:"KAFKA_"`
	Telemetry Telemetry
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type API struct {
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
}

type Session struct {
	TTL time.Duration `env:"SESSION_TTL" envDefault:"30m"`
}

type Kafka struct {
	Brokers       []string `env:"BROKERS" envSeparator:","`
	ActivityTopic string   `env:"ACTIVITY_TOPIC" envDefault:"console.activity"`
}

type Telemetry struct {
	TracingEnabled bool   `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
}

// Load reads .env (if present) and the process environment once. The returned
// value is meant to be built in main and passed down; nothing else reads env.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source. The keys read
// are the ones declared in the struct tags.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	var cfg Config
	params, err := env.GetFieldParams(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("read config tags: %w", err)
	}

	environment := make(map[string]string, len(params))
	for _, p := range params {
		if v, ok := lookup(p.Key); ok && v != "" {
			environment[p.Key] = v
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	raw, _ := lookup("API_BASE_URL")
	cfg.APIBaseURL = ResolveBaseURL(raw)
	cfg.ProxyTarget = ResolveProxyTarget(lookup)

	return cfg, nil
}

// ResolveBaseURL applies the /api default and strips trailing slashes.
func ResolveBaseURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return DefaultAPIBaseURL
	}
	return trimmed
}

func ResolveProxyTarget(lookup func(string) (string, bool)) string {
	for _, key := range proxyTargetEnv {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return DefaultProxyTarget
}

// HostAllowed reports whether a request Host header names one of the fixed
// development hosts. Any port is ignored.
func (c Config) HostAllowed(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))
	for _, allowed := range allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}

func (c Config) AllowedHosts() []string {
	out := make([]string, len(allowedHosts))
	copy(out, allowedHosts)
	return out
}

func (c Config) Addr() string {
	return ":" + Port
}

// ConsoleOrigin is the origin relative API base URLs are resolved against.
func (c Config) ConsoleOrigin() string {
	return "http://127.0.0.1:" + Port
}

func (c Config) ActivityEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
