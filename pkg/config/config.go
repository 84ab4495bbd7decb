// Package config handles application configuration.
//
// It provides:
//   - Flag parsing with CLI arguments
//   - Environment variable support (with CLI override)
//   - An optional YAML config file (-config flag or NUHEAT_CONFIG)
//   - Configuration validation
//   - Precedence: CLI flags > environment variables > config file > defaults
//
// Supported environment variables:
//   - NUHEAT_CONFIG: YAML config file
//   - NUHEAT_CLIENT_ID, NUHEAT_CLIENT_SECRET: OAuth2 client credentials
//   - NUHEAT_AUTH_URL: Identity server base URL
//   - NUHEAT_API_URL: NuHeat API base URL
//   - NUHEAT_REDIRECT_URL: OAuth2 callback URL registered for the client
//   - NUHEAT_TOKEN_PATH: Path to token storage file
//   - NUHEAT_PORT: HTTP server port
//   - NUHEAT_POLL_INTERVAL: Seconds between polls
//   - NUHEAT_REQUEST_TIMEOUT: Timeout for API requests (seconds)
//   - NUHEAT_REPRESENTATION: preset or legacy
//   - NUHEAT_LOG_LEVEL, NUHEAT_LOG_FORMAT: Logging verbosity and format
//   - NUHEAT_NATS_URL, NUHEAT_NATS_SUBJECT_PREFIX: Optional NATS publishing
//   - NUHEAT_MQTT_BROKER, NUHEAT_MQTT_TOPIC_PREFIX, NUHEAT_MQTT_CLIENT_ID: Optional MQTT publishing
//   - NUHEAT_BREAKER_FAILURES, NUHEAT_BREAKER_TIMEOUT: Circuit breaker tuning
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"
)

const (
	defaultAuthURL = "https://identity.nam.mynuheat.com"
	defaultAPIURL  = "https://api.nam.mynuheat.com"
	defaultPrefix  = "nuheat"
)

// Config holds the application configuration
type Config struct {
	// ConfigFile is the YAML file the defaults were read from, if any
	ConfigFile string

	// OAuth2 client
	ClientID     string
	ClientSecret string
	AuthURL      string
	RedirectURL  string

	// Token storage
	TokenPath string

	// NuHeat API
	APIURL         string
	RequestTimeout int
	Representation string

	// Polling
	PollInterval int

	// Server configuration
	Port int

	// Logging
	LogLevel  string
	LogFormat string

	// State publishing (optional)
	NATSURL           string
	NATSSubjectPrefix string
	MQTTBroker        string
	MQTTTopicPrefix   string
	MQTTClientID      string

	// Circuit breaker
	BreakerFailures int
	BreakerTimeout  int

	fileErr error
}

// fileConfig mirrors Config in the YAML file. Keys use the flag names with
// underscores, e.g. client_id or poll_interval.
type fileConfig struct {
	ClientID          string `json:"client_id"`
	ClientSecret      string `json:"client_secret"`
	AuthURL           string `json:"auth_url"`
	RedirectURL       string `json:"redirect_url"`
	TokenPath         string `json:"token_path"`
	APIURL            string `json:"api_url"`
	RequestTimeout    *int   `json:"request_timeout"`
	Representation    string `json:"representation"`
	PollInterval      *int   `json:"poll_interval"`
	Port              *int   `json:"port"`
	LogLevel          string `json:"log_level"`
	LogFormat         string `json:"log_format"`
	NATSURL           string `json:"nats_url"`
	NATSSubjectPrefix string `json:"nats_subject_prefix"`
	MQTTBroker        string `json:"mqtt_broker"`
	MQTTTopicPrefix   string `json:"mqtt_topic_prefix"`
	MQTTClientID      string `json:"mqtt_client_id"`
	BreakerFailures   *int   `json:"breaker_failures"`
	BreakerTimeout    *int   `json:"breaker_timeout"`
}

// readFile loads a YAML config file
func readFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc := &fileConfig{}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// configPath finds -config in args before the full flag set is parsed
func configPath(args []string) string {
	for i, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
	}
	return os.Getenv("NUHEAT_CONFIG")
}

// Load parses environment variables and command-line flags and returns a Config
// Precedence: CLI flags > environment variables > defaults
func Load() *Config {
	return LoadWithArgs(os.Args[1:])
}

// LoadWithArgs loads configuration with explicit arguments (useful for testing)
func LoadWithArgs(args []string) *Config {
	cfg := &Config{}

	homeDir := os.Getenv("HOME")
	if homeDir == "" {
		homeDir = "/root"
	}
	defaultTokenPath := filepath.Join(homeDir, ".nuheat-conductor", "token.json")

	file := &fileConfig{}
	cfg.ConfigFile = configPath(args)
	if cfg.ConfigFile != "" {
		fc, err := readFile(cfg.ConfigFile)
		if err != nil {
			cfg.fileErr = err
		} else {
			file = fc
		}
	}
	str := func(env, fromFile, def string) string {
		return envOr(env, orDefault(fromFile, def))
	}
	num := func(env string, fromFile *int, def int) int {
		if fromFile != nil {
			def = *fromFile
		}
		return parseEnvInt(os.Getenv(env), def)
	}

	// Create a new FlagSet for this invocation (allows multiple calls in tests)
	fs := flag.NewFlagSet("config", flag.ContinueOnError)

	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML config file (env: NUHEAT_CONFIG)")

	// OAuth2 client
	fs.StringVar(&cfg.ClientID, "client-id", str("NUHEAT_CLIENT_ID", file.ClientID, ""), "OAuth2 client ID (env: NUHEAT_CLIENT_ID, required)")
	fs.StringVar(&cfg.ClientSecret, "client-secret", str("NUHEAT_CLIENT_SECRET", file.ClientSecret, ""), "OAuth2 client secret (env: NUHEAT_CLIENT_SECRET, required)")
	fs.StringVar(&cfg.AuthURL, "auth-url", str("NUHEAT_AUTH_URL", file.AuthURL, defaultAuthURL), "Identity server base URL (env: NUHEAT_AUTH_URL)")
	fs.StringVar(&cfg.RedirectURL, "redirect-url", str("NUHEAT_REDIRECT_URL", file.RedirectURL, ""), "OAuth2 callback URL, defaults to http://localhost:<port>/oauth/callback (env: NUHEAT_REDIRECT_URL)")
	fs.StringVar(&cfg.TokenPath, "token-path", str("NUHEAT_TOKEN_PATH", file.TokenPath, defaultTokenPath), "Path to store the OAuth2 token (env: NUHEAT_TOKEN_PATH)")

	// NuHeat API
	fs.StringVar(&cfg.APIURL, "api-url", str("NUHEAT_API_URL", file.APIURL, defaultAPIURL), "NuHeat API base URL (env: NUHEAT_API_URL)")
	fs.IntVar(&cfg.RequestTimeout, "request-timeout", num("NUHEAT_REQUEST_TIMEOUT", file.RequestTimeout, 10), "Maximum time in seconds to wait for an API response (env: NUHEAT_REQUEST_TIMEOUT)")
	fs.StringVar(&cfg.Representation, "representation", str("NUHEAT_REPRESENTATION", file.Representation, "preset"), "Schedule presentation: preset or legacy (env: NUHEAT_REPRESENTATION)")
	fs.IntVar(&cfg.PollInterval, "poll-interval", num("NUHEAT_POLL_INTERVAL", file.PollInterval, 300), "Seconds between polls (env: NUHEAT_POLL_INTERVAL)")

	// Server configuration
	fs.IntVar(&cfg.Port, "port", num("NUHEAT_PORT", file.Port, 9100), "HTTP server listen port (env: NUHEAT_PORT)")

	// Logging
	fs.StringVar(&cfg.LogLevel, "log-level", str("NUHEAT_LOG_LEVEL", file.LogLevel, "info"), "Logging verbosity: debug, info, warn, error (env: NUHEAT_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", str("NUHEAT_LOG_FORMAT", file.LogFormat, "json"), "Log format: json or text (env: NUHEAT_LOG_FORMAT)")

	// State publishing
	fs.StringVar(&cfg.NATSURL, "nats-url", str("NUHEAT_NATS_URL", file.NATSURL, ""), "NATS server URL, empty disables NATS publishing (env: NUHEAT_NATS_URL)")
	fs.StringVar(&cfg.NATSSubjectPrefix, "nats-subject-prefix", str("NUHEAT_NATS_SUBJECT_PREFIX", file.NATSSubjectPrefix, defaultPrefix), "NATS subject prefix (env: NUHEAT_NATS_SUBJECT_PREFIX)")
	fs.StringVar(&cfg.MQTTBroker, "mqtt-broker", str("NUHEAT_MQTT_BROKER", file.MQTTBroker, ""), "MQTT broker URL, empty disables MQTT publishing (env: NUHEAT_MQTT_BROKER)")
	fs.StringVar(&cfg.MQTTTopicPrefix, "mqtt-topic-prefix", str("NUHEAT_MQTT_TOPIC_PREFIX", file.MQTTTopicPrefix, defaultPrefix), "MQTT topic prefix (env: NUHEAT_MQTT_TOPIC_PREFIX)")
	fs.StringVar(&cfg.MQTTClientID, "mqtt-client-id", str("NUHEAT_MQTT_CLIENT_ID", file.MQTTClientID, "nuheat-conductor"), "MQTT client ID (env: NUHEAT_MQTT_CLIENT_ID)")

	// Circuit breaker
	fs.IntVar(&cfg.BreakerFailures, "breaker-failures", num("NUHEAT_BREAKER_FAILURES", file.BreakerFailures, 5), "Consecutive API failures before the circuit opens (env: NUHEAT_BREAKER_FAILURES)")
	fs.IntVar(&cfg.BreakerTimeout, "breaker-timeout", num("NUHEAT_BREAKER_TIMEOUT", file.BreakerTimeout, 30), "Seconds the circuit stays open (env: NUHEAT_BREAKER_TIMEOUT)")

	// FlagSet is configured with ContinueOnError, so parse errors are handled gracefully
	_ = fs.Parse(args)

	if cfg.RedirectURL == "" {
		cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/oauth/callback", cfg.Port)
	}

	return cfg
}

func envOr(name, defaultValue string) string {
	return orDefault(os.Getenv(name), defaultValue)
}

func orDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}

// parseEnvInt parses an environment variable as an integer, returning default if invalid
func parseEnvInt(envValue string, defaultValue int) int {
	if envValue == "" {
		return defaultValue
	}
	var result int
	_, err := fmt.Sscanf(envValue, "%d", &result)
	if err != nil {
		return defaultValue
	}
	return result
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.fileErr != nil {
		return fmt.Errorf("config file: %w", c.fileErr)
	}
	if c.ClientID == "" {
		return fmt.Errorf("client-id is required (use -client-id flag or NUHEAT_CLIENT_ID env var)")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client-secret is required (use -client-secret flag or NUHEAT_CLIENT_SECRET env var)")
	}

	for name, value := range map[string]string{"auth-url": c.AuthURL, "api-url": c.APIURL, "redirect-url": c.RedirectURL} {
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid %s: %q (must be an http or https URL)", name, value)
		}
	}

	if c.TokenPath == "" {
		return fmt.Errorf("token-path is required")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be between 1 and 65535)", c.Port)
	}

	if c.RequestTimeout < 1 {
		return fmt.Errorf("invalid request-timeout: %d (must be at least 1 second)", c.RequestTimeout)
	}

	if c.PollInterval < 10 {
		return fmt.Errorf("invalid poll-interval: %d (must be at least 10 seconds)", c.PollInterval)
	}

	if c.Representation != "preset" && c.Representation != "legacy" {
		return fmt.Errorf("invalid representation: %s (must be 'preset' or 'legacy')", c.Representation)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log-level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid log-format: %s (must be 'json' or 'text')", c.LogFormat)
	}

	if c.BreakerFailures < 1 {
		return fmt.Errorf("invalid breaker-failures: %d (must be at least 1)", c.BreakerFailures)
	}
	if c.BreakerTimeout < 1 {
		return fmt.Errorf("invalid breaker-timeout: %d (must be at least 1 second)", c.BreakerTimeout)
	}

	return nil
}

// String returns a string representation of the config (without sensitive data)
func (c *Config) String() string {
	secret := ""
	if c.ClientSecret != "" {
		secret = "[REDACTED]"
	}
	return fmt.Sprintf("Config{ConfigFile: %s, Port: %d, ClientID: %s, ClientSecret: %s, AuthURL: %s, APIURL: %s, RedirectURL: %s, TokenPath: %s, "+
		"PollInterval: %ds, RequestTimeout: %ds, Representation: %s, LogLevel: %s, LogFormat: %s, NATSURL: %s, MQTTBroker: %s}",
		c.ConfigFile, c.Port, c.ClientID, secret, c.AuthURL, c.APIURL, c.RedirectURL, c.TokenPath,
		c.PollInterval, c.RequestTimeout, c.Representation, c.LogLevel, c.LogFormat, c.NATSURL, c.MQTTBroker)
}
