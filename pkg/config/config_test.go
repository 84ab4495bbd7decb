package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEnvVars = []string{
	"NUHEAT_CONFIG", "NUHEAT_CLIENT_ID", "NUHEAT_CLIENT_SECRET", "NUHEAT_AUTH_URL", "NUHEAT_API_URL",
	"NUHEAT_REDIRECT_URL", "NUHEAT_TOKEN_PATH", "NUHEAT_PORT", "NUHEAT_POLL_INTERVAL",
	"NUHEAT_REQUEST_TIMEOUT", "NUHEAT_REPRESENTATION", "NUHEAT_LOG_LEVEL", "NUHEAT_LOG_FORMAT",
	"NUHEAT_NATS_URL", "NUHEAT_NATS_SUBJECT_PREFIX", "NUHEAT_MQTT_BROKER",
	"NUHEAT_MQTT_TOPIC_PREFIX", "NUHEAT_MQTT_CLIENT_ID", "NUHEAT_BREAKER_FAILURES",
	"NUHEAT_BREAKER_TIMEOUT",
}

// clearEnv blanks every variable; empty values are treated as unset
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range allEnvVars {
		t.Setenv(name, "")
	}
}

func validConfig() *Config {
	return &Config{
		ClientID:        "client",
		ClientSecret:    "secret",
		AuthURL:         "https://identity.nam.mynuheat.com",
		APIURL:          "https://api.nam.mynuheat.com",
		RedirectURL:     "http://localhost:9100/oauth/callback",
		TokenPath:       "/tmp/token.json",
		Port:            9100,
		RequestTimeout:  10,
		PollInterval:    300,
		Representation:  "preset",
		LogLevel:        "info",
		LogFormat:       "json",
		BreakerFailures: 5,
		BreakerTimeout:  30,
	}
}

// TestLoad_FromEnvironmentVariables tests loading configuration from environment variables
func TestLoad_FromEnvironmentVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("NUHEAT_CLIENT_ID", "client")
	t.Setenv("NUHEAT_CLIENT_SECRET", "secret")
	t.Setenv("NUHEAT_PORT", "9091")
	t.Setenv("NUHEAT_POLL_INTERVAL", "60")
	t.Setenv("NUHEAT_REQUEST_TIMEOUT", "20")
	t.Setenv("NUHEAT_REPRESENTATION", "legacy")
	t.Setenv("NUHEAT_LOG_LEVEL", "debug")
	t.Setenv("NUHEAT_LOG_FORMAT", "text")
	t.Setenv("NUHEAT_TOKEN_PATH", "/tmp/token.json")
	t.Setenv("NUHEAT_NATS_URL", "nats://localhost:4222")
	t.Setenv("NUHEAT_MQTT_BROKER", "tcp://localhost:1883")

	cfg := LoadWithArgs([]string{})

	assert.Equal(t, "client", cfg.ClientID)
	assert.Equal(t, "secret", cfg.ClientSecret)
	assert.Equal(t, 9091, cfg.Port)
	assert.Equal(t, 60, cfg.PollInterval)
	assert.Equal(t, 20, cfg.RequestTimeout)
	assert.Equal(t, "legacy", cfg.Representation)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "/tmp/token.json", cfg.TokenPath)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "http://localhost:9091/oauth/callback", cfg.RedirectURL)
	assert.NoError(t, cfg.Validate())
}

// TestLoad_Defaults tests loading configuration with default values
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := LoadWithArgs([]string{})

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 300, cfg.PollInterval)
	assert.Equal(t, 10, cfg.RequestTimeout)
	assert.Equal(t, "preset", cfg.Representation)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "https://identity.nam.mynuheat.com", cfg.AuthURL)
	assert.Equal(t, defaultAPIURL, cfg.APIURL)
	assert.Equal(t, "nuheat", cfg.NATSSubjectPrefix)
	assert.Equal(t, "nuheat", cfg.MQTTTopicPrefix)
	assert.Equal(t, 5, cfg.BreakerFailures)
	assert.Equal(t, 30, cfg.BreakerTimeout)
	assert.True(t, strings.HasSuffix(cfg.TokenPath, "/.nuheat-conductor/token.json"))
	assert.Equal(t, "", cfg.ClientID)
	assert.Equal(t, "", cfg.NATSURL)
}

// TestLoad_InvalidEnvironmentVariables tests handling of invalid environment variables
func TestLoad_InvalidEnvironmentVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("NUHEAT_PORT", "invalid")
	t.Setenv("NUHEAT_POLL_INTERVAL", "not-a-number")

	cfg := LoadWithArgs([]string{})

	// Should fall back to defaults when invalid
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 300, cfg.PollInterval)
}

// TestLoad_FlagsOverrideEnvironment tests CLI precedence
func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("NUHEAT_PORT", "9091")
	t.Setenv("NUHEAT_CLIENT_ID", "from-env")
	t.Setenv("NUHEAT_REDIRECT_URL", "https://conductor.example.com/oauth/callback")

	cfg := LoadWithArgs([]string{"-port", "9200", "-client-id", "from-flag", "-representation", "legacy"})

	assert.Equal(t, 9200, cfg.Port)
	assert.Equal(t, "from-flag", cfg.ClientID)
	assert.Equal(t, "legacy", cfg.Representation)
	assert.Equal(t, "https://conductor.example.com/oauth/callback", cfg.RedirectURL)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conductor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const sampleFile = `
client_id: file-client
client_secret: file-secret
port: 9300
poll_interval: 120
representation: legacy
mqtt_broker: tcp://broker:1883
mqtt_topic_prefix: home/heat
`

// TestLoad_ConfigFile tests values read from a YAML file
func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, sampleFile)

	cfg := LoadWithArgs([]string{"-config", path})

	require.NoError(t, cfg.Validate())
	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "file-client", cfg.ClientID)
	assert.Equal(t, "file-secret", cfg.ClientSecret)
	assert.Equal(t, 9300, cfg.Port)
	assert.Equal(t, 120, cfg.PollInterval)
	assert.Equal(t, "legacy", cfg.Representation)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTTBroker)
	assert.Equal(t, "home/heat", cfg.MQTTTopicPrefix)
	// Unset keys keep their defaults
	assert.Equal(t, 10, cfg.RequestTimeout)
	assert.Equal(t, "http://localhost:9300/oauth/callback", cfg.RedirectURL)
}

// TestLoad_ConfigFilePrecedence tests flags > env > file
func TestLoad_ConfigFilePrecedence(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, sampleFile)
	t.Setenv("NUHEAT_CONFIG", path)
	t.Setenv("NUHEAT_PORT", "9400")
	t.Setenv("NUHEAT_CLIENT_ID", "env-client")

	cfg := LoadWithArgs([]string{"--client-id=flag-client"})

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "flag-client", cfg.ClientID)
	assert.Equal(t, 9400, cfg.Port)
	assert.Equal(t, 120, cfg.PollInterval)
	assert.Equal(t, "file-secret", cfg.ClientSecret)
}

// TestLoad_ConfigFileErrors tests that unreadable files fail validation
func TestLoad_ConfigFileErrors(t *testing.T) {
	clearEnv(t)

	cfg := LoadWithArgs([]string{"-config=" + filepath.Join(t.TempDir(), "missing.yaml")})
	err := cfg.Validate()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "config file")
	}

	cfg = LoadWithArgs([]string{"-config", writeConfigFile(t, "port: [not, a, number]")})
	assert.Error(t, cfg.Validate())
}

// TestConfigPath tests locating the config file ahead of flag parsing
func TestConfigPath(t *testing.T) {
	clearEnv(t)

	assert.Equal(t, "a.yaml", configPath([]string{"-port", "1", "-config", "a.yaml"}))
	assert.Equal(t, "b.yaml", configPath([]string{"--config=b.yaml"}))
	assert.Equal(t, "", configPath([]string{"config", "c.yaml"}))

	t.Setenv("NUHEAT_CONFIG", "env.yaml")
	assert.Equal(t, "env.yaml", configPath(nil))
}

// TestValidate tests configuration validation
func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing client id", func(c *Config) { c.ClientID = "" }, "client-id is required"},
		{"missing client secret", func(c *Config) { c.ClientSecret = "" }, "client-secret is required"},
		{"bad api url", func(c *Config) { c.APIURL = "ftp://example.com" }, "invalid api-url"},
		{"bad redirect url", func(c *Config) { c.RedirectURL = "/oauth/callback" }, "invalid redirect-url"},
		{"empty token path", func(c *Config) { c.TokenPath = "" }, "token-path is required"},
		{"port too low", func(c *Config) { c.Port = 0 }, "invalid port"},
		{"port too high", func(c *Config) { c.Port = 70000 }, "invalid port"},
		{"request timeout", func(c *Config) { c.RequestTimeout = 0 }, "invalid request-timeout"},
		{"poll interval", func(c *Config) { c.PollInterval = 5 }, "invalid poll-interval"},
		{"representation", func(c *Config) { c.Representation = "v2" }, "invalid representation"},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log-level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "invalid log-format"},
		{"breaker failures", func(c *Config) { c.BreakerFailures = 0 }, "invalid breaker-failures"},
		{"breaker timeout", func(c *Config) { c.BreakerTimeout = 0 }, "invalid breaker-timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

// TestString_RedactsSecret tests that the client secret never appears
func TestString_RedactsSecret(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.ClientSecret = "super-secret-value"
	s := cfg.String()

	assert.NotContains(t, s, "super-secret-value")
	assert.Contains(t, s, "[REDACTED]")
	assert.Contains(t, s, "Port: 9100")
	assert.Contains(t, s, "ClientID: client")
}
