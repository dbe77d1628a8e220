package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
	TransportHTTP  = "http"

	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Init wires environment, .env and persistent flags of root into viper.
// Flags are bound under their underscored names so --retry-max-attempts and
// RETRY_MAX_ATTEMPTS resolve to the same key.
func Init(root *cobra.Command) {
	viper.AutomaticEnv()
	_ = godotenv.Load()
	if root != nil {
		root.PersistentFlags().VisitAll(func(f *pflag.Flag) {
			_ = viper.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
	}
	setDefaults()
}

func setDefaults() {
	viper.SetDefault(KeyNotionBaseURL, "https://api.notion.com/v1")
	viper.SetDefault(KeyNotionVersion, "2022-06-28")
	viper.SetDefault(KeyNotionTimeout, 30*time.Second)
	viper.SetDefault(KeyNotionRateLimit, 3.0)
	viper.SetDefault(KeyTransport, TransportSSE)
	viper.SetDefault(KeyHost, "0.0.0.0")
	viper.SetDefault(KeyPort, 8050)
	viper.SetDefault(KeyDataDir, "data")
	viper.SetDefault(KeySchemaBackend, BackendFile)
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyRetryMaxAttempts, 5)
	viper.SetDefault(KeyRetryBaseDelay, time.Second)
	viper.SetDefault(KeyRetryMaxDelay, 10*time.Second)
	viper.SetDefault(KeyRetryMaxWait, time.Minute)
	viper.SetDefault(KeyRetryJitter, 0.1)
	viper.SetDefault(KeyOTelExporter, "none")
	viper.SetDefault(KeyMetricsEnabled, true)
	viper.SetDefault(KeyServiceName, "notion-chakra-mcp")
}

// Settings is the resolved configuration handed to constructors. Nothing below
// cmd/ reads viper directly.
type Settings struct {
	Notion    NotionSettings
	Server    ServerSettings
	Retry     RetrySettings
	Databases DatabaseIDs
	Storage   StorageSettings
	Telemetry TelemetrySettings
	LogLevel  string
}

type NotionSettings struct {
	APIKey    string
	BaseURL   string
	Version   string
	Timeout   time.Duration
	RateLimit float64
}

type ServerSettings struct {
	Transport string
	Host      string
	Port      int
}

func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type RetrySettings struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	MaxTotalWait time.Duration
	Jitter       float64
}

// DatabaseIDs names the Notion databases backing the task, project and OKR tools.
type DatabaseIDs struct {
	Tasks      string
	Projects   string
	Pillars    string
	KeyResults string
}

type StorageSettings struct {
	DataDir     string
	Backend     string
	PostgresURL string
}

type TelemetrySettings struct {
	ServiceName    string
	Exporter       string
	Endpoint       string
	Insecure       bool
	MetricsEnabled bool
}

// keyringGet is replaced in tests.
var keyringGet = keyring.Get

// Load snapshots viper into Settings. A missing API key is not an error here;
// Validate decides whether the caller needs one.
func Load() Settings {
	s := Settings{
		Notion: NotionSettings{
			APIKey:    strings.TrimSpace(viper.GetString(KeyNotionAPIKey)),
			BaseURL:   strings.TrimRight(viper.GetString(KeyNotionBaseURL), "/"),
			Version:   viper.GetString(KeyNotionVersion),
			Timeout:   viper.GetDuration(KeyNotionTimeout),
			RateLimit: viper.GetFloat64(KeyNotionRateLimit),
		},
		Server: ServerSettings{
			Transport: strings.ToLower(viper.GetString(KeyTransport)),
			Host:      viper.GetString(KeyHost),
			Port:      viper.GetInt(KeyPort),
		},
		Retry: RetrySettings{
			MaxAttempts:  viper.GetInt(KeyRetryMaxAttempts),
			BaseDelay:    viper.GetDuration(KeyRetryBaseDelay),
			MaxDelay:     viper.GetDuration(KeyRetryMaxDelay),
			MaxTotalWait: viper.GetDuration(KeyRetryMaxWait),
			Jitter:       viper.GetFloat64(KeyRetryJitter),
		},
		Databases: DatabaseIDs{
			Tasks:      viper.GetString(KeyTasksDB),
			Projects:   viper.GetString(KeyProjectsDB),
			Pillars:    viper.GetString(KeyPillarsDB),
			KeyResults: viper.GetString(KeyKeyResultsDB),
		},
		Storage: StorageSettings{
			DataDir:     viper.GetString(KeyDataDir),
			Backend:     strings.ToLower(viper.GetString(KeySchemaBackend)),
			PostgresURL: viper.GetString(KeyPostgresURL),
		},
		Telemetry: TelemetrySettings{
			ServiceName:    viper.GetString(KeyServiceName),
			Exporter:       strings.ToLower(viper.GetString(KeyOTelExporter)),
			Endpoint:       viper.GetString(KeyOTelEndpoint),
			Insecure:       viper.GetBool(KeyOTelInsecure),
			MetricsEnabled: viper.GetBool(KeyMetricsEnabled),
		},
		LogLevel: viper.GetString(KeyLogLevel),
	}

	if s.Notion.APIKey == "" {
		// Unavailable keyrings (headless hosts) behave like an empty one.
		if token, err := keyringGet(KeyringService, KeyringUser); err == nil {
			s.Notion.APIKey = strings.TrimSpace(token)
		}
	}
	return s
}

// Validate checks the settings the MCP server cannot start without.
func (s Settings) Validate() error {
	if s.Notion.APIKey == "" {
		return fmt.Errorf("%s is required (set the environment variable or run `notionctl auth set`)", strings.ToUpper(KeyNotionAPIKey))
	}
	switch s.Server.Transport {
	case TransportStdio, TransportSSE, TransportHTTP:
	default:
		return fmt.Errorf("unsupported transport %q (want stdio, sse or http)", s.Server.Transport)
	}
	switch s.Storage.Backend {
	case BackendFile:
	case BackendPostgres:
		if s.Storage.PostgresURL == "" {
			return fmt.Errorf("%s is required for the postgres schema backend", strings.ToUpper(KeyPostgresURL))
		}
	default:
		return fmt.Errorf("unsupported schema backend %q", s.Storage.Backend)
	}
	if s.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%s must be at least 1", KeyRetryMaxAttempts)
	}
	if s.Retry.BaseDelay <= 0 || s.Retry.MaxDelay < s.Retry.BaseDelay {
		return fmt.Errorf("retry delays must satisfy 0 < %s <= %s", KeyRetryBaseDelay, KeyRetryMaxDelay)
	}
	return nil
}

// StoreAPIKey saves token in the OS keyring.
func StoreAPIKey(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("empty token")
	}
	if err := keyring.Set(KeyringService, KeyringUser, strings.TrimSpace(token)); err != nil {
		return fmt.Errorf("store token in keyring: %w", err)
	}
	return nil
}

// DeleteAPIKey removes the stored token. Deleting a missing entry is not an error.
func DeleteAPIKey() error {
	if err := keyring.Delete(KeyringService, KeyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete token from keyring: %w", err)
	}
	return nil
}
