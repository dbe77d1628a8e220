package config

const (
	KeyNotionAPIKey     = "notion_api_key"
	KeyNotionBaseURL    = "notion_base_url"
	KeyNotionVersion    = "notion_version"
	KeyNotionTimeout    = "notion_timeout"
	KeyNotionRateLimit  = "notion_rate_limit"
	KeyTransport        = "transport"
	KeyHost             = "host"
	KeyPort             = "port"
	KeyDataDir          = "data_dir"
	KeySchemaBackend    = "schema_backend"
	KeyPostgresURL      = "postgres_url"
	KeyLogLevel         = "log_level"
	KeyRetryMaxAttempts = "retry_max_attempts"
	KeyRetryBaseDelay   = "retry_base_delay"
	KeyRetryMaxDelay    = "retry_max_delay"
	KeyRetryMaxWait     = "retry_max_total_wait"
	KeyRetryJitter      = "retry_jitter"
	KeyTasksDB          = "notion_tasks_db"
	KeyProjectsDB       = "notion_projects_db"
	KeyPillarsDB        = "notion_pillars_db"
	KeyKeyResultsDB     = "notion_key_results_db"
	KeyOTelExporter     = "otel_exporter"
	KeyOTelEndpoint     = "otel_exporter_otlp_endpoint"
	KeyOTelInsecure     = "otel_insecure"
	KeyMetricsEnabled   = "metrics_enabled"
	KeyServiceName      = "service_name"
)

// KeyringService is the OS keyring service holding the Notion token when it is
// not provided through the environment.
const (
	KeyringService = "notion-chakra-mcp"
	KeyringUser    = "api_key"
)
