package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "RBAC"

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Auth      AuthSettings      `mapstructure:"auth"`
	RBAC      RBACSettings      `mapstructure:"rbac"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// DSN renders the connection string shared by the pool and the migration runner.
func (p PostgresSettings) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Database,
		p.SSLMode,
	)
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	// PoolSize bounds connections per instance.
	PoolSize int `mapstructure:"pool_size"`
	// OpTimeout caps a single cache read or write. Permission checks recompute on timeout.
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

// KafkaSettings configures the invalidation producer and consumer group
type KafkaSettings struct {
	Brokers       []string `mapstructure:"brokers"`
	TopicPrefix   string   `mapstructure:"topic_prefix"`
	Async         bool     `mapstructure:"async"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
}

// AuthSettings configures verification of upstream identity tokens.
type AuthSettings struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	Audience  string        `mapstructure:"audience"`
	Leeway    time.Duration `mapstructure:"leeway"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// RBACSettings configures permission caching and request enforcement.
type RBACSettings struct {
	CacheBackend    string        `mapstructure:"cache_backend"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	TenantCacheTTL  string        `mapstructure:"tenant_cache_ttl"`
	MemoryCacheSize int           `mapstructure:"memory_cache_size"`
	CacheKeyPrefix  string        `mapstructure:"cache_key_prefix"`
	PublicPaths     []string      `mapstructure:"public_paths"`
	FeatureCatalog  string        `mapstructure:"feature_catalog"`
}

// TenantCacheTTLs parses TenantCacheTTL, a comma separated list of tenant=duration pairs.
func (r RBACSettings) TenantCacheTTLs() (map[string]time.Duration, error) {
	out := make(map[string]time.Duration)
	raw := strings.TrimSpace(r.TenantCacheTTL)
	if raw == "" {
		return out, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		tenantID, value, ok := strings.Cut(pair, "=")
		tenantID = strings.TrimSpace(tenantID)
		if !ok || tenantID == "" {
			return nil, fmt.Errorf("invalid tenant cache ttl entry %q", pair)
		}
		ttl, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid tenant cache ttl for %s: %q", tenantID, value)
		}
		out[tenantID] = ttl
	}
	return out, nil
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.cors_allowed_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.pool_size",
		"redis.op_timeout",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"kafka.consumer_group",
		"auth.jwt_secret",
		"auth.issuer",
		"auth.audience",
		"auth.leeway",
		"auth.token_ttl",
		"rbac.cache_backend",
		"rbac.cache_ttl",
		"rbac.tenant_cache_ttl",
		"rbac.memory_cache_size",
		"rbac.cache_key_prefix",
		"rbac.public_paths",
		"rbac.feature_catalog",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.RBAC.CacheBackend {
	case "redis", "memory", "none":
	default:
		return fmt.Errorf("unsupported rbac cache backend %q", c.RBAC.CacheBackend)
	}
	if c.RBAC.CacheBackend == "memory" && c.RBAC.MemoryCacheSize <= 0 {
		return fmt.Errorf("rbac.memory_cache_size must be positive")
	}
	if _, err := c.RBAC.TenantCacheTTLs(); err != nil {
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rbac-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.cors_allowed_origins", []string{})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "teleops")
	v.SetDefault("postgres.password", "teleops_password")
	v.SetDefault("postgres.database", "teleops")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.op_timeout", 500*time.Millisecond)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "")
	v.SetDefault("kafka.async", true)
	v.SetDefault("kafka.consumer_group", "rbac-service")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "teleops-identity")
	v.SetDefault("auth.audience", "teleops-api")
	v.SetDefault("auth.leeway", "30s")
	v.SetDefault("auth.token_ttl", "15m")

	v.SetDefault("rbac.cache_backend", "redis")
	v.SetDefault("rbac.cache_ttl", "5m")
	v.SetDefault("rbac.tenant_cache_ttl", "")
	v.SetDefault("rbac.memory_cache_size", 10000)
	v.SetDefault("rbac.cache_key_prefix", "rbac")
	v.SetDefault("rbac.public_paths", []string{"/healthz", "/readyz", "/metrics"})
	v.SetDefault("rbac.feature_catalog", "")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "rbac-service")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envPrefix+"_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
