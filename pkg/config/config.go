package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the app reads.
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Rotation     RotationConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Mail         MailConfig
	Retention    RetentionConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RESOURCEDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"RESOURCEDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RESOURCEDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RESOURCEDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RESOURCEDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RESOURCEDESK_DB_DSN"`
	Driver string `envconfig:"RESOURCEDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RESOURCEDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"RESOURCEDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RESOURCEDESK_DB_USER"`
	LegacyPassword string `envconfig:"RESOURCEDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"RESOURCEDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"RESOURCEDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RESOURCEDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RESOURCEDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RESOURCEDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RESOURCEDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if strings.EqualFold(d.Driver, "sqlite") {
		// sqlite DSNs come from the rotation settings, not from here.
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("either RESOURCEDESK_DB_DSN or host/user/name parts are required")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.LegacyUser),
		url.QueryEscape(d.LegacyPassword),
		d.LegacyHost,
		d.LegacyPort,
		d.LegacyName,
		d.LegacySSLMode,
	)
	return nil
}

// RotationConfig drives the multi-file sqlite router used when the sqlite
// driver is selected. The file list is fixed; the active file switches when
// the current one crosses SizeLimitBytes.
type RotationConfig struct {
	Dir            string `envconfig:"RESOURCEDESK_ROTATION_DIR" default:"./data"`
	FileCount      int    `envconfig:"RESOURCEDESK_ROTATION_FILE_COUNT" default:"5"`
	BaseName       string `envconfig:"RESOURCEDESK_ROTATION_BASE_NAME" default:"resourcedesk"`
	SizeLimitBytes int64  `envconfig:"RESOURCEDESK_ROTATION_SIZE_LIMIT_BYTES" default:"104857600"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RESOURCEDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RESOURCEDESK_REDIS_ADDR"`
	Password     string        `envconfig:"RESOURCEDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"RESOURCEDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RESOURCEDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RESOURCEDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RESOURCEDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RESOURCEDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RESOURCEDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RESOURCEDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RESOURCEDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RESOURCEDESK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RESOURCEDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RESOURCEDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RESOURCEDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RESOURCEDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RESOURCEDESK_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RESOURCEDESK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RESOURCEDESK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"RESOURCEDESK_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"RESOURCEDESK_PUBSUB_DOMAIN_TOPIC" default:"resourcedesk-domain"`
	DomainSubscription string `envconfig:"RESOURCEDESK_PUBSUB_DOMAIN_SUBSCRIPTION" default:"resourcedesk-domain-worker"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"RESOURCEDESK_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMs int `envconfig:"RESOURCEDESK_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int `envconfig:"RESOURCEDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type MailConfig struct {
	Host        string `envconfig:"RESOURCEDESK_MAIL_HOST"`
	Port        int    `envconfig:"RESOURCEDESK_MAIL_PORT" default:"587"`
	Username    string `envconfig:"RESOURCEDESK_MAIL_USERNAME"`
	Password    string `envconfig:"RESOURCEDESK_MAIL_PASSWORD"`
	FromAddress string `envconfig:"RESOURCEDESK_MAIL_FROM" default:"noreply@resourcedesk.local"`
}

// Enabled reports whether outbound email is configured at all; the worker
// degrades to log-only delivery when it is not.
func (m MailConfig) Enabled() bool {
	return strings.TrimSpace(m.Host) != ""
}

type RetentionConfig struct {
	MaxAge        time.Duration `envconfig:"RESOURCEDESK_RETENTION_MAX_AGE" default:"8760h"`
	SweepInterval time.Duration `envconfig:"RESOURCEDESK_RETENTION_SWEEP_INTERVAL" default:"24h"`
}
