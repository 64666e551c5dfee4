package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pricing      PricingConfig
	Gateway      GatewayConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
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
	Env          string `envconfig:"AQUAFINDR_APP_ENV" required:"true"`
	Port         string `envconfig:"AQUAFINDR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AQUAFINDR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AQUAFINDR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AQUAFINDR_DB_DSN"`
	Driver string `envconfig:"AQUAFINDR_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"AQUAFINDR_DB_HOST"`
	Port     int    `envconfig:"AQUAFINDR_DB_PORT" default:"5432"`
	User     string `envconfig:"AQUAFINDR_DB_USER"`
	Password string `envconfig:"AQUAFINDR_DB_PASSWORD"`
	Name     string `envconfig:"AQUAFINDR_DB_NAME"`
	SSLMode  string `envconfig:"AQUAFINDR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AQUAFINDR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AQUAFINDR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AQUAFINDR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AQUAFINDR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AQUAFINDR_REDIS_URL"`
	Address      string        `envconfig:"AQUAFINDR_REDIS_ADDR"`
	Password     string        `envconfig:"AQUAFINDR_REDIS_PASSWORD"`
	DB           int           `envconfig:"AQUAFINDR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AQUAFINDR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AQUAFINDR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AQUAFINDR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AQUAFINDR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AQUAFINDR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"AQUAFINDR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AQUAFINDR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"AQUAFINDR_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PricingConfig holds the tunable pricing knobs. The 40/60 advance split
// and the two-installment payout halving are structural, not configured.
type PricingConfig struct {
	BaseRadiusKm   float64 `envconfig:"AQUAFINDR_PRICING_BASE_RADIUS_KM" default:"30"`
	PerKmRate      float64 `envconfig:"AQUAFINDR_PRICING_PER_KM_RATE" default:"10"`
	TaxRate        float64 `envconfig:"AQUAFINDR_PRICING_TAX_RATE" default:"0.18"`
	PlatformFeePct float64 `envconfig:"AQUAFINDR_PRICING_PLATFORM_FEE_PCT" default:"0.20"`
}

type GatewayConfig struct {
	AccessToken   string `envconfig:"AQUAFINDR_GATEWAY_ACCESS_TOKEN"`
	Environment   string `envconfig:"AQUAFINDR_GATEWAY_ENV" default:"sandbox"`
	WebhookSecret string `envconfig:"AQUAFINDR_GATEWAY_WEBHOOK_SECRET"`
	LocationID    string `envconfig:"AQUAFINDR_GATEWAY_LOCATION_ID"`
	Currency      string `envconfig:"AQUAFINDR_GATEWAY_CURRENCY" default:"INR"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"AQUAFINDR_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"AQUAFINDR_GCP_CREDENTIALS_JSON"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"AQUAFINDR_GCS_BUCKET_NAME"`
	DownloadURLExpiry time.Duration `envconfig:"AQUAFINDR_GCS_DOWNLOAD_URL_EXPIRY" default:"24h"`
}

type PubSubConfig struct {
	BookingTopic             string `envconfig:"AQUAFINDR_PUBSUB_BOOKING_TOPIC" default:"af-booking-events"`
	BookingSubscription      string `envconfig:"AQUAFINDR_PUBSUB_BOOKING_SUBSCRIPTION"`
	NotificationTopic        string `envconfig:"AQUAFINDR_PUBSUB_NOTIFICATION_TOPIC" default:"af-notification-events"`
	NotificationSubscription string `envconfig:"AQUAFINDR_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"AQUAFINDR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"AQUAFINDR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"AQUAFINDR_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"AQUAFINDR_OUTBOX_RETENTION_DAYS" default:"14"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"AQUAFINDR_CRON_INTERVAL" default:"5m"`
	CreditRetryMinAge     time.Duration `envconfig:"AQUAFINDR_CRON_CREDIT_RETRY_MIN_AGE" default:"10m"`
	CreditRetryMaxAttempt int           `envconfig:"AQUAFINDR_CRON_CREDIT_RETRY_MAX_ATTEMPTS" default:"1"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AQUAFINDR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AQUAFINDR_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"AQUAFINDR_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// Environment returns the normalized gateway environment (sandbox/production).
func (g GatewayConfig) NormalizedEnvironment() string {
	env := strings.TrimSpace(strings.ToLower(g.Environment))
	if env == "" {
		return "sandbox"
	}
	return env
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
