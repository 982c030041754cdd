package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "FEEDLIFT_DB_DSN"
	EnvDBHost = "FEEDLIFT_DB_HOST"
	EnvDBUser = "FEEDLIFT_DB_USER"
	EnvDBName = "FEEDLIFT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Eventing     EventingConfig
	Sync         SyncConfig
	Retention    RetentionConfig
	MercadoPago  MercadoPagoConfig
	WhatsApp     WhatsAppConfig
	WebPush      WebPushConfig
	LLM          LLMConfig
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
	Env          string `envconfig:"FEEDLIFT_APP_ENV" required:"true"`
	Port         string `envconfig:"FEEDLIFT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FEEDLIFT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FEEDLIFT_LOG_WARN_STACK" default:"false"`
	BaseURL      string `envconfig:"FEEDLIFT_APP_BASE_URL" default:"https://app.feedlift.io"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FEEDLIFT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FEEDLIFT_DB_DSN"`
	Driver string `envconfig:"FEEDLIFT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FEEDLIFT_DB_HOST"`
	LegacyPort     int    `envconfig:"FEEDLIFT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FEEDLIFT_DB_USER"`
	LegacyPassword string `envconfig:"FEEDLIFT_DB_PASSWORD"`
	LegacyName     string `envconfig:"FEEDLIFT_DB_NAME"`
	LegacySSLMode  string `envconfig:"FEEDLIFT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FEEDLIFT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FEEDLIFT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FEEDLIFT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FEEDLIFT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FEEDLIFT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FEEDLIFT_REDIS_ADDR"`
	Password     string        `envconfig:"FEEDLIFT_REDIS_PASSWORD"`
	DB           int           `envconfig:"FEEDLIFT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FEEDLIFT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FEEDLIFT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FEEDLIFT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FEEDLIFT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FEEDLIFT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FEEDLIFT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FEEDLIFT_JWT_ISSUER" default:"feedlift"`
	ExpirationMinutes int    `envconfig:"FEEDLIFT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FEEDLIFT_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FEEDLIFT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"FEEDLIFT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FEEDLIFT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"FEEDLIFT_PUBSUB_NOTIFICATION_TOPIC" default:"fl-notification-events"`
	NotificationSubscription string `envconfig:"FEEDLIFT_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FEEDLIFT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FEEDLIFT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FEEDLIFT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"FEEDLIFT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type SyncConfig struct {
	Interval        time.Duration `envconfig:"FEEDLIFT_SYNC_INTERVAL" default:"5m"`
	StaleAfter      time.Duration `envconfig:"FEEDLIFT_SYNC_STALE_AFTER" default:"5m"`
	BatchSize       int           `envconfig:"FEEDLIFT_SYNC_BATCH_SIZE" default:"20"`
	InterOrderDelay time.Duration `envconfig:"FEEDLIFT_SYNC_INTER_ORDER_DELAY" default:"500ms"`
}

type RetentionConfig struct {
	SubscriptionDays int `envconfig:"FEEDLIFT_RETENTION_SUBSCRIPTION_DAYS" default:"90"`
	NotificationDays int `envconfig:"FEEDLIFT_RETENTION_NOTIFICATION_DAYS" default:"180"`
	OutboxDays       int `envconfig:"FEEDLIFT_RETENTION_OUTBOX_DAYS" default:"14"`
}

type MercadoPagoConfig struct {
	AccessToken     string `envconfig:"FEEDLIFT_MERCADOPAGO_ACCESS_TOKEN"`
	BaseURL         string `envconfig:"FEEDLIFT_MERCADOPAGO_BASE_URL" default:"https://api.mercadopago.com"`
	WebhookSecret   string `envconfig:"FEEDLIFT_MERCADOPAGO_WEBHOOK_SECRET"`
	NotificationURL string `envconfig:"FEEDLIFT_MERCADOPAGO_NOTIFICATION_URL"`
}

type WhatsAppConfig struct {
	BaseURL  string `envconfig:"FEEDLIFT_EVOLUTION_BASE_URL"`
	APIKey   string `envconfig:"FEEDLIFT_EVOLUTION_API_KEY"`
	Instance string `envconfig:"FEEDLIFT_EVOLUTION_INSTANCE" default:"feedlift"`
}

// Configured reports whether the messaging gateway credentials are present.
func (w WhatsAppConfig) Configured() bool {
	return strings.TrimSpace(w.BaseURL) != "" && strings.TrimSpace(w.APIKey) != ""
}

type WebPushConfig struct {
	VAPIDPublicKey  string `envconfig:"FEEDLIFT_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"FEEDLIFT_VAPID_PRIVATE_KEY"`
	Subscriber      string `envconfig:"FEEDLIFT_VAPID_SUBJECT" default:"mailto:ops@feedlift.io"`
	TTLSeconds      int    `envconfig:"FEEDLIFT_WEBPUSH_TTL_SECONDS" default:"3600"`
}

// Configured reports whether the VAPID key pair is present.
func (w WebPushConfig) Configured() bool {
	return strings.TrimSpace(w.VAPIDPublicKey) != "" && strings.TrimSpace(w.VAPIDPrivateKey) != ""
}

type LLMConfig struct {
	Provider        string  `envconfig:"FEEDLIFT_LLM_PROVIDER" default:"openai"`
	OpenAIKey       string  `envconfig:"FEEDLIFT_OPENAI_API_KEY"`
	OpenAIModel     string  `envconfig:"FEEDLIFT_OPENAI_MODEL" default:"gpt-4o-mini"`
	AnthropicKey    string  `envconfig:"FEEDLIFT_ANTHROPIC_API_KEY"`
	AnthropicModel  string  `envconfig:"FEEDLIFT_ANTHROPIC_MODEL" default:"claude-3-5-haiku-latest"`
	MaxTokens       int     `envconfig:"FEEDLIFT_LLM_MAX_TOKENS" default:"500"`
	Temperature     float32 `envconfig:"FEEDLIFT_LLM_TEMPERATURE" default:"0.7"`
	RequestTimeoutS int     `envconfig:"FEEDLIFT_LLM_REQUEST_TIMEOUT_S" default:"30"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
