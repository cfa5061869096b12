package config

import (
	"time"

	"github.com/IBM/sarama"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Solver   *solverConfig
	Minio    *minioConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"solver"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string `envconfig:"SOLVER_ADDRESS" default:":3443"`
	BaseUrl         string `envconfig:"SOLVER_BASE_URL" default:"https://localhost:3443"`
	LogLevel        string `envconfig:"SOLVER_LOG_LEVEL" default:"info"`
	CorsOrigins     []string `envconfig:"SOLVER_CORS_ORIGINS" default:"http://localhost:3000"`
	MigrationFolder string `envconfig:"SOLVER_MIGRATIONS_FOLDER" default:""`
	Kafka           kafkaConfig
	Auth            Auth
}

type solverConfig struct {
	GeminiAPIKey   string        `envconfig:"SOLVER_GEMINI_API_KEY" default:""`
	Model          string        `envconfig:"SOLVER_GEMINI_MODEL" default:"gemini-2.0-flash"`
	InvokeTimeout  time.Duration `envconfig:"SOLVER_INVOKE_TIMEOUT" default:"60s"`
	MaxWorkers     int           `envconfig:"SOLVER_MAX_WORKERS" default:"4"`
	DryRun         bool          `envconfig:"SOLVER_DRY_RUN" default:"false"`
}

type minioConfig struct {
	Endpoint  string `envconfig:"SOLVER_MINIO_ENDPOINT" default:""`
	AccessKey string `envconfig:"SOLVER_MINIO_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"SOLVER_MINIO_SECRET_KEY" default:""`
	Bucket    string `envconfig:"SOLVER_MINIO_BUCKET" default:"attachments"`
	UseSSL    bool   `envconfig:"SOLVER_MINIO_USE_SSL" default:"true"`
}

type kafkaConfig struct {
	Brokers  []string            `envconfig:"SOLVER_KAFKA_BROKERS" default:""`
	Topic    string              `envconfig:"SOLVER_KAFKA_TOPIC" default:""`
	Version  sarama.KafkaVersion `envconfig:"SOLVER_KAFKA_VERSION" default:""`
	ClientID string              `envconfig:"SOLVER_KAFKA_CLIENT_ID" default:""`
}

// SaramaConfig translates the env knobs into a sarama producer config.
func (k *kafkaConfig) SaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Version = k.Version
	if k.ClientID != "" {
		cfg.ClientID = k.ClientID
	}
	return cfg
}

type Auth struct {
	AuthenticationType string `envconfig:"SOLVER_AUTH" default:""`
	JwkCertURL         string `envconfig:"SOLVER_JWK_URL" default:""`
}

// New reads the configuration from the environment. Callers own the
// returned value; it is constructed per process and injected, never held
// as a package-level singleton.
func New() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewDefault returns a config suitable for tests: an in-process sqlite
// database and no external collaborators.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{Type: "sqlite", Name: ":memory:"},
		Service:  &svcConfig{Address: "localhost:0", LogLevel: "debug"},
		Solver:   &solverConfig{Model: "gemini-2.0-flash", InvokeTimeout: 60 * time.Second, MaxWorkers: 1, DryRun: true},
		Minio:    &minioConfig{},
	}
}
