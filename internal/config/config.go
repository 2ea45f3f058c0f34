package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env           string              `mapstructure:"env"`
	Server        ServerConfig        `mapstructure:"server"`
	Grpc          GrpcConfig          `mapstructure:"grpc"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Assets        AssetsConfig        `mapstructure:"assets"`
	Submission    SubmissionConfig    `mapstructure:"submission"`
	UpcomingEvent UpcomingEventConfig `mapstructure:"upcoming_event"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout_seconds"`
	WriteTimeout int      `mapstructure:"write_timeout_seconds"`
	IdleTimeout  int      `mapstructure:"idle_timeout_seconds"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

type GrpcConfig struct {
	Port string `mapstructure:"port"`
}

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type MongoConfig struct {
	URI                    string `mapstructure:"uri"`
	Name                   string `mapstructure:"name"`
	MaxPoolSize            uint64 `mapstructure:"max_pool_size"`
	ServerSelectionSeconds int    `mapstructure:"server_selection_timeout_seconds"`
}

type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            string `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time_seconds"`
}

type AssetsConfig struct {
	CloudName            string `mapstructure:"cloud_name"`
	UploadPreset         string `mapstructure:"upload_preset"`
	APIKey               string `mapstructure:"api_key"`
	APISecret            string `mapstructure:"api_secret"`
	Folder               string `mapstructure:"folder"`
	MaxBytes             int64  `mapstructure:"max_bytes"`
	UploadTimeoutSeconds int    `mapstructure:"upload_timeout_seconds"`
	DeleteTimeoutSeconds int    `mapstructure:"delete_timeout_seconds"`
}

func (c AssetsConfig) UploadTimeout() time.Duration {
	return seconds(c.UploadTimeoutSeconds, 30)
}

func (c AssetsConfig) DeleteTimeout() time.Duration {
	return seconds(c.DeleteTimeoutSeconds, 10)
}

type SubmissionConfig struct {
	UploadConcurrency     int `mapstructure:"upload_concurrency"`
	PersistTimeoutSeconds int `mapstructure:"persist_timeout_seconds"`
}

func (c SubmissionConfig) PersistTimeout() time.Duration {
	return seconds(c.PersistTimeoutSeconds, 10)
}

const (
	ReplaceDeleteFirst = "delete_first"
	ReplaceInsertFirst = "insert_first"
)

type UpcomingEventConfig struct {
	ReplaceStrategy string `mapstructure:"replace_strategy"`
}

const (
	BrokerNone  = "none"
	BrokerNATS  = "nats"
	BrokerKafka = "kafka"
)

type NotificationsConfig struct {
	Broker string      `mapstructure:"broker"`
	NATS   NATSConfig  `mapstructure:"nats"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type TelemetryConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	Endpoint              string `mapstructure:"endpoint"`
	ExportIntervalSeconds int    `mapstructure:"export_interval_seconds"`
}

func (c TelemetryConfig) ExportInterval() time.Duration {
	return seconds(c.ExportIntervalSeconds, 10)
}

func Load() (*Config, error) {
	// Get environment from ENV, default to "local"
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}

	v := viper.New()
	setDefaults(v, env)

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	v.SetConfigType("yaml")
	v.AddConfigPath("/configs")   // Kubernetes mount
	v.AddConfigPath("./configs")  // repo root
	v.AddConfigPath("../configs") // IDE from cmd/
	v.AddConfigPath("../../configs")

	// Config file is optional, ENV variables still apply
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("No config file found (will use ENV variables): %v\n", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("database.postgres.user", "DB_USER")
	v.BindEnv("database.postgres.password", "DB_PASSWORD")
	v.BindEnv("database.mongo.uri", "MONGO_URI")
	v.BindEnv("assets.cloud_name", "CLOUDINARY_CLOUD_NAME")
	v.BindEnv("assets.upload_preset", "CLOUDINARY_UPLOAD_PRESET")
	v.BindEnv("assets.api_key", "CLOUDINARY_API_KEY")
	v.BindEnv("assets.api_secret", "CLOUDINARY_API_SECRET")
	v.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("env", env)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 60)
	v.SetDefault("server.idle_timeout_seconds", 60)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("grpc.port", "9090")
	v.SetDefault("database.driver", DriverMongo)
	v.SetDefault("database.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("database.mongo.name", "membership")
	v.SetDefault("database.mongo.max_pool_size", 50)
	v.SetDefault("database.mongo.server_selection_timeout_seconds", 5)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", "5432")
	v.SetDefault("database.postgres.name", "membership")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 25)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime_seconds", 300)
	v.SetDefault("database.postgres.conn_max_idle_time_seconds", 60)
	v.SetDefault("assets.folder", "membership")
	v.SetDefault("assets.max_bytes", 5<<20)
	v.SetDefault("assets.upload_timeout_seconds", 30)
	v.SetDefault("assets.delete_timeout_seconds", 10)
	v.SetDefault("submission.upload_concurrency", 4)
	v.SetDefault("submission.persist_timeout_seconds", 10)
	v.SetDefault("upcoming_event.replace_strategy", ReplaceDeleteFirst)
	v.SetDefault("notifications.broker", BrokerNone)
	v.SetDefault("notifications.nats.subject", "membership.notices")
	v.SetDefault("notifications.kafka.topic", "membership.notices")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.export_interval_seconds", 10)
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverMongo, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.UpcomingEvent.ReplaceStrategy {
	case ReplaceDeleteFirst, ReplaceInsertFirst:
	default:
		return fmt.Errorf("unsupported upcoming event replace strategy %q", c.UpcomingEvent.ReplaceStrategy)
	}
	switch c.Notifications.Broker {
	case BrokerNone, BrokerNATS, BrokerKafka:
	default:
		return fmt.Errorf("unsupported notification broker %q", c.Notifications.Broker)
	}
	return nil
}

func seconds(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}
