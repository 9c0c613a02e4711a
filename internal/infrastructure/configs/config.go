package configs

import (
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/teamrelay/internal/infrastructure/env"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DriverMemory   = "memory"
	DriverBadger   = "badger"
	DriverMongo    = "mongo"
	DriverRedis    = "redis"
	DriverRabbitMQ = "rabbitmq"
)

type Config struct {
	HTTP       HTTPConfig           `koanf:"http"`
	WS         WSConfig             `koanf:"ws"`
	Broadcast  BroadcastConfig      `koanf:"broadcast"`
	Registry   StoreConfig          `koanf:"registry"`
	MessageLog StoreConfig          `koanf:"message_log"`
	Queue      QueueConfig          `koanf:"queue"`
	Mongo      MongoConfig          `koanf:"mongo"`
	Badger     BadgerConfig         `koanf:"badger"`
	Redis      RedisConfig          `koanf:"redis"`
	Logger     logging.LoggerConfig `koanf:"logger"`
	Tracing    TracingConfig        `koanf:"tracing"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	AllowedHeaders []string      `koanf:"allowed_headers"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
}

type WSConfig struct {
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	PongWait       time.Duration `koanf:"pong_wait"`
	MaxMessageSize int64         `koanf:"max_message_size"`
}

type BroadcastConfig struct {
	// MaxConcurrency caps in-flight pushes per broadcast; 0 means unbounded.
	MaxConcurrency int `koanf:"max_concurrency"`
}

type StoreConfig struct {
	Driver string `koanf:"driver"`
}

type QueueConfig struct {
	Driver           string        `koanf:"driver"`
	URI              string        `koanf:"uri"`
	Exchange         string        `koanf:"exchange"`
	Queue            string        `koanf:"queue"`
	BatchSize        int           `koanf:"batch_size"`
	BatchWindow      time.Duration `koanf:"batch_window"`
	EmbeddedConsumer bool          `koanf:"embedded_consumer"`
}

type MongoConfig struct {
	URI                   string        `koanf:"uri"`
	Database              string        `koanf:"database"`
	ConnectionTimeout     time.Duration `koanf:"connection_timeout"`
	ConnectionsCollection string        `koanf:"connections_collection"`
	MessagesCollection    string        `koanf:"messages_collection"`
}

type BadgerConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
	Environment string `koanf:"environment"`
	Endpoint    string `koanf:"endpoint"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load from YAML file if it exists
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if err := oneOf("registry.driver", c.Registry.Driver, DriverMemory, DriverBadger, DriverMongo, DriverRedis); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("message_log.driver", c.MessageLog.Driver, DriverMemory, DriverBadger, DriverMongo); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("queue.driver", c.Queue.Driver, DriverMemory, DriverRabbitMQ); err != nil {
		errs = append(errs, err)
	}
	if c.Broadcast.MaxConcurrency < 0 {
		errs = append(errs, errors.New("broadcast.max_concurrency must not be negative"))
	}
	if c.Queue.BatchSize <= 0 {
		errs = append(errs, errors.New("queue.batch_size must be positive"))
	}
	if c.Queue.Driver == DriverMemory && c.Queue.BatchWindow <= 0 {
		errs = append(errs, errors.New("queue.batch_window must be positive for the memory driver"))
	}
	if c.Queue.Driver == DriverRabbitMQ && c.Queue.URI == "" {
		errs = append(errs, errors.New("queue.uri is required for the rabbitmq driver"))
	}
	if c.usesDriver(DriverMongo) && c.Mongo.URI == "" {
		errs = append(errs, errors.New("mongo.uri is required for the mongo driver"))
	}
	if c.usesDriver(DriverBadger) && !c.Badger.InMemory && c.Badger.Path == "" {
		errs = append(errs, errors.New("badger.path is required unless badger.in_memory is set"))
	}
	if c.Registry.Driver == DriverRedis && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required for the redis driver"))
	}

	return errors.Join(errs...)
}

func (c *Config) usesDriver(driver string) bool {
	return c.Registry.Driver == driver || c.MessageLog.Driver == driver
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v, got %q", key, allowed, value)
}

func applyDefaults(k *koanf.Koanf) {
	// HTTP defaults
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})
	setDefault(k, "http.allowed_headers", []string{"Content-Type", "Authorization", "X-Connection-Id"})

	// Websocket defaults
	setDefault(k, "ws.write_timeout", 10*time.Second)
	setDefault(k, "ws.pong_wait", 60*time.Second)
	setDefault(k, "ws.max_message_size", 32*1024)

	setDefault(k, "broadcast.max_concurrency", 64)

	// Store defaults
	setDefault(k, "registry.driver", DriverMemory)
	setDefault(k, "message_log.driver", DriverMemory)

	setDefault(k, "queue.driver", DriverMemory)
	setDefault(k, "queue.exchange", "teamrelay")
	setDefault(k, "queue.queue", "messages")
	setDefault(k, "queue.batch_size", 10)
	setDefault(k, "queue.batch_window", 250*time.Millisecond)
	setDefault(k, "queue.embedded_consumer", true)

	setDefault(k, "mongo.database", "teamrelay")
	setDefault(k, "mongo.connection_timeout", 20*time.Second)
	setDefault(k, "mongo.connections_collection", "sessions")
	setDefault(k, "mongo.messages_collection", "messages")

	setDefault(k, "badger.path", "./data/badger")

	setDefault(k, "logger.encoding", "json")
	setDefault(k, "logger.level", "info")
	setDefault(k, "logger.logger", "zap")

	setDefault(k, "tracing.service_name", "teamrelay")
	setDefault(k, "tracing.environment", "development")
	setDefault(k, "tracing.endpoint", "http://localhost:4318/v1/traces")
}

func applyEnvOverrides(k *koanf.Koanf) {
	// HTTP config from env
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if readTimeout := env.GetInt("HTTP_READ_TIMEOUT_SECONDS", 0); readTimeout > 0 {
		k.Set("http.read_timeout", time.Duration(readTimeout)*time.Second)
	}
	if writeTimeout := env.GetInt("HTTP_WRITE_TIMEOUT_SECONDS", 0); writeTimeout > 0 {
		k.Set("http.write_timeout", time.Duration(writeTimeout)*time.Second)
	}

	if limit := env.GetInt("BROADCAST_MAX_CONCURRENCY", -1); limit >= 0 {
		k.Set("broadcast.max_concurrency", limit)
	}

	// Store config from env
	if driver := env.GetString("REGISTRY_DRIVER", ""); driver != "" {
		k.Set("registry.driver", driver)
	}
	if driver := env.GetString("MESSAGE_LOG_DRIVER", ""); driver != "" {
		k.Set("message_log.driver", driver)
	}
	if uri := env.GetString("MONGODB_URI", ""); uri != "" {
		k.Set("mongo.uri", uri)
	}
	if database := env.GetString("MONGODB_DATABASE", ""); database != "" {
		k.Set("mongo.database", database)
	}
	if path := env.GetString("BADGER_PATH", ""); path != "" {
		k.Set("badger.path", path)
	}
	if addr := env.GetString("REDIS_ADDR", ""); addr != "" {
		k.Set("redis.addr", addr)
	}
	if password := env.GetString("REDIS_PASSWORD", ""); password != "" {
		k.Set("redis.password", password)
	}

	// Queue config from env
	if driver := env.GetString("QUEUE_DRIVER", ""); driver != "" {
		k.Set("queue.driver", driver)
	}
	if uri := env.GetString("RABBITMQ_URI", ""); uri != "" {
		k.Set("queue.uri", uri)
	}
	if batchSize := env.GetInt("QUEUE_BATCH_SIZE", 0); batchSize > 0 {
		k.Set("queue.batch_size", batchSize)
	}

	if logger := env.GetString("LOGGER_LOGGER", ""); logger != "" {
		k.Set("logger.logger", logger)
	}
	if level := env.GetString("LOGGER_LEVEL", ""); level != "" {
		k.Set("logger.level", level)
	}
	if path := env.GetString("LOGGER_FILE_PATH", ""); path != "" {
		k.Set("logger.file_path", path)
	}

	if endpoint := env.GetString("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
		k.Set("tracing.enabled", true)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
