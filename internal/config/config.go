package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	Database struct {
		PostgresDSN         string `mapstructure:"postgresDSN"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
	} `mapstructure:"database"`
	Relay struct {
		Enabled      bool          `mapstructure:"enabled"`
		URL          string        `mapstructure:"url"`
		Stream       string        `mapstructure:"stream"`
		Consumer     string        `mapstructure:"consumer"` // durable name
		QueueGroup   string        `mapstructure:"group"`
		SubjectList  []string      `mapstructure:"subjectList"`
		MaxAge       int64         `mapstructure:"maxAge"` // max age of messages in days
		MaxDeliver   int           `mapstructure:"maxDeliver"`
		AckWait      time.Duration `mapstructure:"ackWait"`
		PoolSize     int           `mapstructure:"poolSize"`  // relay worker pool size
		QueueSize    int           `mapstructure:"queueSize"` // relay task queue buffer size
		NakBaseDelay time.Duration `mapstructure:"nakBaseDelay"`
	} `mapstructure:"relay"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 2112)

	// Relay defaults
	v.SetDefault("relay.enabled", false)
	v.SetDefault("relay.stream", "webhook_relay")
	v.SetDefault("relay.consumer", "webhook_ingestor")
	v.SetDefault("relay.group", "webhook_ingestor_group")
	v.SetDefault("relay.subjectList", []string{"v1.webhooks.>"})
	v.SetDefault("relay.maxAge", 7)
	v.SetDefault("relay.maxDeliver", 5)
	v.SetDefault("relay.ackWait", 30*time.Second)
	v.SetDefault("relay.poolSize", 8)
	v.SetDefault("relay.queueSize", 4096)
	v.SetDefault("relay.nakBaseDelay", 2*time.Second)

	v.SetConfigName("default")
	v.SetConfigType("yaml")

	// Add lookup paths
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("/etc/daisi-webhook-ingestor")

	// Try to read from config file
	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map environment variables to config fields
	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		v.Set("relay.url", url)
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		path := append(parts, tag)
		key := strings.Join(path, ".")

		// If it's a struct, recursively bind its fields
		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		_ = v.BindEnv(key)
	}
}
