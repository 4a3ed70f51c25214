package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "APP"

type AppConfig struct {
	API        *APIConfig        `mapstructure:"api"`
	Gin        *GinConfig        `mapstructure:"gin"`
	Database   *DatabaseConfig   `mapstructure:"database"`
	Postgres   *PostgresConfig   `mapstructure:"postgres"`
	Attendance *AttendanceConfig `mapstructure:"attendance"`
	Redis      *RedisConfig      `mapstructure:"redis"`
	Kafka      *KafkaConfig      `mapstructure:"kafka"`
}

type APIConfig struct {
	Environment        string   `mapstructure:"environment"`
	Port               string   `mapstructure:"port"`
	BaseURL            string   `mapstructure:"base_url"`
	AllowedCORSDomains []string `mapstructure:"allowed_cors_domains"`
	JWTSigningKey      string   `mapstructure:"jwt_signing_key"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode)
}

type AttendanceConfig struct {
	LifecycleInterval time.Duration `mapstructure:"lifecycle_interval"`
	RotationInterval  time.Duration `mapstructure:"rotation_interval"`
	// RunWorkers disables the scheduler and the rotation ticker on API-only replicas.
	RunWorkers bool `mapstructure:"run_workers"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

func (c *RedisConfig) Enabled() bool {
	return c != nil && c.Addr != ""
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

func (c *KafkaConfig) Enabled() bool {
	return c != nil && len(c.Brokers) > 0 && c.Topic != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.environment", "development")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.base_url", "localhost:8080")
	v.SetDefault("gin.mode", "debug")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.sqlite_path", "attendance.db")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("attendance.lifecycle_interval", 30*time.Second)
	v.SetDefault("attendance.rotation_interval", 20*time.Second)
	v.SetDefault("attendance.run_workers", true)
	v.SetDefault("redis.key", "attendance:rotation:last_rotated_at")
}

func Load(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("conf.Validate -> %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		// Intervals and connections are read once; a restart applies changes.
		zap.L().Info("config file changed, restart to apply", zap.String("file", e.Name), zap.String("op", e.Op.String()))
	})
	v.WatchConfig()

	return conf, nil
}

func (c *AppConfig) Validate() error {
	return validation.ValidateStruct(
		c,
		validation.Field(&c.API, validation.Required),
		validation.Field(&c.Gin, validation.Required),
		validation.Field(&c.Database, validation.Required),
		validation.Field(&c.Attendance, validation.Required),
	)
}

func (c APIConfig) Validate() error {
	return validation.ValidateStruct(
		&c,
		validation.Field(&c.Environment, validation.Required, validation.In("development", "production")),
		validation.Field(&c.Port, validation.Required, is.Port),
		validation.Field(&c.JWTSigningKey, validation.Required, validation.Length(16, 0)),
	)
}

func (c GinConfig) Validate() error {
	return validation.ValidateStruct(
		&c,
		validation.Field(&c.Mode, validation.Required, validation.In("debug", "release", "test")),
	)
}

func (c DatabaseConfig) Validate() error {
	var pathRules []validation.Rule
	if c.Driver == "sqlite" {
		pathRules = append(pathRules, validation.Required)
	}

	return validation.ValidateStruct(
		&c,
		validation.Field(&c.Driver, validation.Required, validation.In("postgres", "sqlite")),
		validation.Field(&c.SQLitePath, pathRules...),
	)
}

func (c AttendanceConfig) Validate() error {
	return validation.ValidateStruct(
		&c,
		validation.Field(&c.LifecycleInterval, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.RotationInterval, validation.Required, validation.Min(time.Second)),
	)
}
