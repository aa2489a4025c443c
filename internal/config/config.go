package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	S3        S3Config        `mapstructure:"s3"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Push      PushConfig      `mapstructure:"push"`
	Summary   SummaryConfig   `mapstructure:"summary"`
	Feedback  FeedbackConfig  `mapstructure:"feedback"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"` // gin mode: debug, release, test
	// Timezone used to decide what "today" is for cooldowns and reminders.
	Timezone string `mapstructure:"timezone"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	// PublicBaseURL prefixes object keys to build public photo URLs.
	// Empty means "{endpoint}/{bucket}".
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or text
	// Rollbar receives error-level records when a token is present.
	RollbarToken string `mapstructure:"rollbar_token"`
	Environment  string `mapstructure:"environment"`
}

type PushConfig struct {
	TelegramToken string `mapstructure:"telegram_token"`
	ResendAPIKey  string `mapstructure:"resend_api_key"`
	EmailFrom     string `mapstructure:"email_from"`
	// AppBaseURL is prepended to relative deep links in push messages.
	AppBaseURL string `mapstructure:"app_base_url"`
}

type SummaryConfig struct {
	Cooldown          time.Duration `mapstructure:"cooldown"`
	MaxPhotoBytes     int64         `mapstructure:"max_photo_bytes"`
	PhotoMaxDimension int           `mapstructure:"photo_max_dimension"`
	PhotoJPEGQuality  int           `mapstructure:"photo_jpeg_quality"`
}

type FeedbackConfig struct {
	PublicObservationTTL time.Duration `mapstructure:"public_observation_ttl"`
}

type SchedulerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ReminderSpec string `mapstructure:"reminder_spec"`
}

// Location resolves the configured timezone, falling back to UTC.
func (c ServerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, summary.cooldown -> SUMMARY_COOLDOWN
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.timezone", "UTC")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "fitcoach")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "fitcoach")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.public_base_url", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "1h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.rollbar_token", "")
	v.SetDefault("log.environment", "development")
	v.SetDefault("push.telegram_token", "")
	v.SetDefault("push.resend_api_key", "")
	v.SetDefault("push.email_from", "Fitcoach <noreply@fitcoach.app>")
	v.SetDefault("push.app_base_url", "")
	v.SetDefault("summary.cooldown", "168h")
	v.SetDefault("summary.max_photo_bytes", 10<<20)
	v.SetDefault("summary.photo_max_dimension", 1600)
	v.SetDefault("summary.photo_jpeg_quality", 85)
	v.SetDefault("feedback.public_observation_ttl", "168h")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.reminder_spec", "0 9 * * *")

	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil // env vars and defaults are enough
	} else if err != nil {
		return
	}

	// Duration strings ("168h") decode straight into time.Duration fields.
	err = v.Unmarshal(&config)
	if err != nil {
		return
	}
	return config, nil
}
