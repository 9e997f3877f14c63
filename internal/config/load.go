package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load,
// e.g. TASKR_SERVER_PORT for server.port.
const EnvPrefix = "TASKR"

// defaults lists every configuration key. Registering all of them is what
// lets viper resolve environment variables during Unmarshal.
var defaults = map[string]interface{}{
	"server.port":             8080,
	"server.log_level":        "info",
	"server.read_timeout":     15 * time.Second,
	"server.write_timeout":    30 * time.Second,
	"server.shutdown_timeout": 10 * time.Second,
	"server.embedded_worker":  false,
	"server.max_upload_bytes": int64(32 << 20),

	"database.url":               "",
	"database.max_open_conns":    25,
	"database.max_idle_conns":    25,
	"database.conn_max_lifetime": 5 * time.Minute,

	"storage.backend":              "local",
	"storage.local.root":           "tasks",
	"storage.s3.bucket":            "",
	"storage.s3.region":            "us-east-1",
	"storage.s3.endpoint":          "",
	"storage.s3.prefix":            "tasks",
	"storage.s3.access_key_id":     "",
	"storage.s3.secret_access_key": "",
	"storage.s3.use_path_style":    false,

	"reminder.lead":             time.Hour,
	"reminder.poll_interval":    5 * time.Second,
	"reminder.worker_count":     2,
	"reminder.batch_size":       50,
	"reminder.queue_size":       100,
	"reminder.delivery_timeout": 30 * time.Second,
	"reminder.stuck_age":        10 * time.Minute,

	"mail.sendgrid_api_key": "",
	"mail.from_address":     "",
	"mail.from_name":        "Taskr",
}

// Load reads configuration from defaults, an optional config file, a .env
// file in the working directory and environment variables, in increasing
// order of precedence. An empty configFile searches for config.yaml in the
// working directory; a missing file there is not an error.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	switch c.Storage.Backend {
	case "local":
		if strings.TrimSpace(c.Storage.Local.Root) == "" {
			return errors.New("config validation failed: storage.local.root is required for the local backend")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("config validation failed: storage.s3.bucket is required for the s3 backend")
		}
		if (c.Storage.S3.AccessKeyID == "") != (c.Storage.S3.SecretAccessKey == "") {
			return errors.New("config validation failed: storage.s3 access_key_id and secret_access_key must be set together")
		}
	}

	if c.Mail.SendGridAPIKey != "" && c.Mail.FromAddress == "" {
		return errors.New("config validation failed: mail.from_address is required when mail.sendgrid_api_key is set")
	}

	return nil
}
