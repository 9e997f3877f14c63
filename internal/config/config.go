package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	Reminder ReminderConfig `mapstructure:"reminder" validate:"required"`
	Mail     MailConfig     `mapstructure:"mail"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error fatal"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// EmbeddedWorker runs the reminder runner inside the serve process.
	EmbeddedWorker bool `mapstructure:"embedded_worker"`
	// MaxUploadBytes bounds the multipart body accepted by the upload endpoint.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// StorageConfig selects and configures the backend holding uploaded task files.
type StorageConfig struct {
	Backend string             `mapstructure:"backend" validate:"required,oneof=local s3"`
	Local   LocalStorageConfig `mapstructure:"local"`
	S3      S3StorageConfig    `mapstructure:"s3"`
}

// LocalStorageConfig configures the filesystem backend.
type LocalStorageConfig struct {
	Root string `mapstructure:"root"`
}

// S3StorageConfig configures the S3 backend. Static keys are optional; the
// default AWS credential chain is used when they are empty.
type S3StorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"          validate:"omitempty,url"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// ReminderConfig controls reminder scheduling and the reminder runner.
type ReminderConfig struct {
	// Lead is how long before the due date a reminder fires.
	Lead         time.Duration `mapstructure:"lead"          validate:"gte=0"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	WorkerCount  int           `mapstructure:"worker_count"  validate:"gt=0"`
	BatchSize    int           `mapstructure:"batch_size"    validate:"gt=0"`
	QueueSize    int           `mapstructure:"queue_size"    validate:"gt=0"`
	// DeliveryTimeout bounds a single notifier call.
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout" validate:"gt=0"`
	// StuckAge is how long a reminder may stay in processing before it is
	// returned to pending. It must exceed DeliveryTimeout.
	StuckAge time.Duration `mapstructure:"stuck_age" validate:"gt=0,gtfield=DeliveryTimeout"`
}

// MailConfig configures outbound reminder email. An empty SendGridAPIKey
// selects the log-only notifier.
type MailConfig struct {
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	FromAddress    string `mapstructure:"from_address"     validate:"omitempty,email"`
	FromName       string `mapstructure:"from_name"`
}
