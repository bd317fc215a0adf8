package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

// S3Config holds the object storage connection settings. Endpoint is only
// set for S3-compatible stores (MinIO etc.) and usually requires path-style
// URLs.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	ForcePathStyle  bool   `yaml:"forcePathStyle"`
}

// CDNConfig holds the public domain that serves uploaded videos.
type CDNConfig struct {
	Domain string `yaml:"domain"`
}

type MediaConfig struct {
	FFmpegPath  string `yaml:"ffmpegPath"`
	FFprobePath string `yaml:"ffprobePath"`
}

// WorkerConfig tunes the duration-extraction worker pool. Zero values fall
// back to defaults when the pool is constructed.
type WorkerConfig struct {
	Threads               int `yaml:"threads"`
	PollIntervalMs        int `yaml:"pollIntervalMs"`
	StuckThresholdMinutes int `yaml:"stuckThresholdMinutes"`
	ShutdownGraceSeconds  int `yaml:"shutdownGraceSeconds"`
}

// RecapConfig configures the external recap generation server. The call is
// best-effort; TimeoutMs bounds a single attempt.
type RecapConfig struct {
	BaseURL   string `yaml:"baseURL"`
	TimeoutMs int    `yaml:"timeoutMs"`
}

type RateLimitConfig struct {
	PerMinute int `yaml:"perMinute"`
}

// JobTTLConfig controls retention of terminal duration-extraction jobs in
// days. Failed jobs are kept longer by default so operators can inspect them.
type JobTTLConfig struct {
	CompletedDays int `yaml:"completedDays"`
	FailedDays    int `yaml:"failedDays"`
}

// RetentionConfig controls TTL-like deletion of old job rows so that the
// jobs table does not grow without bound over time.
type RetentionConfig struct {
	Enabled                bool         `yaml:"enabled"`
	CleanupIntervalMinutes int          `yaml:"cleanupIntervalMinutes"`
	Jobs                   JobTTLConfig `yaml:"jobs"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	S3        S3Config        `yaml:"s3"`
	CDN       CDNConfig       `yaml:"cdn"`
	Media     MediaConfig     `yaml:"media"`
	Worker    WorkerConfig    `yaml:"worker"`
	Recap     RecapConfig     `yaml:"recap"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Retention RetentionConfig `yaml:"retention"`
}

func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	return &cfg
}
