package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Webhook struct {
		Secret string `yaml:"secret"`
	} `yaml:"webhook"`

	OpenAI struct {
		APIKey         string `yaml:"apiKey"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
	} `yaml:"openai"`

	GitHub struct {
		Token string `yaml:"token"`
	} `yaml:"github"`

	Redis struct {
		Addr string `yaml:"addr"`
		DB   int    `yaml:"db"`
	} `yaml:"redis"`

	Queue struct {
		Driver string `yaml:"driver"` // redis | memory
	} `yaml:"queue"`

	Store struct {
		Driver           string `yaml:"driver"` // redis | memory
		RetentionSeconds int    `yaml:"retentionSeconds"`
	} `yaml:"store"`

	Worker struct {
		Count              int `yaml:"count"`
		MaxAttempts        int `yaml:"maxAttempts"`
		TaskTimeoutSeconds int `yaml:"taskTimeoutSeconds"`
		BaseBackoffSeconds int `yaml:"baseBackoffSeconds"`
		MaxBackoffSeconds  int `yaml:"maxBackoffSeconds"`
	} `yaml:"worker"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | "" (disabled)
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`
}

// Load reads the yaml config file, then lets environment variables
// override the secret-bearing fields so deployments can keep credentials
// out of the file.
func Load(path string) (*Config, error) {
	var cfg Config
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("GITHUB_WEBHOOK_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Queue.Driver == "" {
		c.Queue.Driver = "redis"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "redis"
	}
	if c.Store.RetentionSeconds == 0 {
		c.Store.RetentionSeconds = 3600
	}
	if c.Worker.Count == 0 {
		c.Worker.Count = 4
	}
	if c.Worker.MaxAttempts == 0 {
		c.Worker.MaxAttempts = 3
	}
	if c.Worker.TaskTimeoutSeconds == 0 {
		c.Worker.TaskTimeoutSeconds = 600
	}
	if c.Worker.BaseBackoffSeconds == 0 {
		c.Worker.BaseBackoffSeconds = 2
	}
	if c.Worker.MaxBackoffSeconds == 0 {
		c.Worker.MaxBackoffSeconds = 30
	}
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.Store.RetentionSeconds) * time.Second
}

func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.Worker.TaskTimeoutSeconds) * time.Second
}

func (c *Config) BaseBackoff() time.Duration {
	return time.Duration(c.Worker.BaseBackoffSeconds) * time.Second
}

func (c *Config) MaxBackoff() time.Duration {
	return time.Duration(c.Worker.MaxBackoffSeconds) * time.Second
}

// MySQLDSN helper to build the MySQL connection string
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN helper for the lib/pq driver
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}
