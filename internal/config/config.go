package config

import (
	"fmt"
	"os"

	pkglogger "github.com/communityweb/strtracker/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration loaded from configs/config.<env>.yaml
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Mail     MailConfig     `yaml:"mail"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	JWT      JWTConfig      `yaml:"jwt"`
	CORS     CORSConfig     `yaml:"cors"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // development, production
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"dbname"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

// GetDSN returns the MySQL DSN
func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// StorageConfig selects where report attachments live.
// Driver "local" writes under LocalPath, "s3" uses an S3-compatible bucket.
type StorageConfig struct {
	Driver          string `yaml:"driver"`
	LocalPath       string `yaml:"local_path"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	CDNURL          string `yaml:"cdn_url"`
	BasePath        string `yaml:"base_path"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

type MailConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	FromName       string `yaml:"from_name"`
	FromAddress    string `yaml:"from_address"`
	ProjectAddress string `yaml:"project_address"`
	NoReplyAddress string `yaml:"noreply_address"`
}

type TrackerConfig struct {
	SiteURL         string `yaml:"site_url"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes"`
	InlineFileBytes int64  `yaml:"inline_file_bytes"`
}

type JWTConfig struct {
	Secret    string `yaml:"secret"`
	ExpiresIn int    `yaml:"expires_in"` // seconds
}

type CORSConfig struct {
	AllowOrigins string `yaml:"allow_origins"`
}

// Load reads the YAML config file, expanding ${VAR} references from the environment
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a configuration usable for local development and tests
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8082
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "development"
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 50
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 300
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "local"
	}
	if c.Storage.LocalPath == "" {
		c.Storage.LocalPath = "data"
	}
	if c.Tracker.MaxUploadBytes == 0 {
		c.Tracker.MaxUploadBytes = 10 << 20
	}
	if c.Tracker.InlineFileBytes == 0 {
		c.Tracker.InlineFileBytes = 100 << 10
	}
	if c.JWT.ExpiresIn == 0 {
		c.JWT.ExpiresIn = 86400
	}
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Mode == "development" || c.Server.Mode == "local"
}

// LogResolved logs the resolved configuration without secrets
func LogResolved(cfg *Config) {
	pkglogger.GetLogger().Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("db_host", cfg.Database.Host).
		Str("db_name", cfg.Database.DBName).
		Bool("redis", cfg.Redis.Enabled).
		Str("storage", cfg.Storage.Driver).
		Bool("mail", cfg.Mail.Enabled).
		Str("site_url", cfg.Tracker.SiteURL).
		Msg("config resolved")
}
